package docpipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/legalgraph/lawreader/llm"
)

const summarizePrompt = `You are an expert legal summarizer. Create a clear, concise simplification of the provided legal text in plain language that a layperson can understand.%s

Guidelines:
- Use plain English, avoid legal jargon where possible
- Explain key concepts in simple terms
- Focus on the main points and outcomes
- Keep the summary concise but comprehensive
- If technical legal terms must be used, provide brief explanations

Text to summarize:
%s

Summary:`

// Summarizer produces plain-language summaries of legal text.
type Summarizer struct {
	chat llm.Provider
}

// NewSummarizer returns a Summarizer backed by the given provider.
func NewSummarizer(chat llm.Provider) *Summarizer {
	return &Summarizer{chat: chat}
}

// Summarize returns a plain-language summary. docContext, when non-empty,
// tells the model what kind of document the text came from.
func (s *Summarizer) Summarize(ctx context.Context, text, docContext string) (string, error) {
	contextInfo := ""
	if docContext != "" {
		contextInfo = fmt.Sprintf(" This is from a %s.", docContext)
	}

	resp, err := s.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are an expert legal summarizer."},
			{Role: "user", Content: fmt.Sprintf(summarizePrompt, contextInfo, text)},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
