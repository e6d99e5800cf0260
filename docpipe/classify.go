package docpipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/legalgraph/lawreader/llm"
)

// maxClassifyChars bounds the text sample sent to the classifier; document
// type is almost always evident from the opening.
const maxClassifyChars = 1000

// Classification is one zero-shot labeling outcome.
type Classification struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// Classifier assigns one label from a closed set to a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (*Classification, error)
}

// llmClassifier does zero-shot classification through a chat model.
type llmClassifier struct {
	chat llm.Provider
}

// NewLLMClassifier returns a Classifier backed by the given chat provider.
func NewLLMClassifier(chat llm.Provider) Classifier {
	return &llmClassifier{chat: chat}
}

const classifyPrompt = `Classify the following text into exactly one of these categories:
%s

Respond with JSON only, in this exact shape:
{"label": "<one of the categories, verbatim>", "confidence": <number between 0 and 1>}

Text:
%s`

func (c *llmClassifier) Classify(ctx context.Context, text string, labels []string) (*Classification, error) {
	sample := strings.TrimSpace(truncate(text, maxClassifyChars))
	if sample == "" {
		return nil, fmt.Errorf("%w: empty text", ErrClassification)
	}

	resp, err := c.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a precise document classifier."},
			{Role: "user", Content: fmt.Sprintf(classifyPrompt, "- "+strings.Join(labels, "\n- "), sample)},
		},
		Temperature:    0.0,
		MaxTokens:      100,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}

	cls, err := parseClassification(resp.Content, labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	return cls, nil
}

// parseClassification decodes the model's JSON and validates the label
// against the allowed set, case-insensitively.
func parseClassification(raw string, labels []string) (*Classification, error) {
	jsonStr, err := firstJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var cls Classification
	if err := json.Unmarshal([]byte(jsonStr), &cls); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(jsonStr)
		if rerr != nil {
			return nil, fmt.Errorf("parsing classification: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &cls); err != nil {
			return nil, fmt.Errorf("parsing repaired classification: %w", err)
		}
	}

	for _, l := range labels {
		if strings.EqualFold(strings.TrimSpace(cls.Label), l) {
			cls.Label = l
			return &cls, nil
		}
	}
	return nil, fmt.Errorf("label %q not in allowed set", cls.Label)
}

// firstJSONObject locates a JSON object in LLM output, tolerating code
// fences and surrounding prose.
func firstJSONObject(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "```"); i >= 0 {
		raw = raw[i+3:]
		raw = strings.TrimPrefix(raw, "json")
		if j := strings.Index(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object found in response")
	}
	return raw[start : end+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
