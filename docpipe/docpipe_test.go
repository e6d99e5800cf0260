package docpipe

import (
	"context"
	"errors"

	"github.com/legalgraph/lawreader/llm"
)

// scriptedChat routes each prompt to a canned response.
type scriptedChat struct {
	respond func(prompt string) (string, error)
	calls   int
}

func (s *scriptedChat) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.calls++
	prompt := ""
	for _, m := range req.Messages {
		if m.Role == "user" {
			prompt = m.Content
		}
	}
	content, err := s.respond(prompt)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{Content: content, Model: "scripted"}, nil
}

func (s *scriptedChat) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("scripted chat has no embeddings")
}
