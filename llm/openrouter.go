package llm

import "context"

// NewOpenRouter creates a provider backed by OpenRouter's OpenAI-compatible
// API. OpenRouter does not serve embeddings, so Embed returns an error;
// pair it with a separate embedding provider.
func NewOpenRouter(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	return &openRouterProvider{base: newOpenAICompatClient(cfg)}
}

type openRouterProvider struct {
	base openAICompatClient
}

func (p *openRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openRouterProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrEmbedUnsupported
}
