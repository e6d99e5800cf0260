// Package embedding turns node text into unit-length vectors suitable for
// cosine-similarity search. It batches requests to the underlying LLM
// provider and normalizes every returned vector.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/legalgraph/lawreader/llm"
)

// DefaultDimensions matches nomic-embed-text, the default embedding model.
const DefaultDimensions = 768

const batchSize = 32

// Embedder generates normalized embeddings through an LLM provider.
type Embedder struct {
	provider   llm.Provider
	dimensions int
}

// New creates an Embedder. dimensions must match what the provider's
// embedding model produces; pass 0 for DefaultDimensions.
func New(provider llm.Provider, dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{provider: provider, dimensions: dimensions}
}

// Dimensions returns the embedding width this embedder expects.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed returns a normalized embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in provider-sized batches, preserving order.
// Every returned vector is L2-normalized.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := e.provider.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vecs), end-start)
		}

		for i, v := range vecs {
			if len(v) != e.dimensions {
				return nil, fmt.Errorf("embedding %d has %d dimensions, want %d",
					start+i, len(v), e.dimensions)
			}
			out = append(out, Normalize(v))
		}
	}
	return out, nil
}

// Normalize returns v scaled to unit length. Zero vectors are returned
// unchanged so their cosine similarity with anything is zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Cosine returns the cosine similarity of two vectors. For unit vectors
// this is the plain dot product. Mismatched lengths score zero.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}
