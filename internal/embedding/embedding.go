// Package embedding turns passages and queries into fixed-length vectors via
// an external embedding provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Provider is the narrow capability the service needs from an LLM provider.
type Provider interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Service embeds text with a fixed dimensionality. Changing the underlying
// provider or model invalidates every stored vector and requires a full
// reindex.
type Service struct {
	provider Provider
	dims     int
}

func New(provider Provider, dims int) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", rag.ErrConfiguration)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive, got %d", rag.ErrConfiguration, dims)
	}
	return &Service{provider: provider, dims: dims}, nil
}

// Dimensions reports the configured vector length.
func (s *Service) Dimensions() int { return s.dims }

// Embed maps a single text to its vector.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch maps texts to vectors in order. It exists purely for
// throughput; results are identical to calling Embed per item.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := s.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rag.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", rag.ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	for i, vec := range vecs {
		if len(vec) != s.dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", rag.ErrEmbeddingUnavailable, i, len(vec), s.dims)
		}
	}
	return vecs, nil
}
