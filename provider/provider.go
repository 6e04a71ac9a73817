package provider

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/shopchat/config"
	"github.com/mohammad-safakhou/shopchat/internal/rag"
	gemini_provider "github.com/mohammad-safakhou/shopchat/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/shopchat/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

// Provider is the interface that all LLM implementations must satisfy.
// Generate produces a completion for an already-assembled prompt;
// CreateEmbedding maps texts to vectors in input order.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Provider) {
	case OpenAI:
		return openai_provider.NewOpenAIClient(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.CompletionModel,
			cfg.OpenAI.EmbeddingModel,
			cfg.OpenAI.Temperature,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Timeout,
		), nil
	case Gemini:
		return gemini_provider.NewGeminiClient(
			cfg.Gemini.APIKey,
			cfg.Gemini.BaseURL,
			cfg.Gemini.CompletionModel,
			cfg.Gemini.EmbeddingModel,
			cfg.Gemini.Timeout,
		), nil
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", rag.ErrConfiguration, cfg.Provider)
	}
}
