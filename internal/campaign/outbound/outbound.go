package outbound

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type Config struct {
	Provider   string
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
}

// Gateway performs one analytical task and returns the raw JSON reply.
type Gateway interface {
	Submit(ctx context.Context, task entity.Task, prompt string) ([]byte, error)
}

// New builds the configured provider. It returns ErrNotConfigured when the
// provider has no API key.
func New(ctx context.Context, cfg Config) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		g, err := NewGemini(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderOpenRouter:
		if cfg.OpenRouter.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenRouter(cfg.OpenRouter), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}
