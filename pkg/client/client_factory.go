package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/fpt/go-echoassist/pkg/client/anthropic"
	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/client/gemini"
	"github.com/fpt/go-echoassist/pkg/client/ollama"
	"github.com/fpt/go-echoassist/pkg/client/openai"
	"github.com/fpt/go-echoassist/pkg/client/openrouter"
	"github.com/fpt/go-echoassist/pkg/domain"
)

// Backends lists the provider names NewProvider understands, in registration order.
var Backends = []string{
	domain.ProviderGemini,
	domain.ProviderOpenAI,
	domain.ProviderAnthropic,
	domain.ProviderOpenRouter,
	domain.ProviderOllama,
}

// NewProvider builds the provider adapter for backend. A missing credential
// surfaces as a *domain.ConfigurationError.
func NewProvider(ctx context.Context, backend string, opts core.ProviderOptions) (domain.Provider, error) {
	switch strings.ToLower(backend) {
	case domain.ProviderGemini:
		return gemini.NewGeminiClient(ctx, opts)
	case domain.ProviderOpenAI:
		return openai.NewOpenAIClient(opts)
	case domain.ProviderAnthropic:
		return anthropic.NewAnthropicClient(opts)
	case domain.ProviderOpenRouter:
		return openrouter.NewOpenRouterClient(opts)
	case domain.ProviderOllama:
		return ollama.NewOllamaClient(opts)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}
