package config

import (
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/fpt/go-echoassist/pkg/domain"
)

// Credentials holds the per-provider secrets. An empty value means the
// provider is skipped at startup.
type Credentials struct {
	GeminiAPIKey     string
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	OpenRouterAPIKey string
	OllamaHost       string
}

// LoadCredentials reads .env files (missing files are fine) and then the
// process environment. Variables already set in the environment win.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return CredentialsFromEnv(), nil
}

func CredentialsFromEnv() Credentials {
	get := func(key string) string { return strings.TrimSpace(os.Getenv(key)) }
	return Credentials{
		GeminiAPIKey:     get("GEMINI_API_KEY"),
		OpenAIAPIKey:     get("OPENAI_API_KEY"),
		AnthropicAPIKey:  get("ANTHROPIC_API_KEY"),
		OpenRouterAPIKey: get("OPENROUTER_API_KEY"),
		OllamaHost:       get("OLLAMA_HOST"),
	}
}

// For returns the credential for provider name.
func (c Credentials) For(name string) string {
	switch name {
	case domain.ProviderGemini:
		return c.GeminiAPIKey
	case domain.ProviderOpenAI:
		return c.OpenAIAPIKey
	case domain.ProviderAnthropic:
		return c.AnthropicAPIKey
	case domain.ProviderOpenRouter:
		return c.OpenRouterAPIKey
	case domain.ProviderOllama:
		return c.OllamaHost
	}
	return ""
}
