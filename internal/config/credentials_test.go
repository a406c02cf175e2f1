package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/go-echoassist/pkg/domain"
)

func TestLoadCredentialsFromEnvFile(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY", "OLLAMA_HOST"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GEMINI_API_KEY=from-file\nOPENAI_API_KEY=ignored\n"), 0600))

	creds, err := LoadCredentials(envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "from-file", creds.For(domain.ProviderGemini))
	assert.Equal(t, "from-env", creds.For(domain.ProviderOpenAI))
	assert.Equal(t, "", creds.For(domain.ProviderAnthropic))
	assert.Equal(t, "", creds.For("mistral"))
}
