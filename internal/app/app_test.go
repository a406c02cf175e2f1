package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/go-echoassist/internal/config"
	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
	pkgLogger "github.com/fpt/go-echoassist/pkg/logger"
	"github.com/fpt/go-echoassist/pkg/state"
)

type stubProvider struct {
	name    string
	opts    core.ProviderOptions
	history *state.History
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) AnalyzeScreenshot(context.Context, domain.ImageData, string) (string, error) {
	return "screen", nil
}
func (s *stubProvider) GenerateText(context.Context, domain.Prompt, domain.GenerateOptions) (string, error) {
	return "text from " + s.name, nil
}
func (s *stubProvider) GenerateMultimodal(context.Context, []domain.Part, domain.GenerateOptions) (string, error) {
	return "multimodal", nil
}
func (s *stubProvider) ProviderInfo() domain.ProviderInfo { return domain.ProviderInfo{Name: s.name} }
func (s *stubProvider) History() domain.ConversationLog  { return s.history }
func (s *stubProvider) SetVisionModel(model string)       { s.opts.VisionModel = model }
func (s *stubProvider) SetTextModel(model string)         { s.opts.TextModel = model }

type recorder struct {
	built map[string]*stubProvider
}

func (r *recorder) build(ctx context.Context, backend string, opts core.ProviderOptions) (domain.Provider, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, core.MissingCredential(backend, "KEY")
	}
	p := &stubProvider{name: backend, opts: opts, history: state.NewHistory(20)}
	r.built[backend] = p
	return p, nil
}

func testSettings() *config.Settings {
	s := config.GetDefaultSettings()
	s.App.LedgerPath = "none"
	return s
}

func TestNewRegistersProvidersWithCredentials(t *testing.T) {
	r := &recorder{built: map[string]*stubProvider{}}
	creds := config.Credentials{OpenAIAPIKey: "sk", AnthropicAPIKey: "ak", OllamaHost: "http://localhost:11434"}

	a := New(context.Background(), testSettings(), creds, pkgLogger.Discard(), Options{Build: r.build})
	defer a.Close()

	assert.Equal(t, []string{domain.ProviderOpenAI, domain.ProviderAnthropic}, a.Manager.AvailableProviders())
	assert.Equal(t, domain.ProviderOpenAI, a.Manager.ActiveProvider())
	assert.Equal(t, "gpt-4o-mini", r.built[domain.ProviderOpenAI].opts.TextModel)
}

func TestProviderOptionsPerBackend(t *testing.T) {
	r := &recorder{built: map[string]*stubProvider{}}
	s := testSettings()
	s.AI.Gemini.Model = "gemini-2.0-flash"
	s.AI.OpenRouter.SiteURL = "https://example.com"
	enabled := true
	s.AI.Ollama.Enabled = &enabled
	creds := config.Credentials{GeminiAPIKey: "g", OpenRouterAPIKey: "o", OllamaHost: "http://gpu-box:11434"}

	a := New(context.Background(), s, creds, pkgLogger.Discard(), Options{Build: r.build})
	defer a.Close()

	assert.Equal(t, domain.ProviderGemini, a.Manager.ActiveProvider())
	assert.Equal(t, "gemini-2.0-flash", r.built[domain.ProviderGemini].opts.VisionModel)
	assert.Equal(t, "gemini-2.0-flash", r.built[domain.ProviderGemini].opts.TextModel)
	assert.Equal(t, "https://example.com", r.built[domain.ProviderOpenRouter].opts.SiteURL)
	assert.Equal(t, "http://gpu-box:11434", r.built[domain.ProviderOllama].opts.BaseURL)
	assert.Empty(t, r.built[domain.ProviderOllama].opts.APIKey)
}

func TestHistoriesPersistAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	creds := config.Credentials{OpenAIAPIKey: "sk"}
	opts := func(r *recorder) Options { return Options{Build: r.build, HistoryDir: dir} }

	first := &recorder{built: map[string]*stubProvider{}}
	a := New(context.Background(), testSettings(), creds, pkgLogger.Discard(), opts(first))
	a.Manager.AddToHistory(domain.RoleUser, "remember me")
	require.NoError(t, a.Close())
	assert.FileExists(t, filepath.Join(dir, "history-openai.json"))

	second := &recorder{built: map[string]*stubProvider{}}
	b := New(context.Background(), testSettings(), creds, pkgLogger.Discard(), opts(second))
	defer b.Close()
	assert.Equal(t, "user: remember me", b.Manager.ContextString())
}

func TestLedgerIsWired(t *testing.T) {
	r := &recorder{built: map[string]*stubProvider{}}
	s := testSettings()
	s.App.LedgerPath = filepath.Join(t.TempDir(), "ledger.db")

	a := New(context.Background(), s, config.Credentials{OpenAIAPIKey: "sk"}, pkgLogger.Discard(), Options{Build: r.build})
	defer a.Close()

	require.NotNil(t, r.built[domain.ProviderOpenAI].opts.Ledger)
	assert.NoError(t, a.ResetLedger(context.Background(), ""))
}
