package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fpt/go-echoassist/pkg/domain"
	pkgLogger "github.com/fpt/go-echoassist/pkg/logger"
)

// SettingsDir is the directory name searched in the working directory and in $HOME.
const SettingsDir = ".echoassist"

// Settings represents the main application settings
type Settings struct {
	AI  AISettings  `json:"ai"`
	App AppSettings `json:"app"`
}

// AISettings selects and tunes the provider adapters.
type AISettings struct {
	DefaultProvider string `json:"default_provider"`
	EnableFallback  *bool  `json:"enable_fallback,omitempty"`

	Gemini     ProviderSettings   `json:"gemini"`
	OpenAI     ProviderSettings   `json:"openai"`
	Anthropic  ProviderSettings   `json:"anthropic"`
	OpenRouter OpenRouterSettings `json:"openrouter"`
	Ollama     ProviderSettings   `json:"ollama"`
}

// ProviderSettings holds per-provider model choice and limits. Unset
// fields keep the provider's built-in defaults.
type ProviderSettings struct {
	Enabled     *bool         `json:"enabled,omitempty"`
	Model       string        `json:"model,omitempty"` // gemini: one model for both tiers
	VisionModel string        `json:"vision_model,omitempty"`
	TextModel   string        `json:"text_model,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	Limits      LimitSettings `json:"limits,omitempty"`
}

type OpenRouterSettings struct {
	ProviderSettings
	SiteURL string `json:"site_url,omitempty"`
	AppName string `json:"app_name,omitempty"`
}

// LimitSettings mirrors domain.ProviderOverrides in file form.
type LimitSettings struct {
	MinRequestIntervalMs *int `json:"min_request_interval_ms,omitempty"`
	MaxRetries           *int `json:"max_retries,omitempty"`
	MaxDailyTokens       *int `json:"max_daily_tokens,omitempty"`
	MaxHistoryLength     *int `json:"max_history_length,omitempty"`
}

// AppSettings contains process-wide behaviour.
type AppSettings struct {
	LogLevel string `json:"log_level"`

	// LedgerPath is the SQLite token ledger. "none" disables persistence.
	LedgerPath string `json:"ledger_path,omitempty"`
}

// Overrides converts the file form into provider overrides.
func (l LimitSettings) Overrides() domain.ProviderOverrides {
	o := domain.ProviderOverrides{
		MaxRetries:       l.MaxRetries,
		MaxDailyTokens:   l.MaxDailyTokens,
		MaxHistoryLength: l.MaxHistoryLength,
	}
	if l.MinRequestIntervalMs != nil {
		o.MinRequestInterval = domain.Duration(time.Duration(*l.MinRequestIntervalMs) * time.Millisecond)
	}
	return o
}

// Provider returns the settings block for name.
func (a AISettings) Provider(name string) (ProviderSettings, bool) {
	switch strings.ToLower(name) {
	case domain.ProviderGemini:
		return a.Gemini, true
	case domain.ProviderOpenAI:
		return a.OpenAI, true
	case domain.ProviderAnthropic:
		return a.Anthropic, true
	case domain.ProviderOpenRouter:
		return a.OpenRouter.ProviderSettings, true
	case domain.ProviderOllama:
		return a.Ollama, true
	}
	return ProviderSettings{}, false
}

// FallbackEnabled defaults to true.
func (a AISettings) FallbackEnabled() bool {
	return a.EnableFallback == nil || *a.EnableFallback
}

// IsEnabled reports whether name should be registered. Ollama is opt-in.
func (a AISettings) IsEnabled(name string) bool {
	p, ok := a.Provider(name)
	if !ok {
		return false
	}
	if p.Enabled != nil {
		return *p.Enabled
	}
	return name != domain.ProviderOllama
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			return createDefaultSettingsFile()
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createSettingsFileAtPath(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings file")
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse settings %s", configPath)
	}

	applyDefaults(&settings)
	return &settings, nil
}

// SaveSettings saves application settings to a JSON file
func SaveSettings(configPath string, settings *Settings) error {
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			configPath = filepath.Join(SettingsDir, "settings.json")
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write settings file")
	}
	return nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		AI: AISettings{
			DefaultProvider: domain.ProviderGemini,
			Gemini:          ProviderSettings{Model: "gemini-2.5-flash-lite"},
			OpenAI:          ProviderSettings{VisionModel: "gpt-4o", TextModel: "gpt-4o-mini"},
			Anthropic:       ProviderSettings{VisionModel: "claude-sonnet-4-20250514", TextModel: "claude-3-haiku-20240307"},
			OpenRouter: OpenRouterSettings{
				ProviderSettings: ProviderSettings{VisionModel: "anthropic/claude-3.5-sonnet", TextModel: "anthropic/claude-3-haiku"},
			},
			Ollama: ProviderSettings{VisionModel: "llava", TextModel: "llama3.2"},
		},
		App: AppSettings{
			LogLevel: "info",
		},
	}
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.AI.DefaultProvider == "" {
		settings.AI.DefaultProvider = defaults.AI.DefaultProvider
	}
	settings.AI.DefaultProvider = strings.ToLower(settings.AI.DefaultProvider)

	fill := func(dst *ProviderSettings, def ProviderSettings) {
		if dst.Model == "" {
			dst.Model = def.Model
		}
		if dst.VisionModel == "" {
			dst.VisionModel = def.VisionModel
		}
		if dst.TextModel == "" {
			dst.TextModel = def.TextModel
		}
	}
	fill(&settings.AI.Gemini, defaults.AI.Gemini)
	fill(&settings.AI.OpenAI, defaults.AI.OpenAI)
	fill(&settings.AI.Anthropic, defaults.AI.Anthropic)
	fill(&settings.AI.OpenRouter.ProviderSettings, defaults.AI.OpenRouter.ProviderSettings)
	fill(&settings.AI.Ollama, defaults.AI.Ollama)

	if settings.App.LogLevel == "" {
		settings.App.LogLevel = defaults.App.LogLevel
	}
}

// ApplyEnvOverrides lets DEFAULT_AI_PROVIDER replace the configured default.
func ApplyEnvOverrides(settings *Settings) {
	if p := strings.TrimSpace(os.Getenv("DEFAULT_AI_PROVIDER")); p != "" {
		settings.AI.DefaultProvider = strings.ToLower(p)
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	if _, ok := settings.AI.Provider(settings.AI.DefaultProvider); !ok {
		return errors.Errorf("unsupported default provider: %s (must be 'gemini', 'openai', 'anthropic', 'openrouter', or 'ollama')", settings.AI.DefaultProvider)
	}

	for _, name := range []string{domain.ProviderGemini, domain.ProviderOpenAI, domain.ProviderAnthropic, domain.ProviderOpenRouter, domain.ProviderOllama} {
		p, _ := settings.AI.Provider(name)
		if err := validateLimits(p.Limits); err != nil {
			return errors.Wrapf(err, "invalid limits for %s", name)
		}
	}

	switch pkgLogger.LogLevel(strings.ToLower(settings.App.LogLevel)) {
	case pkgLogger.LogLevelDebug, pkgLogger.LogLevelInfo, pkgLogger.LogLevelWarn, pkgLogger.LogLevelError, "warning":
	default:
		return errors.Errorf("unsupported log level: %s", settings.App.LogLevel)
	}
	return nil
}

func validateLimits(l LimitSettings) error {
	if l.MinRequestIntervalMs != nil && *l.MinRequestIntervalMs < 0 {
		return errors.New("min_request_interval_ms must not be negative")
	}
	if l.MaxRetries != nil && *l.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	if l.MaxDailyTokens != nil && *l.MaxDailyTokens <= 0 {
		return errors.New("max_daily_tokens must be positive")
	}
	if l.MaxHistoryLength != nil && *l.MaxHistoryLength <= 0 {
		return errors.New("max_history_length must be positive")
	}
	return nil
}

// ResolveLedgerPath returns where the token ledger lives, or "" when disabled.
func (s *Settings) ResolveLedgerPath() string {
	switch s.App.LedgerPath {
	case "none":
		return ""
	case "":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(SettingsDir, "ledger.db")
		}
		return filepath.Join(homeDir, SettingsDir, "ledger.db")
	default:
		return s.App.LedgerPath
	}
}

// findSettingsFile searches for settings.json in order of preference:
// 1. .echoassist/settings.json in current directory
// 2. $HOME/.echoassist/settings.json
// Returns empty string if none found
func findSettingsFile() string {
	currentDirPath := filepath.Join(SettingsDir, "settings.json")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, SettingsDir, "settings.json")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	return ""
}

// createDefaultSettingsFile creates a default settings.json file in ~/.echoassist/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil
	}
	return createSettingsFileAtPath(filepath.Join(homeDir, SettingsDir, "settings.json"))
}

// createSettingsFileAtPath writes defaults to settingsPath. Write failures
// still return the defaults.
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := GetDefaultSettings()

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return settings, nil
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return settings, nil
	}
	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return settings, nil
	}

	log := pkgLogger.NewComponentLogger("settings")
	log.InfoWithIcon("⚙️", "Created default settings file", "path", settingsPath)
	log.InfoWithIcon("📝", "You can edit this file to customize your configuration")
	return settings, nil
}
