package domain

import "time"

// Provider names.
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Baseline limits applied before any provider or user overrides.
const (
	DefaultMinRequestInterval = 1000 * time.Millisecond
	DefaultMaxRetries         = 3
	DefaultMaxDailyTokens     = 1_000_000
	DefaultMaxHistoryLength   = 20
)

// ProviderConfig holds the limits of one adapter instance. It is fixed at
// construction.
type ProviderConfig struct {
	Name               string
	MinRequestInterval time.Duration
	MaxRetries         int
	MaxDailyTokens     int
	MaxHistoryLength   int
}

// ProviderOverrides carries optional replacements for ProviderConfig fields.
// A nil field keeps the underlying value, so an explicit zero interval is
// honoured.
type ProviderOverrides struct {
	MinRequestInterval *time.Duration
	MaxRetries         *int
	MaxDailyTokens     *int
	MaxHistoryLength   *int
}

// BaseProviderConfig returns the baseline limits for name.
func BaseProviderConfig(name string) ProviderConfig {
	return ProviderConfig{
		Name:               name,
		MinRequestInterval: DefaultMinRequestInterval,
		MaxRetries:         DefaultMaxRetries,
		MaxDailyTokens:     DefaultMaxDailyTokens,
		MaxHistoryLength:   DefaultMaxHistoryLength,
	}
}

// MergeProviderConfig layers each set of overrides on top of base, in order.
// Negative values are ignored.
func MergeProviderConfig(base ProviderConfig, overrides ...ProviderOverrides) ProviderConfig {
	cfg := base
	for _, o := range overrides {
		if o.MinRequestInterval != nil && *o.MinRequestInterval >= 0 {
			cfg.MinRequestInterval = *o.MinRequestInterval
		}
		if o.MaxRetries != nil && *o.MaxRetries >= 0 {
			cfg.MaxRetries = *o.MaxRetries
		}
		if o.MaxDailyTokens != nil && *o.MaxDailyTokens >= 0 {
			cfg.MaxDailyTokens = *o.MaxDailyTokens
		}
		if o.MaxHistoryLength != nil && *o.MaxHistoryLength > 0 {
			cfg.MaxHistoryLength = *o.MaxHistoryLength
		}
	}
	return cfg
}

// Duration and Int are shorthands for building overrides.
func Duration(d time.Duration) *time.Duration { return &d }

func Int(v int) *int { return &v }
