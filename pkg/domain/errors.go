package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoProviderAvailable is returned when no adapter could serve a call.
	ErrNoProviderAvailable = errors.New("no AI providers available: configure at least one API key")

	// ErrAllProvidersFailed is returned by fallback dispatch when no candidate
	// was attempted.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrBudgetExceeded matches any *BudgetExceededError via errors.Is.
	ErrBudgetExceeded = errors.New("daily token limit reached")
)

// ConfigurationError reports a missing or rejected credential. It is never retried.
type ConfigurationError struct {
	Provider string
	Message  string
	Err      error
}

func NewConfigurationError(provider, message string) *ConfigurationError {
	return &ConfigurationError{Provider: provider, Message: message}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransientProviderError reports a rate limit, server or network failure.
// The upstream message is kept verbatim.
type TransientProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransientProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// BudgetExceededError is raised before any network call when a request
// would push the daily ledger over its ceiling.
type BudgetExceededError struct {
	Provider  string
	Used      int
	Requested int
	Limit     int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s: daily token limit reached (used %d, requested %d, limit %d)",
		e.Provider, e.Used, e.Requested, e.Limit)
}

func (e *BudgetExceededError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// UserMessage turns an orchestration error into a sentence fit for the
// assistant window.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case errors.Is(err, ErrNoProviderAvailable):
		return "No AI providers available. Please configure at least one API key."
	case errors.Is(err, ErrBudgetExceeded):
		return "Daily token limit reached. Please try again tomorrow or switch provider."
	case IsConfigurationError(err), strings.Contains(lower, "api_key"), strings.Contains(lower, "api key"):
		return "Invalid API key. Please check your API key configuration."
	case strings.Contains(lower, "quota"):
		return "API quota exceeded. Please try again later."
	case strings.Contains(lower, "network"), strings.Contains(lower, "fetch"):
		return "Network error. Please check your internet connection."
	case strings.Contains(lower, "model"):
		return "AI model error. Please try a different provider."
	default:
		return "Request failed: " + msg
	}
}
