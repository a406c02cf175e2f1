package core

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/fpt/go-echoassist/pkg/domain"
)

var credentialMarkers = []string{
	"api key", "api_key", "apikey", "unauthorized", "authentication", "permission_denied", "invalid x-api-key",
}

// WrapProviderError sorts a transport error into the error taxonomy.
// status is the HTTP status when the SDK exposed one, zero otherwise. The
// upstream message always survives in the result.
func WrapProviderError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}

	if status == 401 || status == 403 {
		return credentialError(provider, err)
	}
	// A throttled or failing server stays transient even when its message
	// mentions the key, e.g. per-key quota exhaustion.
	if status == 429 || status >= 500 {
		return &domain.TransientProviderError{Provider: provider, StatusCode: status, Err: err}
	}
	if containsAny(strings.ToLower(err.Error()), credentialMarkers) {
		return credentialError(provider, err)
	}
	if status == 0 && Classify(err) == Retryable {
		return &domain.TransientProviderError{Provider: provider, Err: err}
	}

	return errors.Wrapf(err, "%s API error", provider)
}

func credentialError(provider string, err error) error {
	return &domain.ConfigurationError{
		Provider: provider,
		Message:  "API key rejected",
		Err:      err,
	}
}

// MissingCredential is the construction-time error for an absent key.
func MissingCredential(provider, envVar string) error {
	return domain.NewConfigurationError(provider, envVar+" environment variable not set")
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
