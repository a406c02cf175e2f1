package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fpt/go-echoassist/pkg/domain"
)

func TestWrapProviderError(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		err        error
		wantConfig bool
		wantClass  Class
	}{
		{"unauthorized status", 401, errors.New("401 Unauthorized"), true, Fatal},
		{"invalid key text", 400, errors.New("API key not valid. Please pass a valid API key."), true, Fatal},
		{"rate limited", 429, errors.New("too many requests"), false, Retryable},
		{"key quota exhausted", 429, errors.New("quota exceeded for api key"), false, Retryable},
		{"forbidden wins over text", 403, errors.New("rate limit policy denied"), true, Fatal},
		{"overloaded", 529, errors.New("overloaded_error"), false, Retryable},
		{"bad request", 400, errors.New("max_tokens too large"), false, Fatal},
		{"network without status", 0, errors.New("dial tcp: network is unreachable"), false, Retryable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapProviderError("anthropic", tc.status, tc.err)
			assert.Equal(t, tc.wantConfig, domain.IsConfigurationError(wrapped))
			assert.Equal(t, tc.wantClass, Classify(wrapped))
			assert.Contains(t, wrapped.Error(), tc.err.Error(), "upstream message must be preserved")
			assert.True(t, errors.Is(wrapped, tc.err))
		})
	}
}

func TestWrapProviderErrorNil(t *testing.T) {
	assert.NoError(t, WrapProviderError("openai", 0, nil))
}

func TestWrapProviderErrorContextCanceled(t *testing.T) {
	wrapped := WrapProviderError("openai", 0, context.Canceled)
	assert.Equal(t, Fatal, Classify(wrapped))
}

func TestMissingCredential(t *testing.T) {
	err := MissingCredential("gemini", "GEMINI_API_KEY")
	assert.True(t, domain.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
