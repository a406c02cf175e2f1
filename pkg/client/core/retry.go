package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/logger"
)

// Class is the retry classification of an error.
type Class int

const (
	Fatal Class = iota
	Retryable
)

func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "fatal"
}

const (
	DefaultBaseBackoff = 2000 * time.Millisecond
	DefaultMaxBackoff  = 30 * time.Second
)

// retryableMarkers are matched case-insensitively against error messages.
var retryableMarkers = []string{
	"429", "500", "502", "503", "504",
	"rate_limit", "rate limit", "ratelimit",
	"econnreset", "connection reset",
	"etimedout", "timeout", "timed out",
	"network",
}

// Classify decides whether err is worth another attempt.
func Classify(err error) Class {
	if err == nil {
		return Fatal
	}

	var (
		cfgErr       *domain.ConfigurationError
		budgetErr    *domain.BudgetExceededError
		transientErr *domain.TransientProviderError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &budgetErr):
		return Fatal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Fatal
	case errors.As(err, &transientErr):
		return Retryable
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return Retryable
		}
	}
	return Fatal
}

// RetryPolicy runs an operation up to MaxRetries+1 times with exponential
// backoff between retryable failures.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration
	Limiter    *RateLimiter
	Clock      Clock
	Logger     *logger.Logger
}

func NewRetryPolicy(maxRetries int, limiter *RateLimiter, clock Clock, log *logger.Logger) *RetryPolicy {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewComponentLogger("retry")
	}
	return &RetryPolicy{
		MaxRetries:  maxRetries,
		BaseBackoff: DefaultBaseBackoff,
		MaxBackoff:  DefaultMaxBackoff,
		Limiter:     limiter,
		Clock:       clock,
		Logger:      log,
	}
}

// Backoff is the wait after a failed attempt: 2^attempt * base, capped.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseBackoff
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base << uint(attempt)
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
		return p.MaxBackoff
	}
	return d
}

// Execute runs op under p. Every attempt first passes the rate limiter. The
// last error is returned as is.
func Execute[T any](ctx context.Context, p *RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	clock := p.Clock
	if clock == nil {
		clock = RealClock()
	}

	for attempt := 0; ; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxRetries || Classify(err) != Retryable {
			return zero, err
		}

		delay := p.Backoff(attempt)
		if p.Logger != nil {
			p.Logger.WarnWithIcon("🔄", "retrying after transient failure",
				"attempt", attempt+1, "max_retries", p.MaxRetries, "delay_ms", delay.Milliseconds(), "error", err)
		}
		if err := clock.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}
