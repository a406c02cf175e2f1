package core

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fpt/go-echoassist/pkg/logger"
)

// RateLimiter enforces a minimum spacing between outbound calls to one
// provider. Reservations are taken against the injected clock so the wait
// is (interval - elapsed since the previous call), or nothing.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
	clock    Clock
	last     time.Time
	log      *logger.Logger
}

func NewRateLimiter(interval time.Duration, clock Clock, log *logger.Logger) *RateLimiter {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewComponentLogger("ratelimit")
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
		log:      log,
	}
}

// Wait suspends the caller until the interval since the previous call has
// passed, then stamps the call time.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := r.clock.Now()
	reservation := r.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	r.mu.Unlock()

	if delay > 0 {
		r.log.Debug("rate limit wait", "delay_ms", delay.Milliseconds())
		if err := r.clock.Sleep(ctx, delay); err != nil {
			reservation.CancelAt(r.clock.Now())
			return err
		}
	}

	r.mu.Lock()
	r.last = r.clock.Now()
	r.mu.Unlock()
	return nil
}

// LastRequest is the time the most recent Wait returned.
func (r *RateLimiter) LastRequest() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}
