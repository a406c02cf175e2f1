package core

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/logger"
)

// LedgerWindow is how long a daily token window lasts.
const LedgerWindow = 24 * time.Hour

// Ledger is the daily token count of one provider.
type Ledger struct {
	DailyCount  int
	WindowStart time.Time
}

// LedgerStore persists ledgers between runs.
type LedgerStore interface {
	LoadLedger(ctx context.Context, provider string) (Ledger, bool, error)
	SaveLedger(ctx context.Context, provider string, ledger Ledger) error
}

// EstimateTokens is the four-characters-per-token heuristic.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TokenBudget tracks consumption against a daily ceiling.
type TokenBudget struct {
	mu       sync.Mutex
	provider string
	max      int
	ledger   Ledger
	clock    Clock
	store    LedgerStore
	log      *logger.Logger
}

// NewTokenBudget starts a fresh window, or resumes one from store.
func NewTokenBudget(provider string, maxDaily int, clock Clock, store LedgerStore, log *logger.Logger) *TokenBudget {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewComponentLogger("budget")
	}
	b := &TokenBudget{
		provider: provider,
		max:      maxDaily,
		ledger:   Ledger{WindowStart: clock.Now()},
		clock:    clock,
		store:    store,
		log:      log,
	}
	if store != nil {
		saved, ok, err := store.LoadLedger(context.Background(), provider)
		switch {
		case err != nil:
			log.Warn("failed to load token ledger", "error", err)
		case ok:
			if saved.DailyCount < 0 {
				saved.DailyCount = 0
			}
			b.ledger = saved
		}
	}
	return b
}

func (b *TokenBudget) rollLocked() bool {
	now := b.clock.Now()
	if now.Sub(b.ledger.WindowStart) < LedgerWindow {
		return false
	}
	b.log.Debug("token window rolled over", "previous_count", b.ledger.DailyCount)
	b.ledger = Ledger{DailyCount: 0, WindowStart: now}
	return true
}

// IsWithinLimit reports whether estimate more tokens fit in today's window.
func (b *TokenBudget) IsWithinLimit(estimate int) bool {
	b.mu.Lock()
	rolled := b.rollLocked()
	ok := b.ledger.DailyCount+estimate <= b.max
	snapshot := b.ledger
	b.mu.Unlock()

	if rolled {
		b.persist(snapshot)
	}
	return ok
}

// Reserve fails with *domain.BudgetExceededError when estimate does not fit.
// It does not charge the ledger.
func (b *TokenBudget) Reserve(estimate int) error {
	if b.IsWithinLimit(estimate) {
		return nil
	}
	used := b.Snapshot().DailyCount
	return &domain.BudgetExceededError{
		Provider:  b.provider,
		Used:      used,
		Requested: estimate,
		Limit:     b.max,
	}
}

// Record charges tokens to the current window. Non-positive amounts are ignored.
func (b *TokenBudget) Record(tokens int) {
	if tokens <= 0 {
		return
	}
	b.mu.Lock()
	b.rollLocked()
	b.ledger.DailyCount += tokens
	snapshot := b.ledger
	b.mu.Unlock()

	b.persist(snapshot)
}

func (b *TokenBudget) Snapshot() Ledger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ledger
}

func (b *TokenBudget) Max() int {
	return b.max
}

func (b *TokenBudget) persist(l Ledger) {
	if b.store == nil {
		return
	}
	if err := b.store.SaveLedger(context.Background(), b.provider, l); err != nil {
		b.log.Warn("failed to save token ledger", "error", err)
	}
}
