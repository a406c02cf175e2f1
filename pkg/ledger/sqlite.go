// Package ledger persists daily token ledgers so a restart does not reset
// a provider's budget window.
package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure Go driver, no cgo

	"github.com/fpt/go-echoassist/pkg/client/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS token_ledger (
	provider     TEXT PRIMARY KEY,
	daily_count  INTEGER NOT NULL,
	window_start INTEGER NOT NULL
)`

// SQLiteStore is a core.LedgerStore backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ core.LedgerStore = (*SQLiteStore)(nil)

// Open opens or creates the ledger database at path.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create ledger directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ledger")
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to initialize ledger")
		}
	}
	return &SQLiteStore{db: db}, nil
}

// LoadLedger returns the stored ledger for provider. ok is false when none exists.
func (s *SQLiteStore) LoadLedger(ctx context.Context, provider string) (core.Ledger, bool, error) {
	var count, startMs int64
	err := s.db.QueryRowContext(ctx,
		"SELECT daily_count, window_start FROM token_ledger WHERE provider = ?", provider,
	).Scan(&count, &startMs)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Ledger{}, false, nil
	}
	if err != nil {
		return core.Ledger{}, false, errors.Wrapf(err, "failed to load ledger for %s", provider)
	}
	return core.Ledger{DailyCount: int(count), WindowStart: time.UnixMilli(startMs)}, true, nil
}

// SaveLedger upserts the ledger for provider.
func (s *SQLiteStore) SaveLedger(ctx context.Context, provider string, l core.Ledger) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO token_ledger (provider, daily_count, window_start) VALUES (?, ?, ?)
ON CONFLICT(provider) DO UPDATE SET daily_count = excluded.daily_count, window_start = excluded.window_start`,
		provider, l.DailyCount, l.WindowStart.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "failed to save ledger for %s", provider)
	}
	return nil
}

// Reset drops the ledger of provider, or of every provider when provider is empty.
func (s *SQLiteStore) Reset(ctx context.Context, provider string) error {
	if provider == "" {
		_, err := s.db.ExecContext(ctx, "DELETE FROM token_ledger")
		return errors.Wrap(err, "failed to reset ledger")
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM token_ledger WHERE provider = ?", provider)
	return errors.Wrapf(err, "failed to reset ledger for %s", provider)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
