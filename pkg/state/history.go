package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fpt/go-echoassist/pkg/domain"
)

// History is a bounded, ordered buffer of conversation turns. Once the cap
// is reached the oldest entries are dropped.
type History struct {
	mu      sync.Mutex
	entries []domain.ConversationEntry
	max     int
	now     func() time.Time
}

var _ domain.ConversationLog = (*History)(nil)

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = domain.DefaultMaxHistoryLength
	}
	return &History{
		entries: make([]domain.ConversationEntry, 0, max),
		max:     max,
		now:     time.Now,
	}
}

// NewHistoryWithClock is NewHistory with an injected time source.
func NewHistoryWithClock(max int, now func() time.Time) *History {
	h := NewHistory(max)
	if now != nil {
		h.now = now
	}
	return h
}

func (h *History) Append(role domain.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, domain.ConversationEntry{
		Role:      role,
		Content:   content,
		Timestamp: h.now(),
	})
	h.trimLocked()
}

func (h *History) trimLocked() {
	if over := len(h.entries) - h.max; over > 0 {
		kept := make([]domain.ConversationEntry, h.max)
		copy(kept, h.entries[over:])
		h.entries = kept
	}
}

// Entries returns a copy in chronological order.
func (h *History) Entries() []domain.ConversationEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.ConversationEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// ContextString renders the history as "role: content" blocks separated by
// blank lines.
func (h *History) ContextString() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	lines := make([]string, len(h.entries))
	for i, e := range h.entries {
		lines[i] = string(e.Role) + ": " + e.Content
	}
	return strings.Join(lines, "\n\n")
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]domain.ConversationEntry, 0, h.max)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// serializableHistory is the on-disk form.
type serializableHistory struct {
	Entries []domain.ConversationEntry `json:"entries"`
	SavedAt time.Time                  `json:"saved_at"`
}

// SaveToFile writes the history as JSON, creating parent directories.
func (h *History) SaveToFile(path string) error {
	data, err := json.MarshalIndent(serializableHistory{Entries: h.Entries(), SavedAt: h.now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// LoadFromFile replaces the history with the file's entries, keeping only
// the most recent ones when the file holds more than the cap.
func (h *History) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}
	var s serializableHistory
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse history file: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(make([]domain.ConversationEntry, 0, len(s.Entries)), s.Entries...)
	h.trimLocked()
	return nil
}
