package state

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fpt/go-echoassist/pkg/domain"
)

func TestHistoryKeepsMostRecent(t *testing.T) {
	h := NewHistory(5)

	for i := 0; i < 12; i++ {
		h.Append(domain.RoleUser, fmt.Sprintf("msg-%d", i))
		if h.Len() > 5 {
			t.Fatalf("history length %d exceeds cap after append %d", h.Len(), i)
		}
	}

	entries := h.Entries()
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		expected := fmt.Sprintf("msg-%d", i+7)
		if e.Content != expected {
			t.Errorf("entry %d = %q, expected %q", i, e.Content, expected)
		}
	}
}

func TestHistoryExactlyAtCap(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 3; i++ {
		h.Append(domain.RoleAssistant, fmt.Sprintf("a%d", i))
	}
	if h.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", h.Len())
	}
	if h.Entries()[0].Content != "a0" {
		t.Errorf("oldest entry should be kept when at cap, got %q", h.Entries()[0].Content)
	}
}

func TestHistoryContextString(t *testing.T) {
	h := NewHistory(20)
	h.Append(domain.RoleUser, "hi")
	h.Append(domain.RoleAssistant, "hello")

	expected := "user: hi\n\nassistant: hello"
	if got := h.ContextString(); got != expected {
		t.Errorf("ContextString() = %q, expected %q", got, expected)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(4)
	h.Append(domain.RoleUser, "x")
	h.Clear()

	if h.Len() != 0 {
		t.Fatalf("Expected empty history after Clear, got %d", h.Len())
	}
	if h.ContextString() != "" {
		t.Errorf("Expected empty context string, got %q", h.ContextString())
	}
}

func TestHistoryEntriesIsCopy(t *testing.T) {
	h := NewHistory(4)
	h.Append(domain.RoleUser, "original")

	entries := h.Entries()
	entries[0].Content = "mutated"

	if h.Entries()[0].Content != "original" {
		t.Error("Entries() must not expose internal storage")
	}
}

func TestHistorySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "gemini.json")

	src := NewHistory(10)
	for i := 0; i < 4; i++ {
		src.Append(domain.RoleUser, fmt.Sprintf("turn-%d", i))
	}
	if err := src.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	dst := NewHistory(2)
	if err := dst.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	entries := dst.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after load into smaller history, got %d", len(entries))
	}
	if entries[0].Content != "turn-2" || entries[1].Content != "turn-3" {
		t.Errorf("unexpected entries after load: %+v", entries)
	}
}
