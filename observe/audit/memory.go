package audit

import (
	"context"
	"sync"
)

// MemoryLog is an in-process Log, useful for tests and for short-lived
// demos where a real database is overkill.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryLog returns an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of every entry appended so far, oldest first.
func (m *MemoryLog) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
