package logger

import (
	"sync"
	"time"
)

// RecentEntry is one remembered warn/error log line.
type RecentEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
	At      time.Time      `json:"at"`
}

// RecentBuffer is a fixed-capacity ring of the most recent warn/error
// entries, readable by the dashboard API.
type RecentBuffer struct {
	mu      sync.Mutex
	entries []RecentEntry
	next    int
	full    bool
}

// NewRecentBuffer creates a ring holding up to capacity entries.
func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentBuffer{entries: make([]RecentEntry, capacity)}
}

// Add records one entry, evicting the oldest when full.
func (b *RecentBuffer) Add(level, message string, fields map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = RecentEntry{Level: level, Message: message, Fields: fields, At: time.Now()}
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Snapshot returns the remembered entries, oldest first.
func (b *RecentBuffer) Snapshot() []RecentEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		out := make([]RecentEntry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}
	out := make([]RecentEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)
	return out
}
