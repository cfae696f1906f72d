package service

import (
	"sync"
	"time"

	"tradepilot/backend/internal/model"
)

// maxLogEntries caps each bot's in-memory activity log. When the cap is
// reached the oldest entry is evicted.
const maxLogEntries = 300

// ActivityLog is a bounded, newest-first buffer of per-bot events. It is
// observability only; losing it loses no bot state.
type ActivityLog struct {
	mu      sync.Mutex
	entries []model.LogEntry
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{
		entries: make([]model.LogEntry, 0, maxLogEntries),
	}
}

// Append records a timestamped event and returns the stored entry
func (l *ActivityLog) Append(message string) model.LogEntry {
	entry := model.LogEntry{
		Timestamp: time.Now(),
		Message:   message,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]model.LogEntry{entry}, l.entries...)
	if len(l.entries) > maxLogEntries {
		l.entries = l.entries[:maxLogEntries]
	}
	return entry
}

// Entries returns a copy of the buffered entries, newest first
func (l *ActivityLog) Entries() []model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of buffered entries
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
