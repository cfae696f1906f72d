package service

import (
	"fmt"
	"testing"
)

func TestActivityLogNewestFirst(t *testing.T) {
	log := NewActivityLog()
	log.Append("first")
	log.Append("second")
	log.Append("third")

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Message != "third" || entries[2].Message != "first" {
		t.Errorf("entries not newest first: %q ... %q", entries[0].Message, entries[2].Message)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("entries must be timestamped")
	}
}

func TestActivityLogCapDropsOldest(t *testing.T) {
	log := NewActivityLog()
	for i := 0; i < maxLogEntries+50; i++ {
		log.Append(fmt.Sprintf("entry %d", i))
	}

	if log.Len() != maxLogEntries {
		t.Fatalf("got %d entries, want cap %d", log.Len(), maxLogEntries)
	}

	entries := log.Entries()
	if entries[0].Message != fmt.Sprintf("entry %d", maxLogEntries+49) {
		t.Errorf("newest entry = %q", entries[0].Message)
	}
	// The oldest surviving entry is the 50th appended
	if entries[len(entries)-1].Message != "entry 50" {
		t.Errorf("oldest surviving entry = %q, want entry 50", entries[len(entries)-1].Message)
	}
}

func TestActivityLogEntriesReturnsCopy(t *testing.T) {
	log := NewActivityLog()
	log.Append("only")

	entries := log.Entries()
	entries[0].Message = "mutated"

	if log.Entries()[0].Message != "only" {
		t.Error("Entries must copy; callers must not see each other's mutations")
	}
}
