package main

import (
	"strings"
	"sync"
)

// Entry is one accepted guess. Entries are immutable once added.
type Entry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Wiki     string `json:"wiki"`
}

// Ledger is the append-only set of women found during a session.
// Duplicate detection is keyed on the canonical Wikipedia title,
// case-insensitively, never on the raw guess.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

func newLedger() *Ledger {
	return &Ledger{}
}

// Contains reports whether title matches an existing entry name,
// ignoring case.
func (l *Ledger) Contains(title string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.entries {
		if strings.EqualFold(e.Name, title) {
			return true
		}
	}
	return false
}

// Add appends an entry unless its name is already present. It reports
// whether the entry was added.
func (l *Ledger) Add(entry Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if strings.EqualFold(e.Name, entry.Name) {
			return false
		}
	}

	l.entries = append(l.entries, entry)
	return true
}

func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Entries returns a copy of the accepted entries in insertion order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
