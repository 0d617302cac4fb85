package dialogue

import (
	"encoding/json"
	"sync"
)

// Ledger records which nodes of a dialogue have run. Entries only ever become
// true; Reset is the one way to forget them.
type Ledger struct {
	mu       sync.RWMutex
	revisits map[NodeID]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{revisits: make(map[NodeID]bool)}
}

// Mark records id as visited.
func (l *Ledger) Mark(id NodeID) {
	l.mu.Lock()
	l.revisits[id] = true
	l.mu.Unlock()
}

// Visited reports whether id has run. A missing entry means not visited.
func (l *Ledger) Visited(id NodeID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revisits[id]
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.revisits)
}

// Reset forgets every entry.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.revisits = make(map[NodeID]bool)
	l.mu.Unlock()
}

// Snapshot returns a copy of the entries, suitable for saving.
func (l *Ledger) Snapshot() map[NodeID]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[NodeID]bool, len(l.revisits))
	for id, v := range l.revisits {
		out[id] = v
	}
	return out
}

// Restore replaces the entries verbatim with a saved snapshot.
func (l *Ledger) Restore(entries map[NodeID]bool) {
	fresh := make(map[NodeID]bool, len(entries))
	for id, v := range entries {
		fresh[id] = v
	}
	l.mu.Lock()
	l.revisits = fresh
	l.mu.Unlock()
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Snapshot())
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var entries map[NodeID]bool
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.Restore(entries)
	return nil
}

// LoadLedger restores a ledger from its JSON form.
func LoadLedger(data []byte) (*Ledger, error) {
	l := NewLedger()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, err
	}
	return l, nil
}
