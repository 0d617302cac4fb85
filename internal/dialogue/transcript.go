package dialogue

import "sync"

// Entry is one completed line or chosen option.
type Entry struct {
	NodeID   NodeID `json:"node_id"`
	Text     string `json:"text"`
	IsChoice bool   `json:"is_choice"`
	Actor    string `json:"actor,omitempty"`
	Portrait int    `json:"portrait"`
}

// Transcript is the running log of a conversation. It is cleared when a dialogue
// begins.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
	onAdd   []func(Entry)
	onReset []func()
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Add appends an entry and notifies add listeners.
func (t *Transcript) Add(e Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	listeners := append([]func(Entry){}, t.onAdd...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// Reset clears the entries and notifies reset listeners.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.entries = nil
	listeners := append([]func(){}, t.onReset...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Entries returns a copy of the log.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Entry(nil), t.entries...)
}

// OnAdd registers a listener called after every Add.
func (t *Transcript) OnAdd(fn func(Entry)) {
	t.mu.Lock()
	t.onAdd = append(t.onAdd, fn)
	t.mu.Unlock()
}

// OnReset registers a listener called after every Reset.
func (t *Transcript) OnReset(fn func()) {
	t.mu.Lock()
	t.onReset = append(t.onReset, fn)
	t.mu.Unlock()
}
