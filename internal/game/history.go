package game

import "sync"

// Event is one notable thing that happened to a player during a conversation.
type Event struct {
	Seq      uint64  `json:"seq"`
	T        float64 `json:"t"`
	Kind     string  `json:"kind"`
	Dialogue string  `json:"dialogue,omitempty"`
	Node     string  `json:"node,omitempty"`
	Text     string  `json:"text,omitempty"`
}

const (
	EventDialogueStart = "dialogue:start"
	EventDialogueEnd   = "dialogue:end"
	EventLine          = "line"
	EventChoice        = "choice"
	EventVoiceStart    = "voice:start"
	EventVoiceStop     = "voice:stop"
	EventCustom        = "custom"
)

// History is a fixed-size ring of events, newest overwriting oldest.
type History struct {
	buf   []Event
	head  int
	size  int
	mu    sync.RWMutex
	limit int
	seq   uint64
}

func newHistory(limit int) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{buf: make([]Event, limit), limit: limit}
}

func (h *History) push(e Event) {
	h.mu.Lock()
	h.seq++
	e.Seq = h.seq
	h.buf[h.head] = e
	h.head = (h.head + 1) % h.limit
	if h.size < h.limit {
		h.size++
	}
	h.mu.Unlock()
}

// Len returns how many events are held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Recent returns up to n events, oldest first.
func (h *History) Recent(n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := (h.head - n + i + h.limit) % h.limit
		out[i] = h.buf[idx]
	}
	return out
}

// Since returns the held events newer than t, oldest first.
func (h *History) Since(t float64) []Event {
	var out []Event
	for _, e := range h.Recent(0) {
		if e.T > t {
			out = append(out, e)
		}
	}
	return out
}

// After returns the held events with a sequence number above seq, oldest first.
func (h *History) After(seq uint64) []Event {
	var out []Event
	for _, e := range h.Recent(0) {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}
