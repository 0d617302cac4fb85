package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"DialogueRuntime/internal/asset"
	"DialogueRuntime/internal/dialogue"
)

var ErrUnknownDialogue = errors.New("game: unknown dialogue")

// Library holds the loaded dialogue trees by id. Trees are shared by every
// player; ledgers are not.
type Library struct {
	mu        sync.RWMutex
	dialogues map[string]*dialogue.Dialogue
}

func NewLibrary(ds ...*dialogue.Dialogue) *Library {
	l := &Library{dialogues: make(map[string]*dialogue.Dialogue, len(ds))}
	for _, d := range ds {
		l.dialogues[d.ID] = d
	}
	return l
}

// LoadLibrary builds every dialogue document below dir, binding conditions and
// actions to this package's implementations.
func LoadLibrary(dir string) (*Library, error) {
	ds, err := asset.LoadDir(dir, Binder{})
	if err != nil {
		return nil, fmt.Errorf("load dialogues from %s: %w", dir, err)
	}
	return NewLibrary(ds...), nil
}

func (l *Library) Add(d *dialogue.Dialogue) {
	l.mu.Lock()
	l.dialogues[d.ID] = d
	l.mu.Unlock()
}

// Replace swaps the whole set, as after a reload.
func (l *Library) Replace(ds []*dialogue.Dialogue) {
	fresh := make(map[string]*dialogue.Dialogue, len(ds))
	for _, d := range ds {
		fresh[d.ID] = d
	}
	l.mu.Lock()
	l.dialogues = fresh
	l.mu.Unlock()
}

func (l *Library) Get(id string) (*dialogue.Dialogue, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.dialogues[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialogue, id)
	}
	return d, nil
}

// IDs lists dialogue ids in order.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.dialogues))
	for id := range l.dialogues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.dialogues)
}

// FindActor returns the first definition of an actor across all dialogues, in
// id order.
func (l *Library) FindActor(id string) *dialogue.Actor {
	for _, did := range l.IDs() {
		d, err := l.Get(did)
		if err != nil {
			continue
		}
		if a := d.Actor(id); a != nil {
			return a
		}
	}
	return nil
}
