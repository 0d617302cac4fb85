// Package store persists revisit ledgers. A ledger is saved under the unique
// key of its dialogue, usually scoped to a player; a key with no saved entries
// reads back as an empty ledger.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"DialogueRuntime/internal/dialogue"
)

var ErrUnknownBackend = errors.New("store: unknown backend")

// LedgerStore loads and saves ledger snapshots.
type LedgerStore interface {
	Load(ctx context.Context, key string) (map[dialogue.NodeID]bool, error)
	Save(ctx context.Context, key string, entries map[dialogue.NodeID]bool) error
	Reset(ctx context.Context, key string) error
	Close() error
}

// Config selects and addresses a backend.
type Config struct {
	Backend     string // memory, redis, sqlite or postgres
	RedisURL    string
	SQLitePath  string
	DatabaseURL string
}

// Open connects the configured backend.
func Open(ctx context.Context, cfg Config) (LedgerStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// Key scopes a dialogue save key to a player.
func Key(player, saveKey string) string {
	if player == "" {
		return saveKey
	}
	return "player:" + player + ":" + saveKey
}

// LoadInto restores a saved ledger into l.
func LoadInto(ctx context.Context, s LedgerStore, key string, l *dialogue.Ledger) error {
	entries, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	l.Restore(entries)
	return nil
}

// MemoryStore keeps ledgers in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[dialogue.NodeID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[dialogue.NodeID]bool)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (map[dialogue.NodeID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEntries(s.data[key]), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, entries map[dialogue.NodeID]bool) error {
	s.mu.Lock()
	s.data[key] = copyEntries(entries)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func copyEntries(in map[dialogue.NodeID]bool) map[dialogue.NodeID]bool {
	out := make(map[dialogue.NodeID]bool, len(in))
	for id, v := range in {
		out[id] = v
	}
	return out
}
