package game

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/store"
)

// Hub owns the rooms and the services their sessions share: the dialogue
// library, the actor cache, the voice pool and ledger persistence.
type Hub struct {
	Rooms map[string]*Room
	Mu    sync.Mutex

	Library  *Library
	Actors   *ActorCache
	Voices   *VoicePool
	Store    store.LedgerStore
	Defaults dialogue.ConfigData

	log      *slog.Logger
	baseSeed int64
	tickHz   float64

	saveMu  sync.Mutex // orders store writes against resets and restores
	pendMu  sync.Mutex
	pending map[string]map[dialogue.NodeID]bool // latest unsaved snapshot by store key
	wake    chan struct{}
}

type HubOption func(*Hub)

func WithStore(s store.LedgerStore) HubOption { return func(h *Hub) { h.Store = s } }

func WithLogger(l *slog.Logger) HubOption { return func(h *Hub) { h.log = l } }

func WithDefaults(cfg dialogue.ConfigData) HubOption { return func(h *Hub) { h.Defaults = cfg } }

// WithSeed makes room randomness (shuffles, random timeouts, blip pitch)
// reproducible.
func WithSeed(seed int64) HubOption { return func(h *Hub) { h.baseSeed = seed } }

// WithTickRate sets how many times per second Run advances the rooms.
func WithTickRate(hz float64) HubOption {
	return func(h *Hub) {
		if hz > 0 {
			h.tickHz = hz
		}
	}
}

func NewHub(lib *Library, opts ...HubOption) *Hub {
	h := &Hub{
		Rooms:    map[string]*Room{},
		Library:  lib,
		Store:    store.NewMemoryStore(),
		Defaults: dialogue.DefaultConfigData(),
		log:      slog.Default(),
		baseSeed: time.Now().UnixNano(),
		tickHz:   SimHz,
		pending:  map[string]map[dialogue.NodeID]bool{},
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.Actors = NewActorCache(ActorCacheSize, lib.FindActor)
	h.Voices = NewVoicePool(GibberishBuffers, GibberishMinSpacing, rand.New(rand.NewSource(h.baseSeed)))
	return h
}

// Dt is the room time one tick advances.
func (h *Hub) Dt() float64 { return 1 / h.tickHz }

func (h *Hub) seed(roomID string) int64 {
	f := fnv.New64a()
	_, _ = f.Write([]byte(roomID))
	return h.baseSeed ^ int64(f.Sum64())
}

func (h *Hub) GetRoom(id string) *Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	r, ok := h.Rooms[id]
	if !ok {
		r = newRoom(h, id)
		h.Rooms[id] = r
	}
	return r
}

// FindRoom returns an open room without creating it.
func (h *Hub) FindRoom(id string) (*Room, bool) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	r, ok := h.Rooms[id]
	return r, ok
}

// RoomIDs lists the open rooms.
func (h *Hub) RoomIDs() []string {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	ids := make([]string, 0, len(h.Rooms))
	for id := range h.Rooms {
		ids = append(ids, id)
	}
	return ids
}

// TickAll advances every room by one step.
func (h *Hub) TickAll() {
	for _, r := range h.rooms() {
		r.Tick()
	}
}

// CleanupEmptyRooms drops rooms that have had nobody in them for EmptyRoomTTL.
func (h *Hub) CleanupEmptyRooms() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	removed := 0
	for id, r := range h.Rooms {
		r.Mu.Lock()
		stale := len(r.Players) == 0 && r.Now-r.emptySince >= EmptyRoomTTL
		r.Mu.Unlock()
		if stale {
			delete(h.Rooms, id)
			removed++
		}
	}
	return removed
}

func (h *Hub) rooms() []*Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	out := make([]*Room, 0, len(h.Rooms))
	for _, r := range h.Rooms {
		out = append(out, r)
	}
	return out
}

// RestorePlayer loads the player's saved ledgers for every known dialogue.
// Call it before the player joins a room. A save still queued from an earlier
// connection is written first, so the player never starts from a stale ledger.
func (h *Hub) RestorePlayer(ctx context.Context, p *Player) error {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()
	for _, id := range h.Library.IDs() {
		d, err := h.Library.Get(id)
		if err != nil {
			continue
		}
		saveKey := d.SaveKey()
		key := store.Key(p.ID, saveKey)
		if entries, ok := h.takePending(key); ok {
			if err := h.Store.Save(ctx, key, entries); err != nil {
				return err
			}
		}
		if err := store.LoadInto(ctx, h.Store, key, p.Ledger(saveKey)); err != nil {
			return err
		}
	}
	return nil
}

// ResetLedger forgets what the player has seen of a dialogue: the live ledger
// of a connected player, any queued save and the stored copy.
func (h *Hub) ResetLedger(ctx context.Context, playerID, saveKey string) error {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()
	for _, r := range h.rooms() {
		r.Mu.Lock()
		if p := r.Players[playerID]; p != nil {
			p.Ledger(saveKey).Reset()
		}
		r.Mu.Unlock()
	}
	key := store.Key(playerID, saveKey)
	h.takePending(key)
	return h.Store.Reset(ctx, key)
}

// persist queues a ledger snapshot for saving. It never blocks the tick; a newer
// snapshot of the same ledger replaces one not yet written.
func (h *Hub) persist(playerID, saveKey string, l *dialogue.Ledger) {
	h.pendMu.Lock()
	h.pending[store.Key(playerID, saveKey)] = l.Snapshot()
	h.pendMu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) takePending(key string) (map[dialogue.NodeID]bool, bool) {
	h.pendMu.Lock()
	defer h.pendMu.Unlock()
	entries, ok := h.pending[key]
	delete(h.pending, key)
	return entries, ok
}

// Flush writes every queued save now. A failed save is logged and the rest are
// still written; the first error is returned.
func (h *Hub) Flush(ctx context.Context) error {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	h.pendMu.Lock()
	batch := h.pending
	h.pending = map[string]map[dialogue.NodeID]bool{}
	h.pendMu.Unlock()

	var first error
	for key, entries := range batch {
		if err := h.Store.Save(ctx, key, entries); err != nil {
			h.log.Error("save ledger", "key", key, "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Shutdown ends every run in every room, removes the players and writes all
// their ledgers.
func (h *Hub) Shutdown(ctx context.Context) error {
	left := 0
	for _, r := range h.rooms() {
		left += r.LeaveAll()
	}
	if left > 0 {
		h.log.Info("players removed at shutdown", "count", left)
	}
	return h.Flush(ctx)
}

// Run ticks all rooms at the tick rate and saves ledgers in the background until
// ctx ends, then shuts the hub down.
func (h *Hub) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tick := time.NewTicker(time.Duration(float64(time.Second) / h.tickHz))
		defer tick.Stop()
		cleanup := time.NewTicker(time.Duration(EmptyRoomTTL * float64(time.Second)))
		defer cleanup.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				h.TickAll()
			case <-cleanup.C:
				if n := h.CleanupEmptyRooms(); n > 0 {
					h.log.Info("removed empty rooms", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return h.Shutdown(context.Background())
			case <-h.wake:
				// Saves already taken from the queue must not fail on shutdown.
				_ = h.Flush(context.WithoutCancel(ctx))
			}
		}
	})

	return g.Wait()
}
