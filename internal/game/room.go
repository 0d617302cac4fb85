package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"DialogueRuntime/internal/dialogue"
)

var (
	ErrRoomFull       = errors.New("game: room full")
	ErrUnknownPlayer  = errors.New("game: unknown player")
	ErrNoSession      = errors.New("game: no dialogue running")
	ErrSessionRunning = errors.New("game: dialogue already running")
)

// Room is a set of players sharing one clock. Each player runs at most one
// dialogue stack; Tick advances all of them by one hub step.
type Room struct {
	ID      string
	Now     float64
	Players map[string]*Player
	Mu      sync.Mutex

	hub        *Hub
	log        *slog.Logger
	rng        *rand.Rand
	emptySince float64
}

func newRoom(h *Hub, id string) *Room {
	return &Room{
		ID:      id,
		Players: map[string]*Player{},
		hub:     h,
		log:     h.log.With("room", id),
		rng:     rand.New(rand.NewSource(h.seed(id))),
	}
}

func (r *Room) Tick() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.Now += r.hub.Dt()

	for _, id := range r.playerIDsLocked() {
		r.tickPlayerLocked(r.Players[id])
	}
}

func (r *Room) playerIDsLocked() []string {
	ids := make([]string, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) tickPlayerLocked(p *Player) {
	for {
		s := p.Active()
		if s == nil {
			if !r.startQueuedLocked(p) {
				return
			}
			continue
		}
		s.View.Update(r.Now)
		s.Interp.Tick(r.Now)
		if !s.Interp.Done() {
			return
		}
		r.finishLocked(p)
	}
}

// finishLocked pops the player's finished session and saves its ledger.
func (r *Room) finishLocked(p *Player) {
	s := p.popSession()
	if s == nil {
		return
	}
	r.log.Debug("dialogue finished", "player", p.ID, "dialogue", s.Dialogue.ID, "nodes", len(s.Interp.Trace()))
	r.hub.persist(p.ID, s.Dialogue.SaveKey(), s.Dialogue.Ledger)
}

func (r *Room) startQueuedLocked(p *Player) bool {
	for len(p.queue) > 0 {
		id := p.queue[0]
		p.queue = p.queue[1:]
		if _, err := r.pushSessionLocked(p, id); err != nil {
			r.log.Error("start queued dialogue", "player", p.ID, "dialogue", id, "err", err)
			continue
		}
		return true
	}
	return false
}

// Join adds a player to the room.
func (r *Room) Join(p *Player) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if _, exists := r.Players[p.ID]; !exists && len(r.Players) >= RoomMaxPlayers {
		return ErrRoomFull
	}
	r.Players[p.ID] = p
	return nil
}

// Leave removes a player, abandoning any run in progress. The player's ledgers
// are saved, including those of abandoned runs.
func (r *Room) Leave(playerID string) *Player {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.leaveLocked(playerID)
}

// LeaveAll removes every player as Leave does and reports how many there were.
func (r *Room) LeaveAll() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	ids := r.playerIDsLocked()
	for _, id := range ids {
		r.leaveLocked(id)
	}
	return len(ids)
}

func (r *Room) leaveLocked(playerID string) *Player {
	p := r.Players[playerID]
	if p == nil {
		return nil
	}
	for p.Active() != nil {
		p.Active().Interp.Abandon()
		r.finishLocked(p)
	}
	p.queue = nil
	for key, l := range p.Ledgers {
		if l.Len() > 0 {
			r.hub.persist(p.ID, key, l)
		}
	}
	delete(r.Players, playerID)
	if len(r.Players) == 0 {
		r.emptySince = r.Now
	}
	r.hub.Voices.Forget(playerID)
	return p
}

func (r *Room) PlayerCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.Players)
}

// StartDialogue begins a dialogue for an idle player.
func (r *Room) StartDialogue(playerID, dialogueID string) (*Session, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.Players[playerID]
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if p.Busy() {
		return nil, ErrSessionRunning
	}
	return r.pushSessionLocked(p, dialogueID)
}

// pushSessionLocked starts a dialogue on top of the player's stack.
func (r *Room) pushSessionLocked(p *Player, dialogueID string) (*Session, error) {
	d, err := r.hub.Library.Get(dialogueID)
	if err != nil {
		return nil, err
	}
	inst := d.WithLedger(p.Ledger(d.SaveKey()))

	s := &Session{ID: newSessionID(), Dialogue: inst, StartedAt: r.Now}
	s.View = newSessionPresenter(r, p, s.ID)
	opts := []dialogue.Option{
		dialogue.WithLogger(r.log.With("player", p.ID, "dialogue", d.ID)),
		dialogue.WithRand(r.rng),
		dialogue.WithDefaults(r.hub.Defaults),
		dialogue.WithVariables(&Scope{room: r, player: p}),
	}
	// Nested runs keep out of the transcript so they don't reset the outer one.
	if len(p.sessions) == 0 {
		opts = append(opts, dialogue.WithTranscript(p.Transcript))
	}
	s.Interp = dialogue.NewInterpreter(inst, s.View, opts...)
	p.sessions = append(p.sessions, s)
	if _, err := s.Interp.Start(r.Now); err != nil {
		p.popSession()
		return nil, err
	}
	return s, nil
}

// enqueueLocked schedules a dialogue to start after the player's current runs.
func (r *Room) enqueueLocked(p *Player, dialogueID string) error {
	if _, err := r.hub.Library.Get(dialogueID); err != nil {
		return err
	}
	p.queue = append(p.queue, dialogueID)
	return nil
}

func (r *Room) activeLocked(playerID string) (*Player, *Session, error) {
	p := r.Players[playerID]
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	s := p.Active()
	if s == nil {
		return p, nil, ErrNoSession
	}
	return p, s, nil
}

// Skip forwards skip input to the player's active run.
func (r *Room) Skip(playerID string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	_, s, err := r.activeLocked(playerID)
	if err != nil {
		return err
	}
	s.Interp.Skip()
	return nil
}

// Choose selects a choice of the player's pending choice group.
func (r *Room) Choose(playerID string, index int) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p, s, err := r.activeLocked(playerID)
	if err != nil {
		return err
	}
	if err := s.Interp.Choose(index); err != nil {
		return err
	}
	p.History.push(Event{T: r.Now, Kind: EventChoice, Dialogue: s.Dialogue.ID, Text: fmt.Sprint(index)})
	return nil
}

// Abandon ends the player's runs without finishing them.
func (r *Room) Abandon(playerID string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p, _, err := r.activeLocked(playerID)
	if err != nil {
		return err
	}
	for p.Active() != nil {
		p.Active().Interp.Abandon()
		r.finishLocked(p)
	}
	p.queue = nil
	return nil
}

// ViewLocked returns the presentation state of the player's active run.
func (r *Room) ViewLocked(playerID string) (View, bool) {
	p := r.Players[playerID]
	if p == nil {
		return View{}, false
	}
	s := p.Active()
	if s == nil {
		return View{}, true
	}
	return s.View.Snapshot(s.Interp), true
}

// Rename changes the player's display name and the player_name variable
// dialogue text substitutes.
func (r *Room) Rename(playerID, name string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.Players[playerID]
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if name == "" {
		name = "Anon"
	}
	p.Name = name
	p.Vars["player_name"] = name
	return nil
}

// RunActions fires acts for the player outside any dialogue run. Actions that
// need a running dialogue do nothing.
func (r *Room) RunActions(playerID string, acts dialogue.Actions) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	p := r.Players[playerID]
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	acts.Execute(dialogue.Env{Now: r.Now, Vars: &Scope{room: r, player: p}})
	return nil
}
