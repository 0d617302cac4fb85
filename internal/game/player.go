package game

import (
	"DialogueRuntime/internal/dialogue"
)

// Player is one connected participant. All fields are guarded by the room
// mutex of the room the player is in.
type Player struct {
	ID         string
	Name       string
	Vars       map[string]any
	Ledgers    map[string]*dialogue.Ledger // by dialogue save key
	Transcript *dialogue.Transcript
	History    *History

	sessions []*Session // innermost last; only the last one runs
	queue    []string   // dialogues to start once the stack empties
}

func NewPlayer(id, name string) *Player {
	if name == "" {
		name = "Anon"
	}
	return &Player{
		ID:         id,
		Name:       name,
		Vars:       map[string]any{"player_name": name},
		Ledgers:    map[string]*dialogue.Ledger{},
		Transcript: dialogue.NewTranscript(),
		History:    newHistory(HistoryKeep),
	}
}

// Ledger returns the player's revisit ledger for a dialogue save key, creating
// an empty one on first use.
func (p *Player) Ledger(saveKey string) *dialogue.Ledger {
	l, ok := p.Ledgers[saveKey]
	if !ok {
		l = dialogue.NewLedger()
		p.Ledgers[saveKey] = l
	}
	return l
}

// Active returns the session currently presenting, or nil.
func (p *Player) Active() *Session {
	if len(p.sessions) == 0 {
		return nil
	}
	return p.sessions[len(p.sessions)-1]
}

// Busy reports whether a dialogue is running or queued.
func (p *Player) Busy() bool {
	return len(p.sessions) > 0 || len(p.queue) > 0
}

func (p *Player) popSession() *Session {
	s := p.Active()
	if s != nil {
		p.sessions = p.sessions[:len(p.sessions)-1]
	}
	return s
}
