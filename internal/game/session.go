package game

import (
	"github.com/google/uuid"

	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/typewriter"
)

// Session is one run of a dialogue for one player.
type Session struct {
	ID        string
	Dialogue  *dialogue.Dialogue // the player's view of the tree, with their ledger
	Interp    *dialogue.Interpreter
	View      *SessionPresenter
	StartedAt float64
}

// Done reports whether the run ended. A Session is the task a waiting
// start-dialogue action polls.
func (s *Session) Done() bool { return s.Interp.Done() }

func newSessionID() string { return uuid.NewString() }

// LineView is the line on screen as a client draws it.
type LineView struct {
	Node        string  `json:"node"`
	Text        string  `json:"text"` // markup revealed so far, tags balanced
	Full        string  `json:"full"`
	Speaker     string  `json:"speaker,omitempty"`
	Color       string  `json:"color,omitempty"`
	Portrait    string  `json:"portrait,omitempty"`
	Typewriting bool    `json:"typewriting"`
	Voice       string  `json:"voice,omitempty"`
	ShownAt     float64 `json:"shown_at"`
}

// ChoiceView is one selectable option.
type ChoiceView struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Disabled bool    `json:"disabled,omitempty"`
	Opacity  float64 `json:"opacity"`
}

// View is the full presentation state of a player's active session.
type View struct {
	Version  uint64       `json:"version"`
	Session  string       `json:"session,omitempty"`
	Dialogue string       `json:"dialogue,omitempty"`
	Active   bool         `json:"active"`
	Skin     string       `json:"skin,omitempty"`
	SkipKey  string       `json:"skip_key,omitempty"`
	Line     *LineView    `json:"line,omitempty"`
	Choices  []ChoiceView `json:"choices,omitempty"`
	Deadline float64      `json:"deadline,omitempty"` // room time a timed choice expires
	Blips    []Blip       `json:"blips,omitempty"`
}

type lineState struct {
	node     *dialogue.Node
	text     *typewriter.Text
	shownAt  float64
	cps      float64
	revealed int
	speaker  string
	color    string
	portrait string
	gib      *dialogue.Gibberish
}

// SessionPresenter is the dialogue.Presenter for a networked player. It keeps
// the presentation state the transport serializes, drives the typewriter from
// the room clock, and emits gibberish blips as characters appear.
type SessionPresenter struct {
	room    *Room
	player  *Player
	session string
	d       *dialogue.Dialogue

	version uint64
	active  bool
	cfg     dialogue.ConfigData
	line    *lineState
	choices []ChoiceView
	blips   []Blip
}

func newSessionPresenter(r *Room, p *Player, sessionID string) *SessionPresenter {
	return &SessionPresenter{room: r, player: p, session: sessionID}
}

func (v *SessionPresenter) bump() { v.version++ }

func (v *SessionPresenter) event(kind string, node dialogue.NodeID, text string) {
	e := Event{T: v.room.Now, Kind: kind, Node: string(node), Text: text}
	if v.d != nil {
		e.Dialogue = v.d.ID
	}
	v.player.History.push(e)
}

func (v *SessionPresenter) BeginDialogue(d *dialogue.Dialogue) {
	v.d = d
	v.active = true
	v.event(EventDialogueStart, "", "")
	v.bump()
}

func (v *SessionPresenter) EndDialogue(d *dialogue.Dialogue) {
	v.HideLine()
	v.active = false
	v.choices = nil
	v.event(EventDialogueEnd, "", "")
	v.bump()
}

func (v *SessionPresenter) ShowLine(node *dialogue.Node, text string, cfg dialogue.ConfigData) {
	v.cfg = cfg
	ls := &lineState{
		node:    node,
		text:    typewriter.New(text),
		shownAt: v.room.Now,
		cps:     cfg.CharactersPerSecond,
	}
	if !cfg.TypewriterEnabled || ls.cps <= 0 {
		ls.revealed = ls.text.VisibleCount()
	}

	if a := v.actor(node.Actor); a != nil {
		ls.speaker = a.DisplayName(v.scope())
		ls.color = a.Color
		ls.gib = a.Gibberish
		if p, ok := a.Portrait(node.Portrait); ok {
			ls.portrait = p.Name
		}
	}
	v.line = ls

	v.event(EventLine, node.ID, text)
	if node.Voice != "" {
		v.event(EventVoiceStart, node.ID, node.Voice)
	}
	v.bump()
}

func (v *SessionPresenter) ShowChoices(group *dialogue.Node, opts []dialogue.ChoiceOption, cfg dialogue.ConfigData) bool {
	if len(opts) == 0 {
		return false
	}
	v.cfg = cfg
	v.choices = make([]ChoiceView, len(opts))
	for i, o := range opts {
		v.choices[i] = ChoiceView{Index: o.Index, Text: o.Text, Disabled: o.Disabled, Opacity: o.Opacity}
	}
	v.bump()
	return true
}

func (v *SessionPresenter) HideLine() {
	if v.line == nil {
		return
	}
	if v.line.node.Voice != "" {
		v.event(EventVoiceStop, v.line.node.ID, v.line.node.Voice)
	}
	v.line = nil
	v.bump()
}

func (v *SessionPresenter) HideChoices() {
	if v.choices == nil {
		return
	}
	v.choices = nil
	v.bump()
}

func (v *SessionPresenter) IsTypewriting() bool {
	return v.line != nil && v.line.revealed < v.line.text.VisibleCount()
}

func (v *SessionPresenter) CompleteTypewriting() {
	if v.line == nil {
		return
	}
	v.line.revealed = v.line.text.VisibleCount()
	v.bump()
}

// Update advances the typewriter to now. A blip plays whenever the visible
// count grows.
func (v *SessionPresenter) Update(now float64) {
	ls := v.line
	if ls == nil || !v.IsTypewriting() {
		return
	}
	n := typewriter.Progress(now-ls.shownAt, ls.cps, ls.text.VisibleCount())
	if n <= ls.revealed {
		return
	}
	ls.revealed = n
	if b, ok := v.room.hub.Voices.Play(v.player.ID, now, ls.gib); ok {
		v.blips = append(v.blips, b)
	}
	v.bump()
}

// Snapshot returns the current view and drains pending blips.
func (v *SessionPresenter) Snapshot(interp *dialogue.Interpreter) View {
	view := View{
		Version: v.version,
		Session: v.session,
		Active:  v.active,
		Skin:    v.cfg.Skin,
		SkipKey: v.cfg.SkipKey,
		Blips:   v.blips,
	}
	v.blips = nil
	if v.d != nil {
		view.Dialogue = v.d.ID
	}
	if ls := v.line; ls != nil {
		view.Line = &LineView{
			Node:        string(ls.node.ID),
			Text:        ls.text.Reveal(ls.revealed),
			Full:        ls.text.Source(),
			Speaker:     ls.speaker,
			Color:       ls.color,
			Portrait:    ls.portrait,
			Typewriting: v.IsTypewriting(),
			Voice:       ls.node.Voice,
			ShownAt:     ls.shownAt,
		}
	}
	if len(v.choices) > 0 {
		view.Choices = append([]ChoiceView(nil), v.choices...)
		if interp != nil {
			if deadline, ok := interp.ChoiceDeadline(); ok {
				view.Deadline = deadline
			}
		}
	}
	return view
}

func (v *SessionPresenter) actor(id string) *dialogue.Actor {
	if id == "" {
		return nil
	}
	if v.d != nil {
		if a := v.d.Actor(id); a != nil {
			return a
		}
	}
	return v.room.hub.Actors.Get(id)
}

func (v *SessionPresenter) scope() *Scope {
	return &Scope{room: v.room, player: v.player}
}
