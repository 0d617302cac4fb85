package dialogue

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

var (
	ErrAlreadyRunning  = errors.New("dialogue: interpreter already started")
	ErrNoChoicePending = errors.New("dialogue: no choice pending")
	ErrInvalidChoice   = errors.New("dialogue: invalid choice")
)

// DefaultSettleDelay is how long a freshly shown line ignores skip input.
const DefaultSettleDelay = 0.1

// MaxStepsPerTick bounds how many nodes one Tick may pop. A run that reaches it
// is looping through nodes that never wait and is ended.
const MaxStepsPerTick = 1000

// Status is what an interpreter is doing after a Tick.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusRunning        Status = "running"
	StatusWaitingInput   Status = "waiting_input"
	StatusWaitingTimeout Status = "waiting_timeout"
	StatusWaitingActions Status = "waiting_actions"
	StatusDone           Status = "done"
)

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithLogger(l *slog.Logger) Option { return func(i *Interpreter) { i.log = l } }

func WithRand(r *rand.Rand) Option { return func(i *Interpreter) { i.rng = r } }

func WithDefaults(cfg ConfigData) Option { return func(i *Interpreter) { i.defaults = cfg } }

func WithVariables(v Variables) Option { return func(i *Interpreter) { i.vars = v } }

func WithLocalizer(l Localizer) Option { return func(i *Interpreter) { i.loc = l } }

func WithTranscript(t *Transcript) Option { return func(i *Interpreter) { i.transcript = t } }

// WithSettleDelay overrides DefaultSettleDelay, in seconds.
func WithSettleDelay(seconds float64) Option { return func(i *Interpreter) { i.settle = seconds } }

type phase int

const (
	phaseStart phase = iota
	phaseActionsBefore
	phaseBody
	phaseActionsAfter
	phaseJoin
)

type bodyStep int

const (
	stepEnter bodyStep = iota
	stepSettle
	stepAwaitSkip
	stepChoices
	stepAwaitChoice
)

// frame is the execution state of the node currently running.
type frame struct {
	node  *Node
	env   Env
	phase phase
	step  bodyStep
	task  Task

	cfg     ConfigData
	text    string
	shown   bool
	shownAt float64

	suppressed bool // conditions failed, no next nodes
	choice     *ChoiceState
	options    []ChoiceOption
	selected   *Node
}

// Interpreter walks one run of a dialogue. It holds an explicit traversal stack
// and never blocks: every wait is a state advanced by Tick. An Interpreter is not
// safe for concurrent use; hosts serialize Tick, Choose and Skip.
type Interpreter struct {
	d          *Dialogue
	p          Presenter
	log        *slog.Logger
	rng        *rand.Rand
	defaults   ConfigData
	vars       Variables
	loc        Localizer
	transcript *Transcript
	settle     float64

	status Status
	now    float64
	stack  []NodeID
	cur    *frame
	skip   bool
	trace  []NodeID
}

// NewInterpreter prepares a run of d presented through p.
func NewInterpreter(d *Dialogue, p Presenter, opts ...Option) *Interpreter {
	if p == nil {
		p = NoOpPresenter{}
	}
	i := &Interpreter{
		d:        d,
		p:        p,
		log:      slog.Default(),
		defaults: DefaultConfigData(),
		settle:   DefaultSettleDelay,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.rng == nil {
		i.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return i
}

// Dialogue returns the dialogue being run.
func (i *Interpreter) Dialogue() *Dialogue { return i.d }

// Status returns the state reached by the last Tick.
func (i *Interpreter) Status() Status { return i.status }

// Done reports whether the run has ended.
func (i *Interpreter) Done() bool { return i.status == StatusDone }

// Trace returns the ids of the nodes run so far, in execution order.
func (i *Interpreter) Trace() []NodeID {
	return append([]NodeID(nil), i.trace...)
}

// Current returns the node running now, or nil.
func (i *Interpreter) Current() *Node {
	if i.cur == nil {
		return nil
	}
	return i.cur.node
}

// PendingChoices returns the options shown for the choice group waiting on a
// selection, or nil.
func (i *Interpreter) PendingChoices() []ChoiceOption {
	if i.cur == nil || i.cur.step != stepAwaitChoice {
		return nil
	}
	return append([]ChoiceOption(nil), i.cur.options...)
}

// ChoiceDeadline returns the clock time a pending timed choice expires at.
func (i *Interpreter) ChoiceDeadline() (float64, bool) {
	if i.cur == nil || i.cur.step != stepAwaitChoice || !i.cur.choice.Timed {
		return 0, false
	}
	return i.cur.choice.StartTime + i.cur.choice.Timeout, true
}

// Start begins the run and advances it as far as it goes at now.
func (i *Interpreter) Start(now float64) (Status, error) {
	if i.status != StatusIdle {
		return i.status, ErrAlreadyRunning
	}
	i.stack = []NodeID{i.d.Root}
	i.status = StatusRunning
	if i.transcript != nil {
		i.transcript.Reset()
	}
	i.p.BeginDialogue(i.d)
	return i.Tick(now), nil
}

// Skip requests that the line on screen completes. Skips arriving within the
// settle delay of a line being shown are dropped; an unconsumed skip is dropped
// at the end of the next Tick.
func (i *Interpreter) Skip() {
	if i.status == StatusIdle || i.status == StatusDone {
		return
	}
	i.skip = true
}

// Choose selects the option at child index of the pending choice group. The
// selection is applied on the next Tick.
func (i *Interpreter) Choose(index int) error {
	f := i.cur
	if f == nil || f.step != stepAwaitChoice || f.choice.HasMadeChoice {
		return ErrNoChoicePending
	}
	for _, opt := range f.options {
		if opt.Index != index {
			continue
		}
		if opt.Disabled {
			return fmt.Errorf("%w: option %d is disabled", ErrInvalidChoice, index)
		}
		f.choice.Select(index)
		return nil
	}
	return fmt.Errorf("%w: option %d was not offered", ErrInvalidChoice, index)
}

// Abandon ends the run without running the remaining nodes. The ledger keeps
// everything marked so far.
func (i *Interpreter) Abandon() {
	if i.status == StatusIdle || i.status == StatusDone {
		return
	}
	i.stack = nil
	i.cur = nil
	i.finish()
}

// Tick advances the run through every wait already satisfied at now and
// returns at the first one that isn't.
func (i *Interpreter) Tick(now float64) Status {
	if i.status == StatusIdle || i.status == StatusDone {
		return i.status
	}
	i.now = now

	steps := 0
	for i.status != StatusDone {
		if i.cur == nil {
			if len(i.stack) == 0 {
				i.finish()
				break
			}
			if steps++; steps > MaxStepsPerTick {
				i.log.Error("dialogue: run loops without waiting", "dialogue", i.d.ID, "node", i.stack[len(i.stack)-1], "steps", MaxStepsPerTick)
				i.stack = nil
				i.finish()
				break
			}
			if i.cur = i.pop(); i.cur == nil {
				continue
			}
		}
		i.status = StatusRunning
		if !i.advance(i.cur) {
			break
		}
		i.complete(i.cur)
	}

	i.skip = false
	return i.status
}

func (i *Interpreter) pop() *frame {
	id := i.stack[len(i.stack)-1]
	i.stack = i.stack[:len(i.stack)-1]

	n := i.d.Node(id)
	if n == nil {
		i.log.Error("dialogue: node missing from arena", "dialogue", i.d.ID, "node", id)
		return nil
	}

	i.d.Ledger.Mark(id)
	i.trace = append(i.trace, id)
	return &frame{node: n, env: i.env(n)}
}

func (i *Interpreter) env(n *Node) Env {
	return Env{Dialogue: i.d, Node: n, Now: i.now, Vars: i.vars}
}

func (i *Interpreter) finish() {
	i.status = StatusDone
	i.cur = nil
	i.p.EndDialogue(i.d)
}

// advance runs the current frame and reports whether the node has finished.
func (i *Interpreter) advance(f *frame) bool {
	f.env.Now = i.now
	for {
		switch f.phase {
		case phaseStart:
			switch f.node.Execute {
			case ExecuteActionsBeforeDialogue:
				f.task = i.startActions(f)
				f.phase = phaseActionsBefore
			case ExecuteDialogueBeforeActions:
				f.phase = phaseBody
			default:
				f.task = i.startActions(f)
				f.phase = phaseBody
			}

		case phaseActionsBefore:
			if !taskDone(f.task) {
				i.status = StatusWaitingActions
				return false
			}
			f.phase = phaseBody

		case phaseBody:
			if !i.runBody(f) {
				return false
			}
			if f.node.Execute == ExecuteDialogueBeforeActions {
				f.task = i.startActions(f)
				f.phase = phaseActionsAfter
			} else {
				f.phase = phaseJoin
			}

		case phaseActionsAfter, phaseJoin:
			if !taskDone(f.task) {
				i.status = StatusWaitingActions
				return false
			}
			return true
		}
	}
}

func (i *Interpreter) startActions(f *frame) Task {
	if f.node.Actions == nil {
		return nil
	}
	return f.node.Actions.ExecuteSequential(f.env)
}

func taskDone(t Task) bool {
	return t == nil || t.Done()
}

func (i *Interpreter) runBody(f *frame) bool {
	switch f.node.Kind {
	case KindLine:
		return i.runLine(f)
	case KindChoiceGroup:
		return i.runChoiceGroup(f)
	default:
		return true
	}
}

func (i *Interpreter) runLine(f *frame) bool {
	if f.step == stepEnter {
		if !f.node.CheckConditions(f.env) {
			f.suppressed = true
			return true
		}
		i.showLine(f, i.Content(f.node))
	}
	if !i.awaitLine(f) {
		return false
	}
	i.completeLine(f)
	i.p.HideLine()
	return true
}

func (i *Interpreter) runChoiceGroup(f *frame) bool {
	if f.step == stepEnter {
		if !f.node.CheckConditions(f.env) || len(f.node.Children) == 0 {
			f.suppressed = true
			return true
		}
		if text := i.Content(f.node); text != "" {
			i.showLine(f, text)
		} else {
			f.step = stepChoices
		}
	}
	if f.step == stepSettle || f.step == stepAwaitSkip {
		if !i.awaitLine(f) {
			return false
		}
		f.step = stepChoices
	}
	if f.step == stepChoices {
		i.beginChoices(f)
		f.step = stepAwaitChoice
	}

	if !f.choice.Resolved(i.now) {
		if f.choice.Timed {
			i.status = StatusWaitingTimeout
		} else {
			i.status = StatusWaitingInput
		}
		return false
	}
	if f.shown {
		i.completeLine(f)
	}
	i.resolveChoice(f)
	i.p.HideLine()
	i.p.HideChoices()
	return true
}

func (i *Interpreter) showLine(f *frame, text string) {
	f.cfg = i.config(f.node)
	f.text = text
	f.shown = true
	f.shownAt = i.now
	f.step = stepSettle
	i.p.ShowLine(f.node, text, f.cfg)
}

// awaitLine reports whether the line on screen may be dismissed.
func (i *Interpreter) awaitLine(f *frame) bool {
	if f.step == stepSettle {
		if i.now-f.shownAt < i.settle {
			i.status = StatusWaitingInput
			return false
		}
		f.step = stepAwaitSkip
	}

	if i.skip {
		i.skip = false
		if f.cfg.TypewriterEnabled && i.p.IsTypewriting() {
			i.p.CompleteTypewriting()
		} else {
			return true
		}
	}
	if f.node.AutoPlay && i.now-f.shownAt > f.node.AutoPlayTime {
		return true
	}
	i.status = StatusWaitingInput
	return false
}

func (i *Interpreter) completeLine(f *frame) {
	if i.transcript == nil {
		return
	}
	i.transcript.Add(Entry{
		NodeID:   f.node.ID,
		Text:     f.text,
		Actor:    f.node.Actor,
		Portrait: f.node.Portrait,
	})
}

func (i *Interpreter) beginChoices(f *frame) {
	g := f.node
	cfg := i.config(g)

	timeout := DefaultChoiceTimeout
	if g.Timeout != nil {
		timeout = g.Timeout.Value(f.env)
	}
	f.choice = newChoiceState(i.now, timeout, g.Timed)

	f.options = i.choiceOptions(g, cfg)
	if g.Shuffle {
		i.rng.Shuffle(len(f.options), func(a, b int) {
			f.options[a], f.options[b] = f.options[b], f.options[a]
		})
	}

	shown := i.p.ShowChoices(g, append([]ChoiceOption(nil), f.options...), cfg)
	f.choice.HasChoicesAvailable = shown && len(f.options) > 0
}

// choiceOptions filters a group's children down to what may be presented.
func (i *Interpreter) choiceOptions(g *Node, cfg ConfigData) []ChoiceOption {
	var opts []ChoiceOption
	for idx, id := range g.Children {
		c := i.d.Node(id)
		if c == nil || c.Kind != KindChoice {
			continue
		}
		revisited := i.d.Ledger.Visited(c.ID)
		if c.ShowOnce && revisited {
			continue
		}

		disabled := false
		if !c.CheckConditions(i.env(c)) {
			if c.OnFail == FailHideChoice {
				continue
			}
			disabled = true
		}

		opacity := 1.0
		if revisited {
			opacity = cfg.RevisitChoiceOpacity
		}
		opts = append(opts, ChoiceOption{
			Index:     idx,
			Node:      c,
			Text:      i.Content(c),
			Disabled:  disabled,
			Revisited: revisited,
			Opacity:   opacity,
		})
	}
	return opts
}

func (i *Interpreter) resolveChoice(f *frame) {
	g, s := f.node, f.choice
	sel := -1
	switch {
	case !s.HasChoicesAvailable:
	case s.HasMadeChoice:
		sel = s.SelectedIndex
	case s.Expired(i.now):
		sel = TimeoutSelection(g.TimeoutBehavior, len(g.Children), i.rng)
		i.log.Debug("dialogue: choice timed out", "dialogue", i.d.ID, "node", g.ID, "selected", sel)
	}
	if sel < 0 {
		return
	}
	if sel >= len(g.Children) {
		i.log.Error("dialogue: selection out of range", "dialogue", i.d.ID, "node", g.ID, "selected", sel, "children", len(g.Children))
		return
	}

	c := i.d.Node(g.Children[sel])
	if c == nil {
		i.log.Error("dialogue: selected child missing", "dialogue", i.d.ID, "node", g.ID, "child", g.Children[sel])
		return
	}
	f.selected = c
	if i.transcript != nil {
		i.transcript.Add(Entry{NodeID: c.ID, Text: i.Content(c), IsChoice: true, Actor: c.Actor, Portrait: c.Portrait})
	}
}

// config merges the global, dialogue and node layers. A missing skin is
// reported but doesn't stop the line.
func (i *Interpreter) config(n *Node) ConfigData {
	cfg := MergeConfig(i.defaults, i.d.Config, n.Config)
	if cfg.Skin == "" {
		i.log.Warn("dialogue: no skin configured", "dialogue", i.d.ID, "node", n.ID)
	}
	return cfg
}

// Content resolves a node's display text: localized when possible, with
// global[name] tokens substituted.
func (i *Interpreter) Content(n *Node) string {
	text, ok := ExpandGlobals(RawContent(n, i.loc), i.vars)
	if !ok {
		i.log.Warn("dialogue: global substitution limit reached", "dialogue", i.d.ID, "node", n.ID, "limit", MaxGlobalExpansions)
	}
	return text
}

// complete applies the finished node's after-run behavior.
func (i *Interpreter) complete(f *frame) {
	i.cur = nil
	n := f.node

	switch {
	case n.AfterRun == AfterExit:
		i.stack = nil
		i.finish()
	case n.Jumps():
		i.jump(n)
	default:
		next := i.next(f)
		for k := len(next) - 1; k >= 0; k-- {
			i.stack = append(i.stack, next[k])
		}
	}
}

func (i *Interpreter) next(f *frame) []NodeID {
	n := f.node
	switch n.Kind {
	case KindChoiceGroup:
		if f.selected == nil {
			return nil
		}
		return []NodeID{f.selected.ID}
	case KindLine:
		if f.suppressed {
			return nil
		}
	}

	out := make([]NodeID, 0, len(n.Children))
	for _, id := range n.Children {
		if i.d.Node(id) == nil {
			i.log.Error("dialogue: child missing", "dialogue", i.d.ID, "node", n.ID, "child", id)
			continue
		}
		out = append(out, id)
	}
	return out
}

// jump restarts traversal at the target: the target's parent children from
// the last one down to the target are pushed, so the target runs next and its
// later siblings run after its subtree.
func (i *Interpreter) jump(from *Node) {
	i.stack = i.stack[:0]

	target := i.d.Node(from.JumpTo)
	if target == nil {
		i.log.Error("dialogue: jump target missing", "dialogue", i.d.ID, "node", from.ID, "target", from.JumpTo)
		i.finish()
		return
	}
	parent := i.d.Node(target.Parent)
	if parent == nil {
		i.stack = append(i.stack, target.ID)
		return
	}
	for k := len(parent.Children) - 1; k >= 0; k-- {
		id := parent.Children[k]
		if i.d.Node(id) == nil {
			continue
		}
		i.stack = append(i.stack, id)
		if id == target.ID {
			break
		}
	}
}
