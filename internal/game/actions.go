package game

import (
	"fmt"
	"strconv"

	"DialogueRuntime/internal/asset"
	"DialogueRuntime/internal/dialogue"
)

// Scope is what dialogue collaborators run against: one player in one room.
// It is the dialogue.Variables handed to the player's interpreters.
type Scope struct {
	room   *Room
	player *Player
}

func (s *Scope) Global(name string) (any, bool) {
	v, ok := s.player.Vars[name]
	return v, ok
}

func (s *Scope) Set(name string, v any) {
	s.player.Vars[name] = v
}

func (s *Scope) Now() float64 { return s.room.Now }

func scopeOf(env dialogue.Env) (*Scope, bool) {
	s, ok := env.Vars.(*Scope)
	return s, ok && s != nil
}

// where names the running dialogue and node, empty outside a run.
func where(env dialogue.Env) (string, dialogue.NodeID) {
	var did string
	var node dialogue.NodeID
	if env.Dialogue != nil {
		did = env.Dialogue.ID
	}
	if env.Node != nil {
		node = env.Node.ID
	}
	return did, node
}

/* ------------------------------ Actions ------------------------------ */

// Action is one step of an action list. Run starts it and returns a task the
// list waits on before running the next step.
type Action interface {
	Run(env dialogue.Env) dialogue.Task
}

// ActionList runs its steps in order.
type ActionList []Action

func (l ActionList) Execute(env dialogue.Env) {
	for _, a := range l {
		a.Run(env)
	}
}

func (l ActionList) ExecuteSequential(env dialogue.Env) dialogue.Task {
	t := &sequenceTask{env: env, steps: l}
	t.Done()
	return t
}

type sequenceTask struct {
	env   dialogue.Env
	steps []Action
	next  int
	cur   dialogue.Task
}

func (t *sequenceTask) Done() bool {
	for t.next < len(t.steps) {
		if t.cur == nil {
			t.cur = t.steps[t.next].Run(t.env)
		}
		if t.cur != nil && !t.cur.Done() {
			return false
		}
		t.cur = nil
		t.next++
	}
	return true
}

// SetVar assigns a player variable.
type SetVar struct {
	Name  string
	Value any
}

func (a SetVar) Run(env dialogue.Env) dialogue.Task {
	if s, ok := scopeOf(env); ok {
		s.Set(a.Name, a.Value)
	}
	return nil
}

// AddVar adds Amount to a numeric player variable, treating a missing one as 0.
type AddVar struct {
	Name   string
	Amount float64
}

func (a AddVar) Run(env dialogue.Env) dialogue.Task {
	s, ok := scopeOf(env)
	if !ok {
		return nil
	}
	cur, _ := s.Global(a.Name)
	n, _ := toFloat(cur)
	s.Set(a.Name, n+a.Amount)
	return nil
}

// Wait holds the list for Seconds of room time.
type Wait struct {
	Seconds float64
}

func (a Wait) Run(env dialogue.Env) dialogue.Task {
	s, ok := scopeOf(env)
	if !ok || a.Seconds <= 0 {
		return nil
	}
	return &waitTask{scope: s, until: s.Now() + a.Seconds}
}

type waitTask struct {
	scope *Scope
	until float64
}

func (t *waitTask) Done() bool { return t.scope.Now() >= t.until }

// Emit records a custom event in the player's history.
type Emit struct {
	Text string
}

func (a Emit) Run(env dialogue.Env) dialogue.Task {
	if s, ok := scopeOf(env); ok {
		did, node := where(env)
		s.player.History.push(Event{
			T:        s.Now(),
			Kind:     EventCustom,
			Dialogue: did,
			Node:     string(node),
			Text:     a.Text,
		})
	}
	return nil
}

// StartDialogue starts another dialogue for the same player. With Wait the
// current list holds until that run ends; without it the run is queued behind
// the current one. A missing dialogue is logged and nothing starts.
type StartDialogue struct {
	Dialogue string
	Wait     bool
}

func (a StartDialogue) Run(env dialogue.Env) dialogue.Task {
	s, ok := scopeOf(env)
	if !ok {
		return nil
	}
	_, node := where(env)
	if !a.Wait {
		if err := s.room.enqueueLocked(s.player, a.Dialogue); err != nil {
			s.room.log.Error("start dialogue action", "player", s.player.ID, "node", node, "err", err)
		}
		return nil
	}
	session, err := s.room.pushSessionLocked(s.player, a.Dialogue)
	if err != nil {
		s.room.log.Error("start dialogue action", "player", s.player.ID, "node", node, "err", err)
		return nil
	}
	return session
}

// ResetRevisits clears a dialogue's ledger for the player, the current dialogue
// when none is named.
type ResetRevisits struct {
	Dialogue string
}

func (a ResetRevisits) Run(env dialogue.Env) dialogue.Task {
	s, ok := scopeOf(env)
	if !ok {
		return nil
	}
	if a.Dialogue == "" && env.Dialogue == nil {
		s.room.log.Error("reset revisits action outside a dialogue", "player", s.player.ID)
		return nil
	}
	var key string
	if env.Dialogue != nil {
		key = env.Dialogue.SaveKey()
	}
	if a.Dialogue != "" {
		d, err := s.room.hub.Library.Get(a.Dialogue)
		if err != nil {
			s.room.log.Error("reset revisits action", "player", s.player.ID, "err", err)
			return nil
		}
		key = d.SaveKey()
	}
	s.player.Ledger(key).Reset()
	return nil
}

/* ----------------------------- Conditions ---------------------------- */

// Condition is one check of a condition list.
type Condition interface {
	Check(env dialogue.Env) bool
}

// ConditionList passes when every condition passes.
type ConditionList []Condition

func (l ConditionList) Check(env dialogue.Env) bool {
	for _, c := range l {
		if !c.Check(env) {
			return false
		}
	}
	return true
}

// Flag checks the truthiness of a variable against Want.
type Flag struct {
	Name string
	Want bool
}

func (c Flag) Check(env dialogue.Env) bool {
	var v any
	if env.Vars != nil {
		v, _ = env.Vars.Global(c.Name)
	}
	return truthy(v) == c.Want
}

// VarEquals compares a variable's string form.
type VarEquals struct {
	Name  string
	Value any
}

func (c VarEquals) Check(env dialogue.Env) bool {
	if env.Vars == nil {
		return false
	}
	v, ok := env.Vars.Global(c.Name)
	return ok && fmt.Sprint(v) == fmt.Sprint(c.Value)
}

// VarAtLeast passes when a numeric variable is >= Value.
type VarAtLeast struct {
	Name  string
	Value float64
}

func (c VarAtLeast) Check(env dialogue.Env) bool {
	if env.Vars == nil {
		return false
	}
	v, _ := env.Vars.Global(c.Name)
	n, ok := toFloat(v)
	return ok && n >= c.Value
}

// Visited passes when a node of the running dialogue has run before.
type Visited struct {
	Node dialogue.NodeID
	Want bool
}

func (c Visited) Check(env dialogue.Env) bool {
	if env.Dialogue == nil {
		return !c.Want
	}
	return env.Dialogue.IsRevisit(c.Node) == c.Want
}

/* ------------------------------- Binder ------------------------------ */

// Binder builds this package's actions and conditions from document specs.
type Binder struct{}

func (Binder) BindConditions(node dialogue.NodeID, specs []asset.Spec) (dialogue.Conditions, error) {
	list := make(ConditionList, 0, len(specs))
	for _, s := range specs {
		c, err := bindCondition(s)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, nil
}

func (Binder) BindActions(node dialogue.NodeID, specs []asset.Spec) (dialogue.Actions, error) {
	list := make(ActionList, 0, len(specs))
	for _, s := range specs {
		a, err := bindAction(s)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}

func bindCondition(s asset.Spec) (Condition, error) {
	switch s.Type {
	case "flag", "not_flag":
		name, err := argString(s, "name")
		if err != nil {
			return nil, err
		}
		return Flag{Name: name, Want: s.Type == "flag"}, nil
	case "var_equals":
		name, err := argString(s, "name")
		if err != nil {
			return nil, err
		}
		v, ok := s.Args["value"]
		if !ok {
			return nil, fmt.Errorf("%w: %s needs value", asset.ErrInvalid, s.Type)
		}
		return VarEquals{Name: name, Value: v}, nil
	case "var_at_least":
		name, err := argString(s, "name")
		if err != nil {
			return nil, err
		}
		v, err := argFloat(s, "value")
		if err != nil {
			return nil, err
		}
		return VarAtLeast{Name: name, Value: v}, nil
	case "visited", "not_visited":
		node, err := argString(s, "node")
		if err != nil {
			return nil, err
		}
		return Visited{Node: dialogue.NodeID(node), Want: s.Type == "visited"}, nil
	}
	return nil, fmt.Errorf("%w: unknown condition %q", asset.ErrInvalid, s.Type)
}

func bindAction(s asset.Spec) (Action, error) {
	switch s.Type {
	case "set_var":
		name, err := argString(s, "name")
		if err != nil {
			return nil, err
		}
		return SetVar{Name: name, Value: s.Args["value"]}, nil
	case "set_flag", "clear_flag":
		name, err := argString(s, "name")
		if err != nil {
			return nil, err
		}
		return SetVar{Name: name, Value: s.Type == "set_flag"}, nil
	case "add":
		name, err := argString(s, "name")
		if err != nil {
			return nil, err
		}
		amount, err := argFloat(s, "amount")
		if err != nil {
			return nil, err
		}
		return AddVar{Name: name, Amount: amount}, nil
	case "wait":
		secs, err := argFloat(s, "seconds")
		if err != nil {
			return nil, err
		}
		return Wait{Seconds: secs}, nil
	case "emit":
		text, err := argString(s, "text")
		if err != nil {
			return nil, err
		}
		return Emit{Text: text}, nil
	case "start_dialogue":
		id, err := argString(s, "dialogue")
		if err != nil {
			return nil, err
		}
		return StartDialogue{Dialogue: id, Wait: truthy(s.Args["wait"])}, nil
	case "reset_revisits":
		id, _ := s.Args["dialogue"].(string)
		return ResetRevisits{Dialogue: id}, nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", asset.ErrInvalid, s.Type)
}

func argString(s asset.Spec, key string) (string, error) {
	v, ok := s.Args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s needs %s", asset.ErrInvalid, s.Type, key)
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("%w: %s.%s must be a non-empty string", asset.ErrInvalid, s.Type, key)
	}
	return str, nil
}

func argFloat(s asset.Spec, key string) (float64, error) {
	n, ok := toFloat(s.Args[key])
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s must be a number", asset.ErrInvalid, s.Type, key)
	}
	return n, nil
}

// toFloat accepts the numeric types YAML, TOML and JSON decoders produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != "" && b != "false" && b != "0"
	}
	n, ok := toFloat(v)
	return !ok || n != 0
}
