// Package dialogue implements the dialogue-tree execution engine: a validated
// arena of nodes, the per-dialogue revisit ledger, and a tick-driven interpreter
// that walks the tree while a Presenter shows lines and choices.
//
// The interpreter never blocks. Every wait (a line on screen, a pending choice,
// an action list running) is a state the caller advances with Tick.
package dialogue

import (
	"github.com/google/uuid"
)

// NodeID uniquely and stably identifies a node. It is the revisit-ledger key and
// the jump target reference.
type NodeID string

// NewNodeID returns a fresh random node id.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// Kind is the closed set of node variants.
type Kind string

const (
	KindRoot        Kind = "root"
	KindLine        Kind = "line"
	KindChoiceGroup Kind = "choice_group"
	KindChoice      Kind = "choice"
)

// AfterRun decides where traversal goes once a node has run.
type AfterRun string

const (
	AfterContinue AfterRun = "continue"
	AfterExit     AfterRun = "exit"
	AfterJump     AfterRun = "jump"
)

// ExecuteBehavior orders a node's attached actions against its own body.
type ExecuteBehavior string

const (
	ExecuteSimultaneous          ExecuteBehavior = "simultaneous"
	ExecuteActionsBeforeDialogue ExecuteBehavior = "actions_before_dialogue"
	ExecuteDialogueBeforeActions ExecuteBehavior = "dialogue_before_actions"
)

// TimeoutBehavior picks the outcome of a timed choice group nobody answered.
type TimeoutBehavior string

const (
	TimeoutFirstChoice  TimeoutBehavior = "first_choice"
	TimeoutRandomChoice TimeoutBehavior = "random_choice"
	TimeoutSkipGroup    TimeoutBehavior = "skip_group"
)

// FailChoice decides how a choice whose conditions fail is presented.
type FailChoice string

const (
	FailHideChoice    FailChoice = "hide"
	FailDisableChoice FailChoice = "disable"
)

const (
	DefaultAutoPlayTime  = 3.0
	DefaultChoiceTimeout = 5.0
)

// Node is one entity of the dialogue tree. Variant-specific fields are ignored
// on the other kinds.
type Node struct {
	ID         NodeID `json:"id"`
	Kind       Kind   `json:"kind"`
	Content    string `json:"content,omitempty"`     // raw text, may embed global[name] tokens
	ContentKey string `json:"content_key,omitempty"` // localization key, wins over Content when resolvable

	Parent   NodeID   `json:"parent,omitempty"`
	Children []NodeID `json:"children,omitempty"`

	AfterRun AfterRun        `json:"after_run,omitempty"`
	JumpTo   NodeID          `json:"jump_to,omitempty"`
	Execute  ExecuteBehavior `json:"execute,omitempty"`

	Actor    string `json:"actor,omitempty"`
	Portrait int    `json:"portrait,omitempty"`
	Voice    string `json:"voice,omitempty"`

	// Line
	AutoPlay     bool    `json:"auto_play,omitempty"`
	AutoPlayTime float64 `json:"auto_play_time,omitempty"`

	// ChoiceGroup
	Shuffle         bool            `json:"shuffle,omitempty"`
	Timed           bool            `json:"timed,omitempty"`
	Timeout         Number          `json:"-"`
	TimeoutBehavior TimeoutBehavior `json:"timeout_behavior,omitempty"`

	// Choice
	ShowOnce bool       `json:"show_once,omitempty"`
	OnFail   FailChoice `json:"on_fail,omitempty"`

	Config *ConfigLayer `json:"config,omitempty"`

	Conditions Conditions `json:"-"`
	Actions    Actions    `json:"-"`
}

// parentRules lists, per child kind, which kinds may contain it.
var parentRules = map[Kind]map[Kind]bool{
	KindRoot:        {},
	KindLine:        {KindRoot: true, KindLine: true, KindChoice: true},
	KindChoiceGroup: {KindRoot: true, KindChoiceGroup: true, KindChoice: true},
	KindChoice:      {KindChoiceGroup: true},
}

// CanHaveParent reports whether a node of kind child may sit under parent.
func CanHaveParent(child, parent Kind) bool {
	return parentRules[child][parent]
}

func (k Kind) valid() bool {
	_, ok := parentRules[k]
	return ok
}

// normalize fills zero-valued enums and timings with their defaults.
func (n *Node) normalize() {
	if n.AfterRun == "" {
		n.AfterRun = AfterContinue
	}
	if n.Execute == "" {
		n.Execute = ExecuteSimultaneous
	}
	if n.TimeoutBehavior == "" {
		n.TimeoutBehavior = TimeoutFirstChoice
	}
	if n.OnFail == "" {
		n.OnFail = FailHideChoice
	}
	if n.Kind == KindLine && n.AutoPlayTime <= 0 {
		n.AutoPlayTime = DefaultAutoPlayTime
	}
	if n.Kind == KindChoiceGroup && n.Timeout == nil {
		n.Timeout = Constant(DefaultChoiceTimeout)
	}
}

// CheckConditions is true when no condition list is attached or it passes.
func (n *Node) CheckConditions(env Env) bool {
	if n.Conditions == nil {
		return true
	}
	return n.Conditions.Check(env)
}

// Jumps reports whether the node redirects traversal after it runs.
func (n *Node) Jumps() bool {
	return n.AfterRun == AfterJump && n.JumpTo != ""
}
