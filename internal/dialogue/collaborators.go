package dialogue

import "fmt"

// Env is the context handed to collaborators while a node runs.
type Env struct {
	Dialogue *Dialogue
	Node     *Node
	Now      float64 // interpreter clock, seconds
	Vars     Variables
}

// Conditions is an externally owned condition list attached to a node.
type Conditions interface {
	Check(env Env) bool
}

// Actions is an externally owned action list attached to a node.
type Actions interface {
	// Execute starts the actions without waiting for them.
	Execute(env Env)
	// ExecuteSequential starts the actions and returns a task the interpreter
	// polls until it reports done. A nil task counts as already done.
	ExecuteSequential(env Env) Task
}

// Task is a join handle for work started by an action list.
type Task interface {
	Done() bool
}

// DoneTask is a Task that finished immediately.
type DoneTask struct{}

func (DoneTask) Done() bool { return true }

// Number is a numeric expression evaluated against the running node.
type Number interface {
	Value(env Env) float64
}

// Constant is a fixed Number.
type Constant float64

func (c Constant) Value(Env) float64 { return float64(c) }

// VariableNumber reads a numeric global variable, falling back when the variable
// is missing or not numeric.
type VariableNumber struct {
	Name     string
	Fallback float64
}

func (v VariableNumber) Value(env Env) float64 {
	if env.Vars == nil {
		return v.Fallback
	}
	raw, ok := env.Vars.Global(v.Name)
	if !ok {
		return v.Fallback
	}
	switch n := raw.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		var f float64
		if _, err := fmt.Sscan(fmt.Sprint(raw), &f); err != nil {
			return v.Fallback
		}
		return f
	}
}

// Variables resolves named global values.
type Variables interface {
	Global(name string) (any, bool)
}

// MapVariables implements Variables with a plain map.
type MapVariables map[string]any

func (m MapVariables) Global(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Localizer resolves a localization key to display text.
type Localizer interface {
	Text(key string) (string, bool)
}

// MapLocalizer implements Localizer with a plain map.
type MapLocalizer map[string]string

func (m MapLocalizer) Text(key string) (string, bool) {
	s, ok := m[key]
	return s, ok
}
