package dialogue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	events      []string
	lines       []string
	choices     [][]ChoiceOption
	configs     []ConfigData
	typewriting bool
	completed   int
}

func (r *recorder) BeginDialogue(*Dialogue) { r.events = append(r.events, "begin") }
func (r *recorder) EndDialogue(*Dialogue)   { r.events = append(r.events, "end") }
func (r *recorder) HideLine()               { r.events = append(r.events, "hide_line") }
func (r *recorder) HideChoices()            { r.events = append(r.events, "hide_choices") }
func (r *recorder) IsTypewriting() bool     { return r.typewriting }

func (r *recorder) ShowLine(_ *Node, text string, cfg ConfigData) {
	r.events = append(r.events, "line:"+text)
	r.lines = append(r.lines, text)
	r.configs = append(r.configs, cfg)
}

func (r *recorder) ShowChoices(_ *Node, opts []ChoiceOption, _ ConfigData) bool {
	r.events = append(r.events, "choices")
	r.choices = append(r.choices, opts)
	return len(opts) > 0
}

func (r *recorder) CompleteTypewriting() {
	r.typewriting = false
	r.completed++
}

type fakeTask struct{ done bool }

func (t *fakeTask) Done() bool { return t.done }

type fakeActions struct {
	task    *fakeTask
	started int
	fired   int
}

func (a *fakeActions) Execute(Env) { a.fired++ }

func (a *fakeActions) ExecuteSequential(Env) Task {
	a.started++
	return a.task
}

type condFunc func(Env) bool

func (c condFunc) Check(env Env) bool { return c(env) }

var never = condFunc(func(Env) bool { return false })

// drive starts it and keeps skipping one second apart until the run ends.
func drive(t *testing.T, it *Interpreter) {
	t.Helper()
	now := 0.0
	_, err := it.Start(now)
	require.NoError(t, err)
	for k := 0; k < 200 && !it.Done(); k++ {
		now++
		it.Skip()
		it.Tick(now)
	}
	require.True(t, it.Done(), "run did not finish, status %s", it.Status())
}

func ids(nodes ...*Node) []NodeID {
	out := make([]NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
