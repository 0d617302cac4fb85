package asset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DialogueRuntime/internal/dialogue"
)

const shopYAML = `
id: shop
config:
  override: true
  skin: parchment
  skip_key: space
  revisit_choice_opacity: 0.5
  typewriter: true
  characters_per_second: 40
actors:
  - id: keeper
    name: Keeper
    portraits:
      - name: calm
        kind: sprite
root:
  children:
    - id: greet
      kind: line
      actor: keeper
      text: "Welcome, global[name]."
    - id: menu
      kind: choice_group
      timed: true
      timeout: 4
      timeout_behavior: skip_group
      children:
        - id: buy
          kind: choice
          text: Buy
          conditions:
            - type: flag
              args: {name: has_gold}
          children:
            - kind: line
              text: Thanks!
              after_run: exit
        - id: leave
          kind: choice
          text: Leave
          show_once: true
          jump_to: greet
`

const shopTOML = `
id = "shop"

[root]

[[root.children]]
id = "greet"
kind = "line"
text = "Welcome, global[name]."

[[root.children]]
id = "menu"
kind = "choice_group"
timeout_variable = "menu_timeout"
timeout = 6.0

[[root.children.children]]
id = "buy"
kind = "choice"
text = "Buy"

[[root.children.children.actions]]
type = "set_flag"
args = { name = "bought" }
`

type stubBinder struct {
	conditions map[dialogue.NodeID][]Spec
	actions    map[dialogue.NodeID][]Spec
}

type stubConditions struct{}

func (stubConditions) Check(dialogue.Env) bool { return true }

type stubActions struct{}

func (stubActions) Execute(dialogue.Env)                         {}
func (stubActions) ExecuteSequential(dialogue.Env) dialogue.Task { return dialogue.DoneTask{} }

func newStubBinder() *stubBinder {
	return &stubBinder{conditions: map[dialogue.NodeID][]Spec{}, actions: map[dialogue.NodeID][]Spec{}}
}

func (b *stubBinder) BindConditions(id dialogue.NodeID, specs []Spec) (dialogue.Conditions, error) {
	b.conditions[id] = specs
	return stubConditions{}, nil
}

func (b *stubBinder) BindActions(id dialogue.NodeID, specs []Spec) (dialogue.Actions, error) {
	b.actions[id] = specs
	return stubActions{}, nil
}

func TestBuildYAML(t *testing.T) {
	doc, err := Decode([]byte(shopYAML), FormatYAML)
	require.NoError(t, err)

	binder := newStubBinder()
	d, err := doc.Build(binder)
	require.NoError(t, err)

	assert.Equal(t, "shop", d.ID)
	assert.Len(t, d.Nodes, 6)
	require.NotNil(t, d.Config)
	assert.Equal(t, "parchment", d.Config.Skin)
	assert.Equal(t, 40.0, d.Config.CharactersPerSecond)
	assert.Equal(t, "Keeper", d.Actor("keeper").Name)

	menu := d.Node("menu")
	require.NotNil(t, menu)
	assert.Equal(t, dialogue.KindChoiceGroup, menu.Kind)
	assert.Equal(t, dialogue.Constant(4), menu.Timeout)
	assert.Equal(t, dialogue.TimeoutSkipGroup, menu.TimeoutBehavior)
	assert.Equal(t, []dialogue.NodeID{"buy", "leave"}, menu.Children)

	leave := d.Node("leave")
	assert.Equal(t, dialogue.AfterJump, leave.AfterRun)
	assert.Equal(t, dialogue.NodeID("greet"), leave.JumpTo)
	assert.True(t, leave.ShowOnce)

	require.Contains(t, binder.conditions, dialogue.NodeID("buy"))
	assert.Equal(t, "flag", binder.conditions["buy"][0].Type)
	assert.Equal(t, "has_gold", binder.conditions["buy"][0].Args["name"])
	assert.NotNil(t, d.Node("buy").Conditions)

	thanks := d.Node(d.Node("buy").Children[0])
	assert.Equal(t, dialogue.AfterExit, thanks.AfterRun)
}

func TestBuildTOML(t *testing.T) {
	doc, err := Decode([]byte(shopTOML), FormatTOML)
	require.NoError(t, err)

	binder := newStubBinder()
	d, err := doc.Build(binder)
	require.NoError(t, err)

	menu := d.Node("menu")
	assert.Equal(t, dialogue.VariableNumber{Name: "menu_timeout", Fallback: 6}, menu.Timeout)
	assert.Equal(t, "set_flag", binder.actions["buy"][0].Type)
	assert.Equal(t, "bought", binder.actions["buy"][0].Args["name"])
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode([]byte("id: x\nroot: {}\ncolour: red\n"), FormatYAML)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Decode([]byte("id = \"x\"\ncolour = \"red\"\n"), FormatTOML)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Decode([]byte(`{"id":"x","colour":"red"}`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Decode(nil, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBuildErrors(t *testing.T) {
	t.Run("no id", func(t *testing.T) {
		_, err := (&Document{}).Build(nil)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown actor", func(t *testing.T) {
		doc := &Document{ID: "d", Root: NodeSpec{Children: []NodeSpec{{Kind: dialogue.KindLine, Actor: "ghost"}}}}
		_, err := doc.Build(nil)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("actions without binder", func(t *testing.T) {
		doc := &Document{ID: "d", Root: NodeSpec{Children: []NodeSpec{{Kind: dialogue.KindLine, Actions: []Spec{{Type: "wait"}}}}}}
		_, err := doc.Build(nil)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("tree rules still apply", func(t *testing.T) {
		doc := &Document{ID: "d", Root: NodeSpec{Children: []NodeSpec{{Kind: dialogue.KindChoice}}}}
		_, err := doc.Build(nil)
		assert.ErrorIs(t, err, dialogue.ErrInvalidParent)
	})

	t.Run("top node must be root", func(t *testing.T) {
		doc := &Document{ID: "d", Root: NodeSpec{Kind: dialogue.KindLine}}
		_, err := doc.Build(nil)
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestExportKeepsStructure(t *testing.T) {
	doc, err := Decode([]byte(shopYAML), FormatYAML)
	require.NoError(t, err)
	d, err := doc.Build(newStubBinder())
	require.NoError(t, err)

	for _, format := range []Format{FormatYAML, FormatTOML, FormatJSON} {
		data, err := Encode(FromDialogue(d), format)
		require.NoError(t, err, format)

		back, err := Decode(data, format)
		require.NoError(t, err, format)
		again, err := back.Build(nil)
		require.NoError(t, err, format)

		assert.Len(t, again.Nodes, len(d.Nodes), format)
		for id, n := range d.Nodes {
			m := again.Node(id)
			require.NotNil(t, m, "%s: node %s", format, id)
			assert.Equal(t, n.Kind, m.Kind)
			assert.Equal(t, n.Content, m.Content)
			assert.Equal(t, n.Children, m.Children)
			assert.Equal(t, n.AfterRun, m.AfterRun)
			assert.Equal(t, n.JumpTo, m.JumpTo)
		}
		assert.Equal(t, dialogue.Constant(4), again.Node("menu").Timeout)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.yaml"), []byte(shopYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "more"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "more", "intro.json"),
		[]byte(`{"id":"intro","root":{"children":[{"kind":"line","text":"hi"}]}}`), 0o644))

	ds, err := LoadDir(dir, newStubBinder())
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "intro", ds[0].ID)
	assert.Equal(t, "shop", ds[1].ID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "copy.yml"), []byte(shopYAML), 0o644))
	_, err = LoadDir(dir, newStubBinder())
	assert.ErrorIs(t, err, ErrInvalid)
}
