package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesValidTree(t *testing.T) {
	b := NewBuilder("intro")
	hello := b.Line(b.Root(), "Hello")
	group := b.ChoiceGroup(b.Root(), "")
	yes := b.Choice(group, "Yes")
	b.Line(yes, "Great")

	d, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, b.Root().ID, d.Root)
	assert.Len(t, d.Nodes, 5)
	assert.Equal(t, []*Node{hello, group}, d.Children(d.RootNode()))
	assert.Equal(t, AfterContinue, hello.AfterRun)
	assert.Equal(t, ExecuteSimultaneous, hello.Execute)
	assert.Equal(t, DefaultAutoPlayTime, hello.AutoPlayTime)
	assert.Equal(t, Constant(DefaultChoiceTimeout), group.Timeout)
	assert.Equal(t, "dialogue:intro", d.SaveKey())
}

func TestParentRules(t *testing.T) {
	cases := []struct {
		child, parent Kind
		ok            bool
	}{
		{KindLine, KindRoot, true},
		{KindLine, KindLine, true},
		{KindLine, KindChoice, true},
		{KindLine, KindChoiceGroup, false},
		{KindChoiceGroup, KindRoot, true},
		{KindChoiceGroup, KindChoice, true},
		{KindChoiceGroup, KindLine, false},
		{KindChoice, KindChoiceGroup, true},
		{KindChoice, KindRoot, false},
		{KindChoice, KindLine, false},
		{KindRoot, KindLine, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanHaveParent(tc.child, tc.parent), "%s under %s", tc.child, tc.parent)
	}
}

func TestNewRejectsInvalidTrees(t *testing.T) {
	t.Run("choice outside group", func(t *testing.T) {
		b := NewBuilder("d")
		line := b.Line(b.Root(), "a")
		b.Add(line, &Node{Kind: KindChoice})
		_, err := b.Build()
		require.ErrorIs(t, err, ErrInvalidParent)
	})

	t.Run("group under line", func(t *testing.T) {
		b := NewBuilder("d")
		line := b.Line(b.Root(), "a")
		b.Add(line, &Node{Kind: KindChoiceGroup})
		_, err := b.Build()
		require.ErrorIs(t, err, ErrInvalidParent)
	})

	t.Run("two roots", func(t *testing.T) {
		_, err := New("d", []*Node{{ID: "a", Kind: KindRoot}, {ID: "b", Kind: KindRoot}})
		require.ErrorIs(t, err, ErrRootCount)
	})

	t.Run("no root", func(t *testing.T) {
		_, err := New("d", nil)
		require.ErrorIs(t, err, ErrRootCount)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := New("d", []*Node{
			{ID: "r", Kind: KindRoot, Children: []NodeID{"x"}},
			{ID: "x", Kind: KindLine, Parent: "r"},
			{ID: "x", Kind: KindLine, Parent: "r"},
		})
		require.ErrorIs(t, err, ErrDuplicateNode)
	})

	t.Run("missing child", func(t *testing.T) {
		_, err := New("d", []*Node{{ID: "r", Kind: KindRoot, Children: []NodeID{"ghost"}}})
		require.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("missing jump target", func(t *testing.T) {
		_, err := New("d", []*Node{
			{ID: "r", Kind: KindRoot, Children: []NodeID{"a"}},
			{ID: "a", Kind: KindLine, Parent: "r", AfterRun: AfterJump, JumpTo: "ghost"},
		})
		require.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("child listed twice", func(t *testing.T) {
		_, err := New("d", []*Node{
			{ID: "r", Kind: KindRoot, Children: []NodeID{"a", "a"}},
			{ID: "a", Kind: KindLine, Parent: "r"},
		})
		require.ErrorIs(t, err, ErrCycleDetected)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := New("d", []*Node{
			{ID: "r", Kind: KindRoot, Children: []NodeID{"a"}},
			{ID: "a", Kind: "banner", Parent: "r"},
		})
		require.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("unknown enum", func(t *testing.T) {
		_, err := New("d", []*Node{{ID: "r", Kind: KindRoot, AfterRun: "teleport"}})
		require.ErrorIs(t, err, ErrInvalidEnum)
	})
}

func TestMergeConfig(t *testing.T) {
	defaults := DefaultConfigData()

	ignored := &ConfigLayer{ConfigData: ConfigData{Skin: "ignored", CharactersPerSecond: 1}}
	assert.Equal(t, defaults, MergeConfig(defaults, ignored, nil))

	dlg := &ConfigLayer{Override: true, ConfigData: ConfigData{SkipKey: "space", RevisitChoiceOpacity: 0.5, CharactersPerSecond: 60}}
	node := &ConfigLayer{Override: true, ConfigData: ConfigData{Skin: "parchment", SkipKey: "enter", TypewriterEnabled: true, CharactersPerSecond: 10}}

	got := MergeConfig(defaults, dlg, nil)
	assert.Equal(t, "default", got.Skin, "empty skin keeps the lower layer")
	assert.Equal(t, "space", got.SkipKey)
	assert.False(t, got.TypewriterEnabled)
	assert.Equal(t, 0.5, got.RevisitChoiceOpacity)

	got = MergeConfig(defaults, dlg, node)
	assert.Equal(t, ConfigData{
		Skin:                 "parchment",
		SkipKey:              "enter",
		RevisitChoiceOpacity: 0,
		TypewriterEnabled:    true,
		CharactersPerSecond:  10,
	}, got)
}

func TestExpandGlobals(t *testing.T) {
	vars := MapVariables{"name": "Ann", "gold": 12, "greeting": "hi global[name]", "loop": "global[loop]!"}

	got, ok := ExpandGlobals("global[greeting], you have global[gold] coins", vars)
	assert.True(t, ok)
	assert.Equal(t, "hi Ann, you have 12 coins", got)

	got, ok = ExpandGlobals("[global[missing]]", vars)
	assert.True(t, ok)
	assert.Equal(t, "[]", got)

	got, ok = ExpandGlobals("global[loop]", vars)
	assert.False(t, ok)
	assert.Contains(t, got, "global[loop]")
	assert.Equal(t, MaxGlobalExpansions, len(got)-len("global[loop]"))
}

func TestRawContentPrefersLocalizedText(t *testing.T) {
	loc := MapLocalizer{"greet": "Bonjour"}
	assert.Equal(t, "Bonjour", RawContent(&Node{Kind: KindLine, Content: "Hello", ContentKey: "greet"}, loc))
	assert.Equal(t, "Hello", RawContent(&Node{Kind: KindLine, Content: "Hello", ContentKey: "other"}, loc))
	assert.Equal(t, "root", RawContent(&Node{Kind: KindRoot, Content: "x"}, loc))
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	assert.False(t, l.Visited("a"))

	l.Mark("a")
	l.Mark("a")
	l.Mark("b")
	assert.True(t, l.Visited("a"))
	assert.Equal(t, 2, l.Len())

	data, err := l.MarshalJSON()
	require.NoError(t, err)
	restored, err := LoadLedger(data)
	require.NoError(t, err)
	assert.Equal(t, l.Snapshot(), restored.Snapshot())

	snap := l.Snapshot()
	snap["c"] = true
	assert.False(t, l.Visited("c"), "snapshot is a copy")

	l.Reset()
	assert.Equal(t, 0, l.Len())
}

func TestTranscriptListeners(t *testing.T) {
	tr := NewTranscript()
	var added []string
	resets := 0
	tr.OnAdd(func(e Entry) { added = append(added, e.Text) })
	tr.OnReset(func() { resets++ })

	tr.Add(Entry{NodeID: "a", Text: "Hello"})
	tr.Add(Entry{NodeID: "b", Text: "Yes", IsChoice: true})
	assert.Equal(t, []string{"Hello", "Yes"}, added)
	require.Len(t, tr.Entries(), 2)

	tr.Reset()
	assert.Equal(t, 1, resets)
	assert.Empty(t, tr.Entries())
}

func TestActorDisplayName(t *testing.T) {
	vars := MapVariables{"hero": "Rin"}
	assert.Equal(t, "Guard", (&Actor{Name: "Guard"}).DisplayName(vars))
	assert.Equal(t, "Rin", (&Actor{Name: "Guard", NameVariable: "hero"}).DisplayName(vars))
	assert.Equal(t, "", (*Actor)(nil).DisplayName(vars))

	a := &Actor{Portraits: []Portrait{{Name: "calm"}, {Name: "angry"}}}
	p, ok := a.Portrait(1)
	assert.True(t, ok)
	assert.Equal(t, "angry", p.Name)
	_, ok = a.Portrait(2)
	assert.False(t, ok)
	assert.Equal(t, []string{"calm", "angry"}, a.PortraitNames())
}
