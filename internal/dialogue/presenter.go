package dialogue

// ChoiceOption is one presentable child of a choice group.
type ChoiceOption struct {
	Index     int // position among the group's children; pass it back to Choose
	Node      *Node
	Text      string
	Disabled  bool    // conditions failed and the choice asked to be disabled
	Revisited bool    // the choice has run before
	Opacity   float64 // 1, or the configured revisit opacity when Revisited
}

// Presenter is the presentation port the interpreter drives. Implementations
// report a user's selection back through Interpreter.Choose and skip input
// through Interpreter.Skip.
type Presenter interface {
	BeginDialogue(d *Dialogue)
	EndDialogue(d *Dialogue)
	ShowLine(node *Node, text string, cfg ConfigData)
	// ShowChoices displays options and reports whether any could be shown.
	ShowChoices(group *Node, options []ChoiceOption, cfg ConfigData) bool
	HideLine()
	HideChoices()
	IsTypewriting() bool
	CompleteTypewriting()
}

// NoOpPresenter shows nothing and accepts every choice list.
type NoOpPresenter struct{}

func (NoOpPresenter) BeginDialogue(*Dialogue)            {}
func (NoOpPresenter) EndDialogue(*Dialogue)              {}
func (NoOpPresenter) ShowLine(*Node, string, ConfigData) {}
func (NoOpPresenter) HideLine()                          {}
func (NoOpPresenter) HideChoices()                       {}
func (NoOpPresenter) IsTypewriting() bool                { return false }
func (NoOpPresenter) CompleteTypewriting()               {}

func (NoOpPresenter) ShowChoices(_ *Node, opts []ChoiceOption, _ ConfigData) bool {
	return len(opts) > 0
}
