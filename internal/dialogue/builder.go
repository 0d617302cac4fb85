package dialogue

// Builder assembles a dialogue tree in code. Build validates the result.
type Builder struct {
	id    string
	root  *Node
	nodes []*Node
}

// NewBuilder starts a dialogue with an empty root.
func NewBuilder(id string) *Builder {
	root := &Node{ID: NewNodeID(), Kind: KindRoot}
	return &Builder{id: id, root: root, nodes: []*Node{root}}
}

// Root returns the root node.
func (b *Builder) Root() *Node { return b.root }

// Add appends n under parent, assigning an id when n has none.
func (b *Builder) Add(parent, n *Node) *Node {
	if n.ID == "" {
		n.ID = NewNodeID()
	}
	n.Parent = parent.ID
	parent.Children = append(parent.Children, n.ID)
	b.nodes = append(b.nodes, n)
	return n
}

// Line appends a line of text under parent.
func (b *Builder) Line(parent *Node, text string) *Node {
	return b.Add(parent, &Node{Kind: KindLine, Content: text})
}

// ChoiceGroup appends a choice group under parent. text may be empty.
func (b *Builder) ChoiceGroup(parent *Node, text string) *Node {
	return b.Add(parent, &Node{Kind: KindChoiceGroup, Content: text})
}

// Choice appends an option to a choice group.
func (b *Builder) Choice(group *Node, text string) *Node {
	return b.Add(group, &Node{Kind: KindChoice, Content: text})
}

// Build validates the collected nodes into a Dialogue.
func (b *Builder) Build() (*Dialogue, error) {
	return New(b.id, b.nodes)
}
