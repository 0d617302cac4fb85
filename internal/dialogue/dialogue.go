package dialogue

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a referenced node doesn't exist.
	ErrNodeNotFound = errors.New("dialogue: node not found")
	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("dialogue: duplicate node id")
	// ErrInvalidKind is returned for a node kind outside the closed set.
	ErrInvalidKind = errors.New("dialogue: invalid node kind")
	// ErrInvalidParent is returned when a node sits under a parent it may not have.
	ErrInvalidParent = errors.New("dialogue: invalid parent")
	// ErrRootCount is returned when a dialogue doesn't have exactly one root.
	ErrRootCount = errors.New("dialogue: dialogue must have exactly one root")
	// ErrCycleDetected is returned when a node is reachable twice from the root.
	ErrCycleDetected = errors.New("dialogue: cycle detected in tree")
	// ErrInvalidEnum is returned for an unknown after-run, execute, timeout or fail value.
	ErrInvalidEnum = errors.New("dialogue: invalid enum value")
)

// Dialogue owns a tree of nodes, stored as an arena keyed by id, and the revisit
// ledger of that tree.
type Dialogue struct {
	ID     string
	Root   NodeID
	Nodes  map[NodeID]*Node
	Config *ConfigLayer
	Actors map[string]*Actor
	Ledger *Ledger
}

// New indexes and validates nodes into a dialogue. Zero-valued enums are
// normalized to their defaults.
func New(id string, nodes []*Node) (*Dialogue, error) {
	d := &Dialogue{
		ID:     id,
		Nodes:  make(map[NodeID]*Node, len(nodes)),
		Actors: make(map[string]*Actor),
		Ledger: NewLedger(),
	}

	for _, n := range nodes {
		if n.ID == "" {
			n.ID = NewNodeID()
		}
		if _, exists := d.Nodes[n.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		n.normalize()
		d.Nodes[n.ID] = n
		if n.Kind == KindRoot {
			if d.Root != "" {
				return nil, fmt.Errorf("%w: %s and %s", ErrRootCount, d.Root, n.ID)
			}
			d.Root = n.ID
		}
	}
	if d.Root == "" {
		return nil, ErrRootCount
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the tree invariants: known kinds and enums, legal parents,
// consistent parent/child references, resolvable jump targets, and no node
// reachable twice from the root.
func (d *Dialogue) Validate() error {
	for id, n := range d.Nodes {
		if !n.Kind.valid() {
			return fmt.Errorf("%w: node %s has kind %q", ErrInvalidKind, id, n.Kind)
		}
		if err := validateEnums(n); err != nil {
			return err
		}

		if n.Kind == KindRoot {
			if n.Parent != "" {
				return fmt.Errorf("%w: root %s has parent %s", ErrInvalidParent, id, n.Parent)
			}
		} else {
			parent, ok := d.Nodes[n.Parent]
			if !ok {
				return fmt.Errorf("%w: node %s has missing parent %q", ErrNodeNotFound, id, n.Parent)
			}
			if !CanHaveParent(n.Kind, parent.Kind) {
				return fmt.Errorf("%w: %s %s under %s %s", ErrInvalidParent, n.Kind, id, parent.Kind, parent.ID)
			}
		}

		for _, childID := range n.Children {
			child, ok := d.Nodes[childID]
			if !ok {
				return fmt.Errorf("%w: node %s lists missing child %s", ErrNodeNotFound, id, childID)
			}
			if child.Parent != id {
				return fmt.Errorf("%w: child %s of %s names parent %q", ErrInvalidParent, childID, id, child.Parent)
			}
		}

		if n.Jumps() {
			if _, ok := d.Nodes[n.JumpTo]; !ok {
				return fmt.Errorf("%w: node %s jumps to missing node %s", ErrNodeNotFound, id, n.JumpTo)
			}
		}
	}

	seen := make(map[NodeID]bool, len(d.Nodes))
	stack := []NodeID{d.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return fmt.Errorf("%w: node %s", ErrCycleDetected, id)
		}
		seen[id] = true
		stack = append(stack, d.Nodes[id].Children...)
	}
	return nil
}

func validateEnums(n *Node) error {
	switch n.AfterRun {
	case AfterContinue, AfterExit, AfterJump:
	default:
		return fmt.Errorf("%w: node %s after_run %q", ErrInvalidEnum, n.ID, n.AfterRun)
	}
	switch n.Execute {
	case ExecuteSimultaneous, ExecuteActionsBeforeDialogue, ExecuteDialogueBeforeActions:
	default:
		return fmt.Errorf("%w: node %s execute %q", ErrInvalidEnum, n.ID, n.Execute)
	}
	switch n.TimeoutBehavior {
	case TimeoutFirstChoice, TimeoutRandomChoice, TimeoutSkipGroup:
	default:
		return fmt.Errorf("%w: node %s timeout_behavior %q", ErrInvalidEnum, n.ID, n.TimeoutBehavior)
	}
	switch n.OnFail {
	case FailHideChoice, FailDisableChoice:
	default:
		return fmt.Errorf("%w: node %s on_fail %q", ErrInvalidEnum, n.ID, n.OnFail)
	}
	return nil
}

// Node returns a node by id, or nil if not found.
func (d *Dialogue) Node(id NodeID) *Node {
	return d.Nodes[id]
}

// RootNode returns the root node.
func (d *Dialogue) RootNode() *Node {
	return d.Nodes[d.Root]
}

// Children resolves a node's child ids in order, skipping ids that don't resolve.
func (d *Dialogue) Children(n *Node) []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, id := range n.Children {
		if child := d.Nodes[id]; child != nil {
			out = append(out, child)
		}
	}
	return out
}

// Actor returns the actor with the given id, or nil.
func (d *Dialogue) Actor(id string) *Actor {
	if id == "" {
		return nil
	}
	return d.Actors[id]
}

// AddActor registers a speaker.
func (d *Dialogue) AddActor(a *Actor) {
	d.Actors[a.ID] = a
}

// SaveKey is the unique name the dialogue's ledger is saved under.
func (d *Dialogue) SaveKey() string {
	return "dialogue:" + d.ID
}

// IsRevisit reports whether a node of this dialogue has run before.
func (d *Dialogue) IsRevisit(id NodeID) bool {
	return d.Ledger.Visited(id)
}

// WithLedger returns a view of d sharing its nodes but tracking revisits in l.
// Hosts use it to give every player their own ledger over one loaded tree.
func (d *Dialogue) WithLedger(l *Ledger) *Dialogue {
	cp := *d
	cp.Ledger = l
	return &cp
}
