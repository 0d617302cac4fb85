// Package asset reads and writes dialogue documents. A document describes one
// dialogue tree as nested node specs and can be stored as YAML, TOML or JSON.
package asset

import (
	"errors"
	"fmt"

	"DialogueRuntime/internal/dialogue"
)

var (
	ErrUnknownFormat = errors.New("asset: unknown document format")
	ErrInvalid       = errors.New("asset: invalid document")
)

// Document is the file form of a dialogue.
type Document struct {
	ID     string                `json:"id" yaml:"id" toml:"id"`
	Config *dialogue.ConfigLayer `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
	Actors []*dialogue.Actor     `json:"actors,omitempty" yaml:"actors,omitempty" toml:"actors,omitempty"`
	Root   NodeSpec              `json:"root" yaml:"root" toml:"root"`
}

// Spec names a condition or action and its arguments. The host decides what
// types exist through a Binder.
type Spec struct {
	Type string         `json:"type" yaml:"type" toml:"type"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
}

// NodeSpec is one node of a document and its subtree.
type NodeSpec struct {
	ID   string        `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Kind dialogue.Kind `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Text string        `json:"text,omitempty" yaml:"text,omitempty" toml:"text,omitempty"`
	Key  string        `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`

	AfterRun dialogue.AfterRun        `json:"after_run,omitempty" yaml:"after_run,omitempty" toml:"after_run,omitempty"`
	JumpTo   string                   `json:"jump_to,omitempty" yaml:"jump_to,omitempty" toml:"jump_to,omitempty"`
	Execute  dialogue.ExecuteBehavior `json:"execute,omitempty" yaml:"execute,omitempty" toml:"execute,omitempty"`

	Actor    string `json:"actor,omitempty" yaml:"actor,omitempty" toml:"actor,omitempty"`
	Portrait int    `json:"portrait,omitempty" yaml:"portrait,omitempty" toml:"portrait,omitempty"`
	Voice    string `json:"voice,omitempty" yaml:"voice,omitempty" toml:"voice,omitempty"`

	AutoPlay     bool    `json:"auto_play,omitempty" yaml:"auto_play,omitempty" toml:"auto_play,omitempty"`
	AutoPlayTime float64 `json:"auto_play_time,omitempty" yaml:"auto_play_time,omitempty" toml:"auto_play_time,omitempty"`

	Shuffle         bool                     `json:"shuffle,omitempty" yaml:"shuffle,omitempty" toml:"shuffle,omitempty"`
	Timed           bool                     `json:"timed,omitempty" yaml:"timed,omitempty" toml:"timed,omitempty"`
	Timeout         *float64                 `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	TimeoutVariable string                   `json:"timeout_variable,omitempty" yaml:"timeout_variable,omitempty" toml:"timeout_variable,omitempty"`
	TimeoutBehavior dialogue.TimeoutBehavior `json:"timeout_behavior,omitempty" yaml:"timeout_behavior,omitempty" toml:"timeout_behavior,omitempty"`

	ShowOnce bool                `json:"show_once,omitempty" yaml:"show_once,omitempty" toml:"show_once,omitempty"`
	OnFail   dialogue.FailChoice `json:"on_fail,omitempty" yaml:"on_fail,omitempty" toml:"on_fail,omitempty"`

	Config     *dialogue.ConfigLayer `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
	Conditions []Spec                `json:"conditions,omitempty" yaml:"conditions,omitempty" toml:"conditions,omitempty"`
	Actions    []Spec                `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`

	Children []NodeSpec `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

// Binder turns condition and action specs into runtime collaborators.
type Binder interface {
	BindConditions(node dialogue.NodeID, specs []Spec) (dialogue.Conditions, error)
	BindActions(node dialogue.NodeID, specs []Spec) (dialogue.Actions, error)
}

// Build flattens the document into a validated dialogue. Nodes without an id get
// a fresh one. b may be nil when the document carries no conditions or actions.
func (doc *Document) Build(b Binder) (*dialogue.Dialogue, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalid)
	}
	root := doc.Root
	if root.Kind == "" {
		root.Kind = dialogue.KindRoot
	}
	if root.Kind != dialogue.KindRoot {
		return nil, fmt.Errorf("%w: top node of %s is %q, want root", ErrInvalid, doc.ID, root.Kind)
	}

	var nodes []*dialogue.Node
	if _, err := flatten(&root, "", b, &nodes); err != nil {
		return nil, fmt.Errorf("%s: %w", doc.ID, err)
	}

	d, err := dialogue.New(doc.ID, nodes)
	if err != nil {
		return nil, err
	}
	d.Config = doc.Config
	for _, a := range doc.Actors {
		if a == nil || a.ID == "" {
			return nil, fmt.Errorf("%w: actor without id in %s", ErrInvalid, doc.ID)
		}
		d.AddActor(a)
	}
	for _, n := range d.Nodes {
		if n.Actor != "" && d.Actor(n.Actor) == nil {
			return nil, fmt.Errorf("%w: node %s speaks as unknown actor %q", ErrInvalid, n.ID, n.Actor)
		}
	}
	return d, nil
}

func flatten(s *NodeSpec, parent dialogue.NodeID, b Binder, out *[]*dialogue.Node) (dialogue.NodeID, error) {
	n := &dialogue.Node{
		ID:              dialogue.NodeID(s.ID),
		Kind:            s.Kind,
		Content:         s.Text,
		ContentKey:      s.Key,
		Parent:          parent,
		AfterRun:        s.AfterRun,
		JumpTo:          dialogue.NodeID(s.JumpTo),
		Execute:         s.Execute,
		Actor:           s.Actor,
		Portrait:        s.Portrait,
		Voice:           s.Voice,
		AutoPlay:        s.AutoPlay,
		AutoPlayTime:    s.AutoPlayTime,
		Shuffle:         s.Shuffle,
		Timed:           s.Timed,
		TimeoutBehavior: s.TimeoutBehavior,
		ShowOnce:        s.ShowOnce,
		OnFail:          s.OnFail,
		Config:          s.Config,
	}
	if n.ID == "" {
		n.ID = dialogue.NewNodeID()
	}
	if n.JumpTo != "" && n.AfterRun == "" {
		n.AfterRun = dialogue.AfterJump
	}
	n.Timeout = timeout(s)

	if len(s.Conditions) > 0 || len(s.Actions) > 0 {
		if b == nil {
			return "", fmt.Errorf("%w: node %s has conditions or actions but no binder", ErrInvalid, n.ID)
		}
	}
	if len(s.Conditions) > 0 {
		c, err := b.BindConditions(n.ID, s.Conditions)
		if err != nil {
			return "", fmt.Errorf("node %s conditions: %w", n.ID, err)
		}
		n.Conditions = c
	}
	if len(s.Actions) > 0 {
		a, err := b.BindActions(n.ID, s.Actions)
		if err != nil {
			return "", fmt.Errorf("node %s actions: %w", n.ID, err)
		}
		n.Actions = a
	}

	*out = append(*out, n)
	for k := range s.Children {
		id, err := flatten(&s.Children[k], n.ID, b, out)
		if err != nil {
			return "", err
		}
		n.Children = append(n.Children, id)
	}
	return n.ID, nil
}

func timeout(s *NodeSpec) dialogue.Number {
	fallback := dialogue.DefaultChoiceTimeout
	if s.Timeout != nil {
		fallback = *s.Timeout
	}
	if s.TimeoutVariable != "" {
		return dialogue.VariableNumber{Name: s.TimeoutVariable, Fallback: fallback}
	}
	if s.Timeout != nil {
		return dialogue.Constant(*s.Timeout)
	}
	return nil
}

// FromDialogue converts a runtime dialogue back to its document form. Attached
// conditions and actions have no file form and are left out.
func FromDialogue(d *dialogue.Dialogue) *Document {
	doc := &Document{ID: d.ID, Config: d.Config}
	for _, a := range d.Actors {
		doc.Actors = append(doc.Actors, a)
	}
	sortActors(doc.Actors)
	doc.Root = specOf(d, d.RootNode())
	return doc
}

func specOf(d *dialogue.Dialogue, n *dialogue.Node) NodeSpec {
	s := NodeSpec{
		ID:       string(n.ID),
		Kind:     n.Kind,
		Text:     n.Content,
		Key:      n.ContentKey,
		Actor:    n.Actor,
		Portrait: n.Portrait,
		Voice:    n.Voice,
		AutoPlay: n.AutoPlay,
		Shuffle:  n.Shuffle,
		Timed:    n.Timed,
		ShowOnce: n.ShowOnce,
		Config:   n.Config,
	}
	if n.AfterRun != dialogue.AfterContinue {
		s.AfterRun = n.AfterRun
	}
	if n.Jumps() {
		s.JumpTo = string(n.JumpTo)
	}
	if n.Execute != dialogue.ExecuteSimultaneous {
		s.Execute = n.Execute
	}
	switch n.Kind {
	case dialogue.KindLine:
		if n.AutoPlayTime != dialogue.DefaultAutoPlayTime {
			s.AutoPlayTime = n.AutoPlayTime
		}
	case dialogue.KindChoiceGroup:
		if n.TimeoutBehavior != dialogue.TimeoutFirstChoice {
			s.TimeoutBehavior = n.TimeoutBehavior
		}
		switch t := n.Timeout.(type) {
		case dialogue.Constant:
			if float64(t) != dialogue.DefaultChoiceTimeout {
				v := float64(t)
				s.Timeout = &v
			}
		case dialogue.VariableNumber:
			v := t.Fallback
			s.Timeout = &v
			s.TimeoutVariable = t.Name
		}
	case dialogue.KindChoice:
		if n.OnFail != dialogue.FailHideChoice {
			s.OnFail = n.OnFail
		}
	}
	for _, c := range d.Children(n) {
		s.Children = append(s.Children, specOf(d, c))
	}
	return s
}
