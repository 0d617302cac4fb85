package dialogue

import "fmt"

// PortraitKind says how a portrait is drawn.
type PortraitKind string

const (
	PortraitSprite  PortraitKind = "sprite"
	PortraitTexture PortraitKind = "texture"
	PortraitPrefab  PortraitKind = "prefab"
)

// Portrait is one expression an actor can show next to a line.
type Portrait struct {
	Name  string       `json:"name" yaml:"name" toml:"name"`
	Kind  PortraitKind `json:"kind" yaml:"kind" toml:"kind"`
	Asset string       `json:"asset,omitempty" yaml:"asset,omitempty" toml:"asset"`
}

// Gibberish configures the voice blips played while an actor's text types out.
type Gibberish struct {
	Audio     string  `json:"audio,omitempty" yaml:"audio,omitempty" toml:"audio"`
	Pitch     float64 `json:"pitch" yaml:"pitch" toml:"pitch"`
	Variation float64 `json:"variation" yaml:"variation" toml:"variation"`
}

// Actor is a speaker referenced by nodes through its ID.
type Actor struct {
	ID           string     `json:"id" yaml:"id" toml:"id"`
	Name         string     `json:"name,omitempty" yaml:"name,omitempty" toml:"name"`
	NameVariable string     `json:"name_variable,omitempty" yaml:"name_variable,omitempty" toml:"name_variable"`
	Color        string     `json:"color,omitempty" yaml:"color,omitempty" toml:"color"`
	Portraits    []Portrait `json:"portraits,omitempty" yaml:"portraits,omitempty" toml:"portraits"`
	Gibberish    *Gibberish `json:"gibberish,omitempty" yaml:"gibberish,omitempty" toml:"gibberish"`
}

// DisplayName returns the constant name, or the named variable's value when the
// actor takes its name from a variable.
func (a *Actor) DisplayName(vars Variables) string {
	if a == nil {
		return ""
	}
	if a.NameVariable == "" {
		return a.Name
	}
	if vars != nil {
		if v, ok := vars.Global(a.NameVariable); ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Portrait returns the portrait at index, if the actor has one.
func (a *Actor) Portrait(index int) (Portrait, bool) {
	if a == nil || index < 0 || index >= len(a.Portraits) {
		return Portrait{}, false
	}
	return a.Portraits[index], true
}

// PortraitNames lists portrait names in index order.
func (a *Actor) PortraitNames() []string {
	names := make([]string, len(a.Portraits))
	for i, p := range a.Portraits {
		names[i] = p.Name
	}
	return names
}
