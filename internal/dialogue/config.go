package dialogue

// ConfigData holds the presentation settings a line or choice group runs with.
type ConfigData struct {
	Skin                 string  `json:"skin" yaml:"skin" toml:"skin"`
	SkipKey              string  `json:"skip_key" yaml:"skip_key" toml:"skip_key"`
	RevisitChoiceOpacity float64 `json:"revisit_choice_opacity" yaml:"revisit_choice_opacity" toml:"revisit_choice_opacity"`
	TypewriterEnabled    bool    `json:"typewriter" yaml:"typewriter" toml:"typewriter"`
	CharactersPerSecond  float64 `json:"characters_per_second" yaml:"characters_per_second" toml:"characters_per_second"`
}

// DefaultConfigData returns the built-in global defaults.
func DefaultConfigData() ConfigData {
	return ConfigData{
		Skin:                 "default",
		SkipKey:              "mouse0",
		RevisitChoiceOpacity: 0.75,
		TypewriterEnabled:    true,
		CharactersPerSecond:  30,
	}
}

// ConfigLayer is a dialogue- or node-level override. It only applies when
// Override is set.
type ConfigLayer struct {
	Override   bool `json:"override" yaml:"override" toml:"override"`
	ConfigData `yaml:",inline"`
}

func (l *ConfigLayer) apply(base ConfigData) ConfigData {
	if l == nil || !l.Override {
		return base
	}
	if l.Skin != "" {
		base.Skin = l.Skin
	}
	base.SkipKey = l.SkipKey
	base.RevisitChoiceOpacity = l.RevisitChoiceOpacity
	base.TypewriterEnabled = l.TypewriterEnabled
	base.CharactersPerSecond = l.CharactersPerSecond
	return base
}

// MergeConfig applies the dialogue layer and then the node layer on top of the
// global defaults.
func MergeConfig(defaults ConfigData, dialogue, node *ConfigLayer) ConfigData {
	return node.apply(dialogue.apply(defaults))
}
