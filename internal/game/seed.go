package game

import (
	"fmt"

	"DialogueRuntime/internal/dialogue"
)

// SeedDialogues returns the built-in demo conversations used when no asset
// directory is configured.
func SeedDialogues() ([]*dialogue.Dialogue, error) {
	tavern, err := seedTavern()
	if err != nil {
		return nil, fmt.Errorf("seed tavern: %w", err)
	}
	rumor, err := seedRumor()
	if err != nil {
		return nil, fmt.Errorf("seed rumor: %w", err)
	}
	return []*dialogue.Dialogue{tavern, rumor}, nil
}

func seedTavern() (*dialogue.Dialogue, error) {
	b := dialogue.NewBuilder("tavern")
	root := b.Root()

	b.Add(root, &dialogue.Node{
		ID:      "tavern.greet",
		Kind:    dialogue.KindLine,
		Content: "Welcome to the <b>Copper Kettle</b>, global[player_name].",
		Actor:   "keeper",
	})

	again := b.Line(root, "Back again? The stew hasn't changed.")
	again.Actor = "keeper"
	again.Conditions = ConditionList{Visited{Node: "tavern.menu", Want: true}}

	menu := b.Add(root, &dialogue.Node{
		ID:              "tavern.menu",
		Kind:            dialogue.KindChoiceGroup,
		Content:         "What'll it be?",
		Actor:           "keeper",
		Timed:           true,
		Timeout:         dialogue.VariableNumber{Name: "patience", Fallback: 8},
		TimeoutBehavior: dialogue.TimeoutFirstChoice,
	})

	stew := b.Choice(menu, "A bowl of stew.")
	stew.Actions = ActionList{AddVar{Name: "stews", Amount: 1}, SetVar{Name: "fed", Value: true}}
	eat := b.Line(stew, "<i>The stew is thick and <color=#c84>very</color> hot.</i>")
	eat.AutoPlay = true
	eat.AutoPlayTime = 2

	rumors := b.Choice(menu, "Heard any rumors?")
	rumors.ShowOnce = true
	rumors.Actions = ActionList{StartDialogue{Dialogue: "rumor", Wait: true}}
	rumors.Execute = dialogue.ExecuteActionsBeforeDialogue
	back := b.Line(rumors, "Anything else?")
	back.Actor = "keeper"
	back.AfterRun = dialogue.AfterJump
	back.JumpTo = menu.ID

	ale := b.Choice(menu, "An ale, please.")
	ale.Conditions = ConditionList{VarAtLeast{Name: "coins", Value: 5}}
	ale.OnFail = dialogue.FailDisableChoice
	b.Line(ale, "Coming right up.").Actor = "keeper"

	leave := b.Choice(menu, "Nothing, thanks.")
	bye := b.Line(leave, "Suit yourself.")
	bye.Actor = "keeper"
	bye.AfterRun = dialogue.AfterExit

	d, err := b.Build()
	if err != nil {
		return nil, err
	}
	d.AddActor(&dialogue.Actor{
		ID:        "keeper",
		Name:      "Marta",
		Color:     "#d9a441",
		Portraits: []dialogue.Portrait{{Name: "smile", Kind: dialogue.PortraitSprite}},
		Gibberish: &dialogue.Gibberish{Audio: "blip-low", Pitch: 0.9, Variation: 0.1},
	})
	return d, nil
}

func seedRumor() (*dialogue.Dialogue, error) {
	b := dialogue.NewBuilder("rumor")
	root := b.Root()

	l := b.Line(root, "They say the old mill <size=24>hums</size> at night.")
	l.Actor = "stranger"
	l.Voice = "stranger-whisper"
	l.Actions = ActionList{SetVar{Name: "heard_mill_rumor", Value: true}, Emit{Text: "rumor:mill"}}
	l.Execute = dialogue.ExecuteDialogueBeforeActions

	d, err := b.Build()
	if err != nil {
		return nil, err
	}
	d.AddActor(&dialogue.Actor{
		ID:           "stranger",
		NameVariable: "stranger_name",
		Color:        "#8899aa",
		Gibberish:    &dialogue.Gibberish{Audio: "blip-soft", Pitch: 1.2, Variation: 0.2},
	})
	return d, nil
}
