package server

import (
	"encoding/json"

	"DialogueRuntime/internal/asset"
	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
)

type dialogueSummaryDTO struct {
	ID     string   `json:"id"`
	Nodes  int      `json:"nodes"`
	Actors []string `json:"actors,omitempty"`
}

type ledgerDTO struct {
	Player   string   `json:"player"`
	Dialogue string   `json:"dialogue"`
	Visited  []string `json:"visited"`
}

type roomDTO struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

type settingsDTO struct {
	Presentation dialogue.ConfigData `json:"presentation"`
	TickHz       float64             `json:"tick_hz"`
	UpdateRateHz float64             `json:"update_rate_hz"`
}

type errorDTO struct {
	Error string `json:"error"`
}

/* ---------------------------- Websocket ---------------------------- */

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startDTO struct {
	Dialogue string `json:"dialogue"`
}

type chooseDTO struct {
	Index int `json:"index"`
}

type renameDTO struct {
	Name string `json:"name"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type welcomeDTO struct {
	Player    string              `json:"player"`
	Room      string              `json:"room"`
	Dialogues []string            `json:"dialogues"`
	Defaults  dialogue.ConfigData `json:"defaults"`
}

type transcriptDTO struct {
	Entries []dialogue.Entry `json:"entries"`
}

type eventsDTO struct {
	Events []game.Event `json:"events"`
}

type reloadDTO struct {
	Dialogues int `json:"dialogues"`
}

type actionsDTO struct {
	Actions []asset.Spec `json:"actions"`
}
