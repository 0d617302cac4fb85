package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DialogueRuntime/internal/game"
	"DialogueRuntime/internal/server"
	"DialogueRuntime/internal/store"
)

func TestConsoleRenderPrintsOncePerLine(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf)

	v := game.View{
		Session: "s1",
		Active:  true,
		Line:    &game.LineView{Node: "n1", Text: "He", Full: "Hello <b>there</b>", Speaker: "Marta"},
	}
	c.render(v)
	v.Line.Text = "Hello"
	c.render(v)

	assert.Equal(t, "Marta: Hello there\n", buf.String())
}

func TestConsoleRenderNumbersChoices(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf)

	v := game.View{
		Session: "s1",
		Active:  true,
		Choices: []game.ChoiceView{
			{Index: 2, Text: "Leave"},
			{Index: 0, Text: "<i>Stew</i>", Disabled: true},
		},
		Deadline: 12.5,
	}
	c.render(v)
	c.render(v)

	assert.Equal(t, "  1) Leave\n  2) Stew (unavailable)\n  (answer before t=12.5s)\n", buf.String())
	require.Len(t, c.choices, 2)
	assert.Equal(t, 2, c.choices[0].Index)
}

func TestConsoleCommandRejectsBadInput(t *testing.T) {
	c := newConsole(&bytes.Buffer{})

	err := c.command(nil, "p1", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "choice number")

	err = c.command(nil, "p1", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choice 3")
}

func TestConsoleHubReadsWorldFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialogue:\n  skin: parchment\n  tick_hz: 40\n"), 0o644))

	cfg := server.AppConfig{WorldPath: path}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub, settings := newConsoleHub(cfg, game.NewLibrary(), store.NewMemoryStore(), quiet)

	assert.Equal(t, "parchment", hub.Defaults.Skin)
	assert.False(t, hub.Defaults.TypewriterEnabled)
	assert.Equal(t, 40.0, settings.TickHz)
	assert.InDelta(t, 1.0/40, hub.Dt(), 1e-9)
}
