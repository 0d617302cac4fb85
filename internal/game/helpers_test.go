package game

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"DialogueRuntime/internal/dialogue"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T, ds ...*dialogue.Dialogue) *Hub {
	t.Helper()
	return NewHub(NewLibrary(ds...), WithSeed(1), WithLogger(quietLogger()))
}

// joinRoom puts a fresh player into a fresh room.
func joinRoom(t *testing.T, h *Hub, playerID string) (*Room, *Player) {
	t.Helper()
	r := h.GetRoom("room-" + playerID)
	p := NewPlayer(playerID, "Ada")
	require.NoError(t, r.Join(p))
	return r, p
}

func ticks(r *Room, n int) {
	for i := 0; i < n; i++ {
		r.Tick()
	}
}

// play skips and ticks until the player has nothing left to run.
func play(t *testing.T, r *Room, p *Player) {
	t.Helper()
	for i := 0; i < 2000 && p.Busy(); i++ {
		_ = r.Skip(p.ID)
		r.Tick()
	}
	require.False(t, p.Busy(), "player still busy after 2000 ticks")
}

// shownLines returns the text of every line the player saw, in order.
func shownLines(p *Player) []string {
	var out []string
	for _, e := range p.History.Recent(0) {
		if e.Kind == EventLine {
			out = append(out, e.Text)
		}
	}
	return out
}

func line(b *dialogue.Builder, parent *dialogue.Node, id, text string) *dialogue.Node {
	return b.Add(parent, &dialogue.Node{ID: dialogue.NodeID(id), Kind: dialogue.KindLine, Content: text})
}

func mustBuild(t *testing.T, b *dialogue.Builder) *dialogue.Dialogue {
	t.Helper()
	d, err := b.Build()
	require.NoError(t, err)
	return d
}
