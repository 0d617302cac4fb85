package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DialogueRuntime/internal/game"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until one of the given type satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, kind string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == kind && (match == nil || match(f.Payload)) {
			return f.Payload
		}
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, kind string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": kind, "payload": payload}))
}

func TestWebsocketPlaysDialogue(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	conn := dial(t, srv, "room=r1&player=p1&name=Ada")

	var welcome welcomeDTO
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "welcome", nil), &welcome))
	assert.Equal(t, "p1", welcome.Player)
	assert.Equal(t, "r1", welcome.Room)
	assert.Equal(t, []string{"rumor", "tavern"}, welcome.Dialogues)
	assert.Equal(t, "default", welcome.Defaults.Skin)

	sendFrame(t, conn, "start", startDTO{Dialogue: "tavern"})

	var view game.View
	raw := readUntil(t, conn, "view", func(p json.RawMessage) bool {
		var v game.View
		return json.Unmarshal(p, &v) == nil && v.Line != nil
	})
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.True(t, view.Active)
	assert.Equal(t, "tavern", view.Dialogue)
	assert.Equal(t, "Welcome to the <b>Copper Kettle</b>, Ada.", view.Line.Full)
	assert.Equal(t, "Marta", view.Line.Speaker)

	var events eventsDTO
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "events", nil), &events))
	require.NotEmpty(t, events.Events)
	assert.Equal(t, game.EventDialogueStart, events.Events[0].Kind)

	sendFrame(t, conn, "start", startDTO{Dialogue: "rumor"})
	var errOut errorDTO
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "error", nil), &errOut))
	assert.Contains(t, errOut.Error, "already running")

	sendFrame(t, conn, "abandon", nil)
	readUntil(t, conn, "view", func(p json.RawMessage) bool {
		var v game.View
		return json.Unmarshal(p, &v) == nil && !v.Active
	})
}

func TestWebsocketRejectsBadCommands(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	conn := dial(t, srv, "room=r2")
	readUntil(t, conn, "welcome", nil)

	cases := []struct {
		kind    string
		payload any
		want    string
	}{
		{kind: "start", payload: startDTO{Dialogue: "nope"}, want: "unknown dialogue"},
		{kind: "choose", payload: chooseDTO{Index: 0}, want: "no dialogue running"},
		{kind: "fly", want: "unknown message type fly"},
	}
	for _, tc := range cases {
		sendFrame(t, conn, tc.kind, tc.payload)
		var errOut errorDTO
		require.NoError(t, json.Unmarshal(readUntil(t, conn, "error", nil), &errOut))
		assert.Contains(t, errOut.Error, tc.want, tc.kind)
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var errOut errorDTO
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "error", nil), &errOut))
	assert.Equal(t, "invalid message", errOut.Error)
}

func TestWebsocketLeaveFreesRoom(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	conn := dial(t, srv, "room=r3&player=p3")
	readUntil(t, conn, "welcome", nil)
	room := app.Hub.GetRoom("r3")
	assert.Equal(t, 1, room.PlayerCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return room.PlayerCount() == 0 }, 3*time.Second, 20*time.Millisecond)
}
