package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
	"DialogueRuntime/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := AppConfig{Addr: "127.0.0.1:0", Seed: 1, Store: store.Config{Backend: "memory"}}
	app, err := NewApp(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestStaticRoutes(t *testing.T) {
	h := newTestApp(t).Handler()

	resp := get(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")

	resp = get(t, h, http.MethodGet, "/client.js")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "javascript")

	resp = get(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, "ok", resp.Body.String())
}

func TestListDialogues(t *testing.T) {
	h := newTestApp(t).Handler()
	resp := get(t, h, http.MethodGet, "/api/dialogues")
	require.Equal(t, http.StatusOK, resp.Code)

	var out []dialogueSummaryDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "rumor", out[0].ID)
	assert.Equal(t, "tavern", out[1].ID)
	assert.Equal(t, []string{"keeper"}, out[1].Actors)
	assert.Greater(t, out[1].Nodes, 5)
}

func TestExportDialogue(t *testing.T) {
	h := newTestApp(t).Handler()

	resp := get(t, h, http.MethodGet, "/api/dialogues/tavern?format=yaml")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/yaml", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "tavern.menu")

	resp = get(t, h, http.MethodGet, "/api/dialogues/tavern")
	require.Equal(t, http.StatusOK, resp.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	assert.Equal(t, "tavern", doc["id"])

	resp = get(t, h, http.MethodGet, "/api/dialogues/tavern?format=xml")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = get(t, h, http.MethodGet, "/api/dialogues/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLedgerRoutes(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	ctx := context.Background()
	require.NoError(t, app.Store.Save(ctx, store.Key("p1", "dialogue:tavern"), map[dialogue.NodeID]bool{
		"tavern.menu":  true,
		"tavern.greet": true,
	}))

	resp := get(t, h, http.MethodGet, "/api/players/p1/ledgers/tavern")
	require.Equal(t, http.StatusOK, resp.Code)
	var out ledgerDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, []string{"tavern.greet", "tavern.menu"}, out.Visited)

	resp = get(t, h, http.MethodDelete, "/api/players/p1/ledgers/tavern")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = get(t, h, http.MethodGet, "/api/players/p1/ledgers/tavern")
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Empty(t, out.Visited)

	resp = get(t, h, http.MethodGet, "/api/players/p1/ledgers/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSettingsAndRooms(t *testing.T) {
	app := newTestApp(t)
	app.Hub.GetRoom("lobby")
	h := app.Handler()

	resp := get(t, h, http.MethodGet, "/api/settings")
	require.Equal(t, http.StatusOK, resp.Code)
	var s settingsDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &s))
	assert.Equal(t, "default", s.Presentation.Skin)
	assert.Equal(t, 20.0, s.TickHz)

	resp = get(t, h, http.MethodGet, "/api/rooms")
	var rooms []roomDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rooms))
	assert.Equal(t, []roomDTO{{ID: "lobby", Players: 0}}, rooms)
}

func TestLedgerResetReachesConnectedPlayer(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	room := app.Hub.GetRoom("lobby")
	p := game.NewPlayer("p1", "")
	require.NoError(t, room.Join(p))
	p.Ledger("dialogue:tavern").Mark("tavern.rumors")

	resp := get(t, h, http.MethodDelete, "/api/players/p1/ledgers/tavern")
	require.Equal(t, http.StatusNoContent, resp.Code)

	room.Mu.Lock()
	visited := p.Ledger("dialogue:tavern").Visited("tavern.rumors")
	room.Mu.Unlock()
	assert.False(t, visited)

	room.Leave("p1")
	require.NoError(t, app.Hub.Flush(context.Background()))
	saved, err := app.Store.Load(context.Background(), store.Key("p1", "dialogue:tavern"))
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestReloadDialogues(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	resp := post(t, h, "/api/dialogues/reload", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var out reloadDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Dialogues)

	app.cfg.AssetsDir = "../../assets/dialogues"
	resp = post(t, h, "/api/dialogues/reload", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"clerk", "gate"}, app.Hub.Library.IDs())

	app.cfg.AssetsDir = t.TempDir() + "/missing"
	resp = post(t, h, "/api/dialogues/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, []string{"clerk", "gate"}, app.Hub.Library.IDs(), "failed reload keeps the loaded set")
}

func TestRunActionsRoute(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	room := app.Hub.GetRoom("lobby")
	p := game.NewPlayer("p1", "")
	require.NoError(t, room.Join(p))

	body := `{"actions":[{"type":"set_var","args":{"name":"coins","value":7}},{"type":"start_dialogue","args":{"dialogue":"tavern"}}]}`
	resp := post(t, h, "/api/rooms/lobby/players/p1/actions", body)
	require.Equal(t, http.StatusNoContent, resp.Code)

	room.Mu.Lock()
	coins := p.Vars["coins"]
	busy := p.Busy()
	room.Mu.Unlock()
	assert.Equal(t, 7.0, coins)
	assert.True(t, busy)

	resp = post(t, h, "/api/rooms/lobby/players/p1/actions", `{"actions":[{"type":"fly"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = post(t, h, "/api/rooms/lobby/players/p1/actions", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = post(t, h, "/api/rooms/nowhere/players/p1/actions", body)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = post(t, h, "/api/rooms/lobby/players/ghost/actions", body)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
