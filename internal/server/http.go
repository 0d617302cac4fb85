package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"DialogueRuntime/internal/asset"
	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
	"DialogueRuntime/internal/store"
)

//go:generate go run ./cmd/webbuild

/* ------------------------------ Embeds ------------------------------ */

//go:embed web/index.html
var htmlIndex []byte

//go:embed web/client.js
var jsClient []byte

/* ------------------------------- HTTP ------------------------------- */

// Handler returns the routes: the web client, the JSON inspection API and the
// websocket endpoint.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(htmlIndex)
	})
	r.Get("/client.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write(jsClient)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", a.serveWS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/settings", a.getSettings)
		api.Get("/rooms", a.listRooms)
		api.Post("/rooms/{room}/players/{player}/actions", a.runActions)
		api.Get("/dialogues", a.listDialogues)
		api.Post("/dialogues/reload", a.reloadDialogues)
		api.Get("/dialogues/{id}", a.exportDialogue)
		api.Get("/players/{player}/ledgers/{id}", a.getLedger)
		api.Delete("/players/{player}/ledgers/{id}", a.resetLedger)
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorDTO{Error: msg})
}

func (a *App) getSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, settingsDTO{
		Presentation: a.Defaults(),
		TickHz:       a.Settings.TickHz,
		UpdateRateHz: game.UpdateRateHz,
	})
}

func (a *App) listRooms(w http.ResponseWriter, r *http.Request) {
	ids := a.Hub.RoomIDs()
	sort.Strings(ids)
	out := make([]roomDTO, 0, len(ids))
	for _, id := range ids {
		out = append(out, roomDTO{ID: id, Players: a.Hub.GetRoom(id).PlayerCount()})
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *App) listDialogues(w http.ResponseWriter, r *http.Request) {
	lib := a.Hub.Library
	out := make([]dialogueSummaryDTO, 0, lib.Len())
	for _, id := range lib.IDs() {
		d, err := lib.Get(id)
		if err != nil {
			continue
		}
		actors := make([]string, 0, len(d.Actors))
		for aid := range d.Actors {
			actors = append(actors, aid)
		}
		sort.Strings(actors)
		out = append(out, dialogueSummaryDTO{ID: d.ID, Nodes: len(d.Nodes), Actors: actors})
	}
	respondJSON(w, http.StatusOK, out)
}

// exportDialogue writes a dialogue as a document in ?format= (json, yaml or
// toml; json by default). Conditions and actions are code and are not exported.
func (a *App) exportDialogue(w http.ResponseWriter, r *http.Request) {
	d, err := a.Hub.Library.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	format := asset.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = asset.FormatJSON
	}
	data, err := asset.Encode(asset.FromDialogue(d), format)
	if err != nil {
		if errors.Is(err, asset.ErrUnknownFormat) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch format {
	case asset.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case asset.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "application/toml")
	}
	_, _ = w.Write(data)
}

// ledgerKey resolves the player's store key for the dialogue in the path.
func (a *App) ledgerKey(w http.ResponseWriter, r *http.Request) (player string, d *dialogue.Dialogue, ok bool) {
	player = chi.URLParam(r, "player")
	d, err := a.Hub.Library.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return "", nil, false
	}
	return player, d, true
}

func (a *App) getLedger(w http.ResponseWriter, r *http.Request) {
	player, d, ok := a.ledgerKey(w, r)
	if !ok {
		return
	}
	entries, err := a.Store.Load(r.Context(), store.Key(player, d.SaveKey()))
	if err != nil {
		a.log.Error("load ledger", "player", player, "dialogue", d.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "load failed")
		return
	}
	visited := make([]string, 0, len(entries))
	for node, seen := range entries {
		if seen {
			visited = append(visited, string(node))
		}
	}
	sort.Strings(visited)
	respondJSON(w, http.StatusOK, ledgerDTO{Player: player, Dialogue: d.ID, Visited: visited})
}

func (a *App) resetLedger(w http.ResponseWriter, r *http.Request) {
	player, d, ok := a.ledgerKey(w, r)
	if !ok {
		return
	}
	if err := a.Hub.ResetLedger(r.Context(), player, d.SaveKey()); err != nil {
		a.log.Error("reset ledger", "player", player, "dialogue", d.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reloadDialogues re-reads the dialogue assets. Runs in progress keep the tree
// they started with.
func (a *App) reloadDialogues(w http.ResponseWriter, r *http.Request) {
	n, err := a.Reload()
	if err != nil {
		a.log.Error("reload dialogues", "assets", a.cfg.AssetsDir, "err", err)
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, reloadDTO{Dialogues: n})
}

// runActions fires a list of action specs for one player, as an operator
// nudge (set a variable, start a dialogue). Nothing waits on them.
func (a *App) runActions(w http.ResponseWriter, r *http.Request) {
	var in actionsDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	acts, err := game.Binder{}.BindActions("", in.Actions)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	room, ok := a.Hub.FindRoom(chi.URLParam(r, "room"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown room")
		return
	}
	if err := room.RunActions(chi.URLParam(r, "player"), acts); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
