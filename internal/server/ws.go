package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type liveConn struct {
	conn     *websocket.Conn
	sendTick *time.Ticker
	writeMu  sync.Mutex

	transcriptDirty atomic.Bool
}

func (lc *liveConn) send(kind string, payload any) error {
	lc.writeMu.Lock()
	defer lc.writeMu.Unlock()
	_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return lc.conn.WriteJSON(outboundMessage{Type: kind, Payload: payload})
}

// serveWS attaches one player to a room for the life of the connection. The
// client sends commands as JSON frames; the server pushes the player's view at
// UpdateRateHz whenever it changes, plus transcript and event frames.
func (a *App) serveWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	roomID := query.Get("room")
	if roomID == "" {
		roomID = "default"
	}
	playerID := query.Get("player")
	if playerID == "" {
		playerID = "p-" + uuid.NewString()[:8]
	}
	log := a.log.With("room", roomID, "player", playerID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade", "err", err)
		return
	}
	lc := &liveConn{
		conn:     conn,
		sendTick: time.NewTicker(time.Duration(float64(time.Second) / game.UpdateRateHz)),
	}
	defer conn.Close()
	defer lc.sendTick.Stop()

	player := game.NewPlayer(playerID, query.Get("name"))
	if err := a.Hub.RestorePlayer(r.Context(), player); err != nil {
		log.Warn("restore ledgers", "err", err)
	}
	player.Transcript.OnAdd(func(dialogue.Entry) { lc.transcriptDirty.Store(true) })
	player.Transcript.OnReset(func() { lc.transcriptDirty.Store(true) })

	room := a.Hub.GetRoom(roomID)
	if err := room.Join(player); err != nil {
		_ = lc.send("error", errorDTO{Error: err.Error()})
		return
	}
	defer room.Leave(playerID)
	log.Info("player joined")

	if err := lc.send("welcome", welcomeDTO{
		Player:    playerID,
		Room:      roomID,
		Dialogues: a.Hub.Library.IDs(),
		Defaults:  a.Defaults(),
	}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				log.Debug("ignoring non-text frame", "type", msgType)
				continue
			}
			a.handleInbound(room, lc, playerID, data, log)
		}
	}()

	var (
		lastVersion uint64
		lastSession string
		lastActive  bool
		lastSeq     uint64
		sentFirst   bool
	)
	for {
		select {
		case <-ctx.Done():
			log.Info("player left")
			return
		case <-lc.sendTick.C:
			room.Mu.Lock()
			view, ok := room.ViewLocked(playerID)
			events := player.History.After(lastSeq)
			room.Mu.Unlock()
			if !ok {
				return
			}

			changed := !sentFirst || view.Version != lastVersion || view.Session != lastSession || view.Active != lastActive
			if changed || len(view.Blips) > 0 {
				if err := lc.send("view", view); err != nil {
					log.Debug("send view", "err", err)
					return
				}
				sentFirst = true
				lastVersion, lastSession, lastActive = view.Version, view.Session, view.Active
			}
			if len(events) > 0 {
				if err := lc.send("events", eventsDTO{Events: events}); err != nil {
					return
				}
				lastSeq = events[len(events)-1].Seq
			}
			if lc.transcriptDirty.Swap(false) {
				if err := lc.send("transcript", transcriptDTO{Entries: player.Transcript.Entries()}); err != nil {
					return
				}
			}
		}
	}
}

// handleInbound applies one client command. Rejected commands are answered
// with an error frame; the connection stays open.
func (a *App) handleInbound(room *game.Room, lc *liveConn, playerID string, data []byte, log *slog.Logger) {
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		log.Debug("invalid JSON message", "err", err)
		_ = lc.send("error", errorDTO{Error: "invalid message"})
		return
	}

	var err error
	switch in.Type {
	case "start":
		var p startDTO
		if err = json.Unmarshal(in.Payload, &p); err == nil {
			_, err = room.StartDialogue(playerID, p.Dialogue)
		}
	case "skip":
		err = room.Skip(playerID)
	case "choose":
		var p chooseDTO
		if err = json.Unmarshal(in.Payload, &p); err == nil {
			err = room.Choose(playerID, p.Index)
		}
	case "abandon":
		err = room.Abandon(playerID)
	case "rename":
		var p renameDTO
		if err = json.Unmarshal(in.Payload, &p); err == nil {
			err = room.Rename(playerID, p.Name)
		}
	default:
		log.Debug("unknown message type", "type", in.Type)
		_ = lc.send("error", errorDTO{Error: "unknown message type " + in.Type})
		return
	}
	if err != nil {
		log.Debug("command rejected", "type", in.Type, "err", err)
		_ = lc.send("error", errorDTO{Error: err.Error()})
	}
}
