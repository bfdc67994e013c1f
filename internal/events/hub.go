// Package events fans sync run reports out to websocket subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"romvault/pkg/logging"
)

const (
	writeWait          = 2 * time.Second
	defaultHistorySize = 10
)

// Hub keeps the last few events and replays them to every new client, so a
// subscriber sees the latest sync report without waiting for the next run.
type Hub struct {
	mu          sync.Mutex
	clients     map[*websocket.Conn]struct{}
	history     [][]byte
	historySize int
	Logger      zerolog.Logger
}

type Stats struct {
	WSClients int `json:"ws_clients"`
}

func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Hub{
		clients:     make(map[*websocket.Conn]struct{}),
		historySize: historySize,
		Logger:      logging.Component("events"),
	}
}

// Add replays the history to ws and then subscribes it.
func (h *Hub) Add(ws *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, b := range h.history {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}
	}
	h.clients[ws] = struct{}{}
	return nil
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON sends v to every client. Clients that cannot keep up within
// writeWait are dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.Logger.Error().Err(err).Msg("marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, b)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}

	for ws := range h.clients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.Logger.Debug().Err(err).Str("remote", ws.RemoteAddr().String()).Msg("dropping client")
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.clients)}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		delete(h.clients, ws)
	}
}
