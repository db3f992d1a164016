// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientQueue  = 32
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dashboards
	},
}

// Status is the latest loop state served at /api/status.
type Status struct {
	RunID       string    `json:"run_id"`
	State       string    `json:"state"`
	LastGesture string    `json:"last_gesture,omitempty"`
	LastCommand string    `json:"last_command,omitempty"`
	LastAck     string    `json:"last_ack,omitempty"`
	Events      uint64    `json:"events"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams events to websocket clients. Clients that fall behind lose
// events rather than slow the loop down.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	status  Status
	have    bool
	closed  bool
	logger  *slog.Logger
}

// NewHub creates an empty hub. A nil logger discards.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger.With(slog.String("component", "hub")),
	}
}

// Handler serves /ws and /api/status.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/api/status", h.serveStatus)
	return mux
}

func (h *Hub) Publish(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Kind, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.status.RunID = e.RunID
	h.status.State = e.State
	h.status.Events++
	h.status.UpdatedAt = e.Time
	if e.Gesture != "" {
		h.status.LastGesture = e.Gesture
	}
	if e.Command != "" {
		h.status.LastCommand = e.Command
		h.status.LastAck = e.Ack
	}
	h.have = true

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("dropping event for slow client", slog.String("remote", c.conn.RemoteAddr().String()))
		}
	}
	return nil
}

// Snapshot returns the latest status and whether any event was seen.
func (h *Hub) Snapshot() (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status, h.have
}

func (h *Hub) serveStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := h.Snapshot()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Warn("json encode error", slog.String("error", err.Error()))
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", slog.String("error", err.Error()))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientQueue)}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info("websocket client connected", slog.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)

	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			break
		}
	}

	h.unregister(c)
	h.logger.Info("websocket client disconnected", slog.String("remote", conn.RemoteAddr().String()))
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("websocket write error", slog.String("error", err.Error()))
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
