package sync

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]struct{}
	snapshot  func() Snapshot
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.wsClients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// SetSnapshot installs the source of the overlay snapshot that new clients
// receive after the welcome line.
func (h *Hub) SetSnapshot(fn func() Snapshot) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

// snapshotLine is the encoded snapshot event, or nil when no source is set.
func (h *Hub) snapshotLine() []byte {
	h.mu.Lock()
	fn := h.snapshot
	h.mu.Unlock()
	if fn == nil {
		return nil
	}
	b, err := json.Marshal(SnapshotTaken(fn()))
	if err != nil {
		slog.Warn("marshal overlay snapshot", "component", "sync", "error", err)
		return nil
	}
	return append(b, '\n')
}

// sendWS writes b to one websocket client. Writes share the hub lock with
// Publish since a websocket allows one writer at a time.
func (h *Hub) sendWS(ws *websocket.Conn, b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return ws.WriteMessage(websocket.TextMessage, b)
}

// Publish sends ev to every client as one JSON line. Clients that fail to
// accept the write are dropped.
func (h *Hub) Publish(ev OverlayEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal overlay event", "component", "sync", "error", err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func (h *Hub) Welcome(conn net.Conn) {
	msg := fmt.Sprintf("{\"type\":\"welcome\",\"message\":\"connected\",\"clients\":%d}\n", h.Stats().TCPClients+1)
	_, _ = conn.Write([]byte(msg))
	if line := h.snapshotLine(); line != nil {
		_, _ = conn.Write(line)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	for ws := range h.wsClients {
		_ = ws.Close()
		delete(h.wsClients, ws)
	}
}
