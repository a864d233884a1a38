// Package stream pushes flag snapshots to WebSocket subscribers whenever
// the flag engine merges a refresh.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const broadcastTimeout = 5 * time.Second

// snapshotMessage is the wire format pushed to subscribers.
type snapshotMessage struct {
	Type  string          `json:"type"`
	Flags map[string]bool `json:"flags"`
}

// Manager tracks active subscriber connections.
type Manager struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

// NewManager creates an empty subscriber registry.
func NewManager() *Manager {
	return &Manager{
		subs: make(map[*websocket.Conn]struct{}),
	}
}

func (m *Manager) register(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[conn] = struct{}{}
}

func (m *Manager) unregister(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, conn)
}

// Broadcast sends a flag snapshot to every subscriber. Connections that
// fail to accept the write are closed and dropped; the next flag refresh
// must never be held up by a dead client.
func (m *Manager) Broadcast(flags map[string]bool) {
	data, err := json.Marshal(snapshotMessage{Type: "snapshot", Flags: flags})
	if err != nil {
		slog.Error("Failed to encode flag snapshot", "error", err)
		return
	}

	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.subs))
	for conn := range m.subs {
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("Dropping flag stream subscriber", "error", err)
			_ = conn.Close(websocket.StatusNormalClosure, "write failed")
			m.unregister(conn)
		}
	}
}

// Subscribers returns the number of active connections.
func (m *Manager) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
