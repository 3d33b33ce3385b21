// Package stream pushes orchestrator events to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"civsandbox/internal/sandbox"
)

const (
	writeWait  = 5 * time.Second
	readWait   = 60 * time.Second
	clientSend = 64
)

type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan []byte
	closed  bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uint64]chan []byte),
	}
}

// Observe fans the event out to every subscriber. A subscriber whose buffer
// is full misses the event rather than stalling the run.
func (h *Hub) Observe(ctx context.Context, ev sandbox.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, out := range h.clients {
		select {
		case out <- b:
		default:
			h.logger.Warn("dropping event for slow subscriber", "client", id, "event", ev.Type)
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, out := range h.clients {
		close(out)
		delete(h.clients, id)
	}
}

func (h *Hub) register() (uint64, chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	id := h.nextID.Add(1)
	out := make(chan []byte, clientSend)
	h.clients[id] = out
	return id, out, true
}

func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.clients[id]; ok {
		close(out)
		delete(h.clients, id)
	}
}

// Handler upgrades the request and streams events until either side
// disconnects. Subscribers only receive; anything they send is discarded.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, out, ok := h.register()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer h.unregister(id)
		h.logger.Debug("subscriber connected", "client", id, "remote", r.RemoteAddr)

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for b := range out {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		h.unregister(id)
		select {
		case <-writeDone:
		case <-time.After(500 * time.Millisecond):
		}
		h.logger.Debug("subscriber disconnected", "client", id)
	}
}

var _ sandbox.Observer = (*Hub)(nil)
