// Package events pushes dashboard notifications (alerts, raised hands, exam
// violations) to connected teacher consoles over WebSocket. Delivery is best
// effort; the console state endpoints remain the source of truth.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Envelope is one pushed event.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	TS   int64  `json:"ts"`
}

type client struct {
	send chan []byte
}

// Hub fans events out to every subscribed console.
type Hub struct {
	mu            sync.Mutex
	clients       map[*client]struct{}
	allowedOrigin string
	isDev         bool
}

// NewHub creates an empty hub.
func NewHub(allowedOrigin string, isDev bool) *Hub {
	return &Hub{
		clients:       map[*client]struct{}{},
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// Publish broadcasts one event to every subscriber. Slow subscribers are
// dropped rather than allowed to stall the publisher.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(Envelope{Type: event, Data: payload, TS: time.Now().Unix()})
	if err != nil {
		slog.Warn("Failed to marshal event", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Debug("Dropping slow event subscriber")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Subscribers reports how many consoles are connected.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Event stream origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// ServeHTTP upgrades the request and streams events until the console
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept event stream", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close event stream", "error", closeErr)
		}
	}()

	c := &client{send: make(chan []byte, 32)}
	h.register(c)
	defer h.unregister(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader loop: the stream is one-way, but reads surface disconnects and
	// answer pings.
	go func() {
		defer cancel()
		for {
			_, message, err := ws.Read(ctx)
			if err != nil {
				if websocket.CloseStatus(err) != -1 {
					slog.Debug("Event stream closed by client")
				}
				return
			}
			var msg struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(message, &msg) == nil && msg.Type == "ping" {
				pong, _ := json.Marshal(map[string]string{"type": "pong"})
				if err := ws.Write(ctx, websocket.MessageText, pong); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				slog.Debug("Event stream write error", "error", err)
				return
			}
		}
	}
}
