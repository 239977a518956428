// Package events fans agent events out to websocket clients and in-process
// subscribers such as the tray.
package events

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	TypeProgress = "progress"
	TypeState    = "state"
	TypeJob      = "job"

	subscriberBuffer = 32
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

// Event is one message on the /events stream.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Time      time.Time `json:"time"`
	Data      any       `json:"data,omitempty"`
}

// Hub broadcasts events. Slow subscribers whose buffer is full are dropped
// rather than blocking the publisher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan Event
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewHub creates a hub. checkOrigin decides which browser origins may open
// the websocket; nil allows only requests without an Origin header or from
// the same host.
func NewHub(checkOrigin func(r *http.Request) bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		subscribers: make(map[string]chan Event),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is closed on Unsubscribe or when the subscriber falls behind.
func (h *Hub) Subscribe() (string, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	h.subscribers[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish never blocks.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping slow event subscriber", "subscriber_id", id)
			close(ch)
			delete(h.subscribers, id)
		}
	}
}

// SubscriberCount is used by /status.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeWS upgrades the request and streams events as JSON until the client
// goes away or is dropped.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)
	h.logger.Info("event client connected", "subscriber_id", id)

	// The client never sends; reading only detects close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			h.logger.Info("event client disconnected", "subscriber_id", id)
			return
		case ev, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
