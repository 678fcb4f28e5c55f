// SPDX-License-Identifier: EPL-2.0

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// DefaultSubscriberBuffer is the number of events queued per websocket
// client before new events are dropped for it.
const DefaultSubscriberBuffer = 64

const writeTimeout = 5 * time.Second

// envelope is the JSON frame sent to websocket clients.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub fans recorder events out to websocket subscribers. It implements
// recorder.Emitter: Emit never blocks, a slow subscriber loses events.
type Hub struct {
	buffer  int
	log     *slog.Logger
	dropped atomic.Uint64

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub returns a Hub queueing up to buffer events per subscriber.
func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		buffer: buffer,
		log:    log,
		subs:   make(map[chan []byte]struct{}),
	}
}

func (h *Hub) Emit(event string, payload any) {
	msg, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.log.Warn("encode event", slog.String("event", event), slog.Any("err", err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters
// it; the channel is never closed.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Dropped returns the number of events discarded for full subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// ServeHTTP upgrades the request to a websocket and streams events until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so a client never misses an
	// event emitted right after it connected.
	events, cancel := h.Subscribe()
	defer cancel()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug("websocket accept", slog.Any("err", err))
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-events:
			if err := write(ctx, conn, msg); err != nil {
				h.log.Debug("websocket write", slog.Any("err", err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, msg)
}
