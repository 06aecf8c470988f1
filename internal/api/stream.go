package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"veritas/pkg/logger"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
	streamSendBuffer   = 64
)

// EventHub fans resolution events out to websocket subscribers. It mirrors
// the Kafka stream for clients that want live updates without a broker
// subscription. Slow subscribers are dropped rather than allowed to back up
// the publisher.
type EventHub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	conns    map[*websocket.Conn]chan []byte
	log      *logger.Logger
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]chan []byte),
		log:   logger.Get().With("component", "event_hub"),
	}
}

type streamEnvelope struct {
	Topic  string      `json:"topic"`
	Event  interface{} `json:"event"`
	EmitAt time.Time   `json:"emit_at"`
}

// Broadcast sends an event to every connected subscriber
func (h *EventHub) Broadcast(topic string, event interface{}) {
	payload, err := json.Marshal(streamEnvelope{
		Topic:  topic,
		Event:  event,
		EmitAt: time.Now().UTC(),
	})
	if err != nil {
		h.log.Errorw("Failed to marshal stream event", "topic", topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.conns {
		select {
		case send <- payload:
		default:
			// Subscriber is not keeping up; close it from the writer side
			h.log.Warnw("Dropping slow websocket subscriber", "remote", conn.RemoteAddr())
			close(send)
			delete(h.conns, conn)
		}
	}
}

// HandleWS upgrades the connection and streams events until the client leaves
func (h *EventHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("Websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, streamSendBuffer)
	h.mu.Lock()
	h.conns[conn] = send
	h.mu.Unlock()

	go h.writePump(conn, send)
	go h.readPump(conn)
}

func (h *EventHub) writePump(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(streamPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscriber too slow"),
					time.Now().Add(streamWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.unregister(conn)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(conn)
				return
			}
		}
	}
}

// readPump discards inbound messages and notices disconnects
func (h *EventHub) readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(conn)
			return
		}
	}
}

func (h *EventHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.conns[conn]; ok {
		close(send)
		delete(h.conns, conn)
	}
	_ = conn.Close()
}

// Close disconnects all subscribers
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.conns {
		close(send)
		delete(h.conns, conn)
		_ = conn.Close()
	}
}
