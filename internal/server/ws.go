package server

import (
	"net/http"
	"time"

	"github.com/ayusman/byechat/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	statusBuffer = 32
	writeTimeout = 5 * time.Second
)

// upgrader keeps the default origin check: the Origin host must match the
// request host.
var upgrader = websocket.Upgrader{}

// StatusSource publishes session status events.
type StatusSource interface {
	Subscribe(buffer int) (<-chan app.Status, func())
	LastStatus() app.Status
}

// StatusHandler streams status events to WebSocket clients as JSON.
// Each connection gets its own subscription.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.source.Subscribe(statusBuffer)
	defer cancel()

	// Detect client disconnects
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last := h.source.LastStatus(); last.Kind != "" {
		if err := writeStatus(conn, last); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case st, ok := <-events:
			if !ok {
				return
			}
			if err := writeStatus(conn, st); err != nil {
				return
			}
		}
	}
}

func writeStatus(conn *websocket.Conn, st app.Status) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(st)
}
