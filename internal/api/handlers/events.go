package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magnusfroste/domainproxy/internal/events"
)

// EventsHandler streams routing events to admin clients over WebSocket.
type EventsHandler struct {
	broker *events.Broker
	logger *slog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(broker *events.Broker, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{broker: broker, logger: logger}
}

// Stream handles GET /v1/events/ws. An optional kind query parameter
// narrows the stream to one event kind.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := h.broker.Subscribe(kind)
	defer h.broker.Unsubscribe(sub)

	h.logger.Info("event stream started", "subscriber_id", sub.ID, "kind", kind)

	// Drain and discard client frames; a read error means the client is
	// gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			h.logger.Info("event stream closed by client", "subscriber_id", sub.ID)
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev, ok := <-sub.Ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("event write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
		}
	}
}
