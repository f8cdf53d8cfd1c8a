package rest

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"golang.org/x/net/websocket"

	"autoops/engine/pkg/logger"
	"autoops/engine/pkg/types"
)

// StreamMessage is the envelope sent over the event stream WebSocket.
type StreamMessage struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Task      *types.Task            `json:"task,omitempty"`
	Metrics   *types.MetricsSnapshot `json:"metrics,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// setupEventRoutes sets up the WebSocket event stream endpoint.
func (s *Server) setupEventRoutes() {
	s.app.Get("/api/v1/events/stream", adaptor.HTTPHandler(
		websocket.Handler(func(ws *websocket.Conn) {
			s.handleEventStream(ws)
		}),
	))
}

// handleEventStream forwards bus events to one WebSocket client. The
// subscription's bounded buffer already sheds load for slow clients, so
// sends here may block only as long as the socket accepts writes.
func (s *Server) handleEventStream(ws *websocket.Conn) {
	defer ws.Close()

	sub := s.engine.Subscribe()
	defer sub.Close()

	// Drain client messages to detect close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				return
			}
		}
	}()

	// Initial metrics snapshot so clients render immediately.
	snapshot := s.engine.Metrics()
	if err := sendStreamMessage(ws, StreamMessage{
		Type:      string(types.EventMetrics),
		Timestamp: time.Now().Format(time.RFC3339),
		Metrics:   &snapshot,
	}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			msg := StreamMessage{
				Type:      string(ev.Type),
				Timestamp: ev.Timestamp.Format(time.RFC3339),
				Task:      ev.Task,
				Metrics:   ev.Metrics,
			}
			if err := sendStreamMessage(ws, msg); err != nil {
				logger.Debug("event stream client gone: %v", err)
				return
			}
		}
	}
}

func sendStreamMessage(ws *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return websocket.Message.Send(ws, string(data))
}
