// ABOUTME: WebSocket channel for the embeddable widget
// ABOUTME: Pushes store snapshots to the widget and accepts visitor intents

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hearthside/parley/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The widget embeds on arbitrary customer origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WidgetFrame is one client-to-server message on the widget channel.
type WidgetFrame struct {
	Type string `json:"type"` // "send", "open", "dismiss"
	Body string `json:"body,omitempty"`
	Open bool   `json:"open,omitempty"`
}

// handleWidgetWS handles GET /api/widget/ws. The server half pushes one
// snapshot per store commit; the client half carries visitor intents.
func (s *Server) handleWidgetWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx := r.Context()
	ch, subID := s.store.Subscribe(ctx)
	defer s.store.Unsubscribe(subID)

	go s.widgetReadPump(conn)
	s.widgetWritePump(ctx, conn, ch)
}

// widgetReadPump dispatches widget intents into the store until the
// connection drops.
func (s *Server) widgetReadPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("widget connection error", "error", err)
			}
			return
		}

		var frame WidgetFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.logger.Debug("ignoring malformed widget frame", "error", err)
			continue
		}

		switch frame.Type {
		case "send":
			conv, err := s.store.SendWidgetMessage(frame.Body)
			if err != nil {
				// Validation failures are silent no-ops on this channel.
				continue
			}
			if s.sim != nil {
				s.sim.ScheduleCounterpartReply(conv.ID, s.replyDelay)
			}
		case "open":
			s.store.SetWidgetOpen(frame.Open)
		case "dismiss":
			s.store.DismissPreviews()
		}
	}
}

// widgetWritePump pushes snapshots and keep-alive pings to the widget.
func (s *Server) widgetWritePump(ctx context.Context, conn *websocket.Conn, ch <-chan store.Snapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	// Initial state before the first commit arrives.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(s.store.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case snap, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
