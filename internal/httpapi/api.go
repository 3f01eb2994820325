// ABOUTME: HTTP surface bridging the presentation layer to the conversation engine
// ABOUTME: JSON intent endpoints, SSE snapshot stream, and plain-text transcript export

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hearthside/parley/internal/chat"
	"github.com/hearthside/parley/internal/config"
	"github.com/hearthside/parley/internal/simulate"
	"github.com/hearthside/parley/internal/store"
)

// Server exposes the store's intents and notifications over HTTP. It holds no
// conversation state of its own; every mutation goes through the store.
type Server struct {
	store      *store.Store
	sim        *simulate.Simulator
	widgetCfg  config.WidgetConfig
	replyDelay time.Duration
	logger     *slog.Logger
}

// New creates the HTTP surface. The simulator may be nil, in which case
// widget sends do not schedule a counterpart reply.
func New(st *store.Store, sim *simulate.Simulator, widgetCfg config.WidgetConfig, replyDelay time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:      st,
		sim:        sim,
		widgetCfg:  widgetCfg,
		replyDelay: replyDelay,
		logger:     logger.With("component", "httpapi"),
	}
}

// Routes builds the chi router for the API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{id}/transcript", s.handleTranscript)
		r.Post("/conversations/{id}/messages", s.handleSendMessage)
		r.Post("/conversations/{id}/select", s.handleSelect)
		r.Post("/conversations/{id}/read", s.handleMarkRead)
		r.Post("/conversations/{id}/status", s.handleSetStatus)
		r.Post("/preview/dismiss", s.handleDismissPreview)
		r.Get("/stream", s.handleStream)

		r.Get("/widget/config", s.handleWidgetConfig)
		r.Post("/widget/messages", s.handleWidgetMessage)
		r.Post("/widget/open", s.handleWidgetOpen)
		r.Get("/widget/ws", s.handleWidgetWS)
	})
	return r
}

// SendMessageRequest is the JSON request body for message sends.
type SendMessageRequest struct {
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"` // defaults to operator on the console route
}

// SetStatusRequest is the JSON request body for status transitions.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// WidgetOpenRequest toggles the widget's expanded state.
type WidgetOpenRequest struct {
	Open bool `json:"open"`
}

// handleSendMessage handles POST /api/conversations/{id}/messages.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sender := chat.SenderOperator
	if req.Sender != "" {
		sender = chat.Sender(req.Sender)
		if !sender.Valid() {
			s.sendJSONError(w, http.StatusBadRequest, "unknown sender")
			return
		}
	}

	conv, err := s.store.Append(chi.URLParam(r, "id"), req.Body, sender)
	if err != nil {
		s.appendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, conv)
}

// handleWidgetMessage handles POST /api/widget/messages. The first widget
// message spawns the widget-origin conversation; every send schedules a
// simulated counterpart reply, the way a real transport would push one.
func (s *Server) handleWidgetMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	conv, err := s.store.SendWidgetMessage(req.Body)
	if err != nil {
		s.appendError(w, err)
		return
	}
	if s.sim != nil {
		s.sim.ScheduleCounterpartReply(conv.ID, s.replyDelay)
	}
	s.sendJSON(w, http.StatusOK, conv)
}

// handleSelect handles POST /api/conversations/{id}/select. Unknown ids are
// a silent no-op inside the store, so this always succeeds.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.store.Select(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkRead handles POST /api/conversations/{id}/read: clears the unread
// count without changing the selection. Unknown ids are a silent no-op.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.store.MarkRead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus handles POST /api/conversations/{id}/status.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status := chat.Status(req.Status)
	if !status.Valid() {
		s.sendJSONError(w, http.StatusBadRequest, "unknown status")
		return
	}
	s.store.SetStatus(chi.URLParam(r, "id"), status)
	w.WriteHeader(http.StatusNoContent)
}

// handleDismissPreview handles POST /api/preview/dismiss.
func (s *Server) handleDismissPreview(w http.ResponseWriter, r *http.Request) {
	s.store.DismissPreviews()
	w.WriteHeader(http.StatusNoContent)
}

// handleWidgetOpen handles POST /api/widget/open.
func (s *Server) handleWidgetOpen(w http.ResponseWriter, r *http.Request) {
	var req WidgetOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.store.SetWidgetOpen(req.Open)
	w.WriteHeader(http.StatusNoContent)
}

// handleWidgetConfig handles GET /api/widget/config.
func (s *Server) handleWidgetConfig(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.widgetCfg)
}

// handleListConversations handles GET /api/conversations?status=&q=.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	q := store.Query{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := chat.Status(raw)
		if !status.Valid() {
			s.sendJSONError(w, http.StatusBadRequest, "unknown status")
			return
		}
		q.Status = status
	}

	convs := make([]*chat.Conversation, 0)
	for c := range s.store.Filter(q) {
		convs = append(convs, c)
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// handleTranscript handles GET /api/conversations/{id}/transcript, serving
// the log as a plain-text download.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.store.Conversation(chi.URLParam(r, "id"))
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}

	filename := fmt.Sprintf("chat-transcript-%s.txt", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	fmt.Fprint(w, chat.Transcript(conv))
}

// handleStream handles GET /api/stream: pushes a snapshot event after every
// store commit, preceded by the current state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, subID := s.store.Subscribe(r.Context())
	defer s.store.Unsubscribe(subID)

	s.writeSSEEvent(w, "snapshot", s.store.Snapshot())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			s.writeSSEEvent(w, "snapshot", snap)
			flusher.Flush()
		}
	}
}

// appendError maps store append failures to HTTP statuses.
func (s *Server) appendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyBody):
		s.sendJSONError(w, http.StatusBadRequest, "message body is empty")
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
	default:
		s.logger.Error("append failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeSSEEvent writes one Server-Sent Event with a JSON payload.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode SSE payload", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

// sendJSON writes a JSON response with the given status.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, map[string]string{"error": msg})
}
