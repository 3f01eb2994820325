// ABOUTME: DeliverySimulator stands in for a real-time transport during development
// ABOUTME: Schedules counterpart replies and ambient inbound traffic as cancellable timers

package simulate

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthside/parley/internal/chat"
)

// replyBody is the canned counterpart reply committed after a send.
const replyBody = "Thanks for your message! I'll help you with that right away."

// ambientBodies are the inbound lines injected by the ambient ticker.
var ambientBodies = []string{
	"Is there an update on my request?",
	"Hello, I need help with my account",
	"I can't seem to access my dashboard. It keeps showing an error message.",
	"Thank you for your assistance",
}

// Engine is what the simulator needs from the conversation store. A real
// transport replacing this simulator must honor the same commit contract:
// inbound messages arrive out-of-band and flow through Append like any other.
type Engine interface {
	Append(conversationID, body string, sender chat.Sender) (*chat.Conversation, error)
	Conversation(id string) (*chat.Conversation, bool)
	ActiveID() string
}

// Simulator models asynchronous counterpart delivery with deferred timers.
// All outstanding timers are cancelled on Close, so a torn-down session can
// never be mutated by a late-firing reply.
type Simulator struct {
	mu     sync.Mutex
	engine Engine
	timers map[string]*time.Timer
	closed bool
	logger *slog.Logger
}

// New creates a simulator bound to the given engine. Pass nil logger for
// default.
func New(engine Engine, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		engine: engine,
		timers: make(map[string]*time.Timer),
		logger: logger.With("component", "simulator"),
	}
}

// ScheduleCounterpartReply arms a one-shot reply to the conversation after
// delay. The reply's sender is the counterpart of whoever last sent. Returns
// a handle usable with Cancel; an empty handle means the simulator is closed.
func (s *Simulator) ScheduleCounterpartReply(conversationID string, delay time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}

	handle := uuid.New().String()
	s.timers[handle] = time.AfterFunc(delay, func() {
		s.fire(handle, conversationID)
	})

	s.logger.Debug("reply scheduled",
		"conversation_id", conversationID,
		"handle", handle,
		"delay", delay)
	return handle
}

// Cancel stops a scheduled reply. Returns whether the reply was still
// pending.
func (s *Simulator) Cancel(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[handle]
	if !ok {
		return false
	}
	delete(s.timers, handle)
	return t.Stop()
}

// fire commits the scheduled reply. The mutex is held for the whole commit
// so Close can guarantee no mutation lands after it returns.
func (s *Simulator) fire(handle, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	delete(s.timers, handle)

	conv, ok := s.engine.Conversation(conversationID)
	if !ok {
		s.logger.Debug("reply dropped, conversation gone", "conversation_id", conversationID)
		return
	}

	sender := chat.SenderOperator
	if last := conv.LastMessage(); last != nil {
		sender = last.Sender.Counterpart()
	}
	if _, err := s.engine.Append(conversationID, replyBody, sender); err != nil {
		s.logger.Warn("reply append failed",
			"conversation_id", conversationID,
			"error", err)
	}
}

// RunAmbientTicker injects an inbound visitor message into the currently
// active conversation on each tick, with the given probability, until ctx is
// cancelled. This is a development stand-in for a push-based transport.
func (s *Simulator) RunAmbientTicker(ctx context.Context, interval time.Duration, probability float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rand.Float64() >= probability {
				continue
			}
			s.ambientTick()
		}
	}
}

func (s *Simulator) ambientTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	active := s.engine.ActiveID()
	if active == "" {
		return
	}
	body := ambientBodies[rand.IntN(len(ambientBodies))]
	if _, err := s.engine.Append(active, body, chat.SenderVisitor); err != nil {
		s.logger.Warn("ambient append failed", "conversation_id", active, "error", err)
	}
}

// Close cancels every outstanding timer. Once Close returns, no scheduled
// reply will mutate the engine. Safe to call multiple times.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for handle, t := range s.timers {
		t.Stop()
		delete(s.timers, handle)
	}
	s.logger.Debug("simulator closed")
}
