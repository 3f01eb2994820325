// ABOUTME: ConversationStore is the single source of truth for conversation state
// ABOUTME: All mutation intents flow through here; consistency of unread counts and previews is enforced on commit

package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthside/parley/internal/chat"
	"github.com/hearthside/parley/internal/preview"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// widgetDisplayName labels conversations spawned by a first widget message.
const widgetDisplayName = "Visitor"

// Persister receives the full conversation collection after every committed
// mutation. Saves are best-effort: failures are logged, never surfaced, and
// never roll back the in-memory commit.
type Persister interface {
	Save(ctx context.Context, convs []*chat.Conversation) error
}

// Snapshot is the read-only state emitted to subscribers after every commit.
// Everything inside is a deep copy; consumers never hold engine-owned memory.
type Snapshot struct {
	Conversations        []*chat.Conversation `json:"conversations"`
	ActiveConversationID string               `json:"active_conversation_id"`
	Previews             []*preview.Item      `json:"previews"`
}

// Store owns all Conversation and Message instances. A single mutex
// serializes every mutation, so commits to any conversation's message log
// are strictly ordered regardless of timer interleaving.
type Store struct {
	mu            sync.Mutex
	conversations []*chat.Conversation
	index         map[string]*chat.Conversation
	activeID      string
	widgetOpen    bool

	previews    *preview.Queue
	persister   Persister
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// New creates a store seeded with the given conversations. The previews queue
// and persister may be nil. The store republishes its snapshot when the
// preview queue expires on its own.
func New(seed []*chat.Conversation, previews *preview.Queue, persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		conversations: chat.CloneAll(seed),
		index:         make(map[string]*chat.Conversation, len(seed)),
		previews:      previews,
		persister:     persister,
		broadcaster:   NewBroadcaster(logger),
		logger:        logger.With("component", "store"),
	}
	for _, c := range s.conversations {
		s.index[c.ID] = c
	}
	if previews != nil {
		previews.SetOnChange(s.republish)
	}
	return s
}

// Select marks id as the active conversation and clears its unread count:
// a selected conversation is being read. Unknown ids are a silent no-op.
func (s *Store) Select(id string) {
	s.mu.Lock()
	conv, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("select ignored, unknown conversation", "conversation_id", id)
		return
	}
	s.activeID = id
	conv.UnreadCount = 0
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persistAsync(snap.Conversations)
}

// MarkRead clears the unread count of a conversation without selecting it.
// Unknown ids are a silent no-op.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	conv, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	conv.UnreadCount = 0
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persistAsync(snap.Conversations)
}

// Append commits a new message to an existing conversation. The body must be
// non-empty after trimming. The unread count increments only when the message
// comes from the visitor and the conversation is not the active one; the
// operator console is the reading viewer of everything it has selected.
// Returns a snapshot of the updated conversation.
func (s *Store) Append(conversationID, body string, sender chat.Sender) (*chat.Conversation, error) {
	if strings.TrimSpace(body) == "" {
		return nil, chat.ErrEmptyBody
	}

	s.mu.Lock()
	conv, ok := s.index[conversationID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	now := time.Now()
	msg := &chat.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Body:           body,
		Sender:         sender,
		CreatedAt:      now.UnixMilli(),
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastMessagePreview = chat.Preview{
		Body:      msg.Body,
		TimeLabel: chat.FormatRelativeAge(msg.CreatedAt, now),
	}
	if sender == chat.SenderVisitor && conv.ID != s.activeID {
		conv.UnreadCount++
	}

	if sender == chat.SenderOperator && !s.widgetOpen && s.previews != nil {
		s.previews.Enqueue(msg)
	}
	convCopy := conv.Clone()
	snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Debug("message committed",
		"conversation_id", conv.ID,
		"message_id", msg.ID,
		"sender", sender)

	s.persistAsync(snap.Conversations)
	return convCopy, nil
}

// SendWidgetMessage resolves or creates the widget-origin conversation and
// appends a visitor message to it.
func (s *Store) SendWidgetMessage(body string) (*chat.Conversation, error) {
	conv := s.ResolveOrCreateWidgetConversation()
	return s.Append(conv.ID, body, chat.SenderVisitor)
}

// ResolveOrCreateWidgetConversation returns the widget-origin conversation,
// creating it on first use. Idempotent: repeated calls return the same
// conversation. A new one is prepended so the newest widget conversation
// leads the inbox ordering.
func (s *Store) ResolveOrCreateWidgetConversation() *chat.Conversation {
	s.mu.Lock()
	if conv := s.findWidgetLocked(); conv != nil {
		cp := conv.Clone()
		s.mu.Unlock()
		return cp
	}

	conv := &chat.Conversation{
		ID:           uuid.New().String(),
		DisplayName:  widgetDisplayName,
		Status:       chat.StatusOpen,
		WidgetOrigin: true,
	}
	s.conversations = append([]*chat.Conversation{conv}, s.conversations...)
	s.index[conv.ID] = conv
	cp := conv.Clone()
	snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Info("widget conversation created", "conversation_id", cp.ID)
	s.persistAsync(snap.Conversations)
	return cp
}

// FindWidgetConversation returns the widget-origin conversation, or nil if a
// visitor has not started one yet.
func (s *Store) FindWidgetConversation() *chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv := s.findWidgetLocked(); conv != nil {
		return conv.Clone()
	}
	return nil
}

func (s *Store) findWidgetLocked() *chat.Conversation {
	for _, c := range s.conversations {
		if c.WidgetOrigin {
			return c
		}
	}
	return nil
}

// SetStatus transitions a conversation's status. Any state may move to any
// other, including reopening a resolved conversation. Unknown ids and unknown
// statuses are silent no-ops.
func (s *Store) SetStatus(id string, status chat.Status) {
	if !status.Valid() {
		s.logger.Debug("set status ignored, invalid status", "status", status)
		return
	}

	s.mu.Lock()
	conv, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	conv.Status = status
	snap := s.commitLocked()
	s.mu.Unlock()

	s.persistAsync(snap.Conversations)
}

// SetWidgetOpen records whether the visitor widget is expanded. While open,
// operator messages reach the visitor directly and no previews are queued;
// opening it also drops any previews still showing.
func (s *Store) SetWidgetOpen(open bool) {
	s.mu.Lock()
	s.widgetOpen = open
	if open && s.previews != nil {
		s.previews.Dismiss()
	}
	s.commitLocked()
	s.mu.Unlock()
}

// WidgetOpen reports whether the visitor widget is currently expanded.
func (s *Store) WidgetOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widgetOpen
}

// DismissPreviews clears the notification preview queue (explicit user action).
func (s *Store) DismissPreviews() {
	s.mu.Lock()
	if s.previews != nil {
		s.previews.Dismiss()
	}
	s.commitLocked()
	s.mu.Unlock()
}

// Conversation returns a deep copy of one conversation.
func (s *Store) Conversation(id string) (*chat.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// ActiveID returns the id of the currently selected conversation, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Snapshot returns the current read-only state (pull for initial state;
// subscribe for pushes).
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers for snapshot pushes after every commit. The
// subscription is cleaned up when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context) (<-chan Snapshot, string) {
	return s.broadcaster.Subscribe(ctx)
}

// Unsubscribe removes a snapshot subscription.
func (s *Store) Unsubscribe(id string) {
	s.broadcaster.Unsubscribe(id)
}

// Close shuts down the snapshot broadcaster. Outstanding persister writes
// are fire-and-forget and drain on their own.
func (s *Store) Close() {
	s.broadcaster.Close()
}

// snapshotLocked builds a deep-copied snapshot. Must be called with mu held.
func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Conversations:        chat.CloneAll(s.conversations),
		ActiveConversationID: s.activeID,
	}
	if s.previews != nil {
		snap.Previews = s.previews.Items()
	}
	return snap
}

// commitLocked builds the snapshot and publishes it while mu is still held,
// so subscribers observe commits in the order they landed. Broadcaster sends
// are non-blocking, so holding the lock here cannot stall on a slow consumer.
func (s *Store) commitLocked() Snapshot {
	snap := s.snapshotLocked()
	s.broadcaster.Publish(snap)
	return snap
}

// persistAsync writes the collection through to the persister. Persistence is
// a fire-and-forget side effect that never blocks or fails the mutation path.
func (s *Store) persistAsync(convs []*chat.Conversation) {
	if s.persister == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.persister.Save(ctx, convs); err != nil {
			s.logger.Error("snapshot save failed", "error", err)
		}
	}()
}

// republish pushes the current state without persisting. Used for changes
// that do not touch the durable conversation collection, like preview expiry.
func (s *Store) republish() {
	s.mu.Lock()
	s.commitLocked()
	s.mu.Unlock()
}
