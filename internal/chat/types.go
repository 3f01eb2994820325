// ABOUTME: Core data types for conversations and messages
// ABOUTME: Defines Sender, Status, Message, Conversation and their validation rules

package chat

import (
	"errors"
	"time"
)

// ErrEmptyBody is returned when a message body is empty after trimming.
var ErrEmptyBody = errors.New("message body is empty")

// Sender identifies which party of a two-party conversation authored a message.
type Sender string

const (
	SenderVisitor  Sender = "visitor"
	SenderOperator Sender = "operator"
)

// Counterpart returns the other party of the conversation.
func (s Sender) Counterpart() Sender {
	if s == SenderVisitor {
		return SenderOperator
	}
	return SenderVisitor
}

// Valid reports whether s is a known sender value.
func (s Sender) Valid() bool {
	return s == SenderVisitor || s == SenderOperator
}

// Status is the lifecycle state of a conversation. All transitions are
// operator-initiated and unconditional; resolved conversations may reopen.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusResolved:
		return true
	}
	return false
}

// Message is one immutable chat turn. Once created it is never mutated or
// removed; a conversation's message log is append-only.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
	Sender         Sender `json:"sender"`
	CreatedAt      int64  `json:"created_at"` // epoch milliseconds
}

// Time returns the creation time as a time.Time.
func (m *Message) Time() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// Preview is the derived cache of a conversation's most recent message.
type Preview struct {
	Body      string `json:"body"`
	TimeLabel string `json:"time_label"`
}

// Conversation is an ordered message log plus inbox metadata. Instances are
// owned exclusively by the store; consumers only ever see deep copies.
type Conversation struct {
	ID                 string     `json:"id"`
	DisplayName        string     `json:"display_name"`
	Status             Status     `json:"status"`
	UnreadCount        int        `json:"unread_count"`
	WidgetOrigin       bool       `json:"widget_origin"`
	LastMessagePreview Preview    `json:"last_message_preview"`
	Messages           []*Message `json:"messages"`
}

// LastMessage returns the most recent message, or nil for an empty log.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Clone returns a deep copy. Messages are immutable, so the copy shares
// message pointers but never the backing slice.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]*Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// CloneAll deep-copies an ordered conversation collection.
func CloneAll(convs []*Conversation) []*Conversation {
	out := make([]*Conversation, len(convs))
	for i, c := range convs {
		out[i] = c.Clone()
	}
	return out
}
