// ABOUTME: Fixed seed dataset used when no snapshot exists or the stored one is corrupt
// ABOUTME: Three pre-seeded inbox conversations, the first with a short support exchange

package persist

import (
	"time"

	"github.com/hearthside/parley/internal/chat"
)

// SeedConversations returns the fixed startup dataset. Timestamps are
// rendered relative to the current clock so age labels stay meaningful.
func SeedConversations() []*chat.Conversation {
	now := time.Now()
	at := func(minutesAgo int) int64 {
		return now.Add(-time.Duration(minutesAgo) * time.Minute).UnixMilli()
	}

	first := &chat.Conversation{
		ID:          "1",
		DisplayName: "John Doe",
		Status:      chat.StatusOpen,
		UnreadCount: 2,
		Messages: []*chat.Message{
			{
				ID:             "1-1",
				ConversationID: "1",
				Body:           "Hello, I need help with my account",
				Sender:         chat.SenderVisitor,
				CreatedAt:      at(8),
			},
			{
				ID:             "1-2",
				ConversationID: "1",
				Body:           "Hi there! I'd be happy to help you with your account. What specific issue are you experiencing?",
				Sender:         chat.SenderOperator,
				CreatedAt:      at(7),
			},
			{
				ID:             "1-3",
				ConversationID: "1",
				Body:           "I can't seem to access my dashboard. It keeps showing an error message.",
				Sender:         chat.SenderVisitor,
				CreatedAt:      at(6),
			},
			{
				ID:             "1-4",
				ConversationID: "1",
				Body:           "I understand how frustrating that must be. Let me help you resolve this issue. Can you please tell me what error message you're seeing exactly?",
				Sender:         chat.SenderOperator,
				CreatedAt:      at(5),
			},
		},
	}

	second := &chat.Conversation{
		ID:          "2",
		DisplayName: "John Doe",
		Status:      chat.StatusResolved,
		Messages: []*chat.Message{
			{
				ID:             "2-1",
				ConversationID: "2",
				Body:           "Thank you for your assistance",
				Sender:         chat.SenderVisitor,
				CreatedAt:      at(75),
			},
		},
	}

	third := &chat.Conversation{
		ID:          "3",
		DisplayName: "John Doe",
		Status:      chat.StatusPending,
		UnreadCount: 1,
		Messages: []*chat.Message{
			{
				ID:             "3-1",
				ConversationID: "3",
				Body:           "Is there an update on my request?",
				Sender:         chat.SenderVisitor,
				CreatedAt:      at(105),
			},
		},
	}

	convs := []*chat.Conversation{first, second, third}
	for _, c := range convs {
		if last := c.LastMessage(); last != nil {
			c.LastMessagePreview = chat.Preview{
				Body:      last.Body,
				TimeLabel: chat.FormatRelativeAge(last.CreatedAt, now),
			}
		}
	}
	return convs
}
