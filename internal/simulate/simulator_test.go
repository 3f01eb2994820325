// ABOUTME: Tests for the delivery simulator
// ABOUTME: Covers counterpart selection, cancellation, teardown guarantees, and ambient traffic

package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside/parley/internal/chat"
	"github.com/hearthside/parley/internal/store"
)

func newEngine(t *testing.T) *store.Store {
	t.Helper()
	s := store.New([]*chat.Conversation{
		{ID: "1", DisplayName: "John Doe", Status: chat.StatusOpen},
	}, nil, nil, nil)
	t.Cleanup(s.Close)
	return s
}

func TestSimulator_ReplyFiresWithCounterpartSender(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	_, err := eng.Append("1", "Hello", chat.SenderVisitor)
	require.NoError(t, err)

	handle := sim.ScheduleCounterpartReply("1", 20*time.Millisecond)
	require.NotEmpty(t, handle)

	require.Eventually(t, func() bool {
		conv, _ := eng.Conversation("1")
		return len(conv.Messages) == 2
	}, time.Second, 10*time.Millisecond)

	conv, _ := eng.Conversation("1")
	last := conv.LastMessage()
	assert.Equal(t, chat.SenderOperator, last.Sender, "reply comes from the counterpart of the last sender")
	assert.NotEmpty(t, last.Body)
}

func TestSimulator_ReplyToEmptyLogComesFromOperator(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	sim.ScheduleCounterpartReply("1", 10*time.Millisecond)

	require.Eventually(t, func() bool {
		conv, _ := eng.Conversation("1")
		return len(conv.Messages) == 1
	}, time.Second, 10*time.Millisecond)

	conv, _ := eng.Conversation("1")
	assert.Equal(t, chat.SenderOperator, conv.LastMessage().Sender)
}

func TestSimulator_CancelPreventsReply(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	handle := sim.ScheduleCounterpartReply("1", 50*time.Millisecond)
	assert.True(t, sim.Cancel(handle))

	time.Sleep(120 * time.Millisecond)
	conv, _ := eng.Conversation("1")
	assert.Empty(t, conv.Messages, "cancelled reply must not fire")

	assert.False(t, sim.Cancel(handle), "second cancel reports nothing pending")
}

func TestSimulator_CloseCancelsOutstandingTimers(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)

	sim.ScheduleCounterpartReply("1", 30*time.Millisecond)
	sim.ScheduleCounterpartReply("1", 40*time.Millisecond)
	sim.Close()

	time.Sleep(100 * time.Millisecond)
	conv, _ := eng.Conversation("1")
	assert.Empty(t, conv.Messages, "no mutation may land after teardown")

	// Closed simulators refuse new work.
	assert.Empty(t, sim.ScheduleCounterpartReply("1", time.Millisecond))
	sim.Close() // idempotent
}

func TestSimulator_ReplyToUnknownConversationIsDropped(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	sim.ScheduleCounterpartReply("nope", 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	conv, _ := eng.Conversation("1")
	assert.Empty(t, conv.Messages)
}

func TestSimulator_AmbientTickerTargetsActiveConversation(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	eng.Select("1")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sim.RunAmbientTicker(ctx, 10*time.Millisecond, 1.0)
	}()

	require.Eventually(t, func() bool {
		conv, _ := eng.Conversation("1")
		return len(conv.Messages) >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	conv, _ := eng.Conversation("1")
	for _, m := range conv.Messages {
		assert.Equal(t, chat.SenderVisitor, m.Sender, "ambient traffic is inbound")
	}
}

func TestSimulator_AmbientTickerIdlesWithoutActiveConversation(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 80*time.Millisecond)
	defer cancel()
	sim.RunAmbientTicker(ctx, 10*time.Millisecond, 1.0)

	conv, _ := eng.Conversation("1")
	assert.Empty(t, conv.Messages, "nothing is injected before a conversation is selected")
}

func TestSimulator_AmbientTickerZeroProbabilityNeverFires(t *testing.T) {
	eng := newEngine(t)
	sim := New(eng, nil)
	defer sim.Close()

	eng.Select("1")

	ctx, cancel := context.WithTimeout(t.Context(), 80*time.Millisecond)
	defer cancel()
	sim.RunAmbientTicker(ctx, 10*time.Millisecond, 0)

	conv, _ := eng.Conversation("1")
	assert.Empty(t, conv.Messages)
}
