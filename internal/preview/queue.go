// ABOUTME: Transient notification preview queue shown while the widget is collapsed
// ABOUTME: Capacity-bounded FIFO with independent auto-expiry timers per enqueue

package preview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hearthside/parley/internal/chat"
)

const (
	// DefaultTTL is how long a preview stays visible without a dismissal.
	DefaultTTL = 5 * time.Second

	// DefaultCapacity bounds the queue; the oldest item is evicted first.
	DefaultCapacity = 2
)

// Item wraps an incoming operator message with its display-expiry deadline.
type Item struct {
	Message   *chat.Message `json:"message"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Queue holds the transient previews surfaced while the widget UI is
// collapsed. Previews never touch the durable conversation log. Each enqueue
// arms its own expiry timer; timers are independent and whichever fires first
// empties the whole queue. Clearing is idempotent.
type Queue struct {
	mu       sync.Mutex
	items    []*Item
	ttl      time.Duration
	capacity int
	timers   map[*time.Timer]struct{}
	onChange func()
	closed   bool
	logger   *slog.Logger
}

// New creates a queue. Pass zero values for ttl/capacity to use the defaults,
// and nil logger for slog.Default.
func New(ttl time.Duration, capacity int, logger *slog.Logger) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		ttl:      ttl,
		capacity: capacity,
		timers:   make(map[*time.Timer]struct{}),
		logger:   logger.With("component", "preview"),
	}
}

// SetOnChange registers a callback invoked after the queue empties itself
// through timer expiry. Used by the store to republish its snapshot.
func (q *Queue) SetOnChange(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onChange = fn
}

// Enqueue adds a preview for an operator message. Visitor messages are
// rejected: the visitor already saw their own message. Returns whether the
// message was accepted. At capacity the oldest item is evicted first.
func (q *Queue) Enqueue(msg *chat.Message) bool {
	if msg == nil || msg.Sender != chat.SenderOperator {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, &Item{
		Message:   msg,
		ExpiresAt: time.Now().Add(q.ttl),
	})

	// Each enqueue arms its own timer; an earlier in-flight timer is not
	// reset. Whichever fires first clears the queue.
	var t *time.Timer
	t = time.AfterFunc(q.ttl, func() {
		q.expire(t)
	})
	q.timers[t] = struct{}{}

	q.logger.Debug("preview enqueued",
		"message_id", msg.ID,
		"queue_len", len(q.items))
	return true
}

// Dismiss clears the queue immediately (explicit user action). Outstanding
// timers are released too, so a preview enqueued right after a dismissal gets
// its full display window instead of being wiped by a stale timer.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	q.items = nil
	for t := range q.timers {
		t.Stop()
		delete(q.timers, t)
	}
	q.mu.Unlock()
}

// Items returns the current previews in arrival order.
func (q *Queue) Items() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Item, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued previews.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// expire is the timer callback: empties the queue if anything is still
// showing and notifies the onChange observer.
func (q *Queue) expire(t *time.Timer) {
	q.mu.Lock()
	delete(q.timers, t)
	if q.closed {
		q.mu.Unlock()
		return
	}
	changed := len(q.items) > 0
	q.items = nil
	fn := q.onChange
	q.mu.Unlock()

	if changed {
		q.logger.Debug("previews expired")
		if fn != nil {
			fn()
		}
	}
}

// Close stops all outstanding timers and drops any queued previews.
// Safe to call multiple times.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	for t := range q.timers {
		t.Stop()
		delete(q.timers, t)
	}
}
