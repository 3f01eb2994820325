// ABOUTME: Lazy, restartable filtered views over the conversation collection
// ABOUTME: Matches on status and case-insensitive display-name substring

package store

import (
	"iter"
	"strings"

	"github.com/hearthside/parley/internal/chat"
)

// Query narrows the conversation collection. Zero values match everything.
type Query struct {
	Status chat.Status // exact status match when non-empty
	Search string      // case-insensitive display-name substring
}

// Matches reports whether the conversation satisfies the query.
func (q Query) Matches(c *chat.Conversation) bool {
	if q.Status != "" && c.Status != q.Status {
		return false
	}
	if q.Search != "" &&
		!strings.Contains(strings.ToLower(c.DisplayName), strings.ToLower(q.Search)) {
		return false
	}
	return true
}

// Filter returns a lazy, restartable view of conversations matching q, in
// inbox order. Each restart of the iteration observes a fresh snapshot; the
// view never mutates store state.
func (s *Store) Filter(q Query) iter.Seq[*chat.Conversation] {
	return func(yield func(*chat.Conversation) bool) {
		s.mu.Lock()
		convs := chat.CloneAll(s.conversations)
		s.mu.Unlock()

		for _, c := range convs {
			if !q.Matches(c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}
