// Package store implements the conversation and messaging state engine.
//
// # Overview
//
// The Store is the single source of truth for every Conversation and Message.
// The presentation layer (operator console, visitor widget) dispatches
// mutation intents into it and reads immutable snapshots back out; it never
// mutates state directly.
//
// # Intents
//
//   - Select(id): mark a conversation active and clear its unread count
//   - Append(id, body, sender): commit a message, refresh the preview cache,
//     bump the unread count for non-selected visitor messages
//   - SendWidgetMessage(body): resolve-or-create the widget conversation and
//     append a visitor message
//   - SetStatus(id, status): unconditional open/pending/resolved transitions
//   - SetWidgetOpen(open), DismissPreviews(): widget surface state
//
// # Consistency
//
// A single mutex serializes all mutations, so a conversation's message log is
// strictly append-ordered regardless of how delivery timers interleave. After
// every commit the invariants hold: unread count never exceeds the log length
// and the last-message preview always reflects the newest message.
//
// # Notifications
//
// Subscribe(ctx) yields a channel of Snapshot values pushed after every
// commit; Snapshot() pulls the current state. Snapshots are deep copies.
//
// # Persistence
//
// When constructed with a Persister, every commit writes the full collection
// through as a fire-and-forget side effect. Persistence failures are logged
// and swallowed; the in-memory commit is never rolled back.
package store
