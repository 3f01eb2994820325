// ABOUTME: Tests for the SQLite snapshot store
// ABOUTME: Covers round-trip, upsert, corrupt-blob fallback, and the seed dataset

package persist

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthside/parley/internal/chat"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "parley.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleConversations() []*chat.Conversation {
	return []*chat.Conversation{
		{
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
					CreatedAt:      time.Now().Add(-time.Minute).UnixMilli(),
				},
				{
					ID:             "1-2",
					ConversationID: "1",
					Body:           "Is anyone there?",
					Sender:         chat.SenderVisitor,
					CreatedAt:      time.Now().UnixMilli(),
				},
			},
		},
		{
			ID:          "2",
			DisplayName: "Jane Roe",
			Status:      chat.StatusPending,
		},
	}
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	want := sampleConversations()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 2, got[0].UnreadCount)
	assert.Equal(t, chat.StatusOpen, got[0].Status)
	require.Len(t, got[0].Messages, 2)
	assert.Equal(t, "Hello, I need help with my account", got[0].Messages[0].Body)
	assert.Equal(t, chat.SenderVisitor, got[0].Messages[0].Sender)
	assert.Equal(t, "Jane Roe", got[1].DisplayName)
}

func TestSnapshotStore_SaveOverwritesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Save(ctx, sampleConversations()))
	require.NoError(t, s.Save(ctx, sampleConversations()[:1]))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "the snapshot is a single keyed blob, not an append log")
}

func TestSnapshotStore_LoadWithoutSaveReturnsErrNoSnapshot(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(t.Context())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStore_CorruptBlobTreatedAsAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)`,
		snapshotKey, []byte("not json{{"), time.Now().UTC())
	require.NoError(t, err)

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStore_LoadOrSeedFallsBackToSeed(t *testing.T) {
	s := newTestStore(t)

	got := s.LoadOrSeed(t.Context())
	require.Len(t, got, 3, "seed dataset is used when nothing was saved")
	assert.Equal(t, "1", got[0].ID)
}

func TestSnapshotStore_LoadOrSeedPrefersStoredSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Save(ctx, sampleConversations()))

	got := s.LoadOrSeed(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "Jane Roe", got[1].DisplayName)
}

func TestSnapshotStore_LoadOrSeedOnEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Save(ctx, nil))

	got := s.LoadOrSeed(ctx)
	assert.Len(t, got, 3, "an empty stored collection falls back to seed data")
}

func TestSnapshotStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.db")

	first, err := NewSnapshotStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(t.Context(), sampleConversations()))
	require.NoError(t, first.Close())

	second, err := NewSnapshotStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Load(t.Context())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSnapshotStore_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "parley.db")

	s, err := NewSnapshotStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(t.Context(), sampleConversations()))
}

func TestSeedConversations_Shape(t *testing.T) {
	convs := SeedConversations()
	require.Len(t, convs, 3)

	assert.Equal(t, chat.StatusOpen, convs[0].Status)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Len(t, convs[0].Messages, 4)

	assert.Equal(t, chat.StatusResolved, convs[1].Status)
	assert.Zero(t, convs[1].UnreadCount)

	assert.Equal(t, chat.StatusPending, convs[2].Status)
	assert.Equal(t, 1, convs[2].UnreadCount)

	for _, c := range convs {
		assert.NotEmpty(t, c.LastMessagePreview.Body)
		assert.NotEmpty(t, c.LastMessagePreview.TimeLabel)
		assert.False(t, c.WidgetOrigin)
	}
}

func TestSnapshotStore_LoadRepairsForeignBlob(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	// A hand-edited blob that decodes fine but violates the unread and
	// preview consistency rules.
	blob := fmt.Sprintf(`[
		{"id":"1","display_name":"John Doe","status":"open","unread_count":9,
		 "last_message_preview":{"body":"stale","time_label":"há 99 minutos"},
		 "messages":[{"id":"1-1","conversation_id":"1","body":"Hello","sender":"visitor","created_at":%d}]},
		{"id":"2","display_name":"Jane Roe","status":"pending","unread_count":-3,
		 "last_message_preview":{"body":"ghost","time_label":"agora"},
		 "messages":[]}
	]`, time.Now().UnixMilli())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)`,
		snapshotKey, []byte(blob), time.Now().UTC())
	require.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].UnreadCount, "unread clamps to the message count")
	assert.Equal(t, "Hello", got[0].LastMessagePreview.Body, "preview rebuilt from the log")
	assert.Equal(t, "agora", got[0].LastMessagePreview.TimeLabel)

	assert.Zero(t, got[1].UnreadCount, "negative unread clamps to zero")
	assert.Empty(t, got[1].LastMessagePreview.Body, "no messages, no preview")
}
