// ABOUTME: SQLite-backed snapshot store for the conversation collection using modernc.org/sqlite
// ABOUTME: Single keyed JSON blob, write-through on every commit, seed fallback on absence or corruption

package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hearthside/parley/internal/chat"
)

// ErrNoSnapshot is returned by Load when no usable snapshot exists. Corrupt
// data is treated as absence, never as a fatal error.
var ErrNoSnapshot = errors.New("no snapshot")

// snapshotKey is the single key under which the collection is stored.
const snapshotKey = "conversations"

// SnapshotStore persists the full conversation collection as one keyed JSON
// blob. The schema is intentionally flat and forward-compatible: unknown
// fields in a stored blob are ignored on load.
type SnapshotStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSnapshotStore opens (or creates) the snapshot database at the given
// path. Parent directories are created if needed.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	logger := slog.Default().With("component", "persist")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("snapshot store initialized", "path", path)
	return &SnapshotStore{db: db, logger: logger}, nil
}

// Save serializes and stores the entire collection. Callers treat failure as
// "persistence lagged": it is logged upstream and never interrupts a commit.
func (s *SnapshotStore) Save(ctx context.Context, convs []*chat.Conversation) error {
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snapshotKey, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Load deserializes the stored collection. Returns ErrNoSnapshot when
// nothing was ever saved or the stored blob does not decode.
func (s *SnapshotStore) Load(ctx context.Context) ([]*chat.Conversation, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM snapshots WHERE key = ?", snapshotKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var convs []*chat.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		s.logger.Warn("snapshot corrupt, treating as absent", "error", err)
		return nil, ErrNoSnapshot
	}
	s.sanitize(convs)
	return convs, nil
}

// sanitize repairs derived fields in a stored collection. A hand-edited or
// foreign blob may decode cleanly yet carry an unread count larger than the
// message log or a stale last-message preview; both are rebuilt rather than
// trusted.
func (s *SnapshotStore) sanitize(convs []*chat.Conversation) {
	now := time.Now()
	for _, c := range convs {
		if c.UnreadCount < 0 || c.UnreadCount > len(c.Messages) {
			s.logger.Warn("stored unread count out of range, clamping",
				"conversation_id", c.ID,
				"unread_count", c.UnreadCount,
				"messages", len(c.Messages))
			c.UnreadCount = min(max(c.UnreadCount, 0), len(c.Messages))
		}
		if last := c.LastMessage(); last != nil {
			c.LastMessagePreview = chat.Preview{
				Body:      last.Body,
				TimeLabel: chat.FormatRelativeAge(last.CreatedAt, now),
			}
		} else {
			c.LastMessagePreview = chat.Preview{}
		}
	}
}

// LoadOrSeed returns the stored collection, falling back to the fixed seed
// dataset when no usable snapshot exists.
func (s *SnapshotStore) LoadOrSeed(ctx context.Context) []*chat.Conversation {
	convs, err := s.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			s.logger.Warn("snapshot load failed, using seed data", "error", err)
		}
		return SeedConversations()
	}
	if len(convs) == 0 {
		return SeedConversations()
	}
	return convs
}

// Close releases the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
