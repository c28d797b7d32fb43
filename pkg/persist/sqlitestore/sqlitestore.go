// Package sqlitestore is a persist.Store backed by modernc.org/sqlite (pure
// Go, no cgo), grounded on the teacher pack's own SQLite-backed state store
// (voocel-mas's checkpoint/store/sqlite.go) for schema/pragma/prepared-
// statement style, generalized from a single checkpoints blob table to the
// session-metadata + ordered-messages shape pkg/persist.Store requires.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cexll/agentsdk-core/pkg/message"
	"github.com/cexll/agentsdk-core/pkg/persist"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	agent_type TEXT NOT NULL,
	title TEXT,
	state TEXT NOT NULL,
	usage_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	data BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);
`

// Config controls the on-disk database file and connection pool, mirroring
// the teacher's own SQLiteConfig knobs (WAL mode, busy timeout) scaled down
// to what this store's access pattern (one process, low write concurrency)
// actually needs.
type Config struct {
	Path            string
	WALMode         bool
	BusyTimeoutMS   int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig mirrors the teacher's DefaultSQLiteConfig defaults that
// still apply to a single-writer embedded store.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		WALMode:         true,
		BusyTimeoutMS:   5000,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
	}
}

// Store implements persist.Store over a modernc.org/sqlite database.
type Store struct {
	db *sql.DB
}

var _ persist.Store = (*Store)(nil)

// Open creates (or reuses) the database at cfg.Path and ensures the schema
// exists.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitestore: path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlitestore: mkdir %s: %w", dir, err)
		}
	}

	dsn := cfg.Path
	if cfg.WALMode {
		dsn += "?_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", cfg.Path, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cfg.BusyTimeoutMS > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeoutMS)); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: set busy_timeout: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveMetadata implements persist.Store.
func (s *Store) SaveMetadata(meta persist.Metadata) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	usageJSON, err := json.Marshal(meta.Usage)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode usage: %w", err)
	}

	created := meta.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := meta.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, parent_id, agent_type, title, state, usage_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?,
			COALESCE((SELECT created_at FROM sessions WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id=excluded.parent_id,
			agent_type=excluded.agent_type,
			title=excluded.title,
			state=excluded.state,
			usage_json=excluded.usage_json,
			updated_at=excluded.updated_at
	`, meta.ID, meta.ParentID, meta.AgentType, meta.Title, meta.State, string(usageJSON),
		meta.ID, created.Unix(), updated.Unix())
	if err != nil {
		return fmt.Errorf("sqlitestore: save metadata %s: %w", meta.ID, err)
	}
	return nil
}

// LoadMetadata implements persist.Store.
func (s *Store) LoadMetadata(sessionID string) (persist.Metadata, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		meta                     persist.Metadata
		parentID, title          sql.NullString
		usageJSON                string
		createdAt, updatedAtUnix int64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_id, agent_type, title, state, usage_json, created_at, updated_at
		FROM sessions WHERE id = ?`, sessionID)
	if err := row.Scan(&meta.ID, &parentID, &meta.AgentType, &title, &meta.State, &usageJSON, &createdAt, &updatedAtUnix); err != nil {
		if err == sql.ErrNoRows {
			return persist.Metadata{}, fmt.Errorf("sqlitestore: no metadata for session %q", sessionID)
		}
		return persist.Metadata{}, fmt.Errorf("sqlitestore: load metadata %s: %w", sessionID, err)
	}

	meta.ParentID = parentID.String
	meta.Title = title.String
	meta.CreatedAt = time.Unix(createdAt, 0).UTC()
	meta.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	if err := json.Unmarshal([]byte(usageJSON), &meta.Usage); err != nil {
		return persist.Metadata{}, fmt.Errorf("sqlitestore: decode usage: %w", err)
	}
	return meta, nil
}

// AppendMessage implements persist.Store.
func (s *Store) AppendMessage(sessionID string, msg *message.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("sqlitestore: encode message %s: %w", msg.ID, err)
	}

	var nextSeq int64
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, sessionID)
	if err := row.Scan(&nextSeq); err != nil {
		return fmt.Errorf("sqlitestore: next seq for %s: %w", sessionID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, message_id, seq, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, msg.ID, nextSeq, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlitestore: append message %s/%s: %w", sessionID, msg.ID, err)
	}
	return nil
}

// UpdateMessage implements persist.Store.
func (s *Store) UpdateMessage(sessionID string, msg *message.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("sqlitestore: encode message %s: %w", msg.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET data = ?, updated_at = ? WHERE session_id = ? AND message_id = ?
	`, data, time.Now().Unix(), sessionID, msg.ID)
	if err != nil {
		return fmt.Errorf("sqlitestore: update message %s/%s: %w", sessionID, msg.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.AppendMessage(sessionID, msg)
	}
	return nil
}

// LoadMessages implements persist.Store.
func (s *Store) LoadMessages(sessionID string) ([]*message.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM messages WHERE session_id = ? ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load messages %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []*message.Message
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan message: %w", err)
		}
		m, err := message.FromJSON(data)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: rows: %w", err)
	}
	return out, nil
}
