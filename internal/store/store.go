package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
)

const schema = `
	CREATE TABLE IF NOT EXISTS rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chunkId TEXT NOT NULL,
		sessionId TEXT NOT NULL,
		engine TEXT NOT NULL,
		speech TEXT NOT NULL,
		concepts TEXT NOT NULL,
		definitions TEXT NOT NULL,
		suggestion TEXT NOT NULL,
		support TEXT NOT NULL,
		ambiguous INTEGER NOT NULL DEFAULT 0,
		hesitant INTEGER NOT NULL DEFAULT 0,
		completedAt INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rows_session ON rows(sessionId, completedAt);
`

// Store keeps rows in a SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers and keeps an in-memory database alive
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends a row
func (s *Store) Insert(ctx context.Context, row sequencer.Row) error {
	completedAt := row.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rows (chunkId, sessionId, engine, speech, concepts, definitions,
			suggestion, support, ambiguous, hesitant, completedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ChunkID, row.SessionID, row.Engine, row.Speech, row.Concepts, row.Definitions,
		row.Suggestion, row.Support, boolToInt(row.Ambiguous), boolToInt(row.Hesitant),
		completedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first. A sessionID narrows the
// result to one session.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]sequencer.Row, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT chunkId, sessionId, engine, speech, concepts, definitions,
			suggestion, support, ambiguous, hesitant, completedAt
		FROM rows`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE sessionId = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY completedAt DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var result []sequencer.Row
	for rows.Next() {
		var r sequencer.Row
		var ambiguous, hesitant int
		var completedAt int64
		if err := rows.Scan(&r.ChunkID, &r.SessionID, &r.Engine, &r.Speech, &r.Concepts,
			&r.Definitions, &r.Suggestion, &r.Support, &ambiguous, &hesitant, &completedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Ambiguous = ambiguous != 0
		r.Hesitant = hesitant != 0
		r.CompletedAt = time.Unix(0, completedAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the number of stored rows
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
