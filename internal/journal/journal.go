// Package journal persists a record of every expansion attempt to a
// local SQLite database. Records carry the trigger, the snippet name,
// and the length of the produced text; the expanded text itself is
// never stored.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"expandd/internal/engine"
)

// Schema for the expansion journal.
const schema = `
CREATE TABLE IF NOT EXISTS expansions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ns  INTEGER NOT NULL,
    snippet_name  TEXT NOT NULL,
    trigger_text  TEXT NOT NULL,
    delete_count  INTEGER NOT NULL,
    text_len      INTEGER NOT NULL,
    pasted        INTEGER NOT NULL,
    error         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_expansions_timestamp ON expansions(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_expansions_trigger ON expansions(trigger_text, timestamp_ns);
`

// Journal is the SQLite-backed expansion journal.
type Journal struct {
	db *sql.DB
}

// Entry is one journalled expansion attempt.
type Entry struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	SnippetName string    `json:"snippet_name"`
	Trigger     string    `json:"trigger"`
	DeleteCount int       `json:"delete_count"`
	TextLen     int       `json:"text_len"`
	Pasted      bool      `json:"pasted"`
	Err         string    `json:"error,omitempty"`
}

// Stats summarizes the journal contents.
type Stats struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
	Pasted int64 `json:"pasted"`
}

// Open opens or creates the journal database at the given path and
// applies the schema. busyTimeout guards against a reader (CLI history
// commands open the same file) holding the write lock.
func Open(path string, busyTimeout time.Duration) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Ping checks the database connection, for health reporting.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends one expansion attempt. Implements the engine's
// journal contract.
func (j *Journal) Record(ctx context.Context, rec engine.Record) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO expansions (timestamp_ns, snippet_name, trigger_text, delete_count, text_len, pasted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixNano(), rec.SnippetName, rec.Trigger, rec.DeleteCount, rec.TextLen, boolInt(rec.Pasted), rec.Err,
	)
	if err != nil {
		return fmt.Errorf("insert expansion: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, timestamp_ns, snippet_name, trigger_text, delete_count, text_len, pasted, error
		FROM expansions
		ORDER BY timestamp_ns DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent expansions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Range returns entries within a time window, oldest first.
func (j *Journal) Range(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, timestamp_ns, snippet_name, trigger_text, delete_count, text_len, pasted, error
		FROM expansions
		WHERE timestamp_ns >= ? AND timestamp_ns <= ?
		ORDER BY timestamp_ns ASC`, from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query expansion range: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByTrigger returns the newest entries for one trigger.
func (j *Journal) ByTrigger(ctx context.Context, trigger string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, timestamp_ns, snippet_name, trigger_text, delete_count, text_len, pasted, error
		FROM expansions
		WHERE trigger_text = ?
		ORDER BY timestamp_ns DESC
		LIMIT ?`, trigger, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query expansions by trigger: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Stats returns aggregate counts over the whole journal.
func (j *Journal) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN error != '' THEN 1 END),
			COUNT(CASE WHEN pasted = 1 THEN 1 END)
		FROM expansions`,
	).Scan(&s.Total, &s.Failed, &s.Pasted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Stats{}, nil
		}
		return nil, fmt.Errorf("query journal stats: %w", err)
	}
	return &s, nil
}

// Purge deletes entries older than the cutoff and returns how many
// rows were removed. A zero retention disables purging.
func (j *Journal) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).UnixNano()

	result, err := j.db.ExecContext(ctx,
		`DELETE FROM expansions WHERE timestamp_ns < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expansions: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return removed, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry

	for rows.Next() {
		var e Entry
		var ns int64
		var pasted int
		if err := rows.Scan(&e.ID, &ns, &e.SnippetName, &e.Trigger, &e.DeleteCount, &e.TextLen, &pasted, &e.Err); err != nil {
			return nil, fmt.Errorf("scan expansion: %w", err)
		}
		e.Timestamp = time.Unix(0, ns).UTC()
		e.Pasted = pasted != 0
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expansions: %w", err)
	}
	return entries, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
