// Package journal records every mutation step issued against Taskwarrior.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskbridge/internal/mutate"

	_ "modernc.org/sqlite"
)

const DefaultListLimit = 50

type Entry struct {
	ID        string         `json:"id"`
	At        time.Time      `json:"at"`
	Operation string         `json:"operation"`
	TaskUUID  string         `json:"taskUuid,omitempty"`
	TaskRef   string         `json:"taskRef"`
	Index     int            `json:"index"`
	Intent    mutate.Intent  `json:"intent"`
	Outcome   mutate.Outcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
}

type ListOptions struct {
	Limit    int
	TaskUUID string
}

type Journal interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	Close() error
}

// Store is a SQLite-backed Journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite registers as "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			entry_id TEXT PRIMARY KEY,
			at_unixms INTEGER NOT NULL,
			operation TEXT NOT NULL,
			task_uuid TEXT NOT NULL,
			task_ref TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			intent_json TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_at ON entries(at_unixms);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_task ON entries(task_uuid, at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("journal migrate: %w", err)
		}
	}
	return nil
}

// Append stores e, filling in ID and At when missing.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	e.TaskUUID = strings.ToLower(strings.TrimSpace(e.TaskUUID))
	intent, err := json.Marshal(e.Intent)
	if err != nil {
		return err
	}
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries(entry_id, at_unixms, operation, task_uuid, task_ref, step_index, intent_json, outcome, error)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UnixMilli(), e.Operation, e.TaskUUID, e.TaskRef, e.Index, string(intent), string(e.Outcome), errText,
	)
	return err
}

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := `SELECT entry_id, at_unixms, operation, task_uuid, task_ref, step_index, intent_json, outcome, error FROM entries`
	var args []any
	if u := strings.TrimSpace(opts.TaskUUID); u != "" {
		q += ` WHERE task_uuid = ?`
		args = append(args, strings.ToLower(u))
	}
	q += ` ORDER BY at_unixms DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			atMS    int64
			intent  string
			outcome string
			errText sql.NullString
		)
		if err := rows.Scan(&e.ID, &atMS, &e.Operation, &e.TaskUUID, &e.TaskRef, &e.Index, &intent, &outcome, &errText); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(intent), &e.Intent); err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", e.ID, err)
		}
		e.At = time.UnixMilli(atMS).UTC()
		e.Outcome = mutate.Outcome(outcome)
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type nop struct{}

// Nop discards entries and lists nothing.
func Nop() Journal { return nop{} }

func (nop) Append(context.Context, Entry) error                  { return nil }
func (nop) List(context.Context, ListOptions) ([]Entry, error) { return []Entry{}, nil }
func (nop) Close() error                                         { return nil }
