package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a sqlite table of stored trials for quick filtering.
type Index struct {
	db *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trials (
			id TEXT PRIMARY KEY,
			trial_type TEXT NOT NULL,
			idx INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			object TEXT NOT NULL,
			container TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL,
			early_stop INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			active_frames TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS trials_by_type ON trials(trial_type, recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (x *Index) Insert(ctx context.Context, meta TrialMetadata) error {
	active, err := json.Marshal(meta.ActiveFrames)
	if err != nil {
		return err
	}
	_, err = x.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO trials
			(id, trial_type, idx, recorded_at, seed, object, container, target, success, early_stop, frames, active_frames)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Kind, meta.Index, meta.Timestamp.UTC().Format(time.RFC3339Nano), meta.Seed,
		meta.Names["object"], meta.Names["container"], meta.Names["target"],
		boolInt(meta.Success), boolInt(meta.EarlyStop), meta.Frames, string(active),
	)
	if err != nil {
		return fmt.Errorf("index trial %s: %w", meta.ID, err)
	}
	return nil
}

// Query filters trials. Zero values match everything.
type Query struct {
	Kind        string
	SuccessOnly bool
	Limit       int
}

func (x *Index) List(ctx context.Context, q Query) ([]TrialMetadata, error) {
	stmt := `SELECT id, trial_type, idx, recorded_at, seed, object, container, target, success, early_stop, frames, active_frames
		FROM trials WHERE (? = '' OR trial_type = ?) AND (? = 0 OR success = 1)
		ORDER BY recorded_at, idx`
	args := []any{q.Kind, q.Kind, boolInt(q.SuccessOnly)}
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := x.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrialMetadata
	for rows.Next() {
		var (
			m                         TrialMetadata
			recorded, active          string
			object, container, target string
		)
		if err := rows.Scan(&m.ID, &m.Kind, &m.Index, &recorded, &m.Seed, &object, &container, &target,
			&m.Success, &m.EarlyStop, &m.Frames, &active); err != nil {
			return nil, err
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, recorded)
		m.Names = map[string]string{"object": object, "container": container}
		if target != "" {
			m.Names["target"] = target
		}
		if err := json.Unmarshal([]byte(active), &m.ActiveFrames); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (x *Index) Close() error { return x.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
