package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record kinds.
const (
	KindDocument = "document"
	KindFailure  = "failure"
)

// Record is one journal row.
type Record struct {
	RunID     string
	Kind      string
	Subject   string // document name or item display name
	Path      string // artifact path, empty when none was written
	Detail    string
	CreatedAt time.Time
}

// Journal is an append-only sqlite index of evidence records.
type Journal struct {
	db   *sql.DB
	path string
}

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evidence (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		subject TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evidence_run ON evidence(run_id);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// Append inserts rec. A zero CreatedAt is set to now.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO evidence (run_id, kind, subject, path, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Kind, rec.Subject, rec.Path, rec.Detail, rec.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// ForRun returns the records of one run in insertion order.
func (j *Journal) ForRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, kind, subject, path, detail, created_at FROM evidence WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			created string
		)
		if err := rows.Scan(&rec.RunID, &rec.Kind, &rec.Subject, &rec.Path, &rec.Detail, &created); err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("journal record %s/%s: bad created_at %q: %w", rec.RunID, rec.Subject, created, err)
		}
		rec.CreatedAt = at
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
