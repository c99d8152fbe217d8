// Package evidence writes the artifacts an operator inspects after a run:
// the fetched document, one snapshot per failed item and an optional sqlite
// journal indexing both.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"catalogsync/internal/logging"
	"catalogsync/internal/sheet"
)

const journalFile = "journal.db"

var unsafeChars = regexp.MustCompile(`(?i)[^a-z0-9]+`)

// Sanitize turns a display name into a file name fragment. Every run of
// characters outside [A-Za-z0-9] becomes a single underscore.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Recorder writes evidence for one run.
type Recorder struct {
	dir     string
	runID   string
	journal *Journal
}

// NewRecorder creates dir if needed. With journal set, records are also
// appended to <dir>/journal.db.
func NewRecorder(dir string, journal bool) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create evidence dir: %w", err)
	}
	r := &Recorder{dir: dir, runID: uuid.NewString()}
	if journal {
		j, err := OpenJournal(filepath.Join(dir, journalFile))
		if err != nil {
			return nil, err
		}
		r.journal = j
	}
	logging.Evidence("evidence for run %s in %s", r.runID, dir)
	return r, nil
}

// RunID identifies this run in the journal.
func (r *Recorder) RunID() string { return r.runID }

// Dir returns the evidence directory.
func (r *Recorder) Dir() string { return r.dir }

// WriteDocument stores the fetched document as last.<ext>, replacing the
// previous copy.
func (r *Recorder) WriteDocument(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(r.dir, "last."+string(sheet.DetectFormat(name, data)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write document copy: %w", err)
	}
	logging.Evidence("saved %s as %s", name, path)
	r.record(ctx, Record{Kind: KindDocument, Subject: name, Path: path})
	return path, nil
}

// WriteSnapshot stores a failed item's screenshot as err-<sanitized>.png.
// A nil png still journals the failure.
func (r *Recorder) WriteSnapshot(ctx context.Context, displayName string, png []byte, cause error) (string, error) {
	rec := Record{Kind: KindFailure, Subject: displayName}
	if cause != nil {
		rec.Detail = cause.Error()
	}
	var path string
	if len(png) > 0 {
		path = filepath.Join(r.dir, "err-"+Sanitize(displayName)+".png")
		if err := os.WriteFile(path, png, 0o644); err != nil {
			r.record(ctx, rec)
			return "", fmt.Errorf("write snapshot: %w", err)
		}
		rec.Path = path
		logging.Evidence("snapshot for %q at %s", displayName, path)
	}
	r.record(ctx, rec)
	return path, nil
}

func (r *Recorder) record(ctx context.Context, rec Record) {
	if r.journal == nil {
		return
	}
	rec.RunID = r.runID
	if err := r.journal.Append(ctx, rec); err != nil {
		logging.EvidenceWarn("journal append failed: %v", err)
	}
}

// Journal returns the run journal, or nil when disabled.
func (r *Recorder) Journal() *Journal { return r.journal }

// Close closes the journal.
func (r *Recorder) Close() error {
	if r.journal == nil {
		return nil
	}
	return r.journal.Close()
}
