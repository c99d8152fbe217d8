// Package source fetches the newest document from a remote folder.
//
// A Folder is anything that can list entries with modification times and read
// one entry's bytes: a Google Drive folder, a GCS or S3 prefix, or a local
// directory. FetchLatest applies the same selection rule to all of them.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalogsync/internal/config"
	"catalogsync/internal/logging"
)

var (
	// ErrNotFound is returned when a folder has no usable entry.
	ErrNotFound = errors.New("no document found in folder")

	// ErrCredentials is returned when credential material is missing or
	// unreadable. It is a configuration error and never retried.
	ErrCredentials = errors.New("source credentials unavailable")
)

// Entry is one file in a folder listing.
type Entry struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time
	Trashed      bool
}

// Document is a fetched entry with its content.
type Document struct {
	Entry
	Data []byte
}

// Folder lists and reads documents.
type Folder interface {
	Name() string
	List(ctx context.Context) ([]Entry, error)
	Read(ctx context.Context, e Entry) ([]byte, error)
}

// Latest picks the most recently modified non-trashed entry. Among entries
// with the same time the first one listed wins.
func Latest(entries []Entry) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, e := range entries {
		if e.Trashed {
			continue
		}
		if !found || e.ModifiedTime.After(best.ModifiedTime) {
			best = e
			found = true
		}
	}
	return best, found
}

// FetchLatest downloads the newest document in f.
func FetchLatest(ctx context.Context, f Folder) (*Document, error) {
	timer := logging.StartTimer(logging.CategorySource, "fetch latest from "+f.Name())
	defer timer.Stop()

	entries, err := f.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.Name(), err)
	}
	logging.SourceDebug("%s: %d entries listed", f.Name(), len(entries))

	entry, ok := Latest(entries)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, f.Name())
	}

	data, err := f.Read(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", entry.Name, f.Name(), err)
	}
	logging.Source("fetched %s (%d bytes, modified %s)", entry.Name, len(data), entry.ModifiedTime.Format(time.RFC3339))
	return &Document{Entry: entry, Data: data}, nil
}

// Open builds the folder described by cfg. Credentials come from
// CredentialsFor unless the caller passes its own provider.
func Open(ctx context.Context, cfg config.SourceConfig, creds CredentialProvider) (Folder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if creds == nil {
		creds = CredentialsFor(cfg)
	}

	switch strings.ToLower(cfg.Kind) {
	case config.SourceDrive:
		return NewDriveFolder(ctx, cfg.FolderID, creds)
	case config.SourceGCS:
		return NewGCSFolder(ctx, cfg.Bucket, cfg.Prefix, creds)
	case config.SourceS3:
		return NewS3Folder(ctx, S3FolderConfig{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	case config.SourceLocal:
		return NewLocalFolder(cfg.LocalDir), nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", config.ErrInvalid, cfg.Kind)
	}
}
