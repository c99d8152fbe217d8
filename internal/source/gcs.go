package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSFolder lists objects directly under a bucket prefix.
type GCSFolder struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSFolder creates a GCS client. With no options it uses application
// default credentials.
func NewGCSFolder(ctx context.Context, bucket, prefix string, creds CredentialProvider) (*GCSFolder, error) {
	opts, err := creds.ClientOptions(ctx)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSFolder{client: client, bucket: bucket, prefix: dirPrefix(prefix)}, nil
}

// Name implements Folder.
func (g *GCSFolder) Name() string {
	return "gs://" + g.bucket + "/" + g.prefix
}

// List implements Folder.
func (g *GCSFolder) List(ctx context.Context) ([]Entry, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: g.prefix, Delimiter: "/"})
	var entries []Entry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list: %w", err)
		}
		// synthetic subdirectory or the prefix placeholder itself
		if attrs.Prefix != "" || attrs.Name == g.prefix {
			continue
		}
		entries = append(entries, Entry{
			ID:           attrs.Name,
			Name:         path.Base(attrs.Name),
			MimeType:     attrs.ContentType,
			ModifiedTime: attrs.Updated,
			Trashed:      !attrs.Deleted.IsZero(),
		})
	}
	return entries, nil
}

// Read implements Folder.
func (g *GCSFolder) Read(ctx context.Context, e Entry) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(e.ID).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", e.ID, err)
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}

// Close releases the client.
func (g *GCSFolder) Close() error {
	return g.client.Close()
}

func dirPrefix(p string) string {
	p = strings.TrimLeft(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
