package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFolder reads documents from a directory on disk.
type LocalFolder struct {
	dir string
}

// NewLocalFolder creates a folder over dir.
func NewLocalFolder(dir string) *LocalFolder {
	return &LocalFolder{dir: dir}
}

// Name implements Folder.
func (l *LocalFolder) Name() string {
	return "file://" + l.dir
}

// List implements Folder. Subdirectories and dotfiles are skipped.
func (l *LocalFolder) List(ctx context.Context) ([]Entry, error) {
	des, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			ID:           de.Name(),
			Name:         de.Name(),
			ModifiedTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Read implements Folder.
func (l *LocalFolder) Read(ctx context.Context, e Entry) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.dir, filepath.Base(e.ID)))
}
