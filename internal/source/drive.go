package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"catalogsync/internal/logging"
)

const (
	driveFolderMime      = "application/vnd.google-apps.folder"
	driveSpreadsheetMime = "application/vnd.google-apps.spreadsheet"
	xlsxMime             = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DriveFolder lists the direct children of a Google Drive folder.
type DriveFolder struct {
	svc      *drive.Service
	folderID string
}

// NewDriveFolder creates a Drive client for folderID.
func NewDriveFolder(ctx context.Context, folderID string, creds CredentialProvider) (*DriveFolder, error) {
	opts, err := creds.ClientOptions(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveFolder{svc: svc, folderID: folderID}, nil
}

// Name implements Folder.
func (d *DriveFolder) Name() string {
	return "drive:" + d.folderID
}

// List implements Folder. Entries arrive newest first; subfolders are skipped.
func (d *DriveFolder) List(ctx context.Context) ([]Entry, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'",
		strings.ReplaceAll(d.folderID, "'", `\'`), driveFolderMime)

	var (
		entries []Entry
		token   string
	)
	for {
		call := d.svc.Files.List().
			Q(q).
			OrderBy("modifiedTime desc").
			Fields("nextPageToken, files(id, name, mimeType, modifiedTime, trashed)").
			PageSize(100).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive list: %w", err)
		}
		for _, f := range res.Files {
			modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
			if err != nil {
				logging.SourceDebug("drive file %s has unparseable modifiedTime %q", f.Name, f.ModifiedTime)
			}
			entries = append(entries, Entry{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				ModifiedTime: modified,
				Trashed:      f.Trashed,
			})
		}
		if res.NextPageToken == "" {
			return entries, nil
		}
		token = res.NextPageToken
	}
}

// Read implements Folder. Native Google Sheets are exported as xlsx.
func (d *DriveFolder) Read(ctx context.Context, e Entry) ([]byte, error) {
	var (
		res *http.Response
		err error
	)
	if e.MimeType == driveSpreadsheetMime {
		res, err = d.svc.Files.Export(e.ID, xlsxMime).Context(ctx).Download()
	} else {
		res, err = d.svc.Files.Get(e.ID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, fmt.Errorf("drive download %s: %w", e.ID, err)
	}
	defer func() { _ = res.Body.Close() }()

	return io.ReadAll(res.Body)
}
