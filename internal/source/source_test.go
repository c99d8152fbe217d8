package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"catalogsync/internal/config"
)

type fakeFolder struct {
	entries []Entry
	data    map[string][]byte
	listErr error
	reads   []string
}

func (f *fakeFolder) Name() string { return "fake" }

func (f *fakeFolder) List(context.Context) ([]Entry, error) { return f.entries, f.listErr }

func (f *fakeFolder) Read(_ context.Context, e Entry) ([]byte, error) {
	f.reads = append(f.reads, e.ID)
	d, ok := f.data[e.ID]
	if !ok {
		return nil, errors.New("missing")
	}
	return d, nil
}

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestLatest(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantID  string
		wantOK  bool
	}{
		{"empty", nil, "", false},
		{"only trashed", []Entry{{ID: "a", ModifiedTime: t0, Trashed: true}}, "", false},
		{"newest wins", []Entry{
			{ID: "old", ModifiedTime: t0},
			{ID: "new", ModifiedTime: t0.Add(time.Hour)},
			{ID: "mid", ModifiedTime: t0.Add(time.Minute)},
		}, "new", true},
		{"trashed newest skipped", []Entry{
			{ID: "old", ModifiedTime: t0},
			{ID: "gone", ModifiedTime: t0.Add(time.Hour), Trashed: true},
		}, "old", true},
		{"tie keeps first seen", []Entry{
			{ID: "first", ModifiedTime: t0},
			{ID: "second", ModifiedTime: t0},
		}, "first", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Latest(tt.entries)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestFetchLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads newest", func(t *testing.T) {
		f := &fakeFolder{
			entries: []Entry{{ID: "a", Name: "a.xlsx", ModifiedTime: t0}, {ID: "b", Name: "b.xlsx", ModifiedTime: t0.Add(time.Second)}},
			data:    map[string][]byte{"a": []byte("A"), "b": []byte("B")},
		}
		doc, err := FetchLatest(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, "b.xlsx", doc.Name)
		assert.Equal(t, []byte("B"), doc.Data)
		assert.Equal(t, []string{"b"}, f.reads)
	})

	t.Run("empty folder", func(t *testing.T) {
		_, err := FetchLatest(ctx, &fakeFolder{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := FetchLatest(ctx, &fakeFolder{listErr: boom})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("read error", func(t *testing.T) {
		_, err := FetchLatest(ctx, &fakeFolder{entries: []Entry{{ID: "x", ModifiedTime: t0}}})
		assert.Error(t, err)
	})
}

func TestLocalFolder(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string, mod time.Time) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		require.NoError(t, os.Chtimes(p, mod, mod))
	}
	write("old.csv", "old", t0)
	write("new.csv", "new", t0.Add(time.Hour))
	write(".hidden", "hidden", t0.Add(2*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	f := NewLocalFolder(dir)
	entries, err := f.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	doc, err := FetchLatest(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "new.csv", doc.Name)
	assert.Equal(t, "new", string(doc.Data))
}

func TestDriveFolder(t *testing.T) {
	mux := http.NewServeMux()
	var gotQuery string
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			gotQuery = r.URL.Query().Get("q")
			fmt.Fprint(w, `{"nextPageToken":"p2","files":[
				{"id":"old","name":"old.xlsx","mimeType":"application/octet-stream","modifiedTime":"2024-05-01T10:00:00.000Z"}]}`)
			return
		}
		fmt.Fprint(w, `{"files":[
			{"id":"new","name":"estoque.xlsx","mimeType":"application/octet-stream","modifiedTime":"2024-05-02T10:00:00.000Z"}]}`)
	})
	mux.HandleFunc("/files/new", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		_, _ = w.Write([]byte("xlsx-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	f, err := NewDriveFolder(ctx, "folder-1", StaticOptions{
		option.WithEndpoint(srv.URL + "/"),
		option.WithoutAuthentication(),
	})
	require.NoError(t, err)

	doc, err := FetchLatest(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "estoque.xlsx", doc.Name)
	assert.Equal(t, "xlsx-bytes", string(doc.Data))
	assert.Contains(t, gotQuery, "'folder-1' in parents and trashed = false")
}

func TestS3Folder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/stock" && r.URL.Query().Get("list-type") == "2":
			assert.Equal(t, "incoming/", r.URL.Query().Get("prefix"))
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>stock</Name><Prefix>incoming/</Prefix><KeyCount>3</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>
  <Contents><Key>incoming/</Key><LastModified>2024-05-03T10:00:00.000Z</LastModified><Size>0</Size></Contents>
  <Contents><Key>incoming/a.csv</Key><LastModified>2024-05-01T10:00:00.000Z</LastModified><Size>1</Size></Contents>
  <Contents><Key>incoming/b.csv</Key><LastModified>2024-05-02T10:00:00.000Z</LastModified><Size>1</Size></Contents>
</ListBucketResult>`)
		case r.URL.Path == "/stock/incoming/b.csv":
			_, _ = w.Write([]byte("Nome;Estoque\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	f := NewS3FolderWithClient(client, "stock", "incoming")
	assert.Equal(t, "s3://stock/incoming/", f.Name())

	doc, err := FetchLatest(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "b.csv", doc.Name)
	assert.Equal(t, "Nome;Estoque\n", string(doc.Data))
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("service account key", func(t *testing.T) {
		path := filepath.Join(dir, "sa.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account","client_email":"bot@example.iam.gserviceaccount.com","private_key":"unused","token_uri":"https://oauth2.googleapis.com/token"}`), 0o600))
		opts, err := ServiceAccountFile{Path: path}.ClientOptions(ctx)
		require.NoError(t, err)
		assert.Len(t, opts, 1)
	})

	t.Run("missing service account key", func(t *testing.T) {
		_, err := ServiceAccountFile{Path: filepath.Join(dir, "none.json")}.ClientOptions(ctx)
		assert.ErrorIs(t, err, ErrCredentials)
		_, err = ServiceAccountFile{}.ClientOptions(ctx)
		assert.ErrorIs(t, err, ErrCredentials)
	})

	t.Run("oauth token", func(t *testing.T) {
		path := filepath.Join(dir, "token.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"ya29.x","token_type":"Bearer"}`), 0o600))
		opts, err := OAuthTokenFile{Path: path}.ClientOptions(ctx)
		require.NoError(t, err)
		assert.Len(t, opts, 1)
	})

	t.Run("oauth token without access token", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
		_, err := OAuthTokenFile{Path: path}.ClientOptions(ctx)
		assert.ErrorIs(t, err, ErrCredentials)
	})

	t.Run("provider selection", func(t *testing.T) {
		assert.IsType(t, OAuthTokenFile{}, CredentialsFor(config.SourceConfig{Kind: config.SourceDrive, AuthType: config.AuthOAuth}))
		assert.IsType(t, ServiceAccountFile{}, CredentialsFor(config.SourceConfig{Kind: config.SourceDrive}))
		assert.IsType(t, StaticOptions{}, CredentialsFor(config.SourceConfig{Kind: config.SourceGCS}))
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	f, err := Open(ctx, config.SourceConfig{Kind: config.SourceLocal, LocalDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalFolder{}, f)

	_, err = Open(ctx, config.SourceConfig{Kind: config.SourceDrive}, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = Open(ctx, config.SourceConfig{Kind: config.SourceDrive, FolderID: "f", ServiceAccountJSON: filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.ErrorIs(t, err, ErrCredentials)
}
