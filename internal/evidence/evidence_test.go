package evidence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"Coca-Cola 350ml":   "Coca_Cola_350ml",
		"Pão de Queijo (6)": "P_o_de_Queijo_6_",
		"abc":               "abc",
		"  x  ":             "_x_",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestRecorder_WriteDocument(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "evidence")
	r, err := NewRecorder(dir, false)
	require.NoError(t, err)
	defer r.Close()

	path, err := r.WriteDocument(ctx, "estoque.csv", []byte("Nome;Estoque\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "last.csv"), path)

	path, err = r.WriteDocument(ctx, "export", []byte("PK\x03\x04rest"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "last.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04rest", string(data))
	assert.Nil(t, r.Journal())
}

func TestRecorder_WriteSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r, err := NewRecorder(dir, true)
	require.NoError(t, err)
	defer r.Close()

	path, err := r.WriteSnapshot(ctx, "Guaraná 2L", []byte("png"), errors.New("item not found"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "err-Guaran_2L.png"), path)
	assert.FileExists(t, path)

	path, err = r.WriteSnapshot(ctx, "Fanta", nil, errors.New("closed"))
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "err-Fanta.png"))

	recs, err := r.Journal().ForRun(ctx, r.RunID())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, KindFailure, recs[0].Kind)
	assert.Equal(t, "Guaraná 2L", recs[0].Subject)
	assert.Equal(t, "item not found", recs[0].Detail)
	assert.NotEmpty(t, recs[0].Path)
	assert.Empty(t, recs[1].Path)
	assert.False(t, recs[1].CreatedAt.IsZero())
}

func TestJournal_RunsAreSeparate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := OpenJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, Record{RunID: "a", Kind: KindDocument, Subject: "x.xlsx"}))
	require.NoError(t, j.Append(ctx, Record{RunID: "b", Kind: KindFailure, Subject: "Item"}))
	require.NoError(t, j.Close())

	j, err = OpenJournal(path)
	require.NoError(t, err)
	defer j.Close()

	recs, err := j.ForRun(ctx, "a")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "x.xlsx", recs[0].Subject)

	recs, err = j.ForRun(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestJournal_ForRunRejectsBadTimestamp(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO evidence (run_id, kind, subject, created_at) VALUES (?, ?, ?, ?)`,
		"run-1", KindFailure, "Kibe", "yesterday")
	require.NoError(t, err)

	_, err = j.ForRun(ctx, "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `bad created_at "yesterday"`)
}
