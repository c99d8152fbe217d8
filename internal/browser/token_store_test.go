package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := FileTokenStore{Path: path}

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	future := proto.TimeSinceEpoch(time.Now().Add(24 * time.Hour).Unix())
	past := proto.TimeSinceEpoch(time.Now().Add(-time.Hour).Unix())
	cookies := []*proto.NetworkCookie{
		{Name: "sid", Value: "abc", Domain: ".example.test", Path: "/", Expires: future, HTTPOnly: true, Secure: true},
		{Name: "tmp", Value: "x", Domain: ".example.test", Path: "/", Expires: -1},
		{Name: "old", Value: "y", Domain: ".example.test", Path: "/", Expires: past},
	}
	require.NoError(t, store.Save(ctx, cookies))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	params, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, params, 2)
	assert.Equal(t, "sid", params[0].Name)
	assert.Equal(t, "abc", params[0].Value)
	assert.True(t, params[0].HTTPOnly)
	assert.Equal(t, "tmp", params[1].Name)
}

func TestFileTokenStore_OnlyExpired(t *testing.T) {
	ctx := context.Background()
	store := FileTokenStore{Path: filepath.Join(t.TempDir(), "session.json")}
	past := proto.TimeSinceEpoch(time.Now().Add(-time.Hour).Unix())
	require.NoError(t, store.Save(ctx, []*proto.NetworkCookie{{Name: "old", Expires: past}}))

	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileTokenStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := FileTokenStore{Path: path}.Load(context.Background())
	assert.Error(t, err)
}
