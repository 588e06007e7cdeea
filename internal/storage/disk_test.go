package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/config"
)

func TestDiskStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewDiskStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "abc.txt", []byte("hello"), "text/plain"))

	data, err := store.Read(ctx, "abc.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, store.Delete(ctx, "abc.txt"))
	_, err = store.Read(ctx, "abc.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "abc.txt"))
}

func TestDiskStore_RejectsPathNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.txt", "sub/file.txt", ".hidden"} {
		assert.Error(t, store.Write(ctx, name, []byte("x"), "text/plain"), name)
	}

	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := &config.Config{BlobBackend: "disk", UploadDir: t.TempDir()}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &DiskStore{}, store)

	cfg.BlobBackend = "s3"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
