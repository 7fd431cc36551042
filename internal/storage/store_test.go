package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutOverwritesAndGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFSStore(root)
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, store.Driver())

	first, err := store.Put(ctx, "model_ready/a.csv", bytes.NewBufferString("one\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.Size)
	assert.Len(t, first.ETag, 64)

	second, err := store.Put(ctx, "model_ready/a.csv", bytes.NewBufferString("two\n"), "text/csv")
	require.NoError(t, err)
	assert.NotEqual(t, first.ETag, second.ETag)

	rc, err := store.Get(ctx, "model_ready/a.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "model_ready"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFSStore_PutIsWorldReadable(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "KrishiSense_Master_Dataset.csv", bytes.NewBufferString("State\n"), "text/csv")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "KrishiSense_Master_Dataset.csv"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFSStore_SameContentSameETag(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Put(ctx, "x.csv", bytes.NewBufferString("State,District\n"), "")
	require.NoError(t, err)
	b, err := store.Put(ctx, "x.csv", bytes.NewBufferString("State,District\n"), "")
	require.NoError(t, err)
	assert.Equal(t, a.ETag, b.ETag)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "a/b.csv", want: "a/b.csv"},
		{key: "./a//b.csv", want: "a/b.csv"},
		{key: "", wantErr: true},
		{key: "/etc/passwd", wantErr: true},
		{key: "../escape.csv", wantErr: true},
		{key: "a/../../escape.csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := sanitizeKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Options{Driver: DriverFilesystem, Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, store.Driver())

	_, err = Open(ctx, Options{Driver: DriverS3})
	assert.Error(t, err, "s3 without bucket must fail")

	_, err = Open(ctx, Options{Driver: "ftp"})
	assert.Error(t, err)
}

func TestS3Store_ObjectKey(t *testing.T) {
	s := &S3Store{bucket: "b", prefix: "runs/latest"}
	key, err := s.ObjectKey("model_ready/spices_modeling.csv")
	require.NoError(t, err)
	assert.Equal(t, "runs/latest/model_ready/spices_modeling.csv", key)

	s.prefix = ""
	key, err = s.ObjectKey("master.csv")
	require.NoError(t, err)
	assert.Equal(t, "master.csv", key)

	_, err = s.ObjectKey("../x")
	assert.Error(t, err)
}
