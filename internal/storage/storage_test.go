package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/config"
)

func TestCleanKey(t *testing.T) {
	valid := map[string]string{
		"report.pdf":         "report.pdf",
		"avatars/me.png":     "avatars/me.png",
		"a//b/./c.txt":       "a/b/c.txt",
		"documents/x.docx/":  "documents/x.docx",
		"..hidden-but-fine":  "..hidden-but-fine",
		"dir/file..name.txt": "dir/file..name.txt",
	}
	for in, want := range valid {
		got, err := CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	invalid := []string{"", ".", "./", "/etc/passwd", "../secret", "a/../../b", "a/..", "a\\b", "nul\x00", "a/../b"}
	for _, in := range invalid {
		_, err := CleanKey(in)
		assert.ErrorIs(t, err, ErrInvalidKey, in)
	}
}

func newLocal(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestLocalStorage_PutGet(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "documents/a.txt", strings.NewReader("hello"), PutObjectOptions{Size: 5, ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "documents/a.txt", info.Key)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.FileExists(t, filepath.Join(dir, "documents", "a.txt"))

	rc, got, err := s.Get(ctx, "documents/a.txt")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), got.Size)
	assert.NotEmpty(t, got.ETag)
	assert.False(t, got.LastModified.IsZero())
}

func TestLocalStorage_PutRefusesOverwrite(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "a.txt", strings.NewReader("one"), PutObjectOptions{Size: -1})
	require.NoError(t, err)
	_, err = s.Put(ctx, "a.txt", strings.NewReader("two"), PutObjectOptions{Size: -1})
	assert.Error(t, err)

	rc, _, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "one", string(body))
}

func TestLocalStorage_PutShortBodyIsRemoved(t *testing.T) {
	s, dir := newLocal(t)

	_, err := s.Put(context.Background(), "short.txt", strings.NewReader("abc"), PutObjectOptions{Size: 10})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "short.txt"))
}

func TestLocalStorage_NotFound(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))

	for _, key := range []string{"missing.txt", "folder", "file.txt/child"} {
		rc, _, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound, key)
		assert.Nil(t, rc)

		_, err = s.Stat(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound, key)
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("top secret"), 0o644))
	root := filepath.Join(parent, "uploads")
	s, err := NewLocal(root)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, _, err = s.Get(ctx, "../secret.txt")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = s.Put(ctx, "../evil.txt", strings.NewReader("x"), PutObjectOptions{Size: -1})
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.NoFileExists(t, filepath.Join(parent, "evil.txt"))

	// A symlink pointing outside the root must not be followed.
	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(root, "link.txt")); err == nil {
		rc, _, err := s.Get(ctx, "link.txt")
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.Nil(t, rc)
	}
}

func TestLocalStorage_Delete(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "gone.txt", bytes.NewReader([]byte("x")), PutObjectOptions{Size: 1})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "gone.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "gone.txt"))
	assert.NoError(t, s.Delete(ctx, "gone.txt"))
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	s, _ := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLocal_RequiresDir(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		msg  string
	}{
		{"missing endpoint", config.MinIOConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"}, "endpoint is required"},
		{"missing credentials", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "c"}, "credentials are required"},
		{"missing bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(tt.cfg)
			assert.Nil(t, s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMapMinIOError(t *testing.T) {
	assert.ErrorIs(t, mapMinIOError(minio.ErrorResponse{Code: "NoSuchKey"}), ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapMinIOError(other))
}
