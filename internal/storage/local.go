package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// LocalStorage implements Storage on a directory of the local filesystem.
// All lookups go through an os.Root, so neither ".." nor symlinks can reach
// files outside the directory.
type LocalStorage struct {
	dir  string
	root *os.Root
}

var _ Storage = (*LocalStorage)(nil)

// NewLocal opens (creating if needed) the document root at dir.
func NewLocal(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("document root is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document root: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open document root: %w", err)
	}
	return &LocalStorage{dir: dir, root: root}, nil
}

// Dir returns the directory the store was opened on.
func (s *LocalStorage) Dir() string { return s.dir }

// Close releases the root directory handle.
func (s *LocalStorage) Close() error {
	return s.root.Close()
}

// Put writes r to key. Existing files are never overwritten.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	clean, err := CleanKey(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	name := filepath.FromSlash(clean)
	if err := s.mkdirParents(clean); err != nil {
		return ObjectInfo{}, fmt.Errorf("mkdir: %w", err)
	}

	f, err := s.root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open file: %w", err)
	}

	written, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && opt.Size >= 0 && written != opt.Size {
		copyErr = fmt.Errorf("short write: got %d of %d bytes", written, opt.Size)
	}
	if copyErr != nil {
		_ = s.root.Remove(name)
		return ObjectInfo{}, fmt.Errorf("write body: %w", copyErr)
	}

	info, err := s.Stat(ctx, clean)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.ContentType = opt.ContentType
	info.Metadata = opt.Metadata
	return info, nil
}

// Get opens key for streaming. Directories are reported as not found.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	clean, err := CleanKey(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := s.root.Open(filepath.FromSlash(clean))
	if err != nil {
		return nil, ObjectInfo{}, mapFSError(err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, mapFSError(err)
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, ErrNotFound
	}
	return f, fileInfo(clean, st), nil
}

// Stat returns info for key without opening it for reading.
func (s *LocalStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	clean, err := CleanKey(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := s.root.Stat(filepath.FromSlash(clean))
	if err != nil {
		return ObjectInfo{}, mapFSError(err)
	}
	if st.IsDir() {
		return ObjectInfo{}, ErrNotFound
	}
	return fileInfo(clean, st), nil
}

// Delete removes key. A missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := s.root.Remove(filepath.FromSlash(clean)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// mkdirParents creates the intermediate directories of key inside the root.
func (s *LocalStorage) mkdirParents(key string) error {
	segs := strings.Split(key, "/")
	for i := 1; i < len(segs); i++ {
		dir := filepath.FromSlash(strings.Join(segs[:i], "/"))
		if err := s.root.Mkdir(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func fileInfo(key string, st fs.FileInfo) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ETag:         fmt.Sprintf(`W/"%x-%x"`, st.Size(), st.ModTime().UnixNano()),
		LastModified: st.ModTime().UTC(),
	}
}

func mapFSError(err error) error {
	// ENOTDIR: a path component is a regular file, so nothing lives below it.
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return ErrNotFound
	}
	// os.Root does not export its escape error; a symlink leading out of the root lands here.
	if strings.Contains(err.Error(), "path escapes from parent") {
		return ErrInvalidKey
	}
	return err
}
