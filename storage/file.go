package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// File keeps one file per key below a pages directory and a recycle
// directory. Writes go through a temp file and rename so a reader never sees
// a half-written page.
type File struct {
	pagesDir    string
	recyclerDir string
	readOnly    bool
}

// NewFile returns a File backend and makes sure the pages directory exists.
// The recycle directory is created lazily on first use.
func NewFile(pagesDir, recyclerDir string) (*File, error) {
	if pagesDir == "" || recyclerDir == "" {
		return nil, errors.New("storage: pages and recycler directories are required")
	}
	if err := os.MkdirAll(pagesDir, dirPerms); err != nil {
		return nil, fmt.Errorf("storage: create pages directory: %w", err)
	}
	return &File{pagesDir: pagesDir, recyclerDir: recyclerDir}, nil
}

// NewReadOnlyDir returns a read-only File rooted at root. It is used for
// bundled default content and plugin page directories.
func NewReadOnlyDir(root string) *File {
	return &File{pagesDir: root, readOnly: true}
}

// Dir returns the primary directory of the backend.
func (f *File) Dir() string {
	return f.pagesDir
}

func (f *File) path(key string) (string, error) {
	loc, err := Resolve(key)
	if err != nil {
		return "", err
	}
	dir := f.pagesDir
	if loc.Root == RootRecycle {
		if f.recyclerDir == "" {
			return "", fmt.Errorf("%w: no recycle root for %q", ErrInvalidKey, key)
		}
		dir = f.recyclerDir
	}
	return filepath.Join(dir, filepath.FromSlash(loc.Key)), nil
}

// Exists reports whether key names a regular file.
func (f *File) Exists(key string) bool {
	p, err := f.path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func (f *File) Read(key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(key)
	}
	return data, err
}

func (f *File) Write(key string, data []byte) error {
	if f.readOnly {
		return ErrReadOnly
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	return writeAtomic(p, bytes.NewReader(data))
}

func (f *File) Rename(src, dst string) error {
	if f.readOnly {
		return ErrReadOnly
	}
	sp, err := f.path(src)
	if err != nil {
		return err
	}
	dp, err := f.path(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dp), dirPerms); err != nil {
		return err
	}
	if err := os.Rename(sp, dp); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(src)
		}
		return err
	}
	return nil
}

// Copy streams src into dst. The destination is replaced atomically, so an
// interrupted copy leaves any previous dst intact.
func (f *File) Copy(src, dst string) error {
	if f.readOnly {
		return ErrReadOnly
	}
	sp, err := f.path(src)
	if err != nil {
		return err
	}
	dp, err := f.path(dst)
	if err != nil {
		return err
	}
	in, err := os.Open(sp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(src)
		}
		return err
	}
	defer in.Close()
	return writeAtomic(dp, in)
}

func (f *File) Remove(key string) error {
	if f.readOnly {
		return ErrReadOnly
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(key)
		}
		return err
	}
	return nil
}

// List returns the names of all non-directory entries of the pages
// directory, dotfiles included, sorted by name.
func (f *File) List() ([]string, error) {
	entries, err := os.ReadDir(f.pagesDir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (f *File) Close() error {
	return nil
}

func writeAtomic(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, r); err != nil {
		return err
	}
	// atomic.WriteFile leaves new files with the temp file's 0600 mode.
	return os.Chmod(path, filePerms)
}

var _ Backend = (*File)(nil)
