// Package fsys provides the rooted-filesystem leaf dependency used by the
// disk cache and the PDF ingestor. Every read/write goes through this
// interface rather than touching os directly, so tests can substitute an
// in-memory implementation.
package fsys

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotExist is returned by Stat/ReadFile for missing paths; callers may
// also check with errors.Is(err, fs.ErrNotExist).
var ErrNotExist = fs.ErrNotExist

// Filesystem is the contract the Harvester's storage-touching components
// depend on.
type Filesystem interface {
	// ReadFile reads the whole file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFileAtomic writes data to path via a temp file in the same
	// directory followed by rename, so readers never observe a partial
	// write. The containing directory is created if missing.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// List returns the base names of entries directly under dir.
	List(dir string) ([]string, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string, perm os.FileMode) error
	// Remove deletes the file at path; absent files are not an error.
	Remove(path string) error
	// TempDir creates a new temporary directory under base (or the
	// system default if base is empty) with the given name pattern, and
	// returns its path. Callers are responsible for removing it.
	TempDir(base, pattern string) (string, error)
}

// OS is the production Filesystem rooted at nothing in particular — paths
// are passed through to the os package as-is. Callers that want a rooted
// data directory should join paths themselves (as the disk cache does via
// its configured root).
type OS struct{}

func (OS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OS) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (OS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (OS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (OS) MkdirAll(dir string, perm os.FileMode) error { return os.MkdirAll(dir, perm) }

func (OS) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (OS) TempDir(base, pattern string) (string, error) {
	return os.MkdirTemp(base, pattern)
}

// CopyFile is a small helper built on the Filesystem contract: it reads src
// to the end and writes the bytes atomically to dst.
func CopyFile(fsys Filesystem, dst string, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	return fsys.WriteFileAtomic(dst, data, 0o644)
}
