package bgg

import (
	"io/fs"
	"path"
	"sync"

	"github.com/tabletop-tutor/harvester/fsys"
)

// memFS is a minimal in-memory fsys.Filesystem for tests, duplicated from
// diskcache's own test helper so each package's tests stay self-contained.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFS() fsys.Filesystem { return &memFS{files: make(map[string][]byte)} }

func (m *memFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), d...), nil
}

func (m *memFS) WriteFileAtomic(p string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = append([]byte(nil), data...)
	return nil
}

func (m *memFS) Stat(p string) (fs.FileInfo, error) { return nil, fs.ErrNotExist }

func (m *memFS) List(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	prefix := dir + "/"
	for p := range m.files {
		if len(p) <= len(prefix) || p[:len(prefix)] != prefix {
			continue
		}
		rest := p[len(prefix):]
		name := rest
		for i := 0; i < len(rest); i++ {
			if rest[i] == '/' {
				name = rest[:i]
				break
			}
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

func (m *memFS) MkdirAll(dir string, perm fs.FileMode) error { return nil }

func (m *memFS) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
	return nil
}

func (m *memFS) TempDir(base, pattern string) (string, error) {
	return path.Join(base, "tmp"), nil
}
