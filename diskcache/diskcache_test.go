package diskcache

import (
	"context"
	"encoding/json"
	"io/fs"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/tabletop-tutor/harvester/clock"
)

// memFS is a minimal in-memory fsys.Filesystem for tests.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFS() *memFS { return &memFS{files: make(map[string][]byte)} }

func (m *memFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	cp := append([]byte(nil), d...)
	return cp, nil
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
		// only direct children: split at first remaining slash
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

func TestPutGetRoundTrip(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New("/cache", WithFilesystem(newMemFS()), WithClock(fake))
	ctx := context.Background()
	e := &Entry{Body: []byte("hello"), Status: 200, FetchedAt: fake.Now()}
	if err := c.Put(ctx, "https://example.com/a", e); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get(ctx, "https://example.com/a")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got.Body) != "hello" || got.Status != 200 {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestGetUnknownIsMiss(t *testing.T) {
	c := New("/cache", WithFilesystem(newMemFS()))
	if _, ok := c.Get(context.Background(), "https://example.com/nope"); ok {
		t.Fatal("expected miss for unknown url")
	}
}

func TestGetCorruptedIsMiss(t *testing.T) {
	mem := newMemFS()
	c := New("/cache", WithFilesystem(mem))
	p := c.pathFor("https://example.com/a")
	if err := mem.WriteFileAtomic(p, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(context.Background(), "https://example.com/a"); ok {
		t.Fatal("expected miss for corrupted entry")
	}
}

func TestKeyCollisionIsMiss(t *testing.T) {
	mem := newMemFS()
	c := New("/cache", WithFilesystem(mem))
	ctx := context.Background()
	if err := c.Put(ctx, "https://example.com/a", &Entry{Body: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	// overwrite the same path with an entry claiming a different URL,
	// simulating a hash collision.
	p := c.pathFor("https://example.com/a")
	bad := &Entry{URL: "https://other.example/b", Body: []byte("y")}
	data, _ := json.Marshal(bad)
	if err := mem.WriteFileAtomic(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, "https://example.com/a"); ok {
		t.Fatal("expected collision to be treated as miss")
	}
}

func TestIsFreshBoundary(t *testing.T) {
	c := New("/cache", WithFilesystem(newMemFS()))
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	e := &Entry{FetchedAt: now.Add(-23 * time.Hour)}
	if !c.IsFresh(e, now, 24*time.Hour) {
		t.Fatal("expected fresh within ttl")
	}
	e2 := &Entry{FetchedAt: now.Add(-25 * time.Hour)}
	if c.IsFresh(e2, now, 24*time.Hour) {
		t.Fatal("expected stale beyond ttl")
	}
}

func TestSweepRemovesExpiredIdempotently(t *testing.T) {
	mem := newMemFS()
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New("/cache", WithFilesystem(mem), WithClock(fake))
	ctx := context.Background()
	if err := c.Put(ctx, "https://example.com/old", &Entry{FetchedAt: fake.Now().Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "https://example.com/new", &Entry{FetchedAt: fake.Now()}); err != nil {
		t.Fatal(err)
	}
	removed, err := c.Sweep(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	removed2, err := c.Sweep(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed2 != 0 {
		t.Fatalf("expected idempotent second sweep, got %d removed", removed2)
	}
	if _, ok := c.Get(ctx, "https://example.com/new"); !ok {
		t.Fatal("fresh entry should survive sweep")
	}
}
