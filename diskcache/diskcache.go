// Package diskcache implements the content-addressed Disk Cache from spec
// §4.2: a persistent store of fetch responses keyed by a sanitized URL,
// with atomic writes and an advisory write-failure policy.
//
// The key derivation (hex of a hash of the URL) and the optional shared
// secondary cache layer are adapted directly from the teacher project's
// mcKey helper and its WithMemcache/h.Cache pattern in unfurlist.go: there,
// a memcached client stores snappy-compressed, JSON-encoded results keyed
// by sha1(url); here the same scheme backs an optional L2 in front of the
// on-disk JSON store, useful when several harvester processes share one
// memcached instance.
package diskcache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/golang/snappy"

	"github.com/tabletop-tutor/harvester/clock"
	"github.com/tabletop-tutor/harvester/fsys"
)

// Entry is the record stored per spec §3's CacheEntry.
type Entry struct {
	URL       string    `json:"url"`
	Body      []byte    `json:"body"`
	Status    int       `json:"status"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Cache is the Disk Cache contract.
type Cache struct {
	root   string
	fsys   fsys.Filesystem
	clock  clock.Clock
	log    Logger
	shared *memcache.Client
}

// Option configures a Cache.
type Option func(*Cache)

func WithFilesystem(f fsys.Filesystem) Option { return func(c *Cache) { c.fsys = f } }
func WithClock(cl clock.Clock) Option         { return func(c *Cache) { c.clock = cl } }
func WithLogger(l Logger) Option              { return func(c *Cache) { c.log = l } }

// WithSharedCache attaches an optional memcached-backed secondary layer,
// checked before the on-disk store and refreshed after a disk MISS/fetch,
// mirroring the teacher's WithMemcache configuration function.
func WithSharedCache(mc *memcache.Client) Option {
	return func(c *Cache) { c.shared = mc }
}

// New returns a Cache rooted at root.
func New(root string, opts ...Option) *Cache {
	c := &Cache{
		root:  root,
		fsys:  fsys.OS{},
		clock: clock.System{},
		log:   log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key returns the content-addressed key for url: sha1 hex, same derivation
// as the teacher's mcKey.
func Key(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) pathFor(rawURL string) string {
	host := "_"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = sanitizeHost(u.Host)
	}
	return path.Join(c.root, host, Key(rawURL)+".json")
}

func sanitizeHost(h string) string {
	out := make([]rune, 0, len(h))
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Get returns the entry for rawURL if present and parsable. Malformed
// entries, and entries stored under a colliding key for a different URL,
// are treated as absent rather than returned or erroring.
func (c *Cache) Get(ctx context.Context, rawURL string) (*Entry, bool) {
	if c.shared != nil {
		if e, ok := c.getShared(rawURL); ok {
			return e, true
		}
	}
	data, err := c.fsys.ReadFile(c.pathFor(rawURL))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.URL != rawURL {
		return nil, false // key collision: treat as miss
	}
	return &e, true
}

func (c *Cache) getShared(rawURL string) (*Entry, bool) {
	it, err := c.shared.Get(Key(rawURL))
	if err != nil {
		return nil, false
	}
	raw, err := snappy.Decode(nil, it.Value)
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || e.URL != rawURL {
		return nil, false
	}
	return &e, true
}

// Put writes e atomically under rawURL's key. Write failures are logged
// and returned; per spec §4.2 they are advisory and callers should not
// fail the overall fetch because of them.
func (c *Cache) Put(ctx context.Context, rawURL string, e *Entry) error {
	e.URL = rawURL
	data, err := json.Marshal(e)
	if err != nil {
		c.log.Printf("diskcache: marshal %q: %v", rawURL, err)
		return err
	}
	if err := c.fsys.WriteFileAtomic(c.pathFor(rawURL), data, 0o644); err != nil {
		c.log.Printf("diskcache: write %q: %v", rawURL, err)
		return err
	}
	if c.shared != nil {
		c.shared.Set(&memcache.Item{Key: Key(rawURL), Value: snappy.Encode(nil, data)})
	}
	return nil
}

// Age returns the elapsed wall time since e.FetchedAt relative to now.
func (c *Cache) Age(e *Entry, now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// IsFresh reports whether e's age is below ttl.
func (c *Cache) IsFresh(e *Entry, now time.Time, ttl time.Duration) bool {
	return c.Age(e, now) < ttl
}

// Sweep removes entries older than ttl. It is idempotent: re-running it
// over an already-swept tree removes nothing further.
func (c *Cache) Sweep(ctx context.Context, ttl time.Duration) (removed int, err error) {
	hosts, err := c.fsys.List(c.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	sort.Strings(hosts)
	now := c.clock.Now()
	for _, host := range hosts {
		dir := path.Join(c.root, host)
		names, err := c.fsys.List(dir)
		if err != nil {
			continue
		}
		for _, name := range names {
			p := path.Join(dir, name)
			data, err := c.fsys.ReadFile(p)
			if err != nil {
				continue
			}
			var e Entry
			if err := json.Unmarshal(data, &e); err != nil {
				continue
			}
			if now.Sub(e.FetchedAt) >= ttl {
				if err := c.fsys.Remove(p); err == nil {
					removed++
				}
			}
		}
	}
	return removed, nil
}
