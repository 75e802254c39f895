// Package htmlfetch implements the HTML Fetcher from spec §4.3: it
// combines the disk cache, the politeness governor and an HttpClient into
// an outcome-typed fetch, following the conditional-revalidation table in
// spec §4.3 exactly.
//
// Concurrent fetches to the same URL are collapsed via singleflight, the
// same mechanism the teacher project uses in unfurlist.go
// (h.inFlight singleflight.Group) to avoid duplicate outbound requests for
// a URL already in flight.
package htmlfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tabletop-tutor/harvester/clock"
	"github.com/tabletop-tutor/harvester/diskcache"
	"github.com/tabletop-tutor/harvester/governor"
	"github.com/tabletop-tutor/harvester/httpx"
)

// Outcome is one of the five exclusive results a fetch can produce, per
// spec §3's FetchOutcome and the GLOSSARY.
type Outcome int

const (
	// Unknown is never returned; it is the Outcome zero value.
	Unknown Outcome = iota
	HIT
	REVALIDATED
	MISS
	FALLBACK
	FAIL
)

func (o Outcome) String() string {
	switch o {
	case HIT:
		return "HIT"
	case REVALIDATED:
		return "REVALIDATED"
	case MISS:
		return "MISS"
	case FALLBACK:
		return "FALLBACK"
	case FAIL:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Default windows from spec §4.3.
const (
	DefaultFreshWindow = 24 * time.Hour
	DefaultHardTTL     = 7 * 24 * time.Hour
)

// Result is what FetchHTML returns.
type Result struct {
	Outcome  Outcome
	Body     []byte
	FinalURL string
	Status   int
	Err      error // cause, set when Outcome == FAIL
}

// Fetcher combines a disk cache, a politeness governor and an HttpClient.
type Fetcher struct {
	cache       *diskcache.Cache
	governor    *governor.Governor
	http        httpx.HttpClient
	clock       clock.Clock
	freshWindow time.Duration
	hardTTL     time.Duration
	inFlight    singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithFreshWindow(d time.Duration) Option { return func(f *Fetcher) { f.freshWindow = d } }
func WithHardTTL(d time.Duration) Option     { return func(f *Fetcher) { f.hardTTL = d } }
func WithClock(c clock.Clock) Option         { return func(f *Fetcher) { f.clock = c } }

// New returns a Fetcher wired to cache, gov and client.
func New(cache *diskcache.Cache, gov *governor.Governor, client httpx.HttpClient, opts ...Option) *Fetcher {
	f := &Fetcher{
		cache:       cache,
		governor:    gov,
		http:        client,
		clock:       clock.System{},
		freshWindow: DefaultFreshWindow,
		hardTTL:     DefaultHardTTL,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchHTML implements the outcome table from spec §4.3.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (*Result, error) {
	v, err, _ := f.inFlight.Do(rawURL, func() (interface{}, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	res := *(v.(*Result))
	return &res, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("htmlfetch: parse url: %w", err)
	}

	entry, hit := f.cache.Get(ctx, rawURL)
	now := f.clock.Now()

	if hit {
		age := f.cache.Age(entry, now)
		if age < f.freshWindow {
			return &Result{Outcome: HIT, Body: entry.Body, FinalURL: rawURL, Status: entry.Status}, nil
		}
		if age < f.hardTTL {
			if revalidated, ok := f.revalidate(ctx, u); ok {
				if revalidated {
					return &Result{Outcome: REVALIDATED, Body: entry.Body, FinalURL: rawURL, Status: entry.Status}, nil
				}
				body, status, ferr := f.doFetch(ctx, u)
				if ferr == nil {
					f.store(ctx, rawURL, body, status, now)
					return &Result{Outcome: MISS, Body: body, FinalURL: rawURL, Status: status}, nil
				}
				return &Result{Outcome: FALLBACK, Body: entry.Body, FinalURL: rawURL, Status: entry.Status}, nil
			}
			// HEAD failed outright: fetch, falling back to stale on failure.
			body, status, ferr := f.doFetch(ctx, u)
			if ferr == nil {
				f.store(ctx, rawURL, body, status, now)
				return &Result{Outcome: MISS, Body: body, FinalURL: rawURL, Status: status}, nil
			}
			return &Result{Outcome: FALLBACK, Body: entry.Body, FinalURL: rawURL, Status: entry.Status}, nil
		}
		// Beyond hard TTL: forced MISS, refetch; fall back to stale on failure.
		body, status, ferr := f.doFetch(ctx, u)
		if ferr == nil {
			f.store(ctx, rawURL, body, status, now)
			return &Result{Outcome: MISS, Body: body, FinalURL: rawURL, Status: status}, nil
		}
		return &Result{Outcome: FALLBACK, Body: entry.Body, FinalURL: rawURL, Status: entry.Status}, nil
	}

	// No cache entry.
	body, status, ferr := f.doFetch(ctx, u)
	if ferr != nil {
		return &Result{Outcome: FAIL, Err: ferr}, nil
	}
	f.store(ctx, rawURL, body, status, now)
	return &Result{Outcome: MISS, Body: body, FinalURL: rawURL, Status: status}, nil
}

// revalidate issues a HEAD request. ok is false if the HEAD call itself
// failed (network error); revalidated is true only on a 304 response.
func (f *Fetcher) revalidate(ctx context.Context, u *url.URL) (revalidated, ok bool) {
	if err := f.governor.Acquire(ctx, u.Host); err != nil {
		return false, false
	}
	headers := f.headers()
	resp, err := f.http.Head(ctx, u.String(), headers)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusNotModified, true
}

func (f *Fetcher) doFetch(ctx context.Context, u *url.URL) ([]byte, int, error) {
	if err := f.governor.Acquire(ctx, u.Host); err != nil {
		return nil, 0, err
	}
	resp, err := f.http.Get(ctx, u.String(), f.headers())
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode >= 300 {
		return body, resp.StatusCode, fmt.Errorf("htmlfetch: non-2xx status %d for %s", resp.StatusCode, u)
	}
	return body, resp.StatusCode, nil
}

func (f *Fetcher) headers() http.Header {
	h := httpx.StandardHeaders()
	h.Set("User-Agent", f.governor.UserAgent())
	return h
}

func (f *Fetcher) store(ctx context.Context, rawURL string, body []byte, status int, now time.Time) {
	if status >= 300 {
		return // non-2xx responses are not cached, per spec §4.3
	}
	e := &diskcache.Entry{URL: rawURL, Body: body, Status: status, FetchedAt: now}
	f.cache.Put(ctx, rawURL, e) // write failures are advisory; ignored here
}

// ErrNoOutcome names the case of a fetch that produced no Outcome. No code
// path in this package returns it: every path of fetch assigns one.
var ErrNoOutcome = errors.New("htmlfetch: no outcome produced")
