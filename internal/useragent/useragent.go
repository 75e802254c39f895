// Package useragent provides an http.RoundTripper wrapper that rotates the
// User-Agent header across a pool of strings, one per request.
//
// Adapted from the single-string version vendored by the teacher project
// (https://github.com/artyom/useragent): that package stamps one fixed
// agent string on every request lacking one. The politeness governor in
// this module wants several agents in rotation, so Set here takes a
// *Rotator backed by a pool instead of a single string.
package useragent

import (
	"net/http"
	"sync/atomic"
)

// DefaultPool is used by NewRotator when no pool is supplied.
var DefaultPool = []string{
	"Mozilla/5.0 (compatible; TabletopTutorBot/1.0; +https://example.invalid/bot)",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) TabletopTutorBot/1.0 Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) TabletopTutorBot/1.0 Safari/605.1.15",
}

// Rotator hands out User-Agent strings from a fixed pool in round-robin
// order. The zero value is not usable; use NewRotator.
type Rotator struct {
	pool []string
	next atomic.Uint64
}

// NewRotator returns a Rotator over pool. If pool is empty, DefaultPool is
// used.
func NewRotator(pool []string) *Rotator {
	if len(pool) == 0 {
		pool = DefaultPool
	}
	return &Rotator{pool: append([]string(nil), pool...)}
}

// Next returns the next User-Agent string in rotation.
func (r *Rotator) Next() string {
	i := r.next.Add(1) - 1
	return r.pool[int(i%uint64(len(r.pool)))]
}

// Set wraps rt returning a RoundTripper that stamps a rotated User-Agent
// header on every request lacking one explicitly.
func Set(rt http.RoundTripper, r *Rotator) http.RoundTripper {
	if r == nil {
		return rt
	}
	if t, ok := rt.(*http.Transport); ok {
		return uaT{t, r}
	}
	return uaRT{rt, r}
}

type uaT struct {
	*http.Transport
	r *Rotator
}

func (t uaT) RoundTrip(r *http.Request) (*http.Response, error) {
	if _, ok := r.Header["User-Agent"]; ok {
		return t.Transport.RoundTrip(r)
	}
	return t.Transport.RoundTrip(cloneWithUA(r, t.r.Next()))
}

type uaRT struct {
	http.RoundTripper
	r *Rotator
}

func (t uaRT) RoundTrip(r *http.Request) (*http.Response, error) {
	if _, ok := r.Header["User-Agent"]; ok {
		return t.RoundTripper.RoundTrip(r)
	}
	return t.RoundTripper.RoundTrip(cloneWithUA(r, t.r.Next()))
}

func cloneWithUA(r *http.Request, ua string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	r2.Header = make(http.Header, len(r.Header)+1)
	for k, v := range r.Header {
		r2.Header[k] = v
	}
	r2.Header.Set("User-Agent", ua)
	return r2
}
