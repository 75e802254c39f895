// Package governor implements the Politeness Governor from spec §4.1: a
// process-wide service enforcing a minimum gap between outbound HTTP
// requests, both globally and per host, plus a rotating User-Agent pool.
//
// Per-host pacing is built on golang.org/x/time/rate, the same token-bucket
// limiter the quay/claircore example in the retrieval pack uses to gate its
// periodic mapping-file refetch (rhel/internal/common/updater.go).
package governor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tabletop-tutor/harvester/clock"
	"github.com/tabletop-tutor/harvester/internal/useragent"
)

// Default gaps, per spec §4.1.
const DefaultMinGap = time.Second

// Option configures a Governor.
type Option func(*Governor)

// WithMinGap sets the global minimum gap between any two outbound requests.
func WithMinGap(d time.Duration) Option {
	return func(g *Governor) { g.globalGap = d }
}

// WithHostMinGap overrides the minimum gap for a specific host.
func WithHostMinGap(host string, d time.Duration) Option {
	return func(g *Governor) { g.hostGaps[host] = d }
}

// WithQPS is a convenience that translates a queries-per-second ceiling for
// host into a minimum gap (1/qps), per spec §4.1 ("optional QPS
// specification translated to minGap").
func WithQPS(host string, qps float64) Option {
	return func(g *Governor) {
		if qps <= 0 {
			return
		}
		g.hostGaps[host] = time.Duration(float64(time.Second) / qps)
	}
}

// WithUserAgents configures the rotating User-Agent pool returned by
// UserAgent.
func WithUserAgents(pool []string) Option {
	return func(g *Governor) { g.rotator = useragent.NewRotator(pool) }
}

// WithClock sets the clock used to compute the global gap, e.g. a fake
// clock in tests. Waiting itself still uses real timers, and the per-host
// limiters always run on the wall clock.
func WithClock(c clock.Clock) Option {
	return func(g *Governor) { g.clock = c }
}

// Governor enforces request spacing. The zero value is not usable; use New.
//
// Concurrency: Acquire is safe for concurrent callers and is serialized
// per host via per-host limiters guarded by a mutex that protects only the
// map of limiters, never the wait itself — so a host never waits on another
// host's per-host gap; across hosts only the shared global gap applies.
type Governor struct {
	mu         sync.Mutex
	globalGap  time.Duration
	globalNext time.Time
	hostGaps   map[string]time.Duration
	limiters   map[string]*rate.Limiter
	rotator    *useragent.Rotator
	clock      clock.Clock
}

// New returns a configured Governor.
func New(opts ...Option) *Governor {
	g := &Governor{
		globalGap: DefaultMinGap,
		hostGaps:  make(map[string]time.Duration),
		limiters:  make(map[string]*rate.Limiter),
		clock:     clock.System{},
	}
	for _, o := range opts {
		o(g)
	}
	if g.rotator == nil {
		g.rotator = useragent.NewRotator(nil)
	}
	return g
}

func (g *Governor) gapFor(host string) time.Duration {
	if d, ok := g.hostGaps[host]; ok {
		return d
	}
	return g.globalGap
}

func (g *Governor) limiterFor(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[host]; ok {
		return l
	}
	gap := g.gapFor(host)
	l := rate.NewLimiter(rate.Every(gap), 1)
	g.limiters[host] = l
	return l
}

// Acquire blocks until both the per-host and global minimum gaps have
// elapsed since the last call for host (and for any host, respectively),
// then reserves the slot. It honors ctx cancellation: a canceled wait
// consumes no slot, per spec §4.1 and §5.
func (g *Governor) Acquire(ctx context.Context, host string) error {
	l := g.limiterFor(host)
	if err := l.Wait(ctx); err != nil {
		return err
	}
	return g.waitGlobal(ctx)
}

func (g *Governor) waitGlobal(ctx context.Context) error {
	g.mu.Lock()
	now := g.clock.Now()
	prev := g.globalNext
	start := now
	if prev.After(now) {
		start = prev
	}
	next := start.Add(g.globalGap)
	g.globalNext = next
	g.mu.Unlock()

	wait := start.Sub(now)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.globalNext.Equal(next) {
			g.globalNext = prev
		}
		g.mu.Unlock()
		return ctx.Err()
	}
}

// UserAgent returns the next User-Agent string in rotation.
func (g *Governor) UserAgent() string { return g.rotator.Next() }
