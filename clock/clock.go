// Package clock provides the monotonic time and seeded randomness leaf
// dependencies that every other package in this module takes as an
// injectable contract instead of reading ambient global state directly.
package clock

import (
	"math/rand"
	"time"
)

// Clock abstracts wall-clock and monotonic time so callers (the disk cache,
// the politeness governor, the storyboard generator) can be driven by a
// fake clock in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for d. It takes no context and cannot be interrupted;
	// callers that need cancellation wait on a timer and their context
	// themselves.
	Sleep(d time.Duration)
}

// System is the production Clock backed by the time package.
type System struct{}

func (System) Now() time.Time        { return time.Now() }
func (System) Sleep(d time.Duration) { time.Sleep(d) }

// Random abstracts randomness so that a seeded source can stand in for the
// global one in tests.
type Random interface {
	// Float64 returns a pseudo-random number in [0, 1).
	Float64() float64
}

// SystemRandom is the production Random backed by math/rand's global
// source.
type SystemRandom struct{}

func (SystemRandom) Float64() float64 { return rand.Float64() }

// Seeded returns a Random with a fixed seed, for deterministic tests.
func Seeded(seed uint64) Random {
	return &seededRandom{r: rand.New(rand.NewSource(int64(seed)))}
}

type seededRandom struct{ r *rand.Rand }

func (s *seededRandom) Float64() float64 { return s.r.Float64() }
