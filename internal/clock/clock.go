// Package clock is the scheduler time base: a free running millisecond counter
// that wraps at 32 bits. Duration math must only use Since, never compare stamps directly.
package clock

import (
	"sync"
	"time"
)

type Millis uint32

type Source interface {
	Now() Millis
}

// Since is wraparound-safe for intervals shorter than ~49.7 days.
func Since(now, stamp Millis) uint32 { return uint32(now - stamp) }

// Elapsed reports Since(now, stamp) >= d.
func Elapsed(now, stamp Millis, d uint32) bool { return Since(now, stamp) >= d }

func (m Millis) Seconds() uint32 { return uint32(m) / 1000 }

// Monotonic counts from construction using runtime monotonic clock.
type Monotonic struct {
	start time.Time
}

func NewMonotonic() *Monotonic { return &Monotonic{start: time.Now()} }

func (c *Monotonic) Now() Millis {
	return Millis(uint32(time.Since(c.start) / time.Millisecond))
}

// Manual is advanced explicitly, for tests and simulation.
type Manual struct {
	mu sync.Mutex
	v  Millis
}

func NewManual(start Millis) *Manual { return &Manual{v: start} }

func (c *Manual) Now() Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *Manual) Set(v Millis) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *Manual) Advance(d time.Duration) Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v += Millis(uint32(d / time.Millisecond))
	return c.v
}
