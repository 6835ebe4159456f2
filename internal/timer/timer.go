// Package timer implements polled interval timers for the cooperative scheduler.
// Timers never sleep or spawn goroutines, caller polls each one once per tick.
package timer

import (
	"fmt"
	"strings"
	"time"

	"github.com/hb9gl/tlmbeacon/internal/clock"
)

type Timer struct {
	Stamp    clock.Millis
	Duration uint32 // milliseconds
	Armed    bool
}

func New(now clock.Millis, d time.Duration) Timer {
	return Timer{Stamp: now, Duration: uint32(d / time.Millisecond), Armed: true}
}

// Poll reports whether interval elapsed and restarts it from now.
func (t *Timer) Poll(now clock.Millis) bool {
	if !t.Armed || !clock.Elapsed(now, t.Stamp, t.Duration) {
		return false
	}
	t.Stamp = now
	return true
}

// Expired is Poll without restart, used for timeouts.
func (t *Timer) Expired(now clock.Millis) bool {
	return t.Armed && clock.Elapsed(now, t.Stamp, t.Duration)
}

func (t *Timer) Reset(now clock.Millis) { t.Stamp = now }
func (t *Timer) Disarm()                { t.Armed = false }
func (t *Timer) Arm(now clock.Millis)   { t.Stamp = now; t.Armed = true }

func (t *Timer) Remaining(now clock.Millis) uint32 {
	elapsed := clock.Since(now, t.Stamp)
	if elapsed >= t.Duration {
		return 0
	}
	return t.Duration - elapsed
}

// Name of scheduler timer. Sensor repoll timers are owned by telemetry.Store.
type Name uint8

const (
	LED Name = iota
	StatusBeacon
	DataBeacon
	Display
	HostKeepalive
	count
)

var names = [count]string{"led", "status-beacon", "data-beacon", "display", "host-keepalive"}

func (n Name) String() string {
	if n < count {
		return names[n]
	}
	return fmt.Sprintf("timer(%d)", uint8(n))
}

// Bank is the fixed set of named independent timers.
type Bank struct {
	ts [count]Timer
}

func (b *Bank) Set(n Name, t Timer)                { b.ts[n] = t }
func (b *Bank) Get(n Name) *Timer                  { return &b.ts[n] }
func (b *Bank) Poll(n Name, now clock.Millis) bool { return b.ts[n].Poll(now) }

func (b *Bank) String() string {
	parts := make([]string, 0, count)
	for i := Name(0); i < count; i++ {
		t := &b.ts[i]
		if t.Armed {
			parts = append(parts, fmt.Sprintf("%s=%dms", i.String(), t.Duration))
		}
	}
	return strings.Join(parts, " ")
}
