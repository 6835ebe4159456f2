package clock

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSinceWraparound(t *testing.T) {
	t.Parallel()

	type Case struct {
		name   string
		now    Millis
		stamp  Millis
		expect uint32
	}
	cases := []Case{
		{"zero", 0, 0, 0},
		{"plain", 1500, 500, 1000},
		{"wrap", 99, math.MaxUint32 - 900, 1000},
		{"wrap-exact", 0, math.MaxUint32, 1},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, Since(c.now, c.stamp))
			assert.True(t, Elapsed(c.now, c.stamp, c.expect))
			assert.False(t, Elapsed(c.now, c.stamp, c.expect+1))
		})
	}
}

func TestManual(t *testing.T) {
	t.Parallel()

	c := NewManual(math.MaxUint32 - 10)
	stamp := c.Now()
	c.Advance(25 * time.Millisecond)
	assert.Equal(t, Millis(14), c.Now())
	assert.Equal(t, uint32(25), Since(c.Now(), stamp))
	assert.Equal(t, uint32(2), Millis(2500).Seconds())
}
