package timer

import (
	"math"
	"testing"
	"time"

	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestPoll(t *testing.T) {
	t.Parallel()

	tm := New(1000, 500*time.Millisecond)
	assert.False(t, tm.Poll(1499))
	assert.True(t, tm.Poll(1500))
	assert.Equal(t, clock.Millis(1500), tm.Stamp)
	assert.False(t, tm.Poll(1999))
	assert.True(t, tm.Poll(2600))
	assert.Equal(t, uint32(500), tm.Remaining(2600))
	assert.Equal(t, uint32(0), tm.Remaining(3200))
}

func TestPollWraparound(t *testing.T) {
	t.Parallel()

	tm := New(math.MaxUint32-100, 200*time.Millisecond)
	assert.False(t, tm.Poll(50))
	assert.True(t, tm.Poll(99))
	assert.Equal(t, clock.Millis(99), tm.Stamp)
}

func TestDisarmed(t *testing.T) {
	t.Parallel()

	tm := Timer{Duration: 10}
	assert.False(t, tm.Poll(1000))
	assert.False(t, tm.Expired(1000))
	tm.Arm(1000)
	assert.True(t, tm.Expired(1010))
	assert.True(t, tm.Expired(1010), "Expired must not restart")
	tm.Disarm()
	assert.False(t, tm.Poll(5000))
}

func TestBankIndependent(t *testing.T) {
	t.Parallel()

	var b Bank
	b.Set(LED, New(0, 100*time.Millisecond))
	b.Set(DataBeacon, New(0, 300*time.Millisecond))
	assert.True(t, b.Poll(LED, 100))
	assert.False(t, b.Poll(DataBeacon, 100))
	assert.True(t, b.Poll(LED, 200))
	assert.True(t, b.Poll(DataBeacon, 300))
	assert.Equal(t, "led=100ms data-beacon=300ms", b.String())
	assert.Equal(t, "host-keepalive", HostKeepalive.String())
}
