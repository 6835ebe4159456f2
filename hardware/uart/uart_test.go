package uart

import (
	"os"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestBaudFlag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		baud   int
		expect uint32
		ok     bool
	}{
		{9600, unix.B9600, true},
		{115200, unix.B115200, true},
		{1200, unix.B1200, true},
		{9601, 0, false},
		{0, 0, false},
	}
	for _, c := range cases {
		c := c
		t.Run("", func(t *testing.T) {
			t.Parallel()
			b, err := BaudFlag(c.baud)
			if !c.ok {
				assert.True(t, errors.IsNotSupported(err), "baud=%d err=%v", c.baud, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, b)
		})
	}
}

func socketPorts(t testing.TB) (*Port, *Port) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a := newPort(os.NewFile(uintptr(fds[0]), "a"))
	b := newPort(os.NewFile(uintptr(fds[1]), "b"))
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestBufferedRead(t *testing.T) {
	t.Parallel()
	a, b := socketPorts(t)

	n, err := b.Buffered()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ready, err := a.WriteReady()
	require.NoError(t, err)
	assert.True(t, ready)
	_, err = a.Write([]byte{0x02, 0, 0, 0, 0x0b, 0x00})
	require.NoError(t, err)

	n, err = b.Buffered()
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	buf := make([]byte, 6)
	require.NoError(t, b.ReadFull(buf, 50*time.Millisecond))
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0x0b, 0x00}, buf)
}

func TestReadFullTimeout(t *testing.T) {
	t.Parallel()
	a, b := socketPorts(t)

	_, err := a.Write([]byte{0xc0, 0x00})
	require.NoError(t, err)
	buf := make([]byte, 6)
	err = b.ReadFull(buf, 10*time.Millisecond)
	require.Error(t, err)
	_, isTimeout := err.(ErrTimeoutT)
	assert.True(t, isTimeout, "err=%v", err)
	assert.Equal(t, []byte{0xc0, 0x00}, buf[:2])
}
