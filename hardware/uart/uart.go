// Package uart is raw termios serial port for the host link and the radio module.
package uart

import (
	"os"
	"syscall"
	"time"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

type ErrTimeoutT string

func (e ErrTimeoutT) Error() string { return string(e) }
func (ErrTimeoutT) Timeout() bool   { return true }

var bauds = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

func BaudFlag(baud int) (uint32, error) {
	if b, ok := bauds[baud]; ok {
		return b, nil
	}
	return 0, errors.NotSupportedf("baud=%d", baud)
}

type Port struct {
	f  *os.File
	fd int
}

func Open(path string, baud int) (*Port, error) {
	speed, err := BaudFlag(baud)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, syscall.O_RDWR|syscall.O_NOCTTY, 0600)
	if err != nil {
		return nil, errors.Annotatef(err, "uart open %s", path)
	}
	p := newPort(f)
	if err = p.raw(speed); err != nil {
		f.Close()
		return nil, errors.Annotatef(err, "uart termios %s", path)
	}
	return p, nil
}

func newPort(f *os.File) *Port { return &Port{f: f, fd: int(f.Fd())} }

// 8N1, no echo, no line discipline, VMIN=1
func (p *Port) raw(speed uint32) error {
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag = unix.IGNBRK
	t.Oflag = 0
	t.Lflag = 0
	t.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err = unix.IoctlSetTermios(p.fd, unix.TCSETS, t); err != nil {
		return err
	}
	return p.Flush()
}

// Buffered returns number of received bytes ready to read without blocking.
func (p *Port) Buffered() (int, error) {
	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	return n, errors.Annotate(err, "uart FIONREAD")
}

func (p *Port) Read(b []byte) (int, error) { return p.f.Read(b) }

func (p *Port) WriteReady() (bool, error) {
	ok, err := p.poll(unix.POLLOUT, 0)
	return ok, errors.Annotate(err, "uart poll out")
}

func (p *Port) Write(b []byte) (int, error) { return p.f.Write(b) }

// ReadFull fills b or fails with timeout error when input stalls for longer than timeout.
func (p *Port) ReadFull(b []byte, timeout time.Duration) error {
	for len(b) > 0 {
		ok, err := p.poll(unix.POLLIN, timeout)
		if err != nil {
			return errors.Annotate(err, "uart poll in")
		}
		if !ok {
			return ErrTimeoutT("uart read timeout")
		}
		n, err := p.f.Read(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Drain waits until output is transmitted.
func (p *Port) Drain() error {
	return errors.Annotate(unix.IoctlSetInt(p.fd, unix.TCSBRK, 1), "uart drain")
}

// Flush discards unread input and unsent output.
func (p *Port) Flush() error {
	return errors.Annotate(unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH), "uart flush")
}

func (p *Port) Close() error { return p.f.Close() }

func (p *Port) poll(events int16, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: events}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&events != 0, nil
	}
}
