// Package persist keeps the packet sequence low byte across restarts.
// Storage is extremofile: main and backup copy with checksum, atomic replace.
package persist

import (
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/hb9gl/tlmbeacon/internal/telemetry"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/temoto/extremofile"
)

// CounterTag is the directory under root.
const CounterTag = "sequence"

type file interface {
	Read() ([]byte, error)
	io.Writer
}

// Counter with nil file keeps value in memory only.
type Counter struct {
	sync.Mutex
	log   *log2.Log
	file  file
	value byte
}

var _ telemetry.PersistentCounter = &Counter{}

// NewCounter with empty root returns disabled counter, it never touches disk.
func NewCounter(root string, log *log2.Log) (*Counter, error) {
	c := &Counter{log: log}
	if root == "" {
		log.Debugf("persist %s disabled", CounterTag)
		return c, nil
	}
	c.file = extremofile.New(extremofile.Config{
		Dir:      filepath.Join(root, CounterTag),
		DirPerm:  0755,
		FilePerm: 0644,
	})
	return c, nil
}

// Load returns 0 when nothing was stored yet.
func (c *Counter) Load() (byte, error) {
	c.Lock()
	defer c.Unlock()
	if c.file == nil {
		return c.value, nil
	}
	tbegin := time.Now()
	b, err := c.file.Read()
	c.log.Debugf("persist %s read duration=%v", CounterTag, time.Since(tbegin))
	if b == nil {
		return c.value, errors.Annotatef(err, "persist %s load", CounterTag)
	}
	if err != nil {
		// backup copy was used
		c.log.Errorf("persist %s ignore non-critical storage err=%v", CounterTag, err)
	}
	if len(b) != 1 {
		return c.value, errors.NotValidf("persist %s length=%d", CounterTag, len(b))
	}
	c.value = b[0]
	return c.value, nil
}

func (c *Counter) Store(b byte) error {
	c.Lock()
	defer c.Unlock()
	c.value = b
	if c.file == nil {
		return nil
	}
	tbegin := time.Now()
	_, err := c.file.Write([]byte{b})
	c.log.Debugf("persist %s write duration=%v", CounterTag, time.Since(tbegin))
	return errors.Annotatef(err, "persist %s store", CounterTag)
}
