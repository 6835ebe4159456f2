package hostlink

import (
	"bytes"

	"github.com/juju/errors"
)

// MockPort is in-memory Port for tests and cli loopback.
type MockPort struct {
	In  bytes.Buffer
	Out bytes.Buffer
	// WriteReady returns false this many times before each true.
	NotReady   int
	ReadyPolls int
	Writes     [][]byte
	Err        error

	pending int
}

func NewMockPort() *MockPort { return &MockPort{} }

func (m *MockPort) Feed(bs ...[]byte) {
	for _, b := range bs {
		m.In.Write(b)
	}
}

func (m *MockPort) Buffered() (int, error) { return m.In.Len(), m.Err }

func (m *MockPort) Read(p []byte) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.In.Read(p)
}

func (m *MockPort) WriteReady() (bool, error) {
	m.ReadyPolls++
	if m.Err != nil {
		return false, m.Err
	}
	if m.pending < m.NotReady {
		m.pending++
		return false, nil
	}
	m.pending = 0
	return true, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	if m.Err != nil {
		return 0, errors.Trace(m.Err)
	}
	m.Writes = append(m.Writes, append([]byte(nil), p...))
	return m.Out.Write(p)
}
