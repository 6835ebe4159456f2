package radio

import (
	"fmt"
	"time"
)

// MockDevice records device calls as short strings, e.g. "freq=433775".
type MockDevice struct {
	Calls   []string
	Frames  [][]byte
	InitErr error
	// FailOn makes matching call return Err.
	FailOn string
	Err    error
}

func (m *MockDevice) call(s string) error {
	m.Calls = append(m.Calls, s)
	if m.FailOn == s {
		return m.Err
	}
	return nil
}

func (m *MockDevice) Init() error {
	m.Calls = append(m.Calls, "init")
	return m.InitErr
}
func (m *MockDevice) Wake() error                  { return m.call("wake") }
func (m *MockDevice) Sleep() error                 { return m.call("sleep") }
func (m *MockDevice) Close() error                 { return nil }
func (m *MockDevice) WaitDone(time.Duration) error { return m.call("done") }

func (m *MockDevice) SetFrequency(khz uint32) error { return m.call(fmt.Sprintf("freq=%d", khz)) }

func (m *MockDevice) Write(frame []byte) error {
	m.Frames = append(m.Frames, append([]byte(nil), frame...))
	return m.call("write")
}

// Payloads returns written frames without preamble.
func (m *MockDevice) Payloads() []string {
	ss := make([]string, 0, len(m.Frames))
	for _, f := range m.Frames {
		if len(f) >= len(Preamble) {
			f = f[len(Preamble):]
		}
		ss = append(ss, string(f))
	}
	return ss
}

func (m *MockDevice) Reset() {
	m.Calls = nil
	m.Frames = nil
}
