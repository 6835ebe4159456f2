package text_display

import (
	"fmt"
	"sync"

	"github.com/hb9gl/tlmbeacon/log2"
)

func NewMockTextDisplay(log *log2.Log, opt Config) (*TextDisplay, *MockDevicer) {
	dev := new(MockDevicer)
	display, err := NewTextDisplay(log, opt)
	if err != nil {
		panic(err)
	}
	display.dev = dev
	return display, dev
}

// MockDevicer keeps last write per row.
type MockDevicer struct {
	mu     sync.Mutex
	l1, l2 []byte
	y, x   uint8
	Clears int
	writes int
}

func (self *MockDevicer) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Clears++
	self.l1, self.l2 = nil, nil
}

func (self *MockDevicer) CursorYX(y, x uint8) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.y, self.x = y, x
	return true
}

func (self *MockDevicer) Write(b []byte) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.writes++
	switch self.y {
	case 1:
		self.l1 = append([]byte(nil), b...)
	case 2:
		self.l2 = append([]byte(nil), b...)
	}
}

func (self *MockDevicer) WriteCount() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.writes
}

func (self *MockDevicer) String() string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return fmt.Sprintf("%s\n%s", self.l1, self.l2)
}
