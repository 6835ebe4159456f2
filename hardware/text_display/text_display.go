// Package text_display keeps two lines of text on character display,
// scrolls lines longer than display width and converts to display codepage.
package text_display

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
)

const (
	MaxWidth     = 40
	DefaultWidth = 16
)

var spaceBytes = bytes.Repeat([]byte{' '}, MaxWidth)

type TextDisplay struct {
	mu    sync.Mutex
	log   *log2.Log
	dev   Devicer
	tr    atomic.Value
	width uint32
	tick  uint32

	lines [2][]byte
	text  [2]string // for change log
	shown [2]frame
}

// frame is what was last written to device row
type frame struct {
	valid bool
	n     uint32
	b     [MaxWidth]byte
}

type Config struct {
	Codepage string
	Width    uint32
}

// Devicer is satisfied by *lcd.LCD.
type Devicer interface {
	Clear()
	CursorYX(y, x uint8) bool
	Write(b []byte)
}

func NewTextDisplay(log *log2.Log, opt Config) (*TextDisplay, error) {
	if opt.Width == 0 {
		opt.Width = DefaultWidth
	}
	if opt.Width > MaxWidth {
		return nil, errors.NotValidf("display width=%d max=%d", opt.Width, MaxWidth)
	}
	self := &TextDisplay{
		log:   log,
		width: opt.Width,
	}
	if opt.Codepage != "" {
		if err := self.SetCodepage(opt.Codepage); err != nil {
			return nil, errors.Annotatef(err, "display codepage=%s", opt.Codepage)
		}
	}
	return self, nil
}

func (self *TextDisplay) SetCodepage(cp string) error {
	tr, err := charset.TranslatorTo(cp)
	if err != nil {
		return err
	}
	self.tr.Store(tr)
	return nil
}

func (self *TextDisplay) SetDevice(dev Devicer) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.dev = dev
	self.shown = [2]frame{}
}

func (self *TextDisplay) Width() uint32 { return self.width }

func (self *TextDisplay) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.lines = [2][]byte{}
	self.shown = [2]frame{}
	self.dev.Clear()
}

// nil: don't change
// len=0: set empty
func (self *TextDisplay) SetLinesBytes(b1, b2 []byte) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if b1 != nil {
		self.lines[0] = b1
	}
	if b2 != nil {
		self.lines[1] = b2
	}
	self.tick = 0
	self.flush()
}

// SetLines logs only changed lines, refresh with equal content is silent.
func (self *TextDisplay) SetLines(line1, line2 string) {
	self.SetLinesBytes(self.Translate(line1), self.Translate(line2))
	self.mu.Lock()
	defer self.mu.Unlock()
	for i, s := range [2]string{line1, line2} {
		if self.text[i] != s {
			self.text[i] = s
			self.log.Debugf("display L%d=%s", i+1, s)
		}
	}
}

// Tick advances scrolling of lines longer than display width.
// Device is not touched when visible text stays the same.
func (self *TextDisplay) Tick() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.tick++
	self.flush()
}

// sometimes returns slice into shared spaceBytes
// sometimes returns `b` (len>=width-1)
// sometimes allocates new buffer
func (self *TextDisplay) JustCenter(b []byte) []byte {
	l := len(b)
	w := int(self.width)
	if l == 0 {
		return spaceBytes[:w]
	}
	if l >= w-1 {
		return b
	}
	padtotal := w - l
	n := padtotal / 2
	buf := make([]byte, 0, w)
	buf = append(buf, spaceBytes[:n]...)
	buf = append(buf, b...)
	buf = append(buf, spaceBytes[:n+padtotal%2]...) // odd length
	return buf
}

// Translate converts to display codepage and pads. Untranslatable input is shown as is.
// Trailing \x00 disables padding, cursor stays after text.
func (self *TextDisplay) Translate(s string) []byte {
	if len(s) == 0 {
		return spaceBytes[:0]
	}
	pad := true
	if s[len(s)-1] == '\x00' {
		pad = false
		s = s[:len(s)-1]
	}

	result := []byte(s)
	if tr, ok := self.tr.Load().(charset.Translator); ok && tr != nil {
		_, tb, err := tr.Translate(result, true)
		if err != nil {
			self.log.Errorf("display translate s=%q err=%v", s, err)
		} else {
			// translator reuses single internal buffer, make a copy
			result = append([]byte(nil), tb...)
		}
	}
	if pad {
		result = PadSpace(result, self.width)
	}
	return result
}

func (self *TextDisplay) flush() {
	for i := range self.lines {
		self.flushRow(uint8(i+1), self.lines[i], &self.shown[i])
	}
}

func (self *TextDisplay) flushRow(y uint8, content []byte, shown *frame) {
	var f frame
	b := f.b[:self.width]
	f.n = scrollWrap(b, content, self.tick)
	f.valid = true
	if *shown == f {
		return
	}
	*shown = f

	// rewrite without clear looks smoother
	// short line: erase whole row first
	if f.n < self.width {
		self.dev.CursorYX(y, 1)
		self.dev.Write(spaceBytes[:self.width])
	}
	if len(content) > 0 {
		self.dev.CursorYX(y, 1)
		self.dev.Write(b[:f.n])
	}
}

func PadSpace(b []byte, width uint32) []byte {
	l := uint32(len(b))
	if l == 0 {
		return spaceBytes[:width]
	}
	if l >= width {
		return b
	}
	buf := make([]byte, 0, width)
	buf = append(append(buf, b...), spaceBytes[:width-l]...)
	return buf
}

// relies that len(buf) == display width
func scrollWrap(buf []byte, content []byte, tick uint32) uint32 {
	length := uint32(len(content))
	width := uint32(len(buf))
	gap := width / 2
	n := 0
	if length <= width {
		n = copy(buf, content)
		copy(buf[n:], spaceBytes)
		return uint32(n)
	}

	offset := tick % (length + gap)
	if offset < length {
		n = copy(buf, content[offset:])
	} else {
		gap = gap - (offset - length)
	}
	n += copy(buf[n:], spaceBytes[:gap])
	n += copy(buf[n:], content[0:])
	return uint32(n)
}
