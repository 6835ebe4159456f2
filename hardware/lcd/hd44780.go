// Package lcd is HD44780 character display in 4-bit mode over GPIO lines.
package lcd

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

type Command byte

const (
	CommandClear   Command = 0x01
	CommandReturn  Command = 0x02
	CommandControl Command = 0x08
	CommandAddress Command = 0x80
)

type Control byte

const (
	ControlOn         Control = 0x04
	ControlUnderscore Control = 0x02
	ControlBlink      Control = 0x01
)
const ddramWidth = 0x40

type LCD struct {
	control Control
	columns uint8
	lines   gpio.Lineser
	err     error
	pin_rs  gpio.LineSetFunc // command/data, aliases: A0, RS
	pin_rw  gpio.LineSetFunc // read/write
	pin_e   gpio.LineSetFunc // enable
	pin_d4  gpio.LineSetFunc
	pin_d5  gpio.LineSetFunc
	pin_d6  gpio.LineSetFunc
	pin_d7  gpio.LineSetFunc
}

// PinMap values are line offsets on the chip.
type PinMap struct {
	RS int `hcl:"rs"`
	RW int `hcl:"rw"`
	E  int `hcl:"e"`
	D4 int `hcl:"d4"`
	D5 int `hcl:"d5"`
	D6 int `hcl:"d6"`
	D7 int `hcl:"d7"`
}

func (p PinMap) offsets() []uint32 {
	return []uint32{uint32(p.RS), uint32(p.RW), uint32(p.E), uint32(p.D4), uint32(p.D5), uint32(p.D6), uint32(p.D7)}
}

// page1 selects second font table, required for cyrillic on some clones.
func Open(chip gpio.Chiper, pinmap PinMap, columns uint8, page1 bool) (*LCD, error) {
	offs := pinmap.offsets()
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, "tlmbeacon-lcd", offs...)
	if err != nil {
		return nil, errors.Annotate(err, "lcd pins")
	}
	self := &LCD{columns: columns, lines: lines}
	self.pin_rs = lines.SetFunc(offs[0])
	self.pin_rw = lines.SetFunc(offs[1])
	self.pin_e = lines.SetFunc(offs[2])
	self.pin_d4 = lines.SetFunc(offs[3])
	self.pin_d5 = lines.SetFunc(offs[4])
	self.pin_d6 = lines.SetFunc(offs[5])
	self.pin_d7 = lines.SetFunc(offs[6])

	self.init4(page1)
	if self.err != nil {
		lines.Close()
		return nil, errors.Annotate(self.err, "lcd init")
	}
	return self, nil
}

// Err returns first GPIO error since last call.
func (self *LCD) Err() error {
	err := self.err
	self.err = nil
	return err
}

func (self *LCD) Close() error { return self.lines.Close() }

func (self *LCD) flush() {
	if err := self.lines.Flush(); err != nil && self.err == nil {
		self.err = err
	}
}

func (self *LCD) setAllPins(b byte) {
	self.pin_rs(b)
	self.pin_rw(b)
	self.pin_e(b)
	self.pin_d4(b)
	self.pin_d5(b)
	self.pin_d6(b)
	self.pin_d7(b)
	self.flush()
}

func (self *LCD) blinkE() {
	self.pin_e(1)
	self.flush()
	time.Sleep(1 * time.Microsecond)
	self.pin_e(0)
	self.flush()
	time.Sleep(1 * time.Microsecond)
}

func (self *LCD) send4(rs, d4, d5, d6, d7 byte) {
	self.pin_rs(rs)
	self.pin_d4(d4)
	self.pin_d5(d5)
	self.pin_d6(d6)
	self.pin_d7(d7)
	self.blinkE()
}

func (self *LCD) init4(page1 bool) {
	time.Sleep(20 * time.Millisecond)

	// special sequence
	self.Command(0x33)
	self.Command(0x32)

	self.SetFunction(false, page1)
	self.SetControl(0) // off
	self.SetControl(ControlOn)
	self.Clear()
	self.SetEntryMode(true, false)
}

func bb(b, bit byte) byte {
	if b&(1<<bit) == 0 {
		return 0
	}
	return 1
}

func (self *LCD) Command(c Command) {
	b := byte(c)
	self.send4(0, bb(b, 4), bb(b, 5), bb(b, 6), bb(b, 7))
	self.send4(0, bb(b, 0), bb(b, 1), bb(b, 2), bb(b, 3))
	// RW is not wired for reading busy flag on most boards
	time.Sleep(40 * time.Microsecond)
	self.setAllPins(0)
}

func (self *LCD) Data(b byte) {
	self.send4(1, bb(b, 4), bb(b, 5), bb(b, 6), bb(b, 7))
	self.send4(1, bb(b, 0), bb(b, 1), bb(b, 2), bb(b, 3))
	time.Sleep(40 * time.Microsecond)
	self.setAllPins(0)
}

func (self *LCD) Write(bs []byte) {
	for _, b := range bs {
		self.Data(b)
	}
}

func (self *LCD) Clear() {
	self.Command(CommandClear)
	time.Sleep(2 * time.Millisecond)
}

func (self *LCD) Return() {
	self.Command(CommandReturn)
}

func (self *LCD) SetEntryMode(right, shift bool) {
	var cmd Command = 0x04
	if right {
		cmd |= 0x02
	}
	if shift {
		cmd |= 0x01
	}
	self.Command(cmd)
}

func (self *LCD) Control() Control {
	return self.control
}
func (self *LCD) SetControl(new Control) Control {
	old := self.control
	self.control = new
	self.Command(CommandControl | Command(new))
	return old
}

func (self *LCD) SetFunction(bits8, page1 bool) {
	var cmd Command = 0x28
	if bits8 {
		cmd |= 0x10
	}
	if page1 {
		cmd |= 0x02
	}
	self.Command(cmd)
}

func (self *LCD) CursorYX(row uint8, column uint8) bool {
	if !(row > 0 && row <= 2) {
		return false
	}
	if !(column > 0 && column <= self.columns) {
		return false
	}
	addr := (row-1)*ddramWidth + (column - 1)
	self.Command(CommandAddress | Command(addr))
	return true
}
