// Package e32 drives Ebyte E32 UART LoRa module: M0/M1 mode pins, AUX busy pin
// and the channel register. Implements radio.Device.
package e32

import (
	"fmt"
	"time"

	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

const consumer = "tlmbeacon-e32"

const (
	cmdSaveParams byte = 0xc0
	cmdTempParams byte = 0xc2
	cmdReadParams byte = 0xc1

	paramsSize = 6

	// E32-433 channel 0, 1MHz per channel
	BaseFrequencyKHz = 410000
	ChannelStepKHz   = 1000
	ChannelMax       = 31

	DefaultAuxTimeout = 1 * time.Second
	modeSettle        = 2 * time.Millisecond
	auxPoll           = 2 * time.Millisecond
)

type Mode uint8

const (
	ModeNormal Mode = iota
	ModeWake
	ModePowerSave
	ModeSleep

	modeUnknown Mode = 0xff
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeWake:
		return "wake"
	case ModePowerSave:
		return "powersave"
	case ModeSleep:
		return "sleep"
	}
	return fmt.Sprintf("mode%d", m)
}

func (m Mode) pins() (m0, m1 byte) { return byte(m & 1), byte(m >> 1) }

// Serial is the UART connected to module RXD/TXD. *uart.Port implements it.
type Serial interface {
	Write([]byte) (int, error)
	ReadFull(b []byte, timeout time.Duration) error
	Drain() error
	Flush() error
	Close() error
}

type Config struct {
	PinM0  int `hcl:"pin_m0"`
	PinM1  int `hcl:"pin_m1"`
	PinAux int `hcl:"pin_aux"`
	// OPTION register low bits, 0 = maximum
	Power      int           `hcl:"power"`
	AuxTimeout time.Duration `hcl:"-"`
}

type Module struct {
	log    *log2.Log
	serial Serial
	config Config
	mode   Mode
	params [paramsSize]byte

	modeLines gpio.Lineser
	setM0     gpio.LineSetFunc
	setM1     gpio.LineSetFunc
	auxLines  gpio.Lineser
}

func New(log *log2.Log, serial Serial, chip gpio.Chiper, config Config) (*Module, error) {
	if config.AuxTimeout == 0 {
		config.AuxTimeout = DefaultAuxTimeout
	}
	if config.Power < 0 || config.Power > 3 {
		return nil, errors.NotValidf("e32 power=%d", config.Power)
	}
	m := &Module{log: log, serial: serial, config: config, mode: modeUnknown}
	var err error
	m.modeLines, err = chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, consumer, uint32(config.PinM0), uint32(config.PinM1))
	if err != nil {
		return nil, errors.Annotate(err, "e32 mode pins")
	}
	m.setM0 = m.modeLines.SetFunc(uint32(config.PinM0))
	m.setM1 = m.modeLines.SetFunc(uint32(config.PinM1))
	m.auxLines, err = chip.OpenLines(gpio.GPIOHANDLE_REQUEST_INPUT, consumer, uint32(config.PinAux))
	if err != nil {
		m.modeLines.Close()
		return nil, errors.Annotate(err, "e32 aux pin")
	}
	return m, nil
}

// Init checks the module answers parameter query and leaves it in sleep mode.
func (m *Module) Init() error {
	if err := m.setMode(ModeSleep); err != nil {
		return err
	}
	if err := m.serial.Flush(); err != nil {
		return errors.Annotate(err, "e32 flush")
	}
	if err := m.command([]byte{cmdReadParams, cmdReadParams, cmdReadParams}); err != nil {
		return errors.Annotate(err, "e32 read params")
	}
	m.log.Debugf("e32 params=%x channel=%d", m.params, m.params[4])
	return nil
}

func (m *Module) Channel() byte { return m.params[4] }

func (m *Module) Mode() Mode { return m.mode }

// Channel maps frequency to module channel. Only exact channel frequencies
// are accepted, module cannot tune between steps.
func Channel(khz uint32) (byte, error) {
	if khz < BaseFrequencyKHz || khz > BaseFrequencyKHz+ChannelMax*ChannelStepKHz {
		return 0, errors.NotValidf("e32 frequency khz=%d", khz)
	}
	if (khz-BaseFrequencyKHz)%ChannelStepKHz != 0 {
		return 0, errors.NotValidf("e32 frequency khz=%d between channels, step=%d", khz, ChannelStepKHz)
	}
	return byte((khz - BaseFrequencyKHz) / ChannelStepKHz), nil
}

// SetFrequency writes channel and power to volatile registers when they differ.
// Previous mode is restored afterwards.
func (m *Module) SetFrequency(khz uint32) error {
	ch, err := Channel(khz)
	if err != nil {
		return err
	}
	option := m.params[5]&^3 | byte(m.config.Power)
	if ch == m.params[4] && option == m.params[5] {
		return nil
	}
	prev := m.mode
	if prev == modeUnknown {
		prev = ModeSleep
	}
	if err = m.setMode(ModeSleep); err != nil {
		return err
	}
	cmd := []byte{cmdTempParams, m.params[1], m.params[2], m.params[3], ch, option}
	if err = m.command(cmd); err != nil {
		return errors.Annotatef(err, "e32 set channel=%d", ch)
	}
	if m.params[4] != ch {
		return errors.Errorf("e32 channel=%d not applied, module reports %d", ch, m.params[4])
	}
	return m.setMode(prev)
}

func (m *Module) Wake() error { return m.setMode(ModeNormal) }

func (m *Module) Sleep() error { return m.setMode(ModeSleep) }

func (m *Module) Write(frame []byte) error {
	if m.mode == ModeSleep {
		return errors.Errorf("e32 write in mode=%s", m.mode)
	}
	if _, err := m.serial.Write(frame); err != nil {
		return errors.Annotate(err, "e32 write")
	}
	return errors.Annotate(m.serial.Drain(), "e32 drain")
}

// WaitDone returns when AUX goes high, meaning transmit buffer is empty.
func (m *Module) WaitDone(timeout time.Duration) error {
	return m.waitAux(timeout)
}

func (m *Module) Close() error {
	return errors.Annotate(helpers.FoldErrors([]error{m.modeLines.Close(), m.auxLines.Close(), m.serial.Close()}), "e32 close")
}

// command sends parameter request in sleep mode, reply replaces cached params.
func (m *Module) command(cmd []byte) error {
	if err := m.waitAux(m.config.AuxTimeout); err != nil {
		return err
	}
	if _, err := m.serial.Write(cmd); err != nil {
		return err
	}
	var reply [paramsSize]byte
	if err := m.serial.ReadFull(reply[:], m.config.AuxTimeout); err != nil {
		return err
	}
	if reply[0] != cmdSaveParams {
		return errors.Errorf("unexpected reply=%x", reply)
	}
	m.params = reply
	return nil
}

func (m *Module) setMode(mode Mode) error {
	if mode == m.mode {
		return nil
	}
	m0, m1 := mode.pins()
	m.setM0(m0)
	m.setM1(m1)
	if err := m.modeLines.Flush(); err != nil {
		return errors.Annotatef(err, "e32 mode=%s", mode)
	}
	m.mode = mode
	if err := m.waitAux(m.config.AuxTimeout); err != nil {
		return errors.Annotatef(err, "e32 mode=%s", mode)
	}
	time.Sleep(modeSettle)
	return nil
}

func (m *Module) waitAux(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		data, err := m.auxLines.Read()
		if err != nil {
			return errors.Annotate(err, "e32 aux read")
		}
		if data.Values[0] != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Timeoutf("e32 aux busy after %v", timeout)
		}
		time.Sleep(auxPoll)
	}
}
