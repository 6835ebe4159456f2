// Package pins binds power-presence inputs and the status LED to GPIO character device lines.
package pins

import (
	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

const consumer = "tlmbeacon"

type Config struct {
	Chip      string `hcl:"chip"`
	USB       int    `hcl:"usb"`
	Mains     int    `hcl:"mains"`
	LED       int    `hcl:"led"`
	ActiveLow bool   `hcl:"active_low"`
}

type Inputs struct {
	lines gpio.Lineser
}

// OpenInputs requests usb and mains lines, in that order.
func OpenInputs(chip gpio.Chiper, config Config) (*Inputs, error) {
	flag := gpio.GPIOHANDLE_REQUEST_INPUT
	if config.ActiveLow {
		flag |= gpio.GPIOHANDLE_REQUEST_ACTIVE_LOW
	}
	lines, err := chip.OpenLines(flag, consumer, uint32(config.USB), uint32(config.Mains))
	if err != nil {
		return nil, errors.Annotatef(err, "pins inputs usb=%d mains=%d", config.USB, config.Mains)
	}
	return &Inputs{lines: lines}, nil
}

func (i *Inputs) ReadPower() (usb bool, mains bool, err error) {
	data, err := i.lines.Read()
	if err != nil {
		return false, false, errors.Annotate(err, "pins read")
	}
	return data.Values[0] != 0, data.Values[1] != 0, nil
}

func (i *Inputs) Close() error { return i.lines.Close() }

type Output struct {
	lines gpio.Lineser
	set   gpio.LineSetFunc
	value bool
}

func OpenOutput(chip gpio.Chiper, line int) (*Output, error) {
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, consumer, uint32(line))
	if err != nil {
		return nil, errors.Annotatef(err, "pins output line=%d", line)
	}
	return &Output{lines: lines, set: lines.SetFunc(uint32(line))}, nil
}

func (o *Output) Set(b bool) error {
	var v byte
	if b {
		v = 1
	}
	o.set(v)
	o.value = b
	return errors.Annotate(o.lines.Flush(), "pins flush")
}

func (o *Output) Value() bool { return o.value }

func (o *Output) Close() error { return o.lines.Close() }
