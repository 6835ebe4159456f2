package state

import (
	"sync"
	"sync/atomic"

	"github.com/hb9gl/tlmbeacon/hardware/e32"
	"github.com/hb9gl/tlmbeacon/hardware/lcd"
	"github.com/hb9gl/tlmbeacon/hardware/pins"
	"github.com/hb9gl/tlmbeacon/hardware/sensors"
	"github.com/hb9gl/tlmbeacon/hardware/text_display"
	"github.com/hb9gl/tlmbeacon/hardware/uart"
	"github.com/hb9gl/tlmbeacon/internal/display"
	"github.com/hb9gl/tlmbeacon/internal/hostlink"
	"github.com/hb9gl/tlmbeacon/internal/persist"
	"github.com/hb9gl/tlmbeacon/internal/radio"
	"github.com/hb9gl/tlmbeacon/internal/telemetry"
	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

// Fields set before first use are kept, tests inject mocks this way.
type hardware struct {
	chips struct {
		sync.Mutex
		m map[string]gpio.Chiper
	}
	Host struct {
		once
		Port hostlink.Port
	}
	Radio struct {
		once
		Device  radio.Device
		Gateway *radio.Gateway
	}
	Power struct {
		once
		Inputs sensors.PowerReader
	}
	LED struct {
		once
		Output *pins.Output
	}
	Sensors struct {
		once
		Source telemetry.SensorSource
	}
	Display struct {
		once
		Device  *lcd.LCD
		Display *text_display.TextDisplay
		Sink    *display.Sink
	}
	Counter struct {
		once
		Counter telemetry.PersistentCounter
	}
}

// Chip opens GPIO character device once per path.
func (g *Global) Chip(path string) (gpio.Chiper, error) {
	x := &g.Hardware.chips
	x.Lock()
	defer x.Unlock()
	if c, ok := x.m[path]; ok {
		return c, nil
	}
	c, err := gpio.Open(path, "tlmbeacon")
	if err != nil {
		return nil, errors.Annotatef(err, "gpio chip=%s", path)
	}
	if x.m == nil {
		x.m = make(map[string]gpio.Chiper)
	}
	x.m[path] = c
	return c, nil
}

// HostPort returns nil,nil when host link is not configured.
func (g *Global) HostPort() (hostlink.Port, error) {
	x := &g.Hardware.Host
	_ = x.do(func() error {
		if x.Port != nil {
			return nil
		}
		cfg := &g.Config.Hardware.Host
		if cfg.Device == "" {
			g.Log.Infof("host link disabled, hardware.host.device is empty")
			return nil
		}
		p, err := uart.Open(cfg.Device, cfg.Baud)
		if err != nil {
			return errors.Annotatef(err, "config: hardware.host=%#v", *cfg)
		}
		x.Port = p
		return nil
	})
	return x.Port, x.err
}

func (g *Global) Radio() (*radio.Gateway, error) {
	x := &g.Hardware.Radio
	_ = x.do(func() error {
		if x.Gateway != nil {
			return nil
		}
		if x.Device == nil {
			dev, err := g.radioDevice()
			if err != nil {
				return err
			}
			x.Device = dev
		}
		x.Gateway = radio.NewGateway(g.Log, x.Device, g.Config.RadioConfig())
		// same LED blinks while idle and stays lit during transmit
		if led, _ := g.StatusLED(); led != nil {
			x.Gateway.SetIndicator(led)
		}
		return nil
	})
	return x.Gateway, x.err
}

func (g *Global) radioDevice() (radio.Device, error) {
	cfg := &g.Config.Hardware.Radio
	switch cfg.Driver {
	case RadioDriverLog:
		return &radio.LogDevice{Log: g.Log}, nil

	case RadioDriverE32:
		chip, err := g.Chip(cfg.PinChip)
		if err != nil {
			return nil, errors.Annotate(err, "radio")
		}
		port, err := uart.Open(cfg.Device, cfg.Baud)
		if err != nil {
			return nil, errors.Annotatef(err, "radio device=%s", cfg.Device)
		}
		m, err := e32.New(g.Log, port, chip, e32.Config{
			PinM0:  cfg.PinM0,
			PinM1:  cfg.PinM1,
			PinAux: cfg.PinAux,
			Power:  cfg.Power,
		})
		if err != nil {
			port.Close()
			return nil, errors.Annotate(err, "radio")
		}
		return m, nil
	}
	return nil, errors.NotSupportedf("radio driver=%s", cfg.Driver)
}

// PowerInputs returns nil,nil when hardware.pins.chip is empty.
func (g *Global) PowerInputs() (sensors.PowerReader, error) {
	x := &g.Hardware.Power
	_ = x.do(func() error {
		if x.Inputs != nil {
			return nil
		}
		cfg := g.Config.Hardware.Pins
		if cfg.Chip == "" {
			return nil
		}
		chip, err := g.Chip(cfg.Chip)
		if err != nil {
			return err
		}
		in, err := pins.OpenInputs(chip, cfg)
		if err != nil {
			return err
		}
		x.Inputs = in
		return nil
	})
	return x.Inputs, x.err
}

// StatusLED requires positive hardware.pins.led line.
func (g *Global) StatusLED() (*pins.Output, error) {
	x := &g.Hardware.LED
	_ = x.do(func() error {
		if x.Output != nil {
			return nil
		}
		cfg := g.Config.Hardware.Pins
		if cfg.Chip == "" || cfg.LED <= 0 {
			return nil
		}
		chip, err := g.Chip(cfg.Chip)
		if err != nil {
			return err
		}
		x.Output, err = pins.OpenOutput(chip, cfg.LED)
		return err
	})
	return x.Output, x.err
}

func (g *Global) Sensors() (telemetry.SensorSource, error) {
	x := &g.Hardware.Sensors
	_ = x.do(func() error {
		if x.Source != nil {
			return nil
		}
		power, err := g.PowerInputs()
		if err != nil {
			return errors.Annotate(err, "sensors power inputs")
		}
		cfg := g.Config.Hardware.Sensors
		switch cfg.Driver {
		case sensors.DriverFixed:
			x.Source = sensors.NewFixed(cfg, power)
			return nil
		case sensors.DriverPeriph:
			p, err := sensors.NewPeriph(cfg, power)
			if err != nil {
				return errors.Annotatef(err, "config: hardware.sensors=%#v", cfg)
			}
			x.Source = p
			return nil
		}
		return errors.NotSupportedf("sensors driver=%s", cfg.Driver)
	})
	return x.Source, x.err
}

// DisplaySink returns nil,nil when display is disabled.
func (g *Global) DisplaySink() (*display.Sink, error) {
	x := &g.Hardware.Display
	_ = x.do(func() error {
		if x.Sink != nil {
			return nil
		}
		cfg := &g.Config.Hardware.Display
		if x.Display == nil {
			if !cfg.Enable {
				g.Log.Infof("display is disabled")
				return nil
			}
			chip, err := g.Chip(cfg.PinChip)
			if err != nil {
				return errors.Annotate(err, "display")
			}
			x.Device, err = lcd.Open(chip, cfg.Pinmap, uint8(cfg.Width), cfg.Page1)
			if err != nil {
				return errors.Annotatef(err, "config: hardware.display=%#v", *cfg)
			}
			x.Display, err = text_display.NewTextDisplay(g.Log, text_display.Config{
				Codepage: cfg.Codepage,
				Width:    uint32(cfg.Width),
			})
			if err != nil {
				return err
			}
			x.Display.SetDevice(x.Device)
		}
		x.Sink = display.NewSink(x.Display)
		return nil
	})
	return x.Sink, x.err
}

func (g *Global) Counter() (telemetry.PersistentCounter, error) {
	x := &g.Hardware.Counter
	_ = x.do(func() error {
		if x.Counter != nil {
			return nil
		}
		c, err := persist.NewCounter(g.Config.Persist.Root, g.Log)
		if err != nil {
			return errors.Annotatef(err, "config: persist.root=%s", g.Config.Persist.Root)
		}
		x.Counter = c
		return nil
	})
	return x.Counter, x.err
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
