// Package radio frames APRS packets and drives the transmit cycle of a radio module.
package radio

import (
	"time"

	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

// Preamble precedes every packet on air, expected by LoRa APRS receivers.
var Preamble = [3]byte{'<', 0xff, 0x01}

// Device is a half-duplex radio module. Each method may block for the
// physical duration of the operation.
type Device interface {
	Init() error
	Wake() error
	SetFrequency(khz uint32) error
	Write(frame []byte) error
	WaitDone(timeout time.Duration) error
	Sleep() error
	Close() error
}

// Indicator is lit for the duration of every transmit.
type Indicator interface {
	Set(on bool) error
}

type Config struct {
	TxFrequencyKHz   uint32
	IdleFrequencyKHz uint32
	// upper bound for WaitDone, 0 = DefaultDoneTimeout
	DoneTimeout time.Duration
}

const DefaultDoneTimeout = 5 * time.Second

type Gateway struct {
	log    *log2.Log
	dev    Device
	config Config
	ind    Indicator
	buf    []byte
}

func NewGateway(log *log2.Log, dev Device, config Config) *Gateway {
	if config.DoneTimeout == 0 {
		config.DoneTimeout = DefaultDoneTimeout
	}
	if config.IdleFrequencyKHz == 0 {
		config.IdleFrequencyKHz = config.TxFrequencyKHz
	}
	return &Gateway{log: log, dev: dev, config: config}
}

// SetIndicator is optional, nil disables.
func (g *Gateway) SetIndicator(i Indicator) { g.ind = i }

// Init error is fatal for the beacon.
func (g *Gateway) Init() error {
	return errors.Annotate(g.dev.Init(), "radio init")
}

func Frame(buf, payload []byte) []byte {
	buf = append(buf[:0], Preamble[:]...)
	return append(buf, payload...)
}

// Transmit blocks until packet is on air and radio is back in sleep.
// No queue, no retry. On failure the radio is still put to sleep.
func (g *Gateway) Transmit(payload []byte) error {
	g.buf = Frame(g.buf, payload)
	g.indicate(true)
	defer g.indicate(false)
	err := g.transmit(g.buf)
	if err != nil {
		err = helpers.FoldErrors([]error{
			err,
			errors.Annotate(g.dev.SetFrequency(g.config.IdleFrequencyKHz), "restore frequency"),
			errors.Annotate(g.dev.Sleep(), "sleep"),
		})
		return errors.Annotate(err, "radio transmit")
	}
	g.log.Debugf("radio sent len=%d %q", len(payload), payload)
	return nil
}

func (g *Gateway) transmit(frame []byte) error {
	if err := g.dev.Wake(); err != nil {
		return errors.Annotate(err, "wake")
	}
	if err := g.dev.SetFrequency(g.config.TxFrequencyKHz); err != nil {
		return errors.Annotate(err, "tx frequency")
	}
	if err := g.dev.Write(frame); err != nil {
		return errors.Annotate(err, "write")
	}
	if err := g.dev.WaitDone(g.config.DoneTimeout); err != nil {
		return errors.Annotate(err, "wait done")
	}
	if err := g.dev.SetFrequency(g.config.IdleFrequencyKHz); err != nil {
		return errors.Annotate(err, "idle frequency")
	}
	return errors.Annotate(g.dev.Sleep(), "sleep")
}

func (g *Gateway) indicate(on bool) {
	if g.ind == nil {
		return
	}
	if err := g.ind.Set(on); err != nil {
		g.log.Debugf("radio indicator err=%v", err)
	}
}

func (g *Gateway) Close() error { return g.dev.Close() }
