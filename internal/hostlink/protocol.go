// Package hostlink implements the beacon side of the binary host protocol.
// Frame is uint32 little-endian command code followed by fixed size payload,
// size is implied by code. There is no resync marker: garbage that happens
// to look like a valid code is parsed as one.
package hostlink

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

// Port is the host byte stream. Read must not block when Buffered reported bytes.
type Port interface {
	Buffered() (int, error)
	Read(p []byte) (int, error)
	// WriteReady may block briefly (poll) but must return.
	WriteReady() (bool, error)
	Write(p []byte) (int, error)
}

// Handler receives decoded commands in scheduler goroutine.
type Handler interface {
	// HostAlive is called for every recognized command, before specific method.
	HostAlive()
	HostLinkStatus(LinkStatus)
	// HostStatus refreshes sensors and returns current response.
	HostStatus() StatusResponse
	// HostReboot never returns to protocol in production.
	HostReboot()
}

type State uint8

const (
	StateIdle State = iota
	StateReadingCommand
	StateReadingPayload
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingCommand:
		return "command"
	case StateReadingPayload:
		return "payload"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type Stat struct {
	Frames    uint32
	Unknown   uint32
	Truncated uint32
	Responses uint32
}

func (s Stat) String() string {
	return fmt.Sprintf("frames=%d unknown=%d truncated=%d responses=%d", s.Frames, s.Unknown, s.Truncated, s.Responses)
}

type Config struct {
	// Incomplete frame is discarded after this time. Zero means payload
	// must be fully buffered when command is read.
	FrameTimeout time.Duration
	// Upper bound of bytes consumed by one Service call, 0 = unlimited.
	BytesPerTick int
}

type Protocol struct {
	log     *log2.Log
	port    Port
	handler Handler
	timeout uint32

	budget int
	state  State
	code   Code
	need   int
	stamp  clock.Millis
	buf    [CodeSize + DummySize]byte
	n      int
	stat   Stat
}

func NewProtocol(log *log2.Log, port Port, handler Handler, config Config) *Protocol {
	return &Protocol{
		log:     log,
		port:    port,
		handler: handler,
		timeout: helpers.DurationMillis(config.FrameTimeout),
		budget:  config.BytesPerTick,
	}
}

func (p *Protocol) State() State { return p.state }
func (p *Protocol) Stat() Stat   { return p.stat }

// Service consumes buffered input without waiting for more bytes.
// Only blocking part is writing status response.
func (p *Protocol) Service(now clock.Millis) error {
	avail, err := p.port.Buffered()
	if err != nil {
		return errors.Annotate(err, "hostlink buffered")
	}
	limited := false
	if p.budget > 0 && avail > p.budget {
		avail, limited = p.budget, true
	}

	for {
		switch p.state {
		case StateIdle:
			if avail == 0 {
				return nil
			}
			p.state = StateReadingCommand
			p.stamp = now
			p.n = 0
			p.need = CodeSize

		case StateReadingCommand, StateReadingPayload:
			if avail > 0 && p.n < p.need {
				chunk := p.need - p.n
				if chunk > avail {
					chunk = avail
				}
				n, err := p.port.Read(p.buf[p.n : p.n+chunk])
				p.n += n
				avail -= n
				if err != nil {
					return errors.Annotate(err, "hostlink read")
				}
				if n == 0 {
					avail = 0
				}
			}
			if p.n < p.need {
				if !limited && clock.Elapsed(now, p.stamp, p.timeout) {
					p.stat.Truncated++
					p.log.Debugf("hostlink drop truncated %s have=%d need=%d (%s)", p.state, p.n, p.need, p.stat)
					p.state = StateIdle
				}
				return nil
			}
			if p.state == StateReadingCommand {
				p.code = Code(binary.LittleEndian.Uint32(p.buf[:CodeSize]))
				size, ok := RequestSize(p.code)
				if !ok {
					p.stat.Unknown++
					p.log.Debugf("hostlink drop unknown %s (%s)", p.code, p.stat)
					p.state = StateIdle
					continue
				}
				p.state = StateReadingPayload
				p.need = CodeSize + size
				continue
			}
			p.state = StateIdle
			if err := p.dispatch(p.buf[CodeSize:p.n]); err != nil {
				return err
			}
		}
	}
}

func (p *Protocol) dispatch(payload []byte) error {
	p.stat.Frames++
	p.log.Debugf("hostlink frame %s payload=%x", p.code, payload)
	p.handler.HostAlive()
	switch p.code {
	case CodeLinkStatus:
		ls, err := DecodeLinkStatus(payload)
		if err != nil {
			return errors.Trace(err)
		}
		p.handler.HostLinkStatus(ls)
	case CodeKeepAlive:
	case CodeStatusQuery:
		return p.Respond(p.handler.HostStatus())
	case CodeReboot:
		p.handler.HostReboot()
	}
	return nil
}

// Respond writes code tag then payload, each after waiting for write readiness.
// There is no cancellation, a stuck port stalls the caller.
func (p *Protocol) Respond(r StatusResponse) error {
	payload, _ := r.MarshalBinary()
	var tag [CodeSize]byte
	binary.LittleEndian.PutUint32(tag[:], uint32(CodeStatusResponse))
	if err := p.write(tag[:]); err != nil {
		return errors.Annotate(err, "hostlink response tag")
	}
	if err := p.write(payload); err != nil {
		return errors.Annotate(err, "hostlink response payload")
	}
	p.stat.Responses++
	return nil
}

func (p *Protocol) write(b []byte) error {
	for {
		ready, err := p.port.WriteReady()
		if err != nil {
			return err
		}
		if ready {
			break
		}
	}
	return helpers.WriteAll(p.port, b)
}
