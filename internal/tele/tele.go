// Package tele mirrors beacon activity to a remote MQTT broker.
// Radio is the primary channel; tele is best effort, may be absent
// for weeks at a relay site and never stalls the scheduler.
package tele

import (
	"context"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/temoto/spq"
)

const (
	defaultStateInterval  = 5 * time.Minute
	defaultNetworkTimeout = 30 * time.Second
)

// Tele contract:
// - Init() fails only with invalid config, network issues ignored
// - Packet/Error/State block at most for disk write
// - network may be slow or absent, messages are delivered in background
// - packets delivered at least once
// - state messages may be lost
type Tele struct { //nolint:maligned
	log           *log2.Log
	transport     Transporter
	q             *spq.Queue
	stateCh       chan State
	stopCh        chan struct{}
	callsign      string
	stateInterval time.Duration
	now           func() time.Time
}

var _ Teler = &Tele{}

// New returns Noop when disabled.
func New(ctx context.Context, log *log2.Log, teleConfig Config) (Teler, error) {
	if !teleConfig.Enabled {
		return Noop{}, nil
	}
	t := &Tele{}
	if err := t.Init(ctx, log, teleConfig); err != nil {
		return nil, err
	}
	return t, nil
}

func (self *Tele) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	self.log = log.Clone(log2.LInfo)
	if teleConfig.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	self.stopCh = make(chan struct{})
	self.stateCh = make(chan State)
	self.callsign = teleConfig.Callsign
	self.stateInterval = helpers.IntSecondDefault(teleConfig.StateIntervalSec, defaultStateInterval)
	if self.now == nil {
		self.now = time.Now
	}

	if teleConfig.PersistPath == "" {
		return errors.NotValidf("tele enabled but persist path empty")
	}
	var err error
	self.q, err = spq.Open(teleConfig.PersistPath)
	if err != nil {
		return errors.Annotate(err, "tele queue")
	}

	willPayload := []byte{byte(State_Disconnected)}
	// test code sets .transport
	if self.transport == nil { // production path
		self.transport = &transportMqtt{}
	}
	if err := self.transport.Init(ctx, self.log, teleConfig, willPayload); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	go self.qworker()
	go self.stateWorker()
	self.stateCh <- State_Boot
	return nil
}

func (self *Tele) Close() {
	close(self.stopCh)
	self.q.Close()
	self.transport.Close()
}

func (self *Tele) State(s State) {
	self.log.Infof("tele.State s=%v", s)
	select {
	case self.stateCh <- s:
	case <-self.stopCh:
	}
}

func (self *Tele) Error(e error) {
	if e == nil {
		return
	}
	self.push(&Packet{Kind: "error", Error: e.Error()})
}

func (self *Tele) Packet(kind, text string) {
	self.push(&Packet{Kind: kind, Text: text})
}

func (self *Tele) push(p *Packet) {
	p.Time = self.now().UnixNano() / int64(time.Millisecond)
	p.Callsign = self.callsign
	if err := self.qpushTagProto(qPacket, p); err != nil {
		// not Errorf, error hook may lead back here
		self.log.Infof("CRITICAL tele qpush packet=%s err=%v", p.String(), err)
	}
}

func (self *Tele) stateWorker() {
	const retryInterval = 17 * time.Second
	var b [1]byte
	var sent bool
	tmrRegular := time.NewTicker(self.stateInterval)
	tmrRetry := time.NewTicker(retryInterval)
	defer tmrRegular.Stop()
	defer tmrRetry.Stop()
	for {
		select {
		case next := <-self.stateCh:
			if next != State(b[0]) {
				b[0] = byte(next)
				sent = self.transport.SendState(b[:])
			}

		case <-tmrRegular.C:
			sent = self.transport.SendState(b[:])

		case <-tmrRetry.C:
			if !sent {
				sent = self.transport.SendState(b[:])
			}

		case <-self.stopCh:
			return
		}
	}
}

// denote value type in persistent queue bytes form
const (
	qPacket byte = 1
)

func (self *Tele) qworker() {
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			b := box.Bytes()
			var del bool
			del, err = self.qhandle(b)
			if err != nil {
				self.log.Infof("tele qhandle b=%x err=%v", b, err)
			}
			if del {
				err = self.q.Delete(box)
			} else {
				err = self.q.DeletePush(box)
				time.Sleep(time.Second)
			}
			if err != nil {
				self.log.Infof("tele queue b=%x err=%v", b, err)
			}

		case spq.ErrClosed:
			select {
			case <-self.stopCh: // success path
			default:
				self.log.Infof("CRITICAL tele spq closed unexpectedly")
			}
			return

		default:
			self.log.Infof("CRITICAL tele spq err=%v", err)
			time.Sleep(time.Second)
		}
	}
}

func (self *Tele) qhandle(b []byte) (bool, error) {
	if len(b) == 0 {
		return true, errors.NotValidf("tele spq peek=empty")
	}

	switch b[0] {
	case qPacket:
		var p Packet
		if err := proto.Unmarshal(b[1:], &p); err != nil {
			return true, err
		}
		return self.qsendPacket(&p), nil

	default:
		return true, errors.NotValidf("unknown kind=%d", b[0])
	}
}

func (self *Tele) qpushTagProto(tag byte, pb proto.Message) error {
	buf := proto.NewBuffer(make([]byte, 0, 256))
	if err := buf.EncodeVarint(uint64(tag)); err != nil {
		return err
	}
	if err := buf.Marshal(pb); err != nil {
		return err
	}
	return self.q.Push(buf.Bytes())
}

func (self *Tele) qsendPacket(p *Packet) bool {
	payload, err := proto.Marshal(p)
	if err != nil {
		self.log.Infof("CRITICAL packet Marshal p=%#v err=%v", p, err)
		return true // retry will not help
	}
	return self.transport.SendPacket(payload)
}
