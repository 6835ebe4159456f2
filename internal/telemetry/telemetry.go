// Package telemetry holds the beacon state: last sensor readings, derived battery
// capacity, status flags with change detection and the outbound packet sequence.
// Store is owned by one scheduler goroutine and does no locking.
package telemetry

import (
	"math"
	"time"

	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/internal/timer"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

const (
	SequenceMax = 999

	CellEmpty = 3.3 // volts
	CellFull  = 4.2
)

type SensorSource interface {
	// temperature Celsius, humidity percent
	ReadEnvironment() (float64, float64, error)
	// raw volts before calibration
	ReadVoltage() (float64, error)
	ReadPower() (usb bool, mains bool, err error)
}

// PersistentCounter stores single byte, content is sequence % 256.
type PersistentCounter interface {
	Load() (byte, error)
	Store(byte) error
}

type Calibration struct {
	Scale  float64
	Offset float64
}

func (c Calibration) Apply(raw float64) float64 {
	scale := c.Scale
	if scale == 0 {
		scale = 1
	}
	return raw*scale + c.Offset
}

type Flag uint8

const (
	FlagUSB Flag = iota
	FlagMains
	FlagPC
	FlagUplink
	FlagEcholink
	FlagCount
)

// Flags order matches telemetry BITS channel order.
type Flags [FlagCount]bool

type Snapshot struct {
	Temperature    float64
	Humidity       float64
	Voltage        float64
	BatteryPercent int
	Sequence       uint16
	Flags          Flags
}

type Config struct {
	SensorInterval  time.Duration
	VoltageInterval time.Duration
	Calibration     Calibration
}

type Store struct {
	log     *log2.Log
	sensors SensorSource
	counter PersistentCounter
	calib   Calibration

	sensorTimer  timer.Timer
	voltageTimer timer.Timer

	temperature float64
	humidity    float64
	voltage     float64
	battery     int
	sequence    uint16
	flags       Flags
	prev        Flags
}

func NewStore(log *log2.Log, sensors SensorSource, counter PersistentCounter, config Config, now clock.Millis) *Store {
	return &Store{
		log:          log,
		sensors:      sensors,
		counter:      counter,
		calib:        config.Calibration,
		sensorTimer:  timer.New(now, config.SensorInterval),
		voltageTimer: timer.New(now, config.VoltageInterval),
	}
}

// Prime loads sequence and performs one blocking read of every sensor.
// Previous flag snapshot is synced, so priming itself is not reported as a change.
func (s *Store) Prime(now clock.Millis) error {
	var err error
	if s.counter != nil {
		var b byte
		if b, err = s.counter.Load(); err != nil {
			err = errors.Annotate(err, "sequence load")
			s.log.Error(err)
		}
		s.sequence = uint16(b)
	}
	s.sampleEnvironment()
	s.sampleVoltage()
	s.samplePower()
	s.sensorTimer.Reset(now)
	s.voltageTimer.Reset(now)
	s.prev = s.flags
	return err
}

// UpdateFromSensors is rate limited per sensor, power inputs are read every call.
func (s *Store) UpdateFromSensors(now clock.Millis) {
	if s.sensorTimer.Poll(now) {
		s.sampleEnvironment()
	}
	if s.voltageTimer.Poll(now) {
		s.sampleVoltage()
	}
	s.samplePower()
}

func (s *Store) sampleEnvironment() {
	t, h, err := s.sensors.ReadEnvironment()
	if err != nil {
		s.log.Debugf("telemetry environment sensor err=%v", err)
		t, h = 0, 0
	}
	s.temperature = sanitize(t)
	s.humidity = sanitize(h)
}

func (s *Store) sampleVoltage() {
	raw, err := s.sensors.ReadVoltage()
	if err != nil {
		s.log.Debugf("telemetry voltage sensor err=%v", err)
		raw = 0
	}
	s.voltage = sanitize(s.calib.Apply(sanitize(raw)))
	s.battery = BatteryPercent(s.voltage)
}

func (s *Store) samplePower() {
	usb, mains, err := s.sensors.ReadPower()
	if err != nil {
		s.log.Debugf("telemetry power inputs err=%v", err)
		return
	}
	s.flags[FlagUSB] = usb
	s.flags[FlagMains] = mains
}

// IncrementSequence wraps only after value exceeds 999, persists low byte.
func (s *Store) IncrementSequence() uint16 {
	s.sequence++
	if s.sequence > SequenceMax {
		s.sequence = 0
	}
	if s.counter != nil {
		if err := s.counter.Store(byte(s.sequence % 256)); err != nil {
			s.log.Error(errors.Annotate(err, "sequence store"))
		}
	}
	return s.sequence
}

// StatusChanged compares flags with previous snapshot and resets the snapshot.
// Second call without flag mutation in between always returns false,
// so it must be called at most once per scheduler tick.
func (s *Store) StatusChanged() bool {
	changed := s.flags != s.prev
	s.ResetStatusChanged()
	return changed
}

// ResetStatusChanged takes current flags as the reference for the next StatusChanged.
func (s *Store) ResetStatusChanged() { s.prev = s.flags }

func (s *Store) SetLinkStatus(uplink, echolink bool) {
	s.flags[FlagUplink] = uplink
	s.flags[FlagEcholink] = echolink
}

func (s *Store) SetPCConnected(b bool) { s.flags[FlagPC] = b }

// HostLost clears every flag a disappeared host could have claimed.
func (s *Store) HostLost() {
	s.flags[FlagPC] = false
	s.flags[FlagUplink] = false
	s.flags[FlagEcholink] = false
}

func (s *Store) Flag(f Flag) bool { return s.flags[f] }

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Temperature:    s.temperature,
		Humidity:       s.humidity,
		Voltage:        s.voltage,
		BatteryPercent: s.battery,
		Sequence:       s.sequence,
		Flags:          s.flags,
	}
}

func BatteryPercent(v float64) int {
	p := 100 * (v - CellEmpty) / (CellFull - CellEmpty)
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
