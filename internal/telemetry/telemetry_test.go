package telemetry

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t testing.TB, sensors *MockSensors, counter *MemoryCounter) *Store {
	config := Config{
		SensorInterval:  10 * time.Second,
		VoltageInterval: 3 * time.Second,
	}
	var pc PersistentCounter
	if counter != nil {
		pc = counter
	}
	return NewStore(log2.NewTest(t, log2.LDebug), sensors, pc, config, 0)
}

func TestBatteryPercent(t *testing.T) {
	t.Parallel()

	type Case struct {
		v      float64
		expect int
	}
	cases := []Case{
		{-1, 0},
		{0, 0},
		{3.29, 0},
		{3.3, 0},
		{3.76, 51},
		{4.2, 100},
		{4.21, 100},
		{12, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
		{math.Inf(-1), 0},
	}
	for _, c := range cases {
		c := c
		t.Run(fmt.Sprintf("%v", c.v), func(t *testing.T) {
			assert.Equal(t, c.expect, BatteryPercent(c.v))
		})
	}
	for v := -5.0; v < 10; v += 0.013 {
		p := BatteryPercent(v)
		if p < 0 || p > 100 {
			t.Fatalf("v=%f percent=%d out of range", v, p)
		}
	}
}

func TestSequenceWrap(t *testing.T) {
	t.Parallel()

	counter := &MemoryCounter{}
	s := testStore(t, &MockSensors{}, counter)
	require.NoError(t, s.Prime(0))
	zeros := 0
	for i := 1; i <= 1000; i++ {
		seq := s.IncrementSequence()
		if seq == 0 {
			zeros++
			assert.Equal(t, 1000, i)
		}
		assert.LessOrEqual(t, seq, uint16(SequenceMax))
	}
	assert.Equal(t, 1, zeros)
	assert.Equal(t, 1000, counter.Stores)
	assert.Equal(t, byte(0), counter.Value)

	s.IncrementSequence() // 1
	for i := 0; i < 299; i++ {
		s.IncrementSequence()
	}
	assert.Equal(t, uint16(300), s.Snapshot().Sequence)
	assert.Equal(t, byte(300%256), counter.Value)
}

func TestPrimeLoadsSequence(t *testing.T) {
	t.Parallel()

	counter := &MemoryCounter{Value: 42}
	s := testStore(t, &MockSensors{}, counter)
	require.NoError(t, s.Prime(0))
	assert.Equal(t, uint16(42), s.Snapshot().Sequence)
	assert.Equal(t, uint16(43), s.IncrementSequence())

	broken := &MemoryCounter{Err: fmt.Errorf("storage")}
	s2 := testStore(t, &MockSensors{}, broken)
	assert.Error(t, s2.Prime(0))
	assert.Equal(t, uint16(0), s2.Snapshot().Sequence)
	assert.Equal(t, uint16(1), s2.IncrementSequence(), "store error must not stop counting")
}

func TestStatusChangedReadReset(t *testing.T) {
	t.Parallel()

	sensors := &MockSensors{}
	s := testStore(t, sensors, nil)
	require.NoError(t, s.Prime(0))
	assert.False(t, s.StatusChanged())

	s.SetPCConnected(true)
	assert.True(t, s.StatusChanged())
	assert.False(t, s.StatusChanged())

	s.SetLinkStatus(true, false)
	s.SetLinkStatus(false, false)
	assert.False(t, s.StatusChanged(), "mutated back before check")

	sensors.Mains = true
	s.UpdateFromSensors(1)
	assert.True(t, s.StatusChanged())

	s.SetLinkStatus(true, true)
	s.HostLost()
	assert.True(t, s.StatusChanged(), "pc was true")
	assert.False(t, s.Flag(FlagPC))
	assert.False(t, s.Flag(FlagEcholink))
}

func TestResetStatusChanged(t *testing.T) {
	t.Parallel()

	sensors := &MockSensors{}
	s := testStore(t, sensors, nil)
	require.NoError(t, s.Prime(0))

	s.SetPCConnected(true)
	sensors.Mains = true
	s.UpdateFromSensors(1)
	s.ResetStatusChanged()
	assert.False(t, s.StatusChanged())
	assert.True(t, s.Flag(FlagPC), "reset keeps flags")
	assert.True(t, s.Flag(FlagMains))

	s.SetPCConnected(false)
	assert.True(t, s.StatusChanged())
}

func TestUpdateRateLimit(t *testing.T) {
	t.Parallel()

	sensors := &MockSensors{Temperature: 21.5, Humidity: 40, Voltage: 4.0}
	s := testStore(t, sensors, nil)
	require.NoError(t, s.Prime(0))
	assert.Equal(t, 1, sensors.EnvReads)
	assert.Equal(t, 1, sensors.VoltageReads)

	sensors.Temperature = 30
	sensors.Voltage = 3.5
	s.UpdateFromSensors(2999)
	assert.Equal(t, 1, sensors.EnvReads)
	assert.Equal(t, 1, sensors.VoltageReads)
	assert.Equal(t, 2, sensors.PowerReads)
	assert.Equal(t, 21.5, s.Snapshot().Temperature, "cached on timer miss")

	s.UpdateFromSensors(3000)
	assert.Equal(t, 1, sensors.EnvReads)
	assert.Equal(t, 2, sensors.VoltageReads)
	assert.Equal(t, 3.5, s.Snapshot().Voltage)
	assert.Equal(t, 22, s.Snapshot().BatteryPercent)

	s.UpdateFromSensors(10000)
	assert.Equal(t, 2, sensors.EnvReads)
	assert.Equal(t, 30.0, s.Snapshot().Temperature)
}

func TestSensorUnavailable(t *testing.T) {
	t.Parallel()

	sensors := &MockSensors{Temperature: math.NaN(), Humidity: 55, Voltage: math.NaN(), USB: true}
	s := testStore(t, sensors, nil)
	require.NoError(t, s.Prime(0))
	snap := s.Snapshot()
	assert.Equal(t, 0.0, snap.Temperature)
	assert.Equal(t, 55.0, snap.Humidity)
	assert.Equal(t, 0.0, snap.Voltage)
	assert.Equal(t, 0, snap.BatteryPercent)
	assert.True(t, snap.Flags[FlagUSB])

	sensors.Err = fmt.Errorf("i2c nack")
	s.UpdateFromSensors(clock.Millis(10000))
	snap = s.Snapshot()
	assert.Equal(t, 0.0, snap.Humidity)
	assert.True(t, snap.Flags[FlagUSB], "power flags keep last value on read error")
}

func TestCalibration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, Calibration{}.Apply(2))
	assert.InDelta(t, 4.1, Calibration{Scale: 2, Offset: 0.1}.Apply(2), 1e-9)
}
