package beacon

import (
	"context"
	"testing"
	"time"

	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/internal/aprs"
	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/internal/hostlink"
	"github.com/hb9gl/tlmbeacon/internal/radio"
	"github.com/hb9gl/tlmbeacon/internal/telemetry"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
)

type mockRestarter struct{ mock.Mock }

func (m *mockRestarter) Restart(reason string) { m.Called(reason) }

type countDisplay struct{ renders []telemetry.Snapshot }

func (d *countDisplay) Render(s telemetry.Snapshot) error {
	d.renders = append(d.renders, s)
	return nil
}

type countIndicator struct{ states []bool }

func (i *countIndicator) Set(on bool) error { i.states = append(i.states, on); return nil }

type recordMirror struct{ kinds []string }

func (m *recordMirror) Packet(kind, text string) { m.kinds = append(m.kinds, kind) }

type tenv struct {
	t         testing.TB
	clock     *clock.Manual
	sensors   *telemetry.MockSensors
	counter   *telemetry.MemoryCounter
	port      *hostlink.MockPort
	dev       *radio.MockDevice
	restarter *mockRestarter
	display   *countDisplay
	led       *countIndicator
	mirror    *recordMirror
	b         *Beacon
}

func testConfig() Config {
	return Config{
		StatusInterval:  600 * time.Second,
		DataInterval:    300 * time.Second,
		Keepalive:       30 * time.Second,
		LEDBlink:        500 * time.Millisecond,
		DisplayInterval: time.Second,
		UptimeCeiling:   DefaultUptimeCeiling,
		Telemetry: telemetry.Config{
			SensorInterval:  10 * time.Second,
			VoltageInterval: 3 * time.Second,
		},
		Station: aprs.Station{
			Callsign:    "HB9GL-15",
			Destination: "TLM",
			Latitude:    "4703.50N",
			Longitude:   "00826.50E",
			Comment:     "test",
			BitsText:    "test site",
		},
	}
}

func newTestEnv(t testing.TB, config Config) *tenv {
	log := log2.NewTest(t, log2.LDebug)
	env := &tenv{
		t:         t,
		clock:     clock.NewManual(5000),
		sensors:   &telemetry.MockSensors{Temperature: 21.5, Humidity: 40, Voltage: 3.76, USB: true},
		counter:   &telemetry.MemoryCounter{},
		port:      hostlink.NewMockPort(),
		dev:       &radio.MockDevice{},
		restarter: &mockRestarter{},
		display:   &countDisplay{},
		led:       &countIndicator{},
		mirror:    &recordMirror{},
	}
	env.b = New(log, config, Deps{
		Clock:     env.clock,
		Sensors:   env.sensors,
		Counter:   env.counter,
		Port:      env.port,
		Radio:     radio.NewGateway(log, env.dev, radio.Config{TxFrequencyKHz: 433775}),
		Restarter: env.restarter,
		Display:   env.display,
		Indicator: env.led,
		Mirror:    env.mirror,
	})
	return env
}

func (env *tenv) boot() {
	require.NoError(env.t, env.b.Boot())
	env.dev.Reset()
	env.mirror.kinds = nil
}

func (env *tenv) tickAfter(d time.Duration) {
	env.clock.Advance(d)
	env.b.Tick()
}

func (env *tenv) query() hostlink.StatusResponse {
	env.port.Out.Reset()
	env.port.Feed(hostlink.Request(hostlink.CodeStatusQuery))
	env.b.Tick()
	r, err := hostlink.ParseResponse(env.port.Out.Bytes())
	require.NoError(env.t, err)
	return r
}

func TestBootPriming(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	require.NoError(t, env.b.Boot())
	payloads := env.dev.Payloads()
	require.Len(t, payloads, 6)
	assert.Equal(t, "HB9GL-15>TLM:!4703.50N/00826.50Ertest/A=000000", payloads[0])
	assert.Equal(t, "HB9GL-15>TLM::HB9GL-15 :BITS.test site", payloads[4])
	assert.Equal(t, "HB9GL-15>TLM:T#001,128,051,121,040,,10000", payloads[5], "first packet carries advanced sequence")
	assert.Equal(t, []string{"position", "parm", "unit", "eqns", "bits", "data"}, env.mirror.kinds)
	assert.Equal(t, uint16(1), env.b.Store().Snapshot().Sequence)
	assert.Equal(t, byte(1), env.counter.Value)
	assert.Len(t, env.display.renders, 1)

	// priming does not leave pending status change
	env.tickAfter(0)
	assert.Len(t, env.dev.Payloads(), 6)
}

func TestBootRadioFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.dev.InitErr = errors.New("aux stuck")
	assert.Error(t, env.b.Boot())
	assert.Len(t, env.dev.Frames, 0)
}

func TestStatusQueryAfterBoot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()

	r := env.query()
	assert.Equal(t, uint32(0), r.SecsSinceDataBeacon)
	assert.Equal(t, uint32(0), r.SecsSinceStatusBeacon)
	assert.Equal(t, uint8(1), r.Sequence, "last sequence sent")
	assert.Equal(t, uint8(51), r.BatteryPercent)
	assert.InDelta(t, 3.76, r.Voltage, 0.001)
	assert.InDelta(t, 21.5, r.Temperature, 0.001)
	assert.False(t, r.MainsPower)
	// pc_connected changed, out-of-band data beacon
	assert.Equal(t, []string{"HB9GL-15>TLM:T#002,128,051,121,040,,10100"}, env.dev.Payloads())

	env.clock.Advance(7 * time.Second)
	r = env.query()
	assert.Equal(t, uint32(7), r.SecsSinceDataBeacon)
	assert.Equal(t, uint32(7), r.SecsSinceStatusBeacon)
	assert.Equal(t, uint8(2), r.Sequence)
}

func TestLinkStatusThenUnknown(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()
	env.port.Feed(
		hostlink.LinkStatus{Uplink: true}.Frame(),
		helpers.MustHex("77000000"),
		hostlink.Request(hostlink.CodeKeepAlive),
	)
	env.tickAfter(10 * time.Millisecond)

	s := env.b.Store()
	assert.True(t, s.Flag(telemetry.FlagPC))
	assert.True(t, s.Flag(telemetry.FlagUplink))
	assert.False(t, s.Flag(telemetry.FlagEcholink))
	assert.Equal(t, hostlink.Stat{Frames: 2, Unknown: 1}, env.b.HostStat())
	assert.Equal(t, []string{"HB9GL-15>TLM:T#002,128,051,121,040,,10110"}, env.dev.Payloads())
}

func TestKeepaliveTimeout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()
	env.port.Feed(hostlink.LinkStatus{Uplink: true, Echolink: true}.Frame())
	env.tickAfter(time.Second)
	require.True(t, env.b.Store().Flag(telemetry.FlagEcholink))

	env.tickAfter(29 * time.Second)
	assert.True(t, env.b.Store().Flag(telemetry.FlagPC))
	env.port.Feed(hostlink.Request(hostlink.CodeKeepAlive))
	env.tickAfter(20 * time.Second)
	assert.True(t, env.b.Store().Flag(telemetry.FlagPC), "keepalive resets liveness")

	env.dev.Reset()
	env.tickAfter(30 * time.Second)
	snap := env.b.Store().Snapshot()
	assert.False(t, snap.Flags[telemetry.FlagPC])
	assert.False(t, snap.Flags[telemetry.FlagUplink])
	assert.False(t, snap.Flags[telemetry.FlagEcholink])
	require.Len(t, env.dev.Payloads(), 1)
	assert.Contains(t, env.dev.Payloads()[0], ",,10000")
}

func TestPeriodicBeacons(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()

	env.tickAfter(299 * time.Second)
	assert.Len(t, env.dev.Payloads(), 0)
	env.tickAfter(time.Second)
	assert.Equal(t, []string{"HB9GL-15>TLM:T#002,128,051,121,040,,10000"}, env.dev.Payloads())

	env.tickAfter(300 * time.Second)
	payloads := env.dev.Payloads()
	require.Len(t, payloads, 7)
	assert.Equal(t, "HB9GL-15>TLM:!4703.50N/00826.50Ertest/A=000000", payloads[1])
	assert.Equal(t, "HB9GL-15>TLM::HB9GL-15 :EQNS.0,0.01,2.5,0,1,0,0,1,-100,0,1,0", payloads[4])
	assert.Equal(t, "HB9GL-15>TLM:T#003,128,051,121,040,,10000", payloads[6])
}

func TestStatusChangeRestartsDataTimer(t *testing.T) {
	t.Parallel()

	config := testConfig()
	config.DisplayInterval = time.Hour
	env := newTestEnv(t, config)
	env.boot()
	renders := len(env.display.renders)

	env.sensors.Mains = true
	env.tickAfter(100 * time.Millisecond)
	assert.Equal(t, []string{"HB9GL-15>TLM:T#002,128,051,121,040,,11000"}, env.dev.Payloads())
	assert.Len(t, env.display.renders, renders+1)
	assert.True(t, env.display.renders[renders].Flags[telemetry.FlagMains])

	env.tickAfter(100 * time.Millisecond)
	assert.Len(t, env.dev.Payloads(), 1, "change reported once")

	// boot schedule would fire here, data timer restarted at the change
	env.tickAfter(300*time.Second - 200*time.Millisecond)
	assert.Len(t, env.dev.Payloads(), 1)
	env.tickAfter(100 * time.Millisecond)
	payloads := env.dev.Payloads()
	require.Len(t, payloads, 2)
	assert.Equal(t, "HB9GL-15>TLM:T#003,128,051,121,040,,11000", payloads[1])
}

func TestTransmitFailureKeepsStamp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()
	env.dev.FailOn = "write"
	env.dev.Err = errors.New("uart")
	env.tickAfter(300 * time.Second)
	env.dev.FailOn = ""
	assert.Equal(t, byte(2), env.counter.Value, "sequence advanced before transmit")

	env.clock.Advance(time.Second)
	r := env.query()
	assert.Equal(t, uint32(301), r.SecsSinceDataBeacon, "failed beacon does not update stamp")
	assert.Equal(t, uint8(2), r.Sequence)
}

func TestTransmitFailureRestartsDataTimer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()
	env.dev.FailOn = "write"
	env.dev.Err = errors.New("uart")
	env.tickAfter(300 * time.Second)
	env.dev.FailOn = ""
	env.dev.Reset()

	env.tickAfter(299 * time.Second)
	assert.Len(t, env.dev.Payloads(), 0)
	env.tickAfter(time.Second)
	payloads := env.dev.Payloads()
	require.Len(t, payloads, 6, "status set and data")
	assert.Equal(t, "HB9GL-15>TLM:T#003,128,051,121,040,,10000", payloads[5])
}

func TestLED(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.boot()
	env.tickAfter(400 * time.Millisecond)
	env.tickAfter(100 * time.Millisecond)
	env.tickAfter(500 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, env.led.states)
}

func TestUptimeCeiling(t *testing.T) {
	t.Parallel()

	config := testConfig()
	config.UptimeCeiling = time.Hour
	env := newTestEnv(t, config)
	env.restarter.On("Restart", "uptime ceiling").Return().Once()
	env.boot()

	env.tickAfter(time.Hour - time.Millisecond)
	env.restarter.AssertNotCalled(t, "Restart", "uptime ceiling")
	env.tickAfter(time.Millisecond)
	env.tickAfter(time.Second)
	env.restarter.AssertExpectations(t)
	env.restarter.AssertNumberOfCalls(t, "Restart", 1)
}

func TestHostReboot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testConfig())
	env.restarter.On("Restart", "host request").Return()
	env.boot()
	env.port.Feed(hostlink.Request(hostlink.CodeReboot))
	env.tickAfter(time.Millisecond)
	env.restarter.AssertExpectations(t)
	assert.Equal(t, 0, env.port.Out.Len())
}

func TestRunStops(t *testing.T) {
	t.Parallel()

	config := testConfig()
	config.Tick = time.Millisecond
	env := newTestEnv(t, config)
	env.boot()
	a := alive.NewAlive()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.b.Run(ctx, a)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.False(t, a.IsRunning())
}
