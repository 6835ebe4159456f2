// Package beacon is the orchestrator: one object owning telemetry state, timers,
// host link and radio gateway, driven by a single cooperative tick loop.
package beacon

import (
	"context"
	"time"

	"github.com/hb9gl/tlmbeacon/internal/aprs"
	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/internal/hostlink"
	"github.com/hb9gl/tlmbeacon/internal/radio"
	"github.com/hb9gl/tlmbeacon/internal/telemetry"
	"github.com/hb9gl/tlmbeacon/internal/timer"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

const DefaultUptimeCeiling = 23*time.Hour + 59*time.Minute

// DisplaySink shows current state to a local operator.
type DisplaySink interface {
	Render(telemetry.Snapshot) error
}

// Indicator is the status LED.
type Indicator interface {
	Set(on bool) error
}

// Restarter performs unconditional device or process restart.
// Production implementations do not return.
type Restarter interface {
	Restart(reason string)
}

// Mirror receives copies of transmitted packets, must not block.
type Mirror interface {
	Packet(kind string, text string)
}

type Config struct {
	StatusInterval  time.Duration
	DataInterval    time.Duration
	Keepalive       time.Duration
	LEDBlink        time.Duration
	DisplayInterval time.Duration
	Tick            time.Duration
	UptimeCeiling   time.Duration

	Telemetry telemetry.Config
	Host      hostlink.Config
	Station   aprs.Station
}

// Deps are injected collaborators. Display, Indicator, Mirror and Heartbeat are optional.
type Deps struct {
	Clock     clock.Source
	Sensors   telemetry.SensorSource
	Counter   telemetry.PersistentCounter
	Port      hostlink.Port
	Radio     *radio.Gateway
	Restarter Restarter
	Display   DisplaySink
	Indicator Indicator
	Mirror    Mirror
	// called once per tick, e.g. systemd watchdog
	Heartbeat func()
}

type Beacon struct {
	log     *log2.Log
	config  Config
	deps    Deps
	station aprs.Station

	store    *telemetry.Store
	bank     timer.Bank
	protocol *hostlink.Protocol

	now        clock.Millis
	bootStamp  clock.Millis
	lastStatus clock.Millis
	lastData   clock.Millis
	led        bool
	restarting bool
}

func New(log *log2.Log, config Config, deps Deps) *Beacon {
	if config.UptimeCeiling == 0 {
		config.UptimeCeiling = DefaultUptimeCeiling
	}
	now := deps.Clock.Now()
	b := &Beacon{
		log:     log,
		config:  config,
		deps:    deps,
		station: config.Station,
		now:     now,
	}
	b.store = telemetry.NewStore(log, deps.Sensors, deps.Counter, config.Telemetry, now)
	if deps.Port != nil {
		b.protocol = hostlink.NewProtocol(log, deps.Port, b, config.Host)
	}
	b.bank.Set(timer.LED, timer.New(now, config.LEDBlink))
	b.bank.Set(timer.StatusBeacon, timer.New(now, config.StatusInterval))
	b.bank.Set(timer.DataBeacon, timer.New(now, config.DataInterval))
	b.bank.Set(timer.Display, timer.New(now, config.DisplayInterval))
	b.bank.Set(timer.HostKeepalive, timer.New(now, config.Keepalive))
	if config.LEDBlink == 0 || deps.Indicator == nil {
		b.bank.Get(timer.LED).Disarm()
	}
	if config.DisplayInterval == 0 || deps.Display == nil {
		b.bank.Get(timer.Display).Disarm()
	}
	return b
}

func (b *Beacon) Store() *telemetry.Store { return b.store }
func (b *Beacon) Timers() *timer.Bank     { return &b.bank }

func (b *Beacon) HostStat() hostlink.Stat {
	if b.protocol == nil {
		return hostlink.Stat{}
	}
	return b.protocol.Stat()
}

// Boot initializes radio, primes sensors and performs priming transmissions,
// so beacon stamps are defined before first host query.
// Radio init error is returned and must be treated as fatal.
func (b *Beacon) Boot() error {
	if err := b.deps.Radio.Init(); err != nil {
		return errors.Trace(err)
	}
	now := b.deps.Clock.Now()
	b.now = now
	b.bootStamp = now
	if err := b.store.Prime(now); err != nil {
		b.log.Error(errors.Annotate(err, "prime"))
	}
	for _, n := range []timer.Name{timer.LED, timer.StatusBeacon, timer.DataBeacon, timer.Display, timer.HostKeepalive} {
		b.bank.Get(n).Reset(now)
	}

	b.sendStatusSet()
	b.sendData()
	b.lastStatus, b.lastData = now, now
	// boot beacons already carry primed flags
	b.store.ResetStatusChanged()
	b.render()
	b.log.Infof("beacon boot complete %s", b.bank.String())
	return nil
}

// Run repeats Tick until ctx is done or a is stopping.
func (b *Beacon) Run(ctx context.Context, a *alive.Alive) {
	stopch := a.StopChan()
	tick := b.config.Tick
	if tick == 0 {
		tick = 10 * time.Millisecond
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for a.IsRunning() {
		b.Tick()
		if b.deps.Heartbeat != nil {
			b.deps.Heartbeat()
		}
		select {
		case <-t.C:
		case <-stopch:
			return
		case <-ctx.Done():
			a.Stop()
			return
		}
	}
}
