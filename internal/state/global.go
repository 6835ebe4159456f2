// Package state binds configuration, hardware and telemetry mirror into beacon dependencies.
package state

import (
	"context"
	"os"
	"time"

	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/internal/beacon"
	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/internal/tele"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"golang.org/x/sys/unix"
)

// ExitRestart asks supervisor to start the process again, EX_TEMPFAIL.
const ExitRestart = 75

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Hardware     hardware // hardware.go
	Log          *log2.Log
	Tele         tele.Teler

	// replaced in tests
	exit   func(code int)
	reboot func() error
}

func NewGlobal(log *log2.Log, buildVersion string) *Global {
	return &Global{
		Alive:        alive.NewAlive(),
		BuildVersion: buildVersion,
		Log:          log,
		Tele:         tele.Noop{},
		exit:         os.Exit,
		reboot:       systemReboot,
	}
}

// If `Init` fails, consider `Global` is in broken state.
// Radio is not touched here, see Beacon.Boot.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Infof("build version=%s callsign=%s", g.BuildVersion, cfg.APRS.Callsign)

	// Since tele is remote error reporting mechanism, it must be inited before anything else
	// Tele gets g.Log clone before SetErrorFunc, so Tele log Error doesn't recurse on itself
	t, err := tele.New(ctx, g.Log.Clone(log2.LInfo), g.Config.Tele)
	if err != nil {
		return errors.Annotate(err, "tele init")
	}
	g.Tele = t
	g.Log.SetErrorFunc(g.Tele.Error)

	errs := make([]error, 0, 6)
	_, err = g.Sensors()
	errs = append(errs, err)
	_, err = g.HostPort()
	errs = append(errs, err)
	_, err = g.StatusLED()
	errs = append(errs, err)
	_, err = g.Counter()
	errs = append(errs, err)
	if d, err := g.DisplaySink(); err != nil {
		errs = append(errs, err)
	} else if d != nil {
		g.Hardware.Display.Display.Clear()
		d.Title(cfg.Hardware.Display.Title, g.BuildVersion)
	}
	return helpers.FoldErrors(errs)
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

// BeaconDeps collects initialized hardware. Optional parts stay nil interfaces.
func (g *Global) BeaconDeps(heartbeat func()) (beacon.Deps, error) {
	gw, err := g.Radio()
	if err != nil {
		return beacon.Deps{}, err
	}
	src, err := g.Sensors()
	if err != nil {
		return beacon.Deps{}, err
	}
	deps := beacon.Deps{
		Clock:     clock.NewMonotonic(),
		Sensors:   src,
		Radio:     gw,
		Restarter: g,
		Mirror:    g.Tele,
		Heartbeat: heartbeat,
	}
	if c, _ := g.Counter(); c != nil {
		deps.Counter = c
	}
	if p, _ := g.HostPort(); p != nil {
		deps.Port = p
	}
	if led, _ := g.StatusLED(); led != nil {
		deps.Indicator = led
	}
	if sink, _ := g.DisplaySink(); sink != nil {
		deps.Display = sink
	}
	return deps, nil
}

// Broken shows the reason locally and remotely, beacon does not run.
func (g *Global) Broken(err error) {
	g.Log.Errorf("broken: %v", err)
	g.Tele.State(tele.State_Broken)
	if sink, _ := g.DisplaySink(); sink != nil {
		sink.Fail("RADIO FAIL", errors.Cause(err).Error())
	}
}

// Restart implements beacon.Restarter.
func (g *Global) Restart(reason string) {
	g.Log.Infof("restart mode=%s reason=%s", g.Config.Beacon.RestartMode, reason)
	// caller is the scheduler itself, waiting for it would deadlock
	g.Stop()
	g.Log.SetErrorFunc(nil)
	g.Tele.Close()
	if g.Config.Beacon.RestartMode == RestartSystem {
		err := g.reboot()
		g.Log.Errorf("system reboot failed, exit instead err=%v", err)
	}
	g.exit(ExitRestart)
}

func systemReboot() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}
