// APRS telemetry beacon daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/hb9gl/tlmbeacon/internal/beacon"
	"github.com/hb9gl/tlmbeacon/internal/state"
	"github.com/hb9gl/tlmbeacon/internal/tele"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

var BuildVersion string = "unknown" // set by ldflags -X

var log = log2.NewStderr(log2.LDebug)

func main() {
	flagConfig := flag.String("config", "beacon.hcl", "")
	flagVersion := flag.Bool("version", false, "print build version and exit")
	flag.Parse()
	if *flagVersion {
		fmt.Printf("tlmbeacon %s\n", BuildVersion)
		return
	}

	if sdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := state.NewGlobal(log, BuildVersion)
	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	g.MustInit(ctx, config)
	g.Log.Debugf("config=%+v", g.Config)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		g.Log.Infof("signal=%v stopping", sig)
		g.Stop()
	}()

	deps, err := g.BeaconDeps(heartbeat())
	if err != nil {
		g.Fatal(err, "beacon deps")
	}
	b := beacon.New(g.Log, g.Config.BeaconConfig(), deps)
	if err := b.Boot(); err != nil {
		// stay alive in broken mode, restart loop would hammer the radio
		g.Broken(errors.Annotate(err, "radio init"))
		sdNotify(daemon.SdNotifyReady)
		<-g.Alive.StopChan()
		g.Tele.Close()
		os.Exit(1)
	}

	sdNotify(daemon.SdNotifyReady)
	g.Tele.State(tele.State_Running)
	g.Log.Debugf("beacon running")
	b.Run(ctx, g.Alive)

	g.Log.Infof("stopped")
	g.Tele.Close()
}

// heartbeat returns nil when systemd watchdog is not requested.
func heartbeat() func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Errorf("sd watchdog err=%v", err)
		return nil
	}
	if interval == 0 {
		return nil
	}
	log.Debugf("sd watchdog interval=%v", interval)
	return func() { sdNotify(daemon.SdNotifyWatchdog) }
}

func sdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
