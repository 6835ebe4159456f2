package beacon

import (
	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/internal/hostlink"
	"github.com/hb9gl/tlmbeacon/internal/telemetry"
	"github.com/hb9gl/tlmbeacon/internal/timer"
)

var _ hostlink.Handler = &Beacon{}

func (b *Beacon) HostAlive() {
	b.store.SetPCConnected(true)
	b.bank.Get(timer.HostKeepalive).Reset(b.now)
}

func (b *Beacon) HostLinkStatus(ls hostlink.LinkStatus) {
	b.store.SetLinkStatus(ls.Uplink, ls.Echolink)
}

func (b *Beacon) HostStatus() hostlink.StatusResponse {
	b.store.UpdateFromSensors(b.now)
	return b.StatusResponse()
}

func (b *Beacon) HostReboot() {
	b.log.Infof("host requested reboot")
	b.restarting = true
	b.deps.Restarter.Restart("host request")
}

func (b *Beacon) StatusResponse() hostlink.StatusResponse {
	s := b.store.Snapshot()
	return hostlink.StatusResponse{
		Sequence:              uint8(s.Sequence),
		Voltage:               float32(s.Voltage),
		BatteryPercent:        uint8(s.BatteryPercent),
		MainsPower:            s.Flags[telemetry.FlagMains],
		Temperature:           float32(s.Temperature),
		Humidity:              float32(s.Humidity),
		SecsSinceDataBeacon:   clock.Since(b.now, b.lastData) / 1000,
		SecsSinceStatusBeacon: clock.Since(b.now, b.lastStatus) / 1000,
	}
}
