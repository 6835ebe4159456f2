package beacon

import (
	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/internal/clock"
	"github.com/hb9gl/tlmbeacon/internal/timer"
	"github.com/juju/errors"
)

// Tick runs every scheduler step exactly once, in fixed order.
// Only host response write and radio transmit may block.
func (b *Beacon) Tick() {
	now := b.deps.Clock.Now()
	b.now = now

	if b.bank.Poll(timer.LED, now) {
		b.led = !b.led
		if err := b.deps.Indicator.Set(b.led); err != nil {
			b.log.Debugf("led err=%v", err)
		}
	}

	if b.protocol != nil {
		if err := b.protocol.Service(now); err != nil {
			b.log.Error(errors.Annotate(err, "host link"))
		}
	}

	if b.bank.Get(timer.HostKeepalive).Expired(now) {
		b.store.HostLost()
	}

	b.store.UpdateFromSensors(b.now)

	if b.bank.Poll(timer.StatusBeacon, now) {
		if b.sendStatusSet() {
			b.lastStatus = now
		}
	}

	if b.bank.Poll(timer.DataBeacon, now) {
		if b.sendData() {
			b.lastData = now
		}
	}

	if b.store.StatusChanged() {
		b.log.Debugf("status changed flags=%v", b.store.Snapshot().Flags)
		if b.sendData() {
			b.lastData = now
		}
		b.render()
	}

	if b.bank.Poll(timer.Display, now) {
		b.render()
	}

	if !b.restarting && clock.Elapsed(now, b.bootStamp, helpers.DurationMillis(b.config.UptimeCeiling)) {
		b.restarting = true
		b.log.Infof("uptime ceiling %v reached, restart", b.config.UptimeCeiling)
		b.deps.Restarter.Restart("uptime ceiling")
	}
}

// sendStatusSet transmits position, PARM, UNIT, EQNS, BITS. Returns true if all sent.
func (b *Beacon) sendStatusSet() bool {
	kinds := [...]string{"position", "parm", "unit", "eqns", "bits"}
	ok := true
	for i, p := range b.station.StatusSet() {
		ok = b.transmit(kinds[i], p) && ok
	}
	return ok
}

// sendData advances and persists sequence, then transmits data packet with it.
// Every data beacon, periodic or out of band, restarts the data timer.
func (b *Beacon) sendData() bool {
	b.bank.Get(timer.DataBeacon).Reset(b.now)
	b.store.IncrementSequence()
	return b.transmit("data", b.station.DataBeacon(b.store.Snapshot()))
}

func (b *Beacon) transmit(kind, packet string) bool {
	if err := b.deps.Radio.Transmit([]byte(packet)); err != nil {
		b.log.Error(errors.Annotatef(err, "beacon %s", kind))
		return false
	}
	if b.deps.Mirror != nil {
		b.deps.Mirror.Packet(kind, packet)
	}
	return true
}

func (b *Beacon) render() {
	if b.deps.Display == nil {
		return
	}
	if err := b.deps.Display.Render(b.store.Snapshot()); err != nil {
		b.log.Debugf("display err=%v", err)
	}
}
