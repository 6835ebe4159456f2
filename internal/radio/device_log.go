package radio

import (
	"time"

	"github.com/hb9gl/tlmbeacon/log2"
)

// LogDevice prints frames instead of transmitting, for bench setups without radio.
type LogDevice struct {
	Log *log2.Log
	khz uint32
}

func (d *LogDevice) Init() error  { d.Log.Infof("radio log device ready"); return nil }
func (d *LogDevice) Wake() error  { return nil }
func (d *LogDevice) Sleep() error { return nil }
func (d *LogDevice) Close() error { return nil }

func (d *LogDevice) SetFrequency(khz uint32) error { d.khz = khz; return nil }

func (d *LogDevice) Write(frame []byte) error {
	if len(frame) > len(Preamble) {
		frame = frame[len(Preamble):]
	}
	d.Log.Infof("radio khz=%d tx: %s", d.khz, frame)
	return nil
}

func (d *LogDevice) WaitDone(time.Duration) error { return nil }
