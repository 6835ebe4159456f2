// Package display renders telemetry snapshot as two text lines for local operator.
package display

import (
	"fmt"

	"github.com/hb9gl/tlmbeacon/internal/telemetry"
)

// *text_display.TextDisplay implements Liner.
type Liner interface {
	SetLines(line1, line2 string)
	SetLinesBytes(b1, b2 []byte)
	JustCenter(b []byte) []byte
	Translate(s string) []byte
	Tick()
}

var flagLetters = [telemetry.FlagCount]byte{'U', 'M', 'P', 'L', 'E'}

// Lines example:
// "21.5C 40% 3.76V"
// "#042  51% UM---"
func Lines(s telemetry.Snapshot) (string, string) {
	var flags [telemetry.FlagCount]byte
	for i, on := range s.Flags {
		flags[i] = '-'
		if on {
			flags[i] = flagLetters[i]
		}
	}
	l1 := fmt.Sprintf("%.1fC %.0f%% %.2fV", s.Temperature, s.Humidity, s.Voltage)
	l2 := fmt.Sprintf("#%03d %3d%% %s", s.Sequence, s.BatteryPercent, flags[:])
	return l1, l2
}

type Sink struct {
	d      Liner
	l1, l2 string
}

func NewSink(d Liner) *Sink { return &Sink{d: d} }

// Render rewrites changed lines, otherwise advances scrolling.
func (s *Sink) Render(snap telemetry.Snapshot) error {
	l1, l2 := Lines(snap)
	if l1 == s.l1 && l2 == s.l2 {
		s.d.Tick()
		return nil
	}
	s.l1, s.l2 = l1, l2
	s.d.SetLines(l1, l2)
	return nil
}

// Title shows application title over version, until next Render.
func (s *Sink) Title(title, version string) {
	s.l1, s.l2 = "", ""
	s.d.SetLinesBytes(s.d.JustCenter(s.d.Translate(title+"\x00")), s.d.JustCenter(s.d.Translate(version+"\x00")))
}

// Fail shows centered alert, used when beacon can not start.
func (s *Sink) Fail(title, reason string) {
	s.l1, s.l2 = "", ""
	s.d.SetLinesBytes(s.d.JustCenter(s.d.Translate(title+"\x00")), s.d.Translate(reason))
}
