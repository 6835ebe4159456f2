// Package aprs encodes beacon state into APRS telemetry line packets.
// All functions are pure, output depends only on Station and passed values.
package aprs

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hb9gl/tlmbeacon/internal/telemetry"
)

const (
	DefaultDestination = "TLM"

	CommentMax     = 43
	AddresseeWidth = 9
	FieldWidth     = 3

	// /A= field is six digits
	MaxAltitudeFeet = 999999

	Symbol = 'r'

	ParmText = "Vbatt,Capacity,Temperature,Humidity,,USBPower,240V,PCconn,Uplink,Echolink"
	UnitText = "Vdc,%,Celsius,%,,UP,UP,UP,UP,UP"
	EqnsText = "0,0.01,2.5,0,1,0,0,1,-100,0,1,0"

	// voltage channel decodes as raw*0.01+2.5
	voltageBase = 2.5
	voltageStep = 2.5 / 255
	// temperature channel decodes as raw-100
	temperatureBias = 100
)

type Station struct {
	Callsign    string
	Destination string
	// preformatted APRS coordinates, e.g. 4703.50N 00826.50E
	Latitude     string
	Longitude    string
	Comment      string
	AltitudeFeet int
	BitsText     string
}

func (s Station) header() string {
	dest := s.Destination
	if dest == "" {
		dest = DefaultDestination
	}
	return s.Callsign + ">" + dest + ":"
}

func (s Station) message(kind, text string) string {
	return s.header() + ":" + PadAddressee(s.Callsign) + ":" + kind + "." + text
}

// Position comment is cut to CommentMax bytes on a character boundary.
// Altitude is clamped to 0..MaxAltitudeFeet.
func (s Station) Position() string {
	comment := truncate(s.Comment, CommentMax)
	alt := s.AltitudeFeet
	if alt < 0 {
		alt = 0
	} else if alt > MaxAltitudeFeet {
		alt = MaxAltitudeFeet
	}
	var b strings.Builder
	b.WriteString(s.header())
	b.WriteByte('!')
	b.WriteString(s.Latitude)
	b.WriteByte('/')
	b.WriteString(s.Longitude)
	b.WriteByte(Symbol)
	b.WriteString(comment)
	b.WriteString("/A=")
	b.WriteString(padLeft(strconv.Itoa(alt), '0', 6))
	return b.String()
}

func (s Station) Parm() string { return s.message("PARM", ParmText) }
func (s Station) Unit() string { return s.message("UNIT", UnitText) }
func (s Station) Eqns() string { return s.message("EQNS", EqnsText) }
func (s Station) Bits() string { return s.message("BITS", s.BitsText) }

// StatusSet is position, PARM, UNIT, EQNS, BITS in transmit order.
func (s Station) StatusSet() []string {
	return []string{s.Position(), s.Parm(), s.Unit(), s.Eqns(), s.Bits()}
}

// Data channels as transmitted, before zero padding.
type Data struct {
	Sequence    int
	Voltage     int
	Battery     int
	Temperature int
	Humidity    int
	Bits        string
}

func DataFrom(snap telemetry.Snapshot) Data {
	return Data{
		Sequence:    int(snap.Sequence),
		Voltage:     VoltageByte(snap.Voltage),
		Battery:     snap.BatteryPercent,
		Temperature: TemperatureByte(snap.Temperature),
		Humidity:    int(snap.Humidity),
		Bits:        BitsString(snap.Flags),
	}
}

// Values out of 0..255 are not clamped and produce wider fields.
func VoltageByte(v float64) int     { return int((v - voltageBase) / voltageStep) }
func TemperatureByte(t float64) int { return int(t + temperatureBias) }

func BitsString(flags telemetry.Flags) string {
	var b [telemetry.FlagCount]byte
	for i, f := range flags {
		b[i] = '0'
		if f {
			b[i] = '1'
		}
	}
	return string(b[:])
}

func (s Station) DataPacket(d Data) string {
	var b strings.Builder
	b.WriteString(s.header())
	b.WriteString("T#")
	for i, x := range [...]int{d.Sequence, d.Voltage, d.Battery, d.Temperature, d.Humidity} {
		if i != 0 {
			b.WriteByte(',')
		}
		b.WriteString(PadField(x))
	}
	b.WriteString(",,")
	b.WriteString(d.Bits)
	return b.String()
}

func (s Station) DataBeacon(snap telemetry.Snapshot) string { return s.DataPacket(DataFrom(snap)) }

// PadField left-pads decimal x with '0' to 3 characters, wider values are kept.
func PadField(x int) string { return padLeft(strconv.Itoa(x), '0', FieldWidth) }

// PadAddressee right-pads with spaces to 9 characters, longer is kept.
func PadAddressee(call string) string {
	if n := AddresseeWidth - len(call); n > 0 {
		return call + strings.Repeat(" ", n)
	}
	return call
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func padLeft(s string, c byte, width int) string {
	if n := width - len(s); n > 0 {
		return strings.Repeat(string(c), n) + s
	}
	return s
}
