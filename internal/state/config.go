package state

import (
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/hb9gl/tlmbeacon/hardware/e32"
	"github.com/hb9gl/tlmbeacon/hardware/lcd"
	"github.com/hb9gl/tlmbeacon/hardware/pins"
	"github.com/hb9gl/tlmbeacon/hardware/sensors"
	"github.com/hb9gl/tlmbeacon/helpers"
	"github.com/hb9gl/tlmbeacon/internal/aprs"
	"github.com/hb9gl/tlmbeacon/internal/beacon"
	"github.com/hb9gl/tlmbeacon/internal/hostlink"
	"github.com/hb9gl/tlmbeacon/internal/radio"
	"github.com/hb9gl/tlmbeacon/internal/tele"
	"github.com/hb9gl/tlmbeacon/internal/telemetry"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
)

const (
	RestartProcess = "process"
	RestartSystem  = "system"

	RadioDriverE32 = "e32"
	RadioDriverLog = "log"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Beacon struct { //nolint:maligned
		StatusIntervalSec  int    `hcl:"status_interval_sec"`
		DataIntervalSec    int    `hcl:"data_interval_sec"`
		SensorIntervalSec  int    `hcl:"sensor_interval_sec"`
		VoltageIntervalSec int    `hcl:"voltage_interval_sec"`
		KeepaliveSec       int    `hcl:"keepalive_sec"`
		LEDBlinkMs         int    `hcl:"led_blink_ms"`
		DisplayIntervalMs  int    `hcl:"display_interval_ms"`
		TickMs             int    `hcl:"tick_ms"`
		UptimeCeilingMin   int    `hcl:"uptime_ceiling_min"`
		FrameTimeoutMs     int    `hcl:"frame_timeout_ms"`
		HostBytesPerTick   int    `hcl:"host_bytes_per_tick"`
		RestartMode        string `hcl:"restart_mode"`
	} `hcl:"beacon"`

	APRS struct {
		Callsign    string `hcl:"callsign"`
		Destination string `hcl:"destination"`
		Latitude    string `hcl:"latitude"`
		Longitude   string `hcl:"longitude"`
		Comment     string `hcl:"comment"`
		AltitudeFt  int    `hcl:"altitude_ft"`
		BitsText    string `hcl:"bits_text"`
	} `hcl:"aprs"`

	Hardware struct {
		Host struct {
			Device string `hcl:"device"`
			Baud   int    `hcl:"baud"`
		} `hcl:"host"`
		Radio struct { //nolint:maligned
			Driver           string `hcl:"driver"`
			Device           string `hcl:"device"`
			Baud             int    `hcl:"baud"`
			PinChip          string `hcl:"pin_chip"`
			PinM0            int    `hcl:"pin_m0"`
			PinM1            int    `hcl:"pin_m1"`
			PinAux           int    `hcl:"pin_aux"`
			TxFrequencyKHz   int    `hcl:"tx_frequency_khz"`
			IdleFrequencyKHz int    `hcl:"idle_frequency_khz"`
			Power            int    `hcl:"power"`
			DoneTimeoutMs    int    `hcl:"done_timeout_ms"`
		} `hcl:"radio"`
		Sensors sensors.Config `hcl:"sensors"`
		Pins    pins.Config    `hcl:"pins"`
		Display struct {
			Enable   bool       `hcl:"enable"`
			Title    string     `hcl:"title"`
			Codepage string     `hcl:"codepage"`
			Width    int        `hcl:"width"`
			PinChip  string     `hcl:"pin_chip"`
			Page1    bool       `hcl:"page1"`
			Pinmap   lcd.PinMap `hcl:"pinmap"`
		} `hcl:"display"`
	} `hcl:"hardware"`

	Persist struct {
		Root string `hcl:"root"`
	} `hcl:"persist"`
	Tele tele.Config `hcl:"tele"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func defaultInt(x *int, def int) {
	if *x == 0 {
		*x = def
	}
}

func defaultString(s *string, def string) {
	if *s == "" {
		*s = def
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	b := &c.Beacon
	defaultInt(&b.StatusIntervalSec, 30*60)
	defaultInt(&b.DataIntervalSec, 10*60)
	defaultInt(&b.SensorIntervalSec, 10)
	defaultInt(&b.VoltageIntervalSec, 60)
	defaultInt(&b.KeepaliveSec, 120)
	defaultInt(&b.LEDBlinkMs, 500)
	defaultInt(&b.DisplayIntervalMs, 1000)
	defaultInt(&b.TickMs, 10)
	defaultInt(&b.UptimeCeilingMin, int(beacon.DefaultUptimeCeiling/time.Minute))
	defaultInt(&b.FrameTimeoutMs, 100)
	defaultInt(&b.HostBytesPerTick, 64)
	defaultString(&b.RestartMode, RestartProcess)

	defaultString(&c.APRS.Destination, aprs.DefaultDestination)

	h := &c.Hardware
	defaultInt(&h.Host.Baud, 9600)
	defaultString(&h.Radio.Driver, RadioDriverE32)
	defaultInt(&h.Radio.Baud, 9600)
	// e32 factory channel 23, module tunes in 1 MHz steps only
	defaultInt(&h.Radio.TxFrequencyKHz, 433000)
	defaultString(&h.Sensors.Driver, sensors.DriverPeriph)
	if h.Sensors.VoltageScale == 0 {
		h.Sensors.VoltageScale = 1
	}
	defaultInt(&h.Display.Width, 16)
	defaultString(&h.Display.Title, "tlmbeacon")
	defaultString(&c.Persist.Root, "/var/lib/tlmbeacon")

	defaultString(&c.Tele.TopicPrefix, "tlmbeacon/"+c.APRS.Callsign)
	defaultString(&c.Tele.ClientID, c.APRS.Callsign)
	if c.Tele.PersistPath == "" {
		c.Tele.PersistPath = filepath.Join(c.Persist.Root, "tele")
	}
	c.Tele.Callsign = c.APRS.Callsign
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	notValid := func(format string, args ...interface{}) { errs = append(errs, errors.NotValidf(format, args...)) }
	if c.APRS.Callsign == "" {
		notValid("config aprs.callsign empty")
	}
	if len(c.APRS.Latitude) != 8 || len(c.APRS.Longitude) != 9 {
		notValid("config aprs latitude=%q longitude=%q expected format 4703.50N 00826.50E", c.APRS.Latitude, c.APRS.Longitude)
	}
	if c.APRS.AltitudeFt < 0 || c.APRS.AltitudeFt > aprs.MaxAltitudeFeet {
		notValid("config aprs.altitude_ft=%d expected 0..%d", c.APRS.AltitudeFt, aprs.MaxAltitudeFeet)
	}
	b := &c.Beacon
	for _, x := range []struct {
		name string
		v    int
	}{
		{"status_interval_sec", b.StatusIntervalSec},
		{"data_interval_sec", b.DataIntervalSec},
		{"sensor_interval_sec", b.SensorIntervalSec},
		{"voltage_interval_sec", b.VoltageIntervalSec},
		{"keepalive_sec", b.KeepaliveSec},
		{"tick_ms", b.TickMs},
		{"uptime_ceiling_min", b.UptimeCeilingMin},
	} {
		if x.v <= 0 {
			notValid("config beacon.%s=%d", x.name, x.v)
		}
	}
	switch b.RestartMode {
	case RestartProcess, RestartSystem:
	default:
		notValid("config beacon.restart_mode=%s", b.RestartMode)
	}
	switch r := &c.Hardware.Radio; r.Driver {
	case RadioDriverE32:
		if r.Device == "" || r.PinChip == "" {
			notValid("config hardware.radio device and pin_chip required for driver=e32")
		}
		if _, err := e32.Channel(uint32(r.TxFrequencyKHz)); err != nil {
			errs = append(errs, errors.Annotate(err, "config hardware.radio.tx_frequency_khz"))
		}
		if r.IdleFrequencyKHz != 0 {
			if _, err := e32.Channel(uint32(r.IdleFrequencyKHz)); err != nil {
				errs = append(errs, errors.Annotate(err, "config hardware.radio.idle_frequency_khz"))
			}
		}
	case RadioDriverLog:
	default:
		notValid("config hardware.radio.driver=%s", c.Hardware.Radio.Driver)
	}
	switch c.Hardware.Sensors.Driver {
	case sensors.DriverPeriph, sensors.DriverFixed:
	default:
		notValid("config hardware.sensors.driver=%s", c.Hardware.Sensors.Driver)
	}
	if c.Hardware.Display.Enable && c.Hardware.Display.PinChip == "" {
		notValid("config hardware.display.pin_chip required")
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) Station() aprs.Station {
	return aprs.Station{
		Callsign:     c.APRS.Callsign,
		Destination:  c.APRS.Destination,
		Latitude:     c.APRS.Latitude,
		Longitude:    c.APRS.Longitude,
		Comment:      c.APRS.Comment,
		AltitudeFeet: c.APRS.AltitudeFt,
		BitsText:     c.APRS.BitsText,
	}
}

func (c *Config) BeaconConfig() beacon.Config {
	b := &c.Beacon
	display := time.Duration(0)
	if c.Hardware.Display.Enable {
		display = time.Duration(b.DisplayIntervalMs) * time.Millisecond
	}
	return beacon.Config{
		StatusInterval:  time.Duration(b.StatusIntervalSec) * time.Second,
		DataInterval:    time.Duration(b.DataIntervalSec) * time.Second,
		Keepalive:       time.Duration(b.KeepaliveSec) * time.Second,
		LEDBlink:        time.Duration(b.LEDBlinkMs) * time.Millisecond,
		DisplayInterval: display,
		Tick:            time.Duration(b.TickMs) * time.Millisecond,
		UptimeCeiling:   time.Duration(b.UptimeCeilingMin) * time.Minute,
		Telemetry: telemetry.Config{
			SensorInterval:  time.Duration(b.SensorIntervalSec) * time.Second,
			VoltageInterval: time.Duration(b.VoltageIntervalSec) * time.Second,
			Calibration: telemetry.Calibration{
				Scale:  c.Hardware.Sensors.VoltageScale,
				Offset: c.Hardware.Sensors.VoltageOffset,
			},
		},
		Host: hostlink.Config{
			FrameTimeout: time.Duration(b.FrameTimeoutMs) * time.Millisecond,
			BytesPerTick: b.HostBytesPerTick,
		},
		Station: c.Station(),
	}
}

func (c *Config) RadioConfig() radio.Config {
	r := &c.Hardware.Radio
	return radio.Config{
		TxFrequencyKHz:   uint32(r.TxFrequencyKHz),
		IdleFrequencyKHz: uint32(r.IdleFrequencyKHz),
		DoneTimeout:      helpers.IntMillisecondDefault(r.DoneTimeoutMs, radio.DefaultDoneTimeout),
	}
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig merges sources in order, later values override. Result is normalized and validated.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return c, err
	}
	c.Normalize()
	return c, c.Validate()
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
