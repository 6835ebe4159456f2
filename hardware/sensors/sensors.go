// Package sensors reads environment and battery voltage over I2C, power inputs over GPIO.
package sensors

import (
	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/bmxx80"
	"periph.io/x/periph/experimental/devices/ads1x15"
	"periph.io/x/periph/host"
)

const (
	DriverPeriph = "periph"
	DriverFixed  = "fixed"

	DefaultBME280Addr  = 0x76
	DefaultADS1115Addr = 0x48
)

type Config struct {
	Driver         string  `hcl:"driver"`
	I2CBus         string  `hcl:"i2c_bus"`
	BME280Addr     int     `hcl:"bme280_addr"`
	ADS1115Addr    int     `hcl:"ads1115_addr"`
	VoltageChannel int     `hcl:"voltage_channel"`
	VoltageScale   float64 `hcl:"voltage_scale"`
	VoltageOffset  float64 `hcl:"voltage_offset"`

	FixedTemperature float64 `hcl:"fixed_temperature"`
	FixedHumidity    float64 `hcl:"fixed_humidity"`
	FixedVoltage     float64 `hcl:"fixed_voltage"`
	FixedUSB         bool    `hcl:"fixed_usb"`
	FixedMains       bool    `hcl:"fixed_mains"`
}

type PowerReader interface {
	ReadPower() (usb bool, mains bool, err error)
}

var adsChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// Periph is BME280 temperature/humidity plus ADS1115 single ended voltage input.
type Periph struct {
	bus   i2c.BusCloser
	env   *bmxx80.Dev
	adc   *ads1x15.Dev
	pin   ads1x15.PinADC
	power PowerReader
}

func NewPeriph(config Config, power PowerReader) (*Periph, error) {
	if config.VoltageChannel < 0 || config.VoltageChannel >= len(adsChannels) {
		return nil, errors.NotValidf("sensors voltage_channel=%d", config.VoltageChannel)
	}
	if config.BME280Addr == 0 {
		config.BME280Addr = DefaultBME280Addr
	}
	if config.ADS1115Addr == 0 {
		config.ADS1115Addr = DefaultADS1115Addr
	}
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(config.I2CBus)
	if err != nil {
		return nil, errors.Annotatef(err, "i2c bus=%s", config.I2CBus)
	}
	p := &Periph{bus: bus, power: power}
	if p.env, err = bmxx80.NewI2C(bus, uint16(config.BME280Addr), &bmxx80.DefaultOpts); err != nil {
		bus.Close()
		return nil, errors.Annotatef(err, "bme280 addr=%#x", config.BME280Addr)
	}
	adcOpts := ads1x15.DefaultOpts
	adcOpts.I2cAddress = uint16(config.ADS1115Addr)
	if p.adc, err = ads1x15.NewADS1115(bus, &adcOpts); err != nil {
		p.Close()
		return nil, errors.Annotatef(err, "ads1115 addr=%#x", config.ADS1115Addr)
	}
	p.pin, err = p.adc.PinForChannel(adsChannels[config.VoltageChannel], 6144*physic.MilliVolt, 8*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		p.Close()
		return nil, errors.Annotatef(err, "ads1115 channel=%d", config.VoltageChannel)
	}
	return p, nil
}

func (p *Periph) ReadEnvironment() (float64, float64, error) {
	var e physic.Env
	if err := p.env.Sense(&e); err != nil {
		return 0, 0, errors.Annotate(err, "bme280 sense")
	}
	return celsius(e.Temperature), percentRH(e.Humidity), nil
}

func (p *Periph) ReadVoltage() (float64, error) {
	s, err := p.pin.Read()
	if err != nil {
		return 0, errors.Annotate(err, "ads1115 read")
	}
	return volts(s.V), nil
}

func (p *Periph) ReadPower() (usb bool, mains bool, err error) {
	if p.power == nil {
		return false, false, errors.NotSupportedf("power inputs")
	}
	return p.power.ReadPower()
}

func (p *Periph) Close() error {
	if p.pin != nil {
		p.pin.Halt() //nolint:errcheck
	}
	if p.env != nil {
		p.env.Halt() //nolint:errcheck
	}
	return p.bus.Close()
}

// Fixed returns configured constants, for bench setups without sensors.
type Fixed struct {
	Temperature float64
	Humidity    float64
	Voltage     float64
	USB         bool
	Mains       bool
	Power       PowerReader
}

func NewFixed(config Config, power PowerReader) *Fixed {
	return &Fixed{
		Temperature: config.FixedTemperature,
		Humidity:    config.FixedHumidity,
		Voltage:     config.FixedVoltage,
		USB:         config.FixedUSB,
		Mains:       config.FixedMains,
		Power:       power,
	}
}

func (f *Fixed) ReadEnvironment() (float64, float64, error) { return f.Temperature, f.Humidity, nil }
func (f *Fixed) ReadVoltage() (float64, error)              { return f.Voltage, nil }

// ReadPower prefers real inputs when available.
func (f *Fixed) ReadPower() (usb bool, mains bool, err error) {
	if f.Power != nil {
		return f.Power.ReadPower()
	}
	return f.USB, f.Mains, nil
}

func celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Celsius)
}

func percentRH(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}

func volts(v physic.ElectricPotential) float64 {
	return float64(v) / float64(physic.Volt)
}
