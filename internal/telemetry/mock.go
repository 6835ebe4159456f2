package telemetry

import "github.com/juju/errors"

// MockSensors counts physical reads, used by tests and the fixed sensor driver.
type MockSensors struct {
	Temperature float64
	Humidity    float64
	Voltage     float64
	USB         bool
	Mains       bool
	Err         error

	EnvReads     int
	VoltageReads int
	PowerReads   int
}

func (m *MockSensors) ReadEnvironment() (float64, float64, error) {
	m.EnvReads++
	return m.Temperature, m.Humidity, m.Err
}

func (m *MockSensors) ReadVoltage() (float64, error) {
	m.VoltageReads++
	return m.Voltage, m.Err
}

func (m *MockSensors) ReadPower() (bool, bool, error) {
	m.PowerReads++
	return m.USB, m.Mains, m.Err
}

// MemoryCounter is PersistentCounter without storage.
type MemoryCounter struct {
	Value  byte
	Stores int
	Err    error
}

func (c *MemoryCounter) Load() (byte, error) { return c.Value, c.Err }
func (c *MemoryCounter) Store(b byte) error {
	if c.Err != nil {
		return errors.Trace(c.Err)
	}
	c.Value = b
	c.Stores++
	return nil
}
