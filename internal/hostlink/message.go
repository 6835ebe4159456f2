package hostlink

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/juju/errors"
)

type Code uint32

const (
	CodeLinkStatus     Code = 1
	CodeKeepAlive      Code = 2
	CodeStatusQuery    Code = 3
	CodeStatusResponse Code = 4
	CodeReboot         Code = 5
)

const (
	CodeSize           = 4
	LinkStatusSize     = 2
	DummySize          = 4
	StatusResponseSize = 28
)

func (c Code) String() string {
	switch c {
	case CodeLinkStatus:
		return "link-status"
	case CodeKeepAlive:
		return "keepalive"
	case CodeStatusQuery:
		return "status-query"
	case CodeStatusResponse:
		return "status-response"
	case CodeReboot:
		return "reboot"
	}
	return fmt.Sprintf("code(%d)", uint32(c))
}

// RequestSize returns payload length of host->beacon commands.
// Response code is not a valid request.
func RequestSize(c Code) (int, bool) {
	switch c {
	case CodeLinkStatus:
		return LinkStatusSize, true
	case CodeKeepAlive, CodeStatusQuery, CodeReboot:
		return DummySize, true
	}
	return 0, false
}

type LinkStatus struct {
	Uplink   bool
	Echolink bool
}

func (ls LinkStatus) Frame() []byte {
	return Frame(CodeLinkStatus, []byte{boolByte(ls.Uplink), boolByte(ls.Echolink)})
}

func DecodeLinkStatus(b []byte) (LinkStatus, error) {
	if len(b) != LinkStatusSize {
		return LinkStatus{}, errors.NotValidf("link status length=%d", len(b))
	}
	return LinkStatus{Uplink: b[0] != 0, Echolink: b[1] != 0}, nil
}

// Layout matches natural C alignment of the firmware struct:
// u8 seq, pad 3, f32 volts, u8 batt, u8 mains, pad 2, f32 temp, f32 hum, u32 secs_data, u32 secs_status.
type StatusResponse struct {
	Sequence              uint8
	Voltage               float32
	BatteryPercent        uint8
	MainsPower            bool
	Temperature           float32
	Humidity              float32
	SecsSinceDataBeacon   uint32
	SecsSinceStatusBeacon uint32
}

func (r StatusResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, StatusResponseSize)
	le := binary.LittleEndian
	b[0] = r.Sequence
	le.PutUint32(b[4:], math.Float32bits(r.Voltage))
	b[8] = r.BatteryPercent
	b[9] = boolByte(r.MainsPower)
	le.PutUint32(b[12:], math.Float32bits(r.Temperature))
	le.PutUint32(b[16:], math.Float32bits(r.Humidity))
	le.PutUint32(b[20:], r.SecsSinceDataBeacon)
	le.PutUint32(b[24:], r.SecsSinceStatusBeacon)
	return b, nil
}

func (r *StatusResponse) UnmarshalBinary(b []byte) error {
	if len(b) != StatusResponseSize {
		return errors.NotValidf("status response length=%d", len(b))
	}
	le := binary.LittleEndian
	*r = StatusResponse{
		Sequence:              b[0],
		Voltage:               math.Float32frombits(le.Uint32(b[4:])),
		BatteryPercent:        b[8],
		MainsPower:            b[9] != 0,
		Temperature:           math.Float32frombits(le.Uint32(b[12:])),
		Humidity:              math.Float32frombits(le.Uint32(b[16:])),
		SecsSinceDataBeacon:   le.Uint32(b[20:]),
		SecsSinceStatusBeacon: le.Uint32(b[24:]),
	}
	return nil
}

func (r StatusResponse) String() string {
	return fmt.Sprintf("seq=%d volts=%.2f batt=%d%% mains=%t temp=%.1f hum=%.1f data_ago=%ds status_ago=%ds",
		r.Sequence, r.Voltage, r.BatteryPercent, r.MainsPower, r.Temperature, r.Humidity,
		r.SecsSinceDataBeacon, r.SecsSinceStatusBeacon)
}

func Frame(c Code, payload []byte) []byte {
	b := make([]byte, CodeSize+len(payload))
	binary.LittleEndian.PutUint32(b, uint32(c))
	copy(b[CodeSize:], payload)
	return b
}

// Request frames a command with dummy zero payload: keepalive, status query, reboot.
func Request(c Code) []byte { return Frame(c, make([]byte, DummySize)) }

// ParseResponse expects complete code 4 frame.
func ParseResponse(b []byte) (StatusResponse, error) {
	var r StatusResponse
	if len(b) < CodeSize {
		return r, errors.NotValidf("response length=%d", len(b))
	}
	if c := Code(binary.LittleEndian.Uint32(b)); c != CodeStatusResponse {
		return r, errors.NotValidf("response %s", c)
	}
	err := r.UnmarshalBinary(b[CodeSize:])
	return r, errors.Trace(err)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
