package tele

import (
	"context"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/spq"
)

func newTestTele(t *testing.T) (*Tele, *transportMock) {
	mock := &transportMock{t: t, outBuffer: 8, networkTimeout: 5 * time.Second}
	tele := &Tele{
		transport: mock,
		now:       func() time.Time { return time.Unix(1600000000, 0) },
	}
	conf := Config{
		Enabled:     true,
		LogDebug:    true,
		PersistPath: spq.OnlyForTesting,
		Callsign:    "HB9GL-15",
	}
	require.NoError(t, tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), conf))
	return tele, mock
}

func receive(t testing.TB, ch <-chan []byte) []byte {
	select {
	case b := <-ch:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("tele mock receive timeout")
		return nil
	}
}

func TestPacketDelivery(t *testing.T) {
	t.Parallel()

	tele, mock := newTestTele(t)
	defer tele.Close()
	assert.Equal(t, []byte{byte(State_Disconnected)}, mock.willPayload)
	assert.Equal(t, []byte{byte(State_Boot)}, receive(t, mock.outState))

	tele.Packet("data", "HB9GL-15>TLM:T#007,128,055,137,042,,10101")
	var p Packet
	require.NoError(t, proto.Unmarshal(receive(t, mock.outPacket), &p))
	assert.Equal(t, "data", p.Kind)
	assert.Equal(t, "HB9GL-15>TLM:T#007,128,055,137,042,,10101", p.Text)
	assert.Equal(t, "HB9GL-15", p.Callsign)
	assert.Equal(t, int64(1600000000000), p.Time)

	tele.Error(errors.New("radio wait done: aux timeout"))
	p.Reset()
	require.NoError(t, proto.Unmarshal(receive(t, mock.outPacket), &p))
	assert.Equal(t, "error", p.Kind)
	assert.Equal(t, "radio wait done: aux timeout", p.Error)
}

func TestState(t *testing.T) {
	t.Parallel()

	tele, mock := newTestTele(t)
	defer tele.Close()
	receive(t, mock.outState)
	tele.State(State_Running)
	assert.Equal(t, []byte{byte(State_Running)}, receive(t, mock.outState))
	tele.State(State_Broken)
	assert.Equal(t, []byte{byte(State_Broken)}, receive(t, mock.outState))
	assert.Equal(t, "Broken", State_Broken.String())
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	teler, err := New(context.Background(), log2.NewTest(t, log2.LDebug), Config{})
	require.NoError(t, err)
	assert.Equal(t, Noop{}, teler)
	teler.Packet("data", "x")
	teler.Close()
}

func TestPacketProtoWire(t *testing.T) {
	t.Parallel()

	b, err := proto.Marshal(&Packet{Kind: "bits", Time: 1})
	require.NoError(t, err)
	// field 1 bytes "bits", field 3 varint 1
	assert.Equal(t, []byte{0x0a, 4, 'b', 'i', 't', 's', 0x18, 1}, b)

	var p Packet
	require.NoError(t, proto.Unmarshal(b, &p))
	assert.Equal(t, "bits", p.GetKind())
	assert.Equal(t, int64(1), p.GetTime())
	assert.Equal(t, int32(State_Broken), proto.EnumValueMap("tele.State")["Broken"])
	assert.NotNil(t, proto.MessageType("tele.Packet"))
}
