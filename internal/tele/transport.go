package tele

import (
	"context"

	"github.com/hb9gl/tlmbeacon/log2"
)

// Tele transport contract:
// - Init fails only with invalid config, ignores network errors
// - Send* deliver within timeout or fail
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error
	SendState(payload []byte) bool
	SendPacket(payload []byte) bool
	Close()
}
