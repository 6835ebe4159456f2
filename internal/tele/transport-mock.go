package tele

import (
	"context"
	"testing"
	"time"

	"github.com/hb9gl/tlmbeacon/log2"
)

type transportMock struct {
	t              testing.TB
	networkTimeout time.Duration
	outBuffer      int
	outPacket      chan []byte
	outState       chan []byte
	willPayload    []byte
}

func (self *transportMock) Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error {
	if self.networkTimeout == 0 {
		self.networkTimeout = defaultNetworkTimeout
	}
	self.willPayload = willPayload
	self.outPacket = make(chan []byte, self.outBuffer)
	self.outState = make(chan []byte, self.outBuffer)
	return nil
}

func (self *transportMock) Close() {}

func (self *transportMock) SendPacket(payload []byte) bool {
	select {
	case self.outPacket <- payload:
		self.t.Logf("mock delivered packet=%x", payload)
	case <-time.After(self.networkTimeout):
		self.t.Logf("mock network timeout")
		return false
	}
	return true
}

func (self *transportMock) SendState(payload []byte) bool {
	select {
	case self.outState <- payload:
		self.t.Logf("mock delivered state=%x", payload)
	case <-time.After(self.networkTimeout):
		self.t.Logf("mock network timeout")
		return false
	}
	return true
}
