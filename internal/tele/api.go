package tele

//go:generate protoc --go_out=./ tele.proto

// Teler is beacon side telemetry mirror. Calls must not block on network.
type Teler interface {
	Close()
	State(State)
	Error(error)
	Packet(kind, text string)
}

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Close()                {}
func (Noop) State(State)           {}
func (Noop) Error(error)           {}
func (Noop) Packet(string, string) {}
