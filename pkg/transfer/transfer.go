// Package transfer moves codeplug images between the host and a radio.
//
// A radio is reached through an Interface, a block-oriented state machine
// that a protocol package (such as kydera) implements on top of a serial
// port. Device serializes transfers on one interface and reports progress;
// Radio runs a complete download or upload on its own goroutine.
package transfer

import (
	"context"
	"fmt"
)

// State of an Interface
type State int

const (
	StateIdle State = iota
	StateRead
	StateWrite
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRead:
		return "read"
	case StateWrite:
		return "write"
	default:
		return "error"
	}
}

// Info identifies a connected radio
type Info struct {
	Manufacturer string
	Model        string
	DeviceID     string
	Revision     string
	Date         string
}

func (i *Info) String() string {
	return fmt.Sprintf("%s %s (%s)", i.Manufacturer, i.Model, i.DeviceID)
}

// Interface is a sequential block transport. Start announces the number
// of blocks, each Block call moves exactly BlockSize bytes and Finish
// consumes the trailing checksum frame and returns to StateIdle. Any
// failure leaves the interface in StateError until Reset.
type Interface interface {
	BlockSize() int
	State() State
	// Identify runs a handshake and returns the radio identity. It
	// requires StateIdle.
	Identify(ctx context.Context) (*Info, error)

	ReadStart(ctx context.Context, blocks int) error
	ReadBlock(ctx context.Context, buf []byte) error
	ReadFinish(ctx context.Context) error

	WriteStart(ctx context.Context, blocks int) error
	WriteBlock(ctx context.Context, buf []byte) error
	WriteFinish(ctx context.Context) error

	// Reset forgets an interrupted transfer and returns to StateIdle
	Reset()
	Close() error
}

// ProtocolError is a transport failure: a bad handshake, a short read or
// write, or a malformed frame
type ProtocolError struct {
	Op  string
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// StateError is returned when an operation is issued in the wrong state
type StateError struct {
	Op   string
	Have State
	Want State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: interface is in %s state, needs %s", e.Op, e.Have, e.Want)
}
