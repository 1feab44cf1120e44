// Package kydera implements the sequential flash protocol of Kydera radios
// (CDR-300UV) as a transfer.Interface.
//
// Every transfer starts with a 31-byte command naming the block count,
// answered by a short response and an 81-byte device info record. Blocks of
// 2048 bytes follow; a read block is requested with "Read", a written block
// is acknowledged with "Write". A 13-byte checksum frame ends the transfer.
package kydera

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer"
)

// DefaultTimeout bounds every read from the device
const DefaultTimeout = time.Second

// Interface talks the Kydera protocol over a byte stream. The stream is
// typically a serial port opened with a short read timeout so that a
// silent device shows up as a zero-length read.
type Interface struct {
	port    io.ReadWriter
	state   transfer.State
	timeout time.Duration
	log     *logger.Logger
	last    DeviceInfo
}

// Option configures an Interface
type Option func(*Interface)

// WithTimeout sets the per-read timeout
func WithTimeout(d time.Duration) Option {
	return func(k *Interface) {
		if d > 0 {
			k.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(k *Interface) {
		if log != nil {
			k.log = log.WithComponent("kydera")
		}
	}
}

// New wraps port. It panics on a nil port.
func New(port io.ReadWriter, opts ...Option) *Interface {
	if port == nil {
		panic("kydera: port cannot be nil")
	}
	k := &Interface{
		port:    port,
		timeout: DefaultTimeout,
		log:     logger.New(logger.Config{Level: "error", Output: io.Discard}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// BlockSize implements transfer.Interface
func (k *Interface) BlockSize() int { return BlockSize }

// State implements transfer.Interface
func (k *Interface) State() transfer.State { return k.state }

// DeviceInfo returns the record received with the last start response
func (k *Interface) DeviceInfo() DeviceInfo { return k.last }

// Reset implements transfer.Interface
func (k *Interface) Reset() { k.state = transfer.StateIdle }

// Close closes the port when it is closable
func (k *Interface) Close() error {
	if c, ok := k.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (k *Interface) fail(op, msg string, err error) error {
	k.state = transfer.StateError
	k.log.Debug("Protocol failure", logger.String("op", op), logger.String("msg", msg), logger.Error(err))
	return &transfer.ProtocolError{Op: op, Msg: msg, Err: err}
}

func (k *Interface) expect(op string, want transfer.State) error {
	if k.state != want {
		return &transfer.StateError{Op: op, Have: k.state, Want: want}
	}
	return nil
}

func (k *Interface) send(op string, b []byte) error {
	n, err := k.port.Write(b)
	if err != nil {
		return k.fail(op, "cannot send", err)
	}
	if n != len(b) {
		return k.fail(op, fmt.Sprintf("incomplete write %db of %db", n, len(b)), nil)
	}
	return nil
}

// receive reads exactly len(buf) bytes. Each read that returns no data
// must be followed by data within the timeout.
func (k *Interface) receive(ctx context.Context, op string, buf []byte) error {
	got := 0
	deadline := time.Now().Add(k.timeout)
	for got < len(buf) {
		if err := ctx.Err(); err != nil {
			return k.fail(op, "cancelled", err)
		}
		n, err := k.port.Read(buf[got:])
		got += n
		if err != nil {
			return k.fail(op, fmt.Sprintf("incomplete data after %db of %db", got, len(buf)), err)
		}
		if n > 0 {
			deadline = time.Now().Add(k.timeout)
			continue
		}
		if time.Now().After(deadline) {
			return k.fail(op, fmt.Sprintf("timeout after %db of %db", got, len(buf)), nil)
		}
	}
	return nil
}

// start sends a command and consumes the response and device info
func (k *Interface) start(ctx context.Context, op string, cmd []byte, blocks int, prefix []byte, respSize int) error {
	if blocks < 0 || blocks > 0xffff {
		return k.fail(op, fmt.Sprintf("block count %d out of range", blocks), nil)
	}
	if err := k.send(op, buildCommand(cmd, uint16(blocks))); err != nil {
		return err
	}
	resp := make([]byte, respSize)
	if err := k.receive(ctx, op, resp); err != nil {
		return err
	}
	if !bytes.HasPrefix(resp, prefix) {
		return k.fail(op, fmt.Sprintf("invalid response % x", resp), nil)
	}
	info := make([]byte, deviceInfoSize)
	if err := k.receive(ctx, op, info); err != nil {
		return err
	}
	k.last = parseDeviceInfo(info)
	return nil
}

func (k *Interface) checksum(ctx context.Context, op string, prefix []byte) error {
	frame := make([]byte, checksumSize)
	if err := k.receive(ctx, op, frame); err != nil {
		return err
	}
	if !bytes.HasPrefix(frame, prefix) {
		return k.fail(op, fmt.Sprintf("invalid checksum frame % x", frame), nil)
	}
	// TODO: verify the checksum once its algorithm is known
	k.log.Debug("Checksum received", logger.Hex("value", binary.LittleEndian.Uint32(frame[9:])))
	return nil
}

// Identify reads one block to obtain the device info record
func (k *Interface) Identify(ctx context.Context) (*transfer.Info, error) {
	const op = "identify"
	if err := k.expect(op, transfer.StateIdle); err != nil {
		return nil, err
	}
	if err := k.start(ctx, op, cmdRead, 1, readResponsePrefix, readResponseSize); err != nil {
		return nil, err
	}
	if err := k.send(op, blockRequest); err != nil {
		return nil, err
	}
	if err := k.receive(ctx, op, make([]byte, BlockSize)); err != nil {
		return nil, err
	}
	if err := k.checksum(ctx, op, checksumRead); err != nil {
		return nil, err
	}
	model, ok := models[k.last.ID]
	if !ok {
		return nil, k.fail(op, fmt.Sprintf("unknown Kydera device %q", k.last.ID), nil)
	}
	return &transfer.Info{
		Manufacturer: "Kydera",
		Model:        model,
		DeviceID:     k.last.ID,
		Revision:     k.last.Revision,
		Date:         k.last.Date,
	}, nil
}

// ReadStart implements transfer.Interface
func (k *Interface) ReadStart(ctx context.Context, blocks int) error {
	if err := k.expect("read start", transfer.StateIdle); err != nil {
		return err
	}
	if err := k.start(ctx, "read start", cmdRead, blocks, readResponsePrefix, readResponseSize); err != nil {
		return err
	}
	k.state = transfer.StateRead
	return nil
}

// ReadBlock implements transfer.Interface
func (k *Interface) ReadBlock(ctx context.Context, buf []byte) error {
	const op = "read block"
	if err := k.expect(op, transfer.StateRead); err != nil {
		return err
	}
	if len(buf) != BlockSize {
		return k.fail(op, fmt.Sprintf("block of %db, needs %db", len(buf), BlockSize), nil)
	}
	if err := k.send(op, blockRequest); err != nil {
		return err
	}
	return k.receive(ctx, op, buf)
}

// ReadFinish implements transfer.Interface
func (k *Interface) ReadFinish(ctx context.Context) error {
	if err := k.expect("read finish", transfer.StateRead); err != nil {
		return err
	}
	if err := k.checksum(ctx, "read finish", checksumRead); err != nil {
		return err
	}
	k.state = transfer.StateIdle
	return nil
}

// WriteStart implements transfer.Interface
func (k *Interface) WriteStart(ctx context.Context, blocks int) error {
	if err := k.expect("write start", transfer.StateIdle); err != nil {
		return err
	}
	if err := k.start(ctx, "write start", cmdWrite, blocks, writeResponsePrefix, writeResponseSize); err != nil {
		return err
	}
	k.state = transfer.StateWrite
	return nil
}

// WriteBlock implements transfer.Interface
func (k *Interface) WriteBlock(ctx context.Context, buf []byte) error {
	const op = "write block"
	if err := k.expect(op, transfer.StateWrite); err != nil {
		return err
	}
	if len(buf) != BlockSize {
		return k.fail(op, fmt.Sprintf("block of %db, needs %db", len(buf), BlockSize), nil)
	}
	if err := k.send(op, buf); err != nil {
		return err
	}
	ack := make([]byte, len(blockAck))
	if err := k.receive(ctx, op, ack); err != nil {
		return err
	}
	if !bytes.Equal(ack, blockAck) {
		return k.fail(op, fmt.Sprintf("invalid acknowledge %q", ack), nil)
	}
	return nil
}

// WriteFinish implements transfer.Interface
func (k *Interface) WriteFinish(ctx context.Context) error {
	if err := k.expect("write finish", transfer.StateWrite); err != nil {
		return err
	}
	if err := k.checksum(ctx, "write finish", checksumWrite); err != nil {
		return err
	}
	k.state = transfer.StateIdle
	return nil
}

var _ transfer.Interface = (*Interface)(nil)
