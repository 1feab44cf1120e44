package kydera

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer"
)

// MockDevice simulates a CDR-300UV on the other end of the serial line
type MockDevice struct {
	mem     []byte
	out     bytes.Buffer
	mode    string
	blocks  int
	pos     int
	chunk   int
	id      string
	shortAt int
	badResp bool
	mute    bool
	writes  [][]byte
}

func NewMockDevice(blocks int) *MockDevice {
	mem := make([]byte, blocks*BlockSize)
	for i := range mem {
		mem[i] = byte(i / BlockSize)
	}
	return &MockDevice{mem: mem, chunk: 300, id: "DRS-300UV", shortAt: -1}
}

func deviceInfo(id string) []byte {
	b := bytes.Repeat([]byte{0x00}, deviceInfoSize)
	copy(b[0:], "V2.03.05")
	copy(b[16:], "2019-04-12")
	copy(b[37:], "1555063200")
	info := bytes.Repeat([]byte{0xff}, 34)
	copy(info, "CDR300UV+"+id+"+400-470")
	copy(b[47:], info)
	return b
}

func padded(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func (m *MockDevice) Write(p []byte) (int, error) {
	m.writes = append(m.writes, append([]byte(nil), p...))
	switch {
	case len(p) == commandSize && bytes.HasPrefix(p, cmdRead):
		m.mode, m.pos = "read", 0
		m.blocks = int(binary.BigEndian.Uint16(p[0x11:]))
		if m.badResp {
			m.out.Write(padded("  Nope", readResponseSize))
		} else {
			m.out.Write(padded("  Read_2M_", readResponseSize))
		}
		m.out.Write(deviceInfo(m.id))
	case len(p) == commandSize && bytes.HasPrefix(p, cmdWrite):
		m.mode, m.pos = "write", 0
		m.blocks = int(binary.BigEndian.Uint16(p[0x11:]))
		m.out.Write(padded("  Write_2M_", writeResponseSize))
		m.out.Write(deviceInfo(m.id))
	case m.mode == "read" && string(p) == "Read":
		m.out.Write(m.mem[m.pos*BlockSize : (m.pos+1)*BlockSize])
		m.pos++
		if m.pos == m.blocks {
			m.out.Write(append([]byte("ChecksumR"), 1, 2, 3, 4))
			m.mode = ""
		}
	case m.mode == "write" && len(p) == BlockSize:
		if m.pos == m.shortAt {
			return 100, nil
		}
		copy(m.mem[m.pos*BlockSize:], p)
		m.out.WriteString("Write")
		m.pos++
		if m.pos == m.blocks {
			m.out.Write(append([]byte("ChecksumW"), 1, 2, 3, 4))
			m.mode = ""
		}
	default:
		return 0, errors.New("unexpected frame")
	}
	return len(p), nil
}

// Read returns at most chunk bytes; an empty buffer behaves like a serial
// port read timeout
func (m *MockDevice) Read(p []byte) (int, error) {
	if m.mute || m.out.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	if len(p) > m.chunk {
		p = p[:m.chunk]
	}
	return m.out.Read(p)
}

func newImage(blocks int) *image.Image {
	img := image.New("test", 0xff)
	if err := img.AddRegion(0, blocks*BlockSize); err != nil {
		panic(err)
	}
	return img
}

func TestBuildCommand(t *testing.T) {
	got := buildCommand(cmdRead, 0x0102)
	want := append([]byte("Flash Read "), 0x00, 0x3c, 0, 0, 0, 0, 0x01, 0x02)
	want = append(want, make([]byte, 12)...)
	if !bytes.Equal(got, want) {
		t.Errorf("command\n got % x\nwant % x", got, want)
	}
	if len(buildCommand(cmdWrite, 1)) != commandSize {
		t.Errorf("write command has wrong size")
	}
}

func TestParseDeviceInfo(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		id   string
	}{
		{"known", deviceInfo("DRS-300UV"), "DRS-300UV"},
		{"other", deviceInfo("XYZ"), "XYZ"},
		{"no separator", func() []byte {
			b := deviceInfo("")
			copy(b[47:], bytes.Repeat([]byte{0xff}, 34))
			copy(b[47:], "CDR300UV")
			return b
		}(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := parseDeviceInfo(tt.raw)
			if info.ID != tt.id {
				t.Errorf("ID = %q, want %q", info.ID, tt.id)
			}
			if info.Revision != "V2.03.05" || info.Date != "2019-04-12" {
				t.Errorf("unexpected info %+v", info)
			}
		})
	}
}

func TestIdentify(t *testing.T) {
	dev := NewMockDevice(2)
	k := New(dev)

	info, err := k.Identify(context.Background())
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if info.Model != "CDR-300UV" || info.DeviceID != "DRS-300UV" || info.Manufacturer != "Kydera" {
		t.Errorf("unexpected info %+v", info)
	}
	if k.State() != transfer.StateIdle {
		t.Errorf("state = %s, want idle", k.State())
	}
	if dev.blocks != 1 {
		t.Errorf("handshake requested %d blocks, want 1", dev.blocks)
	}
}

func TestIdentify_UnknownDevice(t *testing.T) {
	dev := NewMockDevice(1)
	dev.id = "XYZ-1"
	k := New(dev)

	_, err := k.Identify(context.Background())
	var protoErr *transfer.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if k.State() != transfer.StateError {
		t.Errorf("state = %s, want error", k.State())
	}
}

func TestDownloadUpload(t *testing.T) {
	dev := NewMockDevice(4)
	d := transfer.NewDevice(New(dev))

	img := newImage(4)
	if err := d.Download(context.Background(), img); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, _ := img.Data(0, 4*BlockSize)
	if !bytes.Equal(data, dev.mem) {
		t.Fatalf("downloaded image differs from device memory")
	}

	data[BlockSize+7] = 0xee
	if err := d.Upload(context.Background(), img, false, nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if dev.mem[BlockSize+7] != 0xee {
		t.Errorf("device memory not written")
	}
}

func TestShortWrite(t *testing.T) {
	dev := NewMockDevice(12)
	dev.shortAt = 10
	k := New(dev)
	d := transfer.NewDevice(k)

	err := d.Upload(context.Background(), newImage(12), false, nil)
	var protoErr *transfer.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if k.State() != transfer.StateError {
		t.Fatalf("state = %s, want error", k.State())
	}
	if dev.pos != 10 {
		t.Errorf("device accepted %d blocks, want 10", dev.pos)
	}

	dev.shortAt = -1
	if err := d.Download(context.Background(), newImage(12)); err != nil {
		t.Fatalf("next transfer after failure: %v", err)
	}
}

func TestInvalidResponse(t *testing.T) {
	dev := NewMockDevice(1)
	dev.badResp = true
	k := New(dev)

	err := k.ReadStart(context.Background(), 1)
	var protoErr *transfer.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if k.State() != transfer.StateError {
		t.Errorf("state = %s, want error", k.State())
	}
}

func TestTimeout(t *testing.T) {
	dev := NewMockDevice(2)
	k := New(dev, WithTimeout(20*time.Millisecond))
	if err := k.ReadStart(context.Background(), 2); err != nil {
		t.Fatalf("ReadStart: %v", err)
	}
	dev.mute = true

	err := k.ReadBlock(context.Background(), make([]byte, BlockSize))
	var protoErr *transfer.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestStateAndSizeChecks(t *testing.T) {
	k := New(NewMockDevice(1))
	ctx := context.Background()

	var stateErr *transfer.StateError
	if err := k.ReadBlock(ctx, make([]byte, BlockSize)); !errors.As(err, &stateErr) {
		t.Errorf("ReadBlock in idle: expected StateError, got %v", err)
	}
	if err := k.WriteFinish(ctx); !errors.As(err, &stateErr) {
		t.Errorf("WriteFinish in idle: expected StateError, got %v", err)
	}

	if err := k.ReadStart(ctx, 1); err != nil {
		t.Fatalf("ReadStart: %v", err)
	}
	if err := k.ReadStart(ctx, 1); !errors.As(err, &stateErr) {
		t.Errorf("second ReadStart: expected StateError, got %v", err)
	}
	var protoErr *transfer.ProtocolError
	if err := k.ReadBlock(ctx, make([]byte, 16)); !errors.As(err, &protoErr) {
		t.Errorf("short buffer: expected ProtocolError, got %v", err)
	}
	if err := k.ReadStart(ctx, 0x10000); err == nil {
		t.Errorf("expected error for block count out of range")
	}

	fresh := New(NewMockDevice(1))
	if err := fresh.WriteStart(ctx, 0x10000); !errors.As(err, &protoErr) {
		t.Errorf("block count out of range: expected ProtocolError, got %v", err)
	}
	if fresh.State() != transfer.StateError {
		t.Errorf("state after rejected block count = %v, want Error", fresh.State())
	}
}

func TestCString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("V2.03\x00junk"), "V2.03"},
		{[]byte("V2.03\xffjunk"), "V2.03"},
		{[]byte("Rev \x80\xc3 B\x00"), "Rev \x80\xc3 B"},
		{[]byte("  padded  "), "padded"},
	}
	for _, tt := range tests {
		if got := cString(tt.in); got != tt.want {
			t.Errorf("cString(% x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_NilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	New(nil)
}
