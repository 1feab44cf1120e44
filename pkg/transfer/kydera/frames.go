package kydera

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Wire constants of the Kydera flash protocol
const (
	BlockSize = 0x800

	commandSize       = 31
	readResponseSize  = 22
	writeResponseSize = 12
	deviceInfoSize    = 81
	checksumSize      = 13
)

var (
	cmdRead  = []byte("Flash Read ")
	cmdWrite = []byte("Flash Write")

	readResponsePrefix  = []byte("  Read_2M_")
	writeResponsePrefix = []byte("  Write_2M_")

	blockRequest = []byte("Read")
	blockAck     = []byte("Write")

	checksumRead  = []byte("ChecksumR")
	checksumWrite = []byte("ChecksumW")
)

// buildCommand returns a read or write command for the given block count
func buildCommand(cmd []byte, blocks uint16) []byte {
	buf := make([]byte, commandSize)
	copy(buf[0:11], cmd)
	buf[0x0c] = 0x3c
	binary.BigEndian.PutUint16(buf[0x11:0x13], blocks)
	return buf
}

// DeviceInfo is the identification record sent after a start response
type DeviceInfo struct {
	Revision  string
	Date      string
	Timestamp string
	// ID is the device identifier, for example "DRS-300UV"
	ID string
}

// cString cuts b at the first 0x00 or 0xff byte
func cString(b []byte) string {
	for _, term := range []byte{0x00, 0xff} {
		if i := bytes.IndexByte(b, term); i >= 0 {
			b = b[:i]
		}
	}
	return strings.TrimSpace(string(b))
}

func parseDeviceInfo(b []byte) DeviceInfo {
	info := b[47:81]
	if i := bytes.IndexByte(info, 0xff); i >= 0 {
		info = info[:i]
	}
	id := string(info)
	if i := strings.IndexByte(id, '+'); i >= 0 {
		id = id[i+1:]
		if j := strings.IndexByte(id, '+'); j >= 0 {
			id = id[:j]
		}
	} else {
		id = ""
	}
	return DeviceInfo{
		Revision:  cString(b[0:16]),
		Date:      cString(b[16:32]),
		Timestamp: cString(b[37:47]),
		ID:        id,
	}
}

// models maps device identifiers to radio models
var models = map[string]string{
	"DRS-300UV": "CDR-300UV",
}
