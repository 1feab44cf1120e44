// Package callsigndb builds the call-sign database image of the GD-77 family
// from the DMR user table.
package callsigndb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
)

const (
	// MaxEntries is the capacity of the database
	MaxEntries = 10920

	headerSize = 12
	entrySize  = 12
	blockSize  = 32
	nameLen    = 7

	imageName = "GD77 call-sign database"
)

var magic = []byte("ID-V001\x00")

// ErrBadMagic is returned when decoding an image without the database header
var ErrBadMagic = errors.New("not a call-sign database")

// User is one database entry
type User struct {
	ID   uint32
	Call string
}

// Selection limits which users end up in the image
type Selection struct {
	// Limit caps the number of entries below MaxEntries; zero means no limit
	Limit int
	// Near prefers the users whose ID is closest to this one
	Near uint32
}

func distance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Select picks the users to encode. Without Near the input order decides.
// The result is sorted by ID.
func Select(users []User, sel Selection) []User {
	n := min(len(users), MaxEntries)
	if sel.Limit > 0 {
		n = min(n, sel.Limit)
	}
	picked := append([]User(nil), users...)
	if sel.Near != 0 {
		sort.SliceStable(picked, func(i, j int) bool {
			return distance(picked[i].ID, sel.Near) < distance(picked[j].ID, sel.Near)
		})
	}
	picked = picked[:n]
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].ID < picked[j].ID })
	return picked
}

func alignedSize(n int) int {
	size := headerSize + n*entrySize
	if r := size % blockSize; r != 0 {
		size += blockSize - r
	}
	return size
}

// Encode returns the database image for the selected users. An empty
// selection yields an image without regions.
func Encode(users []User, sel Selection) (*image.Image, error) {
	img := image.New(imageName, 0x00)
	picked := Select(users, sel)
	if len(picked) == 0 {
		return img, nil
	}
	if err := img.AddRegion(0, alignedSize(len(picked))); err != nil {
		return nil, err
	}
	buf, err := img.Data(0, headerSize+len(picked)*entrySize)
	if err != nil {
		return nil, err
	}
	copy(buf, magic)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(picked)))
	for i, u := range picked {
		off := headerSize + i*entrySize
		field.SetBCD8(buf, off, binary.LittleEndian, u.ID)
		field.SetASCII(buf, off+4, nameLen, 0x00, u.Call)
		buf[off+4+nameLen] = 0x00
	}
	return img, nil
}

// Decode reads the entries back from a database image
func Decode(img *image.Image) ([]User, error) {
	head, err := img.Data(0, headerSize)
	if err != nil {
		return nil, fmt.Errorf("cannot read call-sign database header: %w", err)
	}
	if string(head[:8]) != string(magic) {
		return nil, ErrBadMagic
	}
	n := int(binary.LittleEndian.Uint32(head[8:]))
	if n > MaxEntries {
		return nil, fmt.Errorf("call-sign database holds %d entries, at most %d allowed", n, MaxEntries)
	}
	buf, err := img.Data(0, headerSize+n*entrySize)
	if err != nil {
		return nil, fmt.Errorf("cannot read call-sign database entries: %w", err)
	}
	users := make([]User, n)
	for i := range users {
		off := headerSize + i*entrySize
		users[i] = User{
			ID:   field.BCD8(buf, off, binary.LittleEndian),
			Call: field.ASCII(buf, off+4, nameLen, 0x00),
		}
	}
	return users, nil
}
