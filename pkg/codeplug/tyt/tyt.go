// Package tyt implements the TYT MD-390 and MD-UV390 codeplug layouts.
//
// Both radios share the record formats; they differ in the number and
// location of channels and contacts, in the power encoding and in the zone
// extension table of the UV390 that carries the members beyond the 16th and
// the B lists. Names are UTF-16LE, indices are 1-based with 0 meaning "none".
package tyt

import (
	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// Image filler. Bytes of the .rdt container outside the codeplug segments
// are written as zero.
const Filler = 0xff

// Addresses shared by both models
const (
	addrTimestamp  = 0x002000
	addrSettings   = 0x002040
	addrGroupLists = 0x00ec20
	addrZones      = 0x0149e0
	addrScanLists  = 0x018860
	addrGPSSystems = 0x03ec40

	timestampSize = 0x0c
	settingsSize  = 0x90
	channelSize   = 0x40
	contactSize   = 0x24
	zoneSize      = 0x40
	zoneExtSize   = 0xe0
	groupListSize = 0x60
	scanListSize  = 0x68
	gpsSystemSize = 0x10

	MaxZones      = 250
	MaxGroupLists = 250
	MaxScanLists  = 250
	MaxGPSSystems = 16
)

// Span is one memory region of a layout
type Span struct {
	Address uint32
	Size    int
}

// Layout holds what differs between the TYT models
type Layout struct {
	Name        string
	Description string
	ImageName   string
	Regions     []Span

	Channels     int
	ChannelAddr  uint32
	Contacts     int
	ContactAddr  uint32
	ZoneMembersA int
	ZoneMembersB int
	// ZoneExtAddr is the extension table holding A members 17-64 and the B
	// list; zero when the model has none
	ZoneExtAddr uint32
	// HasSquelch is set when byte 15 of a channel holds the squelch level
	HasSquelch bool

	Power    func(rec []byte) model.Power
	SetPower func(rec []byte, p model.Power)

	File *codeplug.FileLayout
}

// MD390 is the TYT MD-390 layout
var MD390 = &Layout{
	Name:        "md390",
	Description: "TYT MD-390 / Retevis RT8",
	ImageName:   "TYT MD-390 codeplug",
	Regions: []Span{
		{Address: 0x002000, Size: 0x3e000},
	},
	Channels:     1000,
	ChannelAddr:  0x01ee00,
	Contacts:     1000,
	ContactAddr:  0x005f80,
	ZoneMembersA: 16,
	Power: func(rec []byte) model.Power {
		if field.Bit(rec, 4, 5) {
			return model.PowerHigh
		}
		return model.PowerLow
	},
	SetPower: func(rec []byte, p model.Power) {
		field.SetBit(rec, 4, 5, p == model.PowerHigh)
	},
	File: &codeplug.FileLayout{
		Size:   262709,
		Filler: 0x00,
		Segments: []codeplug.Segment{
			{FileOffset: 0x2225, Address: 0x002000, Size: 0x3e000},
		},
	},
}

// UV390 is the TYT MD-UV390 layout
var UV390 = &Layout{
	Name:        "uv390",
	Description: "TYT MD-UV380 / MD-UV390 / Retevis RT3S",
	ImageName:   "TYT MD-UV390 codeplug",
	Regions: []Span{
		{Address: 0x002000, Size: 0x3e000},
		{Address: 0x110000, Size: 0x90000},
	},
	Channels:     3000,
	ChannelAddr:  0x110000,
	Contacts:     10000,
	ContactAddr:  0x140000,
	ZoneMembersA: 64,
	ZoneMembersB: 64,
	ZoneExtAddr:  0x031000,
	HasSquelch:   true,
	Power: func(rec []byte) model.Power {
		switch field.Bits(rec, 30, 0, 2) {
		case 3:
			return model.PowerHigh
		case 2:
			return model.PowerMid
		}
		return model.PowerLow
	},
	SetPower: func(rec []byte, p model.Power) {
		var v uint8
		switch p {
		case model.PowerHigh:
			v = 3
		case model.PowerMid:
			v = 2
		}
		field.SetBits(rec, 30, 0, 2, v)
	},
	File: &codeplug.FileLayout{
		Size:   852533,
		Filler: 0x00,
		Segments: []codeplug.Segment{
			{FileOffset: 0x02225, Address: 0x002000, Size: 0x3e000},
			{FileOffset: 0x40235, Address: 0x110000, Size: 0x90000},
		},
	},
}

// NewImage returns a default-filled image for the layout
func (l *Layout) NewImage() *image.Image {
	img := image.New(l.ImageName, Filler)
	for _, r := range l.Regions {
		if err := img.AddRegion(r.Address, r.Size); err != nil {
			panic(err)
		}
	}
	return img
}

// Family returns the codec table for the layout
func (l *Layout) Family() *codeplug.Family {
	records := []codeplug.RecordCodec{
		l.settingsBlock(),
		timestampBlock,
		l.contactTable(),
		groupListTable,
		l.channelTable(),
		l.zoneTable(),
	}
	if l.ZoneExtAddr != 0 {
		records = append(records, &zoneExtCodec{layout: l})
	}
	records = append(records, scanListTable, gpsSystemTable)
	return &codeplug.Family{
		Name:        l.Name,
		Description: l.Description,
		NewImage:    l.NewImage,
		Records:     records,
		File:        l.File,
	}
}

// nameValid reports whether a UTF-16 name starting at off is set
func nameValid(rec []byte, off int) bool {
	c := uint16(rec[off]) | uint16(rec[off+1])<<8
	return c != 0x0000 && c != 0xffff
}
