// Package rd5r implements the Radioddity RD-5R codeplug layout.
//
// Memory is two regions (0x00080-0x07c00 and 0x08000-0x1e300) filled with
// 0xff. Channels live in eight banks of 128, zones, scan lists and group
// lists in tables preceded by a validity bitmap or count table. All indices
// stored in the image are 1-based with 0 meaning "none".
package rd5r

import (
	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
)

const (
	ImageName = "Radioddity RD-5R codeplug"
	Filler    = 0xff

	// FileSize is the size of a raw RD-5R codeplug dump
	FileSize = 131072

	addrTimestamp = 0x00088
	addrSettings  = 0x000e0
	addrContacts  = 0x01788
	addrBank0     = 0x03780
	addrIntro     = 0x07540
	addrZoneTab   = 0x08010
	addrBank1     = 0x0b1b0
	addrScanTab   = 0x17620
	addrGroupTab  = 0x1d620

	MaxChannels   = 1024
	MaxContacts   = 256
	MaxZones      = 250
	MaxScanLists  = 250
	MaxGroupLists = 64

	channelsPerBank = 128
	bankBitmapSize  = 16
	bankSize        = bankBitmapSize + channelsPerBank*channelSize
	zoneBitmapSize  = 32
	scanValidSize   = 256
	groupCountSize  = 128

	channelSize   = 56
	contactSize   = 24
	zoneSize      = 48
	scanListSize  = 88
	groupListSize = 48
)

var regions = []struct {
	addr uint32
	size int
}{
	{0x00080, 0x07b80},
	{0x08000, 0x16300},
}

// NewImage returns a default-filled RD-5R image
func NewImage() *image.Image {
	img := image.New(ImageName, Filler)
	for _, r := range regions {
		if err := img.AddRegion(r.addr, r.size); err != nil {
			panic(err)
		}
	}
	return img
}

// File is the raw dump format: file offsets equal device addresses
var File = &codeplug.FileLayout{
	Size:   FileSize,
	Filler: Filler,
	Segments: []codeplug.Segment{
		{FileOffset: 0x00080, Address: 0x00080, Size: 0x07b80},
		{FileOffset: 0x08000, Address: 0x08000, Size: 0x16300},
	},
}

// Family returns the RD-5R codec table. Kinds are created in dependency
// order: contacts, group lists, channels, zones, scan lists.
func Family() *codeplug.Family {
	return &codeplug.Family{
		Name:        "rd5r",
		Description: "Radioddity RD-5R / Baofeng DM-5R Tier II",
		NewImage:    NewImage,
		Records: []codeplug.RecordCodec{
			settingsBlock,
			introBlock,
			timestampBlock,
			contactTable,
			groupListTable,
			channelTable,
			zoneCodec{},
			scanListTable,
		},
		File: File,
	}
}

func setBitmap(img *image.Image, addr uint32, i int, on bool) error {
	b, err := img.Data(addr+uint32(i/8), 1)
	if err != nil {
		return err
	}
	if on {
		b[0] |= 1 << (i & 7)
	} else {
		b[0] &^= 1 << (i & 7)
	}
	return nil
}

func getBitmap(img *image.Image, addr uint32, i int) (bool, error) {
	b, err := img.Data(addr+uint32(i/8), 1)
	if err != nil {
		return false, err
	}
	return b[0]&(1<<(i&7)) != 0, nil
}
