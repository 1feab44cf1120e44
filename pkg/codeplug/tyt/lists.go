package tyt

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

const (
	listName    = 0
	listMembers = 0x20

	zoneMembers      = 16
	zoneExtA         = 0x00
	zoneExtB         = 0x60
	groupListMembers = 32
)

func slotAt(base uint32, size int) func(*image.Image, int) (image.Element, error) {
	return func(img *image.Image, i int) (image.Element, error) {
		return img.Element(base+uint32(i*size), size)
	}
}

func listValid(rec []byte) bool { return nameValid(rec, listName) }

// readMembers resolves up to n mandatory 1-based indices, stopping at 0
func readMembers[T any](rec []byte, off, n int, ctx *codeplug.Context, k codeplug.Kind[T]) ([]*T, error) {
	var out []*T
	for i := 0; i < n; i++ {
		idx := int(field.Uint16(rec, off+2*i, binary.LittleEndian))
		if idx == 0 {
			break
		}
		obj, err := codeplug.Resolve(ctx, k, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func writeMembers[T any](rec []byte, off int, items []*T, ctx *codeplug.Context, k codeplug.Kind[T]) error {
	for i, obj := range items {
		idx, err := codeplug.IndexOrNone(ctx, k, obj, 0)
		if err != nil {
			return err
		}
		field.SetUint16(rec, off+2*i, binary.LittleEndian, uint16(idx))
	}
	return nil
}

func (l *Layout) zoneTable() *codeplug.Table[model.Zone] {
	return &codeplug.Table[model.Zone]{
		Kind:     codeplug.Zones,
		Capacity: MaxZones,
		Base:     1,
		Slot:     slotAt(addrZones, zoneSize),
		Valid:    listValid,
		Clear:    func(rec []byte) { field.Fill(rec, 0, zoneSize, 0x00) },
		DecodeRecord: func(rec []byte) (*model.Zone, error) {
			return &model.Zone{Name: field.UTF16(rec, listName, 16)}, nil
		},
		LinkRecord: func(rec []byte, z *model.Zone, ctx *codeplug.Context) error {
			members, err := readMembers(rec, listMembers, zoneMembers, ctx, codeplug.Channels)
			if err != nil {
				return err
			}
			z.A = members
			return nil
		},
		EncodeRecord: func(rec []byte, z *model.Zone, ctx *codeplug.Context, _ codeplug.Flags) error {
			if z.Name == "" {
				return errEmptyName
			}
			if len(z.A) > l.ZoneMembersA {
				return &codeplug.CapacityError{Kind: "zone member", Count: len(z.A), Capacity: l.ZoneMembersA}
			}
			if len(z.B) > l.ZoneMembersB && l.ZoneExtAddr != 0 {
				return &codeplug.CapacityError{Kind: "zone B member", Count: len(z.B), Capacity: l.ZoneMembersB}
			}
			field.SetUTF16(rec, listName, 16, z.Name)
			first := z.A
			if len(first) > zoneMembers {
				first = first[:zoneMembers]
			}
			return writeMembers(rec, listMembers, first, ctx, codeplug.Channels)
		},
		Items:  func(cfg *model.Config) []*model.Zone { return cfg.Zones },
		Append: func(cfg *model.Config, z *model.Zone) { cfg.Zones = append(cfg.Zones, z) },
		Label:  func(z *model.Zone) string { return z.Name },
	}
}

// zoneExtCodec handles the UV390 zone extension table. It runs after the
// zone table so list A is extended in order.
type zoneExtCodec struct {
	layout *Layout
}

func (c *zoneExtCodec) Name() string { return "zone extension" }

func (c *zoneExtCodec) record(img *image.Image, i int) ([]byte, error) {
	el, err := img.Element(c.layout.ZoneExtAddr+uint32(i*zoneExtSize), zoneExtSize)
	if err != nil {
		return nil, err
	}
	return el.Bytes()
}

func (c *zoneExtCodec) fail(pass codeplug.Pass, i int, z *model.Zone, err error) error {
	pe := &codeplug.PassError{Pass: pass, Kind: c.Name(), Index: i + 1, Err: err}
	if z != nil {
		pe.Name = z.Name
	}
	return pe
}

func (c *zoneExtCodec) Create(*image.Image, *model.Config, *codeplug.Context) error { return nil }

func (c *zoneExtCodec) Link(img *image.Image, _ *model.Config, ctx *codeplug.Context) error {
	for i := 0; i < MaxZones; i++ {
		z, ok := codeplug.Lookup(ctx, codeplug.Zones, i+1)
		if !ok {
			continue
		}
		rec, err := c.record(img, i)
		if err != nil {
			return c.fail(codeplug.PassLink, i, z, err)
		}
		if len(z.A) == zoneMembers {
			more, err := readMembers(rec, zoneExtA, c.layout.ZoneMembersA-zoneMembers, ctx, codeplug.Channels)
			if err != nil {
				return c.fail(codeplug.PassLink, i, z, err)
			}
			z.A = append(z.A, more...)
		}
		b, err := readMembers(rec, zoneExtB, c.layout.ZoneMembersB, ctx, codeplug.Channels)
		if err != nil {
			return c.fail(codeplug.PassLink, i, z, err)
		}
		z.B = b
	}
	return nil
}

func (c *zoneExtCodec) Index(*model.Config, *codeplug.Context) error { return nil }

func (c *zoneExtCodec) Encode(img *image.Image, cfg *model.Config, ctx *codeplug.Context, _ codeplug.Flags) error {
	for i := 0; i < MaxZones; i++ {
		rec, err := c.record(img, i)
		if err != nil {
			return c.fail(codeplug.PassSerialize, i, nil, err)
		}
		field.Fill(rec, 0, zoneExtSize, 0x00)
		if i >= len(cfg.Zones) {
			continue
		}
		z := cfg.Zones[i]
		if len(z.A) > zoneMembers {
			if err := writeMembers(rec, zoneExtA, z.A[zoneMembers:], ctx, codeplug.Channels); err != nil {
				return c.fail(codeplug.PassSerialize, i, z, err)
			}
		}
		if err := writeMembers(rec, zoneExtB, z.B, ctx, codeplug.Channels); err != nil {
			return c.fail(codeplug.PassSerialize, i, z, err)
		}
	}
	return nil
}

var groupListTable = &codeplug.Table[model.GroupList]{
	Kind:     codeplug.GroupLists,
	Capacity: MaxGroupLists,
	Base:     1,
	Slot:     slotAt(addrGroupLists, groupListSize),
	Valid:    listValid,
	Clear:    func(rec []byte) { field.Fill(rec, 0, groupListSize, 0x00) },
	DecodeRecord: func(rec []byte) (*model.GroupList, error) {
		return &model.GroupList{Name: field.UTF16(rec, listName, 16)}, nil
	},
	LinkRecord: func(rec []byte, gl *model.GroupList, ctx *codeplug.Context) error {
		members, err := readMembers(rec, listMembers, groupListMembers, ctx, codeplug.Contacts)
		if err != nil {
			return err
		}
		gl.Contacts = members
		return nil
	},
	EncodeRecord: func(rec []byte, gl *model.GroupList, ctx *codeplug.Context, _ codeplug.Flags) error {
		if gl.Name == "" {
			return errEmptyName
		}
		if len(gl.Contacts) > groupListMembers {
			return &codeplug.CapacityError{Kind: "group list member", Count: len(gl.Contacts), Capacity: groupListMembers}
		}
		field.SetUTF16(rec, listName, 16, gl.Name)
		return writeMembers(rec, listMembers, gl.Contacts, ctx, codeplug.Contacts)
	},
	Items:  func(cfg *model.Config) []*model.GroupList { return cfg.GroupLists },
	Append: func(cfg *model.Config, gl *model.GroupList) { cfg.GroupLists = append(cfg.GroupLists, gl) },
	Label:  func(gl *model.GroupList) string { return gl.Name },
}

// Scan lists. Priority and TX channel fields hold a channel index, 0 for
// the selected channel or 0xffff for none. Members cannot reference the
// selected channel.
const (
	slPriority1 = 0x20
	slPriority2 = 0x22
	slTXChannel = 0x24
	slFlags     = 0x26
	slHold      = 0x27
	slSample    = 0x28
	slReserved  = 0x29
	slMembers   = 0x2a

	scanListMembers = 31
	scanNone        = 0xffff
	scanSelected    = 0

	holdUnit      = 25 * time.Millisecond
	sampleUnit    = 250 * time.Millisecond
	defaultHold   = 20
	defaultSample = 8
)

func clearScanList(rec []byte) {
	field.Fill(rec, 0, scanListSize, 0x00)
	field.SetUint16(rec, slPriority1, binary.LittleEndian, scanNone)
	field.SetUint16(rec, slPriority2, binary.LittleEndian, scanNone)
	field.SetUint16(rec, slTXChannel, binary.LittleEndian, scanNone)
	rec[slFlags] = 0xf1
	rec[slHold] = defaultHold
	rec[slSample] = defaultSample
	rec[slReserved] = 0xff
}

func decodePriority(rec []byte, off int, ctx *codeplug.Context) *model.Channel {
	switch idx := field.Uint16(rec, off, binary.LittleEndian); idx {
	case scanSelected:
		return model.SelectedChannel
	case scanNone:
		return nil
	default:
		return codeplug.OptionalLenient(ctx, codeplug.Channels, int(idx))
	}
}

func encodePriority(rec []byte, off int, ch *model.Channel, ctx *codeplug.Context) error {
	switch ch {
	case nil:
		field.SetUint16(rec, off, binary.LittleEndian, scanNone)
		return nil
	case model.SelectedChannel:
		field.SetUint16(rec, off, binary.LittleEndian, scanSelected)
		return nil
	}
	idx, err := codeplug.IndexOrNone(ctx, codeplug.Channels, ch, 0)
	if err != nil {
		return err
	}
	field.SetUint16(rec, off, binary.LittleEndian, uint16(idx))
	return nil
}

var scanListTable = &codeplug.Table[model.ScanList]{
	Kind:     codeplug.ScanLists,
	Capacity: MaxScanLists,
	Base:     1,
	Slot:     slotAt(addrScanLists, scanListSize),
	Valid:    listValid,
	Clear:    clearScanList,
	DecodeRecord: func(rec []byte) (*model.ScanList, error) {
		return &model.ScanList{
			Name:       field.UTF16(rec, listName, 16),
			HoldTime:   field.ScaledDuration(uint(rec[slHold]), holdUnit),
			SampleTime: field.ScaledDuration(uint(rec[slSample]), sampleUnit),
		}, nil
	},
	LinkRecord: func(rec []byte, sl *model.ScanList, ctx *codeplug.Context) error {
		sl.Primary = decodePriority(rec, slPriority1, ctx)
		sl.Secondary = decodePriority(rec, slPriority2, ctx)
		sl.Revert = decodePriority(rec, slTXChannel, ctx)
		members, err := readMembers(rec, slMembers, scanListMembers, ctx, codeplug.Channels)
		if err != nil {
			return err
		}
		sl.Channels = members
		return nil
	},
	EncodeRecord: func(rec []byte, sl *model.ScanList, ctx *codeplug.Context, _ codeplug.Flags) error {
		if sl.Name == "" {
			return errEmptyName
		}
		var members []*model.Channel
		for _, ch := range sl.Channels {
			if ch != model.SelectedChannel {
				members = append(members, ch)
			}
		}
		if len(members) > scanListMembers {
			return &codeplug.CapacityError{Kind: "scan list member", Count: len(members), Capacity: scanListMembers}
		}
		field.SetUTF16(rec, listName, 16, sl.Name)
		for off, ch := range [...]*model.Channel{sl.Primary, sl.Secondary, sl.Revert} {
			if err := encodePriority(rec, slPriority1+2*off, ch, ctx); err != nil {
				return err
			}
		}
		if sl.HoldTime > 0 {
			n, err := field.DurationUnits(sl.HoldTime, holdUnit, 255)
			if err != nil {
				return fmt.Errorf("hold time: %w", err)
			}
			rec[slHold] = uint8(n)
		}
		if sl.SampleTime > 0 {
			n, err := field.DurationUnits(sl.SampleTime, sampleUnit, 255)
			if err != nil {
				return fmt.Errorf("sample time: %w", err)
			}
			rec[slSample] = uint8(n)
		}
		return writeMembers(rec, slMembers, members, ctx, codeplug.Channels)
	},
	Items:  func(cfg *model.Config) []*model.ScanList { return cfg.ScanLists },
	Append: func(cfg *model.Config, sl *model.ScanList) { cfg.ScanLists = append(cfg.ScanLists, sl) },
	Label:  func(sl *model.ScanList) string { return sl.Name },
}

// GPS systems have no name in the image. A slot is in use when both the
// report interval and the destination contact are set.
const (
	gpsRevert   = 0
	gpsInterval = 2
	gpsContact  = 4

	gpsUnit = 30 * time.Second
)

func gpsValid(rec []byte) bool {
	c := field.Uint16(rec, gpsContact, binary.LittleEndian)
	return rec[gpsInterval] != 0 && rec[gpsInterval] != 0xff && c != 0 && c != 0xffff
}

var gpsSystemTable = &codeplug.Table[model.GPSSystem]{
	Kind:     codeplug.GPSSystems,
	Capacity: MaxGPSSystems,
	Base:     1,
	Slot:     slotAt(addrGPSSystems, gpsSystemSize),
	Valid:    gpsValid,
	Clear: func(rec []byte) {
		field.Fill(rec, 0, gpsSystemSize, 0xff)
		rec[gpsInterval] = 0
		field.SetUint16(rec, gpsContact, binary.LittleEndian, 0)
	},
	DecodeRecord: func(rec []byte) (*model.GPSSystem, error) {
		return &model.GPSSystem{
			Period: field.ScaledDuration(uint(rec[gpsInterval]), gpsUnit),
		}, nil
	},
	LinkRecord: func(rec []byte, gps *model.GPSSystem, ctx *codeplug.Context) error {
		ct, err := codeplug.Resolve(ctx, codeplug.Contacts, int(field.Uint16(rec, gpsContact, binary.LittleEndian)))
		if err != nil {
			return err
		}
		gps.Contact = ct
		gps.Name = fmt.Sprintf("GPS %s", ct.Name)
		gps.RevertChannel = codeplug.OptionalLenient(ctx, codeplug.Channels,
			int(field.Uint16(rec, gpsRevert, binary.LittleEndian)))
		return nil
	},
	EncodeRecord: func(rec []byte, gps *model.GPSSystem, ctx *codeplug.Context, _ codeplug.Flags) error {
		if gps.Contact == nil {
			return fmt.Errorf("GPS system %q has no destination contact", gps.Name)
		}
		ct, err := codeplug.IndexOrNone(ctx, codeplug.Contacts, gps.Contact, 0)
		if err != nil {
			return err
		}
		field.SetUint16(rec, gpsContact, binary.LittleEndian, uint16(ct))
		revert, err := codeplug.IndexOrNone(ctx, codeplug.Channels, gps.RevertChannel, 0)
		if err != nil {
			return err
		}
		field.SetUint16(rec, gpsRevert, binary.LittleEndian, uint16(revert))
		n, err := field.DurationUnits(gps.Period, gpsUnit, 254)
		if err != nil {
			return fmt.Errorf("period: %w", err)
		}
		if n == 0 {
			n = 1
		}
		rec[gpsInterval] = uint8(n)
		return nil
	},
	Items:  func(cfg *model.Config) []*model.GPSSystem { return cfg.GPSSystems },
	Append: func(cfg *model.Config, gps *model.GPSSystem) { cfg.GPSSystems = append(cfg.GPSSystems, gps) },
	Label:  func(gps *model.GPSSystem) string { return gps.Name },
}
