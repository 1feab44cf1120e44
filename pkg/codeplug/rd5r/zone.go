package rd5r

import (
	"encoding/binary"
	"strings"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// The radio has no B lists. A zone with a B list is stored in two
// consecutive slots named "<name> A" and "<name> B"; the A slot may be empty.
const (
	znName          = 0
	znMembers       = 16
	maxZoneMembers  = 16
	addrZoneRecords = addrZoneTab + zoneBitmapSize
)

type zoneCodec struct{}

func (zoneCodec) Name() string { return codeplug.Zones.Name() }

func zoneRecord(img *image.Image, i int) ([]byte, error) {
	el, err := img.Element(addrZoneRecords+uint32(i*zoneSize), zoneSize)
	if err != nil {
		return nil, err
	}
	return el.Bytes()
}

func zoneFail(pass codeplug.Pass, i int, z *model.Zone, err error) error {
	pe := &codeplug.PassError{Pass: pass, Kind: codeplug.Zones.Name(), Index: i + 1, Err: err}
	if z != nil {
		pe.Name = z.Name
	}
	return pe
}

// Create decodes every enabled slot and folds "X A"/"X B" pairs into one
// zone that is registered under both slot indices.
func (zoneCodec) Create(img *image.Image, cfg *model.Config, ctx *codeplug.Context) error {
	var last *model.Zone
	var lastName string
	for i := 0; i < MaxZones; i++ {
		on, err := getBitmap(img, addrZoneTab, i)
		if err != nil {
			return zoneFail(codeplug.PassCreate, i, nil, err)
		}
		if !on {
			last, lastName = nil, ""
			continue
		}
		rec, err := zoneRecord(img, i)
		if err != nil {
			return zoneFail(codeplug.PassCreate, i, nil, err)
		}
		if rec[znName] == 0xff {
			last, lastName = nil, ""
			continue
		}
		name := field.ASCII(rec, znName, 16, 0xff)
		base := strings.TrimSuffix(name, " B")
		extend := last != nil && strings.HasSuffix(name, " B") &&
			lastName == base+" A" && len(last.B) == 0

		z := last
		if extend {
			z.Name = base
		} else {
			z = &model.Zone{Name: name}
			cfg.Zones = append(cfg.Zones, z)
		}
		if err := codeplug.Register(ctx, codeplug.Zones, i+1, z); err != nil {
			return zoneFail(codeplug.PassCreate, i, z, err)
		}
		if extend {
			last, lastName = nil, ""
		} else {
			last, lastName = z, name
		}
	}
	return nil
}

// Link fills the member lists. A slot registered under the same zone as the
// preceding slot holds the B list.
func (zoneCodec) Link(img *image.Image, _ *model.Config, ctx *codeplug.Context) error {
	for i := 0; i < MaxZones; i++ {
		z, ok := codeplug.Lookup(ctx, codeplug.Zones, i+1)
		if !ok {
			continue
		}
		prev, _ := codeplug.Lookup(ctx, codeplug.Zones, i)
		rec, err := zoneRecord(img, i)
		if err != nil {
			return zoneFail(codeplug.PassLink, i, z, err)
		}
		var members []*model.Channel
		for m := 0; m < maxZoneMembers; m++ {
			idx := int(field.Uint16(rec, znMembers+2*m, binary.LittleEndian))
			if idx == 0 {
				break
			}
			ch, err := codeplug.Resolve(ctx, codeplug.Channels, idx)
			if err != nil {
				return zoneFail(codeplug.PassLink, i, z, err)
			}
			members = append(members, ch)
		}
		if prev == z {
			z.B = members
		} else {
			z.A = members
		}
	}
	return nil
}

type zoneSlot struct {
	name    string
	members []*model.Channel
}

func zoneSlots(z *model.Zone) []zoneSlot {
	switch {
	case len(z.B) > 0:
		return []zoneSlot{{z.Name + " A", z.A}, {z.Name + " B", z.B}}
	default:
		return []zoneSlot{{z.Name, z.A}}
	}
}

// Index assigns each zone the index of its first slot
func (zoneCodec) Index(cfg *model.Config, ctx *codeplug.Context) error {
	slot := 0
	for _, z := range cfg.Zones {
		if err := codeplug.Register(ctx, codeplug.Zones, slot+1, z); err != nil {
			return zoneFail(codeplug.PassIndex, slot, z, err)
		}
		slot += len(zoneSlots(z))
	}
	if slot > MaxZones {
		return &codeplug.CapacityError{Kind: "zone slot", Count: slot, Capacity: MaxZones}
	}
	return nil
}

func clearZone(rec []byte) {
	field.Fill(rec, znName, 16, 0xff)
	field.Fill(rec, znMembers, 2*maxZoneMembers, 0x00)
}

func (zoneCodec) Encode(img *image.Image, cfg *model.Config, ctx *codeplug.Context, _ codeplug.Flags) error {
	for i := 0; i < MaxZones; i++ {
		rec, err := zoneRecord(img, i)
		if err != nil {
			return zoneFail(codeplug.PassSerialize, i, nil, err)
		}
		clearZone(rec)
		if err := setBitmap(img, addrZoneTab, i, false); err != nil {
			return zoneFail(codeplug.PassSerialize, i, nil, err)
		}
	}

	slot := 0
	for _, z := range cfg.Zones {
		if z.Name == "" {
			return zoneFail(codeplug.PassSerialize, slot, z, errEmptyName)
		}
		for _, s := range zoneSlots(z) {
			if err := encodeZoneSlot(img, slot, s, ctx); err != nil {
				return zoneFail(codeplug.PassSerialize, slot, z, err)
			}
			slot++
		}
	}
	return nil
}

func encodeZoneSlot(img *image.Image, i int, s zoneSlot, ctx *codeplug.Context) error {
	if len(s.members) > maxZoneMembers {
		return &codeplug.CapacityError{Kind: "zone member", Count: len(s.members), Capacity: maxZoneMembers}
	}
	rec, err := zoneRecord(img, i)
	if err != nil {
		return err
	}
	field.SetASCII(rec, znName, 16, 0xff, s.name)
	for m, ch := range s.members {
		idx, err := codeplug.IndexOrNone(ctx, codeplug.Channels, ch, 0)
		if err != nil {
			return err
		}
		field.SetUint16(rec, znMembers+2*m, binary.LittleEndian, uint16(idx))
	}
	return setBitmap(img, addrZoneTab, i, true)
}
