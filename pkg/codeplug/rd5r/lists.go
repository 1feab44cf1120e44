package rd5r

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

var errEmptyName = errors.New("name must not be empty")

// Group lists: 128-byte count table (members+1, 0 = disabled) followed by
// 64 records of a 16-byte name and 16 contact indices.
const (
	glName           = 0
	glMembers        = 16
	maxGroupMembers  = 15
	addrGroupRecords = addrGroupTab + groupCountSize
)

func groupListSlot(img *image.Image, i int) (image.Element, error) {
	return img.Element(addrGroupRecords+uint32(i*groupListSize), groupListSize)
}

func groupCount(img *image.Image, i int) ([]byte, error) {
	return img.Data(addrGroupTab+uint32(i), 1)
}

var groupListTable = &codeplug.Table[model.GroupList]{
	Kind:     codeplug.GroupLists,
	Capacity: MaxGroupLists,
	Base:     1,
	Slot:     groupListSlot,
	Valid:    func(rec []byte) bool { return rec[glName] != 0xff },
	Present: func(img *image.Image, i int, rec []byte) (bool, error) {
		n, err := groupCount(img, i)
		if err != nil {
			return false, err
		}
		return n[0] != 0 && n[0] != 0xff && rec[0] != 0xff, nil
	},
	Clear: func(rec []byte) {
		field.Fill(rec, glName, 16, 0xff)
		field.Fill(rec, glMembers, 32, 0x00)
	},
	DecodeRecord: func(rec []byte) (*model.GroupList, error) {
		return &model.GroupList{Name: field.ASCII(rec, glName, 16, 0xff)}, nil
	},
	LinkRecord: func(rec []byte, gl *model.GroupList, ctx *codeplug.Context) error {
		for i := 0; i < maxGroupMembers; i++ {
			idx := int(field.Uint16(rec, glMembers+2*i, binary.LittleEndian))
			if idx == 0 {
				break
			}
			ct, err := codeplug.Resolve(ctx, codeplug.Contacts, idx)
			if err != nil {
				return err
			}
			gl.Contacts = append(gl.Contacts, ct)
		}
		return nil
	},
	EncodeRecord: func(rec []byte, gl *model.GroupList, ctx *codeplug.Context, _ codeplug.Flags) error {
		if gl.Name == "" {
			return errEmptyName
		}
		if len(gl.Contacts) > maxGroupMembers {
			return &codeplug.CapacityError{Kind: "group list member", Count: len(gl.Contacts), Capacity: maxGroupMembers}
		}
		field.SetASCII(rec, glName, 16, 0xff, gl.Name)
		for i, ct := range gl.Contacts {
			idx, err := codeplug.IndexOrNone(ctx, codeplug.Contacts, ct, 0)
			if err != nil {
				return err
			}
			field.SetUint16(rec, glMembers+2*i, binary.LittleEndian, uint16(idx))
		}
		return nil
	},
	Mark: func(img *image.Image, i int, gl *model.GroupList) error {
		n, err := groupCount(img, i)
		if err != nil {
			return err
		}
		n[0] = 0
		if gl != nil {
			n[0] = uint8(len(gl.Contacts) + 1)
		}
		return nil
	},
	Items:  func(cfg *model.Config) []*model.GroupList { return cfg.GroupLists },
	Append: func(cfg *model.Config, gl *model.GroupList) { cfg.GroupLists = append(cfg.GroupLists, gl) },
	Label:  func(gl *model.GroupList) string { return gl.Name },
}

// Scan lists: 256-byte valid table followed by 250 records. Channel
// references are stored as channel index + 1; 1 means the selected channel
// and 0 ends the member list or means "none".
const (
	slName          = 0
	slFlags         = 15
	slMembers       = 16
	slPriority1     = 80
	slPriority2     = 82
	slTXDesignated  = 84
	slHoldTime      = 86
	slSampleTime    = 87
	maxScanMembers  = 32
	addrScanRecords = addrScanTab + scanValidSize

	scanChanSelected = 1
	defaultHold      = 40
	defaultSample    = 8
	holdUnit         = 25 * time.Millisecond
	sampleUnit       = 250 * time.Millisecond
)

func scanListSlot(img *image.Image, i int) (image.Element, error) {
	return img.Element(addrScanRecords+uint32(i*scanListSize), scanListSize)
}

func scanValid(img *image.Image, i int) ([]byte, error) {
	return img.Data(addrScanTab+uint32(i), 1)
}

func decodeScanChannel(code uint16, ctx *codeplug.Context) (*model.Channel, error) {
	switch code {
	case 0:
		return nil, nil
	case scanChanSelected:
		return model.SelectedChannel, nil
	}
	return codeplug.Resolve(ctx, codeplug.Channels, int(code)-1)
}

func encodeScanChannel(ch *model.Channel, ctx *codeplug.Context) (uint16, error) {
	switch ch {
	case nil:
		return 0, nil
	case model.SelectedChannel:
		return scanChanSelected, nil
	}
	idx, err := codeplug.IndexOrNone(ctx, codeplug.Channels, ch, 0)
	if err != nil {
		return 0, err
	}
	return uint16(idx + 1), nil
}

var scanListTable = &codeplug.Table[model.ScanList]{
	Kind:     codeplug.ScanLists,
	Capacity: MaxScanLists,
	Base:     1,
	Slot:     scanListSlot,
	Valid:    func(rec []byte) bool { return rec[slName] != 0xff },
	Present: func(img *image.Image, i int, rec []byte) (bool, error) {
		v, err := scanValid(img, i)
		if err != nil {
			return false, err
		}
		return v[0] != 0 && v[0] != 0xff && rec[0] != 0xff, nil
	},
	Clear: func(rec []byte) {
		field.Fill(rec, slName, 15, 0xff)
		rec[slFlags] = 0xf1
		field.Fill(rec, slMembers, 2*maxScanMembers+6, 0x00)
		rec[slHoldTime] = defaultHold
		rec[slSampleTime] = defaultSample
	},
	DecodeRecord: func(rec []byte) (*model.ScanList, error) {
		return &model.ScanList{
			Name:       field.ASCII(rec, slName, 15, 0xff),
			HoldTime:   field.ScaledDuration(uint(rec[slHoldTime]), holdUnit),
			SampleTime: field.ScaledDuration(uint(rec[slSampleTime]), sampleUnit),
		}, nil
	},
	LinkRecord: func(rec []byte, sl *model.ScanList, ctx *codeplug.Context) error {
		for i := 0; i < maxScanMembers; i++ {
			code := field.Uint16(rec, slMembers+2*i, binary.LittleEndian)
			if code == 0 {
				break
			}
			ch, err := decodeScanChannel(code, ctx)
			if err != nil {
				return err
			}
			sl.Channels = append(sl.Channels, ch)
		}
		var err error
		if sl.Primary, err = decodeScanChannel(field.Uint16(rec, slPriority1, binary.LittleEndian), ctx); err != nil {
			return err
		}
		if sl.Secondary, err = decodeScanChannel(field.Uint16(rec, slPriority2, binary.LittleEndian), ctx); err != nil {
			return err
		}
		sl.Revert, err = decodeScanChannel(field.Uint16(rec, slTXDesignated, binary.LittleEndian), ctx)
		return err
	},
	EncodeRecord: func(rec []byte, sl *model.ScanList, ctx *codeplug.Context, _ codeplug.Flags) error {
		if sl.Name == "" {
			return errEmptyName
		}
		if len(sl.Channels) > maxScanMembers {
			return &codeplug.CapacityError{Kind: "scan list member", Count: len(sl.Channels), Capacity: maxScanMembers}
		}
		field.SetASCII(rec, slName, 15, 0xff, sl.Name)
		for i, ch := range sl.Channels {
			code, err := encodeScanChannel(ch, ctx)
			if err != nil {
				return err
			}
			field.SetUint16(rec, slMembers+2*i, binary.LittleEndian, code)
		}
		for _, p := range []struct {
			off int
			ch  *model.Channel
		}{{slPriority1, sl.Primary}, {slPriority2, sl.Secondary}, {slTXDesignated, sl.Revert}} {
			code, err := encodeScanChannel(p.ch, ctx)
			if err != nil {
				return err
			}
			field.SetUint16(rec, p.off, binary.LittleEndian, code)
		}
		if sl.HoldTime > 0 {
			n, err := field.DurationUnits(sl.HoldTime, holdUnit, 255)
			if err != nil {
				return err
			}
			rec[slHoldTime] = uint8(n)
		}
		if sl.SampleTime > 0 {
			n, err := field.DurationUnits(sl.SampleTime, sampleUnit, 255)
			if err != nil {
				return err
			}
			rec[slSampleTime] = uint8(n)
		}
		return nil
	},
	Mark: func(img *image.Image, i int, sl *model.ScanList) error {
		v, err := scanValid(img, i)
		if err != nil {
			return err
		}
		v[0] = 0
		if sl != nil {
			v[0] = 1
		}
		return nil
	},
	Items:  func(cfg *model.Config) []*model.ScanList { return cfg.ScanLists },
	Append: func(cfg *model.Config, sl *model.ScanList) { cfg.ScanLists = append(cfg.ScanLists, sl) },
	Label:  func(sl *model.ScanList) string { return sl.Name },
}
