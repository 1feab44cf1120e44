package tyt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

var errEmptyName = errors.New("name must not be empty")

const (
	chFlags0    = 0
	chFlags1    = 1
	chFlags3    = 3
	chFlags4    = 4
	chFlags5    = 5
	chContact   = 6
	chTOT       = 8
	chScanList  = 11
	chGroupList = 12
	chGPSSystem = 13
	chSquelch   = 15
	chRX        = 16
	chTX        = 20
	chRXTone    = 24
	chTXTone    = 26
	chFlags30   = 30
	chFlags31   = 31
	chName      = 32

	modeAnalog  = 1
	modeDigital = 2

	bwNarrow = 0
	bwWide   = 2

	admitAlways = 0
	admitFree   = 1
	admitTone   = 2
	admitColor  = 3

	totUnit = 15 * time.Second
	totMax  = 63
)

func (l *Layout) clearChannel(rec []byte) {
	field.Fill(rec, 0, channelSize, 0x00)
	rec[chFlags0] = modeAnalog | 0x60
	rec[chFlags1] = 0x01 | 1<<2 | 1<<4 // talkaround off, TS1, CC1
	rec[chFlags3] = 0x60
	rec[chFlags4] = 0x04
	rec[chFlags5] = 0xc3
	field.SetFrequency(rec, chRX, 400000000)
	field.SetFrequency(rec, chTX, 400000000)
	field.SetTone(rec, chRXTone, 0)
	field.SetTone(rec, chTXTone, 0)
	rec[chFlags30] = 0xfc
	rec[chFlags31] = 0xe3
	if l.HasSquelch {
		rec[chSquelch] = 1
	} else {
		rec[chSquelch] = 0xff
	}
	l.SetPower(rec, model.PowerHigh)
}

func (l *Layout) decodeChannel(rec []byte) (*model.Channel, error) {
	ch := &model.Channel{
		Name:       field.UTF16(rec, chName, 16),
		RX:         model.Frequency(field.Frequency(rec, chRX)),
		TX:         model.Frequency(field.Frequency(rec, chTX)),
		Power:      l.Power(rec),
		Timeout:    field.ScaledDuration(uint(field.Bits(rec, chTOT, 0, 6)), totUnit),
		RXOnly:     field.Bit(rec, chFlags1, 1),
		Talkaround: !field.Bit(rec, chFlags1, 0),
		VOX:        field.Bit(rec, chFlags4, 4),
		RXTone:     model.Tone(field.Tone(rec, chRXTone)),
		TXTone:     model.Tone(field.Tone(rec, chTXTone)),
		ColorCode:  field.Bits(rec, chFlags1, 4, 4),
		TimeSlot:   model.TS1,
		Bandwidth:  model.Narrow,
	}
	if l.HasSquelch {
		ch.Squelch = rec[chSquelch]
	}
	switch field.Bits(rec, chFlags0, 0, 2) {
	case modeAnalog:
		ch.Mode = model.Analog
	case modeDigital:
		ch.Mode = model.Digital
	default:
		return nil, fmt.Errorf("unknown channel mode %d", field.Bits(rec, chFlags0, 0, 2))
	}
	if field.Bits(rec, chFlags0, 2, 2) != bwNarrow {
		ch.Bandwidth = model.Wide
	}
	if field.Bits(rec, chFlags1, 2, 2) == 2 {
		ch.TimeSlot = model.TS2
	}
	switch field.Bits(rec, chFlags4, 6, 2) {
	case admitFree:
		ch.Admit = model.AdmitFree
	case admitTone:
		ch.Admit = model.AdmitTone
	case admitColor:
		ch.Admit = model.AdmitColorCode
	default:
		ch.Admit = model.AdmitAlways
	}
	return ch, nil
}

func linkChannel(rec []byte, ch *model.Channel, ctx *codeplug.Context) error {
	ch.ScanList = codeplug.OptionalLenient(ctx, codeplug.ScanLists, int(rec[chScanList]))
	if ch.Mode != model.Digital {
		return nil
	}
	ch.TXContact = codeplug.OptionalLenient(ctx, codeplug.Contacts,
		int(field.Uint16(rec, chContact, binary.LittleEndian)))
	ch.GroupList = codeplug.OptionalLenient(ctx, codeplug.GroupLists, int(rec[chGroupList]))
	ch.GPSSystem = codeplug.OptionalLenient(ctx, codeplug.GPSSystems, int(rec[chGPSSystem]))
	return nil
}

func (l *Layout) encodeChannel(rec []byte, ch *model.Channel, ctx *codeplug.Context, _ codeplug.Flags) error {
	if ch.Name == "" {
		return errEmptyName
	}
	if !ch.RXTone.Valid() {
		return &codeplug.RangeError{Field: "rx tone", Value: ch.RXTone, Limit: "standard CTCSS tone"}
	}
	if !ch.TXTone.Valid() {
		return &codeplug.RangeError{Field: "tx tone", Value: ch.TXTone, Limit: "standard CTCSS tone"}
	}
	tot, err := field.DurationUnits(ch.Timeout, totUnit, totMax)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}

	field.SetUTF16(rec, chName, 16, ch.Name)
	field.SetFrequency(rec, chRX, uint64(ch.RX))
	field.SetFrequency(rec, chTX, uint64(ch.TX))
	field.SetBits(rec, chTOT, 0, 6, uint8(tot))
	field.SetBit(rec, chFlags1, 1, ch.RXOnly)
	field.SetBit(rec, chFlags1, 0, !ch.Talkaround)
	field.SetBit(rec, chFlags4, 4, ch.VOX)
	l.SetPower(rec, ch.Power)
	if l.HasSquelch {
		sq := ch.Squelch
		if sq > 9 {
			sq = 9
		}
		rec[chSquelch] = sq
	}

	sl, err := codeplug.IndexOrNone(ctx, codeplug.ScanLists, ch.ScanList, 0)
	if err != nil {
		return err
	}
	rec[chScanList] = uint8(sl)

	var admit uint8 = admitAlways
	switch ch.Admit {
	case model.AdmitFree:
		admit = admitFree
	case model.AdmitTone:
		admit = admitTone
	case model.AdmitColorCode:
		admit = admitColor
	}

	if ch.Mode == model.Analog {
		field.SetBits(rec, chFlags0, 0, 2, modeAnalog)
		if ch.Bandwidth == model.Wide {
			field.SetBits(rec, chFlags0, 2, 2, bwWide)
		}
		if admit == admitColor {
			admit = admitFree
		}
		field.SetBits(rec, chFlags4, 6, 2, admit)
		field.SetTone(rec, chRXTone, uint16(ch.RXTone))
		field.SetTone(rec, chTXTone, uint16(ch.TXTone))
		return nil
	}

	field.SetBits(rec, chFlags0, 0, 2, modeDigital)
	if admit == admitTone {
		admit = admitFree
	}
	field.SetBits(rec, chFlags4, 6, 2, admit)
	cc := ch.ColorCode
	if cc > 15 {
		cc = 15
	}
	field.SetBits(rec, chFlags1, 4, 4, cc)
	if ch.TimeSlot == model.TS2 {
		field.SetBits(rec, chFlags1, 2, 2, 2)
	}

	gl, err := codeplug.IndexOrNone(ctx, codeplug.GroupLists, ch.GroupList, 0)
	if err != nil {
		return err
	}
	rec[chGroupList] = uint8(gl)
	ct, err := codeplug.IndexOrNone(ctx, codeplug.Contacts, ch.TXContact, 0)
	if err != nil {
		return err
	}
	field.SetUint16(rec, chContact, binary.LittleEndian, uint16(ct))
	gps, err := codeplug.IndexOrNone(ctx, codeplug.GPSSystems, ch.GPSSystem, 0)
	if err != nil {
		return err
	}
	rec[chGPSSystem] = uint8(gps)
	if gps != 0 {
		// send position, do not decode others
		field.SetBit(rec, chFlags31, 0, false)
		field.SetBit(rec, chFlags31, 1, true)
	}
	return nil
}

func (l *Layout) channelTable() *codeplug.Table[model.Channel] {
	return &codeplug.Table[model.Channel]{
		Kind:     codeplug.Channels,
		Capacity: l.Channels,
		Base:     1,
		Slot: func(img *image.Image, i int) (image.Element, error) {
			return img.Element(l.ChannelAddr+uint32(i*channelSize), channelSize)
		},
		Valid:        func(rec []byte) bool { return nameValid(rec, chName) },
		Clear:        l.clearChannel,
		DecodeRecord: l.decodeChannel,
		LinkRecord:   linkChannel,
		EncodeRecord: l.encodeChannel,
		Items:        func(cfg *model.Config) []*model.Channel { return cfg.Channels },
		Append:       func(cfg *model.Config, ch *model.Channel) { cfg.Channels = append(cfg.Channels, ch) },
		Label:        func(ch *model.Channel) string { return ch.Name },
	}
}

const (
	ctID    = 0
	ctFlags = 3
	ctName  = 4

	callGroup   = 1
	callPrivate = 2
	callAll     = 3
)

func clearContact(rec []byte) {
	field.Fill(rec, ctID, 3, 0xff)
	rec[ctFlags] = 0xc0
	field.Fill(rec, ctName, 32, 0x00)
}

func contactValid(rec []byte) bool {
	return field.Bits(rec, ctFlags, 0, 2) != 0 && nameValid(rec, ctName)
}

func decodeContact(rec []byte) (*model.Contact, error) {
	ct := &model.Contact{
		Name:   field.UTF16(rec, ctName, 16),
		Number: field.Uint24LE(rec, ctID),
		Ring:   field.Bit(rec, ctFlags, 5),
		Type:   model.PrivateCall,
	}
	switch field.Bits(rec, ctFlags, 0, 2) {
	case callGroup:
		ct.Type = model.GroupCall
	case callAll:
		ct.Type = model.AllCall
	}
	return ct, nil
}

func encodeContact(rec []byte, ct *model.Contact, _ *codeplug.Context, _ codeplug.Flags) error {
	if ct.Name == "" {
		return errEmptyName
	}
	if ct.Number > 0xffffff {
		return &codeplug.RangeError{Field: "DMR ID", Value: ct.Number, Limit: "16777215"}
	}
	field.SetUint24LE(rec, ctID, ct.Number)
	field.SetUTF16(rec, ctName, 16, ct.Name)
	field.SetBit(rec, ctFlags, 5, ct.Ring)
	switch ct.Type {
	case model.GroupCall:
		field.SetBits(rec, ctFlags, 0, 2, callGroup)
	case model.AllCall:
		field.SetBits(rec, ctFlags, 0, 2, callAll)
	default:
		field.SetBits(rec, ctFlags, 0, 2, callPrivate)
	}
	return nil
}

func (l *Layout) contactTable() *codeplug.Table[model.Contact] {
	return &codeplug.Table[model.Contact]{
		Kind:     codeplug.Contacts,
		Capacity: l.Contacts,
		Base:     1,
		Slot: func(img *image.Image, i int) (image.Element, error) {
			return img.Element(l.ContactAddr+uint32(i*contactSize), contactSize)
		},
		Valid:        contactValid,
		Clear:        clearContact,
		DecodeRecord: decodeContact,
		EncodeRecord: encodeContact,
		Items:        func(cfg *model.Config) []*model.Contact { return cfg.Contacts },
		Append:       func(cfg *model.Config, ct *model.Contact) { cfg.Contacts = append(cfg.Contacts, ct) },
		Label:        func(ct *model.Contact) string { return ct.Name },
	}
}
