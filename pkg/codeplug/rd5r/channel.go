package rd5r

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// Channel record offsets
const (
	chName      = 0
	chRX        = 16
	chTX        = 20
	chMode      = 24
	chTOT       = 27
	chAdmit     = 29
	chScanList  = 31
	chRXTone    = 32
	chTXTone    = 34
	chColorTX   = 42
	chGroupList = 43
	chColorRX   = 44
	chContact   = 46
	chFlags49   = 49
	chFlags51   = 51
	chSquelch   = 55

	modeAnalog  = 0
	modeDigital = 1

	admitAlways = 0
	admitFree   = 1
	admitColor  = 2

	totUnit = 15 * time.Second
)

func bankAddress(i int) uint32 {
	bank := i / channelsPerBank
	if bank == 0 {
		return addrBank0
	}
	return addrBank1 + uint32((bank-1)*bankSize)
}

func channelSlot(img *image.Image, i int) (image.Element, error) {
	return img.Element(bankAddress(i)+bankBitmapSize+uint32((i%channelsPerBank)*channelSize), channelSize)
}

func channelValid(rec []byte) bool {
	return rec[chName] != 0xff
}

func clearChannel(rec []byte) {
	field.Fill(rec, chName, 16, 0xff)
	field.Fill(rec, 16, channelSize-16, 0x00)
	rec[30] = 0x50
	field.SetTone(rec, chRXTone, 0)
	field.SetTone(rec, chTXTone, 0)
	rec[40] = 0x16
}

func decodeChannel(rec []byte) (*model.Channel, error) {
	ch := &model.Channel{
		Name:       field.ASCII(rec, chName, 16, 0xff),
		RX:         model.Frequency(field.Frequency(rec, chRX)),
		TX:         model.Frequency(field.Frequency(rec, chTX)),
		Timeout:    field.ScaledDuration(uint(rec[chTOT]), totUnit),
		RXTone:     model.Tone(field.Tone(rec, chRXTone)),
		TXTone:     model.Tone(field.Tone(rec, chTXTone)),
		ColorCode:  rec[chColorRX] & 0x0f,
		TimeSlot:   model.TS1,
		RXOnly:     field.Bit(rec, chFlags51, 2),
		Talkaround: field.Bit(rec, chFlags51, 3),
		VOX:        field.Bit(rec, chFlags51, 6),
		Squelch:    rec[chSquelch],
		Power:      model.PowerLow,
		Bandwidth:  model.Narrow,
	}
	switch rec[chMode] {
	case modeAnalog:
		ch.Mode = model.Analog
	case modeDigital:
		ch.Mode = model.Digital
	default:
		return nil, fmt.Errorf("unknown channel mode %d", rec[chMode])
	}
	switch rec[chAdmit] {
	case admitFree:
		ch.Admit = model.AdmitFree
	case admitColor:
		ch.Admit = model.AdmitColorCode
	default:
		ch.Admit = model.AdmitAlways
	}
	if field.Bit(rec, chFlags49, 6) {
		ch.TimeSlot = model.TS2
	}
	if field.Bit(rec, chFlags51, 1) {
		ch.Bandwidth = model.Wide
	}
	if field.Bit(rec, chFlags51, 7) {
		ch.Power = model.PowerHigh
	}
	return ch, nil
}

// Channel references are optional; an index without a matching object is
// read as "no reference".
func linkChannel(rec []byte, ch *model.Channel, ctx *codeplug.Context) error {
	ch.ScanList = codeplug.OptionalLenient(ctx, codeplug.ScanLists, int(rec[chScanList]))
	if ch.Mode != model.Digital {
		return nil
	}
	ch.GroupList = codeplug.OptionalLenient(ctx, codeplug.GroupLists, int(rec[chGroupList]))
	ch.TXContact = codeplug.OptionalLenient(ctx, codeplug.Contacts,
		int(field.Uint16(rec, chContact, binary.LittleEndian)))
	return nil
}

func encodeChannel(rec []byte, ch *model.Channel, ctx *codeplug.Context, _ codeplug.Flags) error {
	if ch.Name == "" {
		return errEmptyName
	}
	if !ch.RXTone.Valid() {
		return &codeplug.RangeError{Field: "rx tone", Value: ch.RXTone, Limit: "standard CTCSS tone"}
	}
	if !ch.TXTone.Valid() {
		return &codeplug.RangeError{Field: "tx tone", Value: ch.TXTone, Limit: "standard CTCSS tone"}
	}
	tot, err := field.DurationUnits(ch.Timeout, totUnit, 255)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}

	field.SetASCII(rec, chName, 16, 0xff, ch.Name)
	field.SetFrequency(rec, chRX, uint64(ch.RX))
	field.SetFrequency(rec, chTX, uint64(ch.TX))
	rec[chTOT] = uint8(tot)
	field.SetTone(rec, chRXTone, uint16(ch.RXTone))
	field.SetTone(rec, chTXTone, uint16(ch.TXTone))

	cc := ch.ColorCode
	if cc > 15 {
		cc = 15
	}
	rec[chColorTX] = cc
	rec[chColorRX] = cc

	sq := ch.Squelch
	if sq > 10 {
		sq = 10
	}
	rec[chSquelch] = sq

	switch ch.Admit {
	case model.AdmitFree, model.AdmitTone:
		rec[chAdmit] = admitFree
	case model.AdmitColorCode:
		rec[chAdmit] = admitColor
	default:
		rec[chAdmit] = admitAlways
	}

	field.SetBit(rec, chFlags49, 6, ch.TimeSlot == model.TS2)
	field.SetBit(rec, chFlags51, 1, ch.Bandwidth == model.Wide)
	field.SetBit(rec, chFlags51, 2, ch.RXOnly)
	field.SetBit(rec, chFlags51, 3, ch.Talkaround)
	field.SetBit(rec, chFlags51, 6, ch.VOX)
	field.SetBit(rec, chFlags51, 7, ch.Power == model.PowerHigh)

	sl, err := codeplug.IndexOrNone(ctx, codeplug.ScanLists, ch.ScanList, 0)
	if err != nil {
		return err
	}
	rec[chScanList] = uint8(sl)

	if ch.Mode == model.Digital {
		rec[chMode] = modeDigital
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
	} else {
		rec[chMode] = modeAnalog
	}
	return nil
}

var channelTable = &codeplug.Table[model.Channel]{
	Kind:     codeplug.Channels,
	Capacity: MaxChannels,
	Base:     1,
	Slot:     channelSlot,
	Valid:    channelValid,
	Present: func(img *image.Image, i int, rec []byte) (bool, error) {
		on, err := getBitmap(img, bankAddress(i), i%channelsPerBank)
		return on && channelValid(rec), err
	},
	Clear:        clearChannel,
	DecodeRecord: decodeChannel,
	LinkRecord:   linkChannel,
	EncodeRecord: encodeChannel,
	Mark: func(img *image.Image, i int, ch *model.Channel) error {
		return setBitmap(img, bankAddress(i), i%channelsPerBank, ch != nil)
	},
	Items:  func(cfg *model.Config) []*model.Channel { return cfg.Channels },
	Append: func(cfg *model.Config, ch *model.Channel) { cfg.Channels = append(cfg.Channels, ch) },
	Label:  func(ch *model.Channel) string { return ch.Name },
}
