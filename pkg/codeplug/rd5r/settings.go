package rd5r

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// ErrNoRadioID is returned when encoding a configuration without a radio ID
var ErrNoRadioID = errors.New("configuration has no radio ID")

const (
	stName = 0
	stID   = 8

	tsYear   = 0
	tsMonth  = 2
	tsDay    = 3
	tsHour   = 4
	tsMinute = 5
)

var settingsBlock = &codeplug.Block{
	BlockName: "general settings",
	Address:   addrSettings,
	Size:      12,
	DecodeBlock: func(rec []byte, cfg *model.Config) error {
		name := field.ASCII(rec, stName, 8, 0xff)
		if name == "" && erasedID(rec[stID:stID+4]) {
			return nil
		}
		cfg.RadioIDs = append(cfg.RadioIDs, &model.RadioID{
			Name:   name,
			Number: field.DMRID(rec, stID),
		})
		return nil
	},
	EncodeBlock: func(rec []byte, cfg *model.Config, _ *codeplug.Context, _ codeplug.Flags) error {
		id := cfg.DefaultRadioID()
		if id == nil {
			return ErrNoRadioID
		}
		field.SetASCII(rec, stName, 8, 0xff, id.Name)
		field.SetDMRID(rec, stID, id.Number)
		return nil
	},
	Reset: func(rec []byte) {
		field.Fill(rec, stName, 8, 0xff)
		field.Fill(rec, stID, 4, 0x00)
	},
}

// erasedID reports an ID field left at 0x00 by Reset or 0xff by the flash
func erasedID(b []byte) bool {
	return bytes.Count(b, []byte{0x00}) == len(b) || bytes.Count(b, []byte{0xff}) == len(b)
}

var introBlock = &codeplug.Block{
	BlockName: "intro text",
	Address:   addrIntro,
	Size:      32,
	DecodeBlock: func(rec []byte, cfg *model.Config) error {
		cfg.Settings.IntroLine1 = field.ASCII(rec, 0, 16, 0xff)
		cfg.Settings.IntroLine2 = field.ASCII(rec, 16, 16, 0xff)
		return nil
	},
	EncodeBlock: func(rec []byte, cfg *model.Config, _ *codeplug.Context, _ codeplug.Flags) error {
		field.SetASCII(rec, 0, 16, 0xff, cfg.Settings.IntroLine1)
		field.SetASCII(rec, 16, 16, 0xff, cfg.Settings.IntroLine2)
		return nil
	},
}

// The timestamp records the last programming time in local BCD digits.
// An erased block decodes as the zero time.
var timestampBlock = &codeplug.Block{
	BlockName: "timestamp",
	Address:   addrTimestamp,
	Size:      6,
	DecodeBlock: func(rec []byte, cfg *model.Config) error {
		if rec[tsMonth] == 0xff {
			return nil
		}
		year := int(field.BCD4(rec, tsYear, binary.LittleEndian))
		month := int(field.BCD2(rec, tsMonth))
		if month < 1 || month > 12 {
			return nil
		}
		cfg.Settings.Timestamp = time.Date(year, time.Month(month), int(field.BCD2(rec, tsDay)),
			int(field.BCD2(rec, tsHour)), int(field.BCD2(rec, tsMinute)), 0, 0, time.Local)
		return nil
	},
	EncodeBlock: func(rec []byte, cfg *model.Config, _ *codeplug.Context, flags codeplug.Flags) error {
		ts := cfg.Settings.Timestamp
		if flags.AutoTimestamp {
			ts = flags.Time()
		}
		if ts.IsZero() {
			return nil
		}
		field.SetBCD4(rec, tsYear, binary.LittleEndian, uint16(ts.Year()))
		field.SetBCD2(rec, tsMonth, uint8(ts.Month()))
		field.SetBCD2(rec, tsDay, uint8(ts.Day()))
		field.SetBCD2(rec, tsHour, uint8(ts.Hour()))
		field.SetBCD2(rec, tsMinute, uint8(ts.Minute()))
		return nil
	},
}
