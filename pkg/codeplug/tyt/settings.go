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

// ErrNoRadioID is returned when encoding a configuration without a radio ID
var ErrNoRadioID = errors.New("configuration has no radio ID")

const (
	gsIntro1    = 0x00
	gsIntro2    = 0x14
	gsReserved  = 0x26
	gsDMRID     = 0x44
	gsVOX       = 0x4b
	gsPasswords = 0x68
	gsName      = 0x70

	introLen   = 10
	nameLen    = 16
	defaultVOX = 3
	maxVOX     = 10
)

func resetSettings(rec []byte) {
	field.SetUTF16(rec, gsIntro1, introLen, "")
	field.SetUTF16(rec, gsIntro2, introLen, "")
	field.Fill(rec, gsReserved, 0x1a, 0xff)
	rec[0x43] = 0xff
	field.SetUint24LE(rec, gsDMRID, 0)
	rec[0x47] = 0
	rec[gsVOX] = defaultVOX
	rec[0x4c], rec[0x4d] = 0, 0
	rec[0x57] = 0xff
	field.Fill(rec, gsPasswords, 8, 0xff)
	field.SetUTF16(rec, gsName, nameLen, "")
}

func (l *Layout) settingsBlock() *codeplug.Block {
	return &codeplug.Block{
		BlockName: "general settings",
		Address:   addrSettings,
		Size:      settingsSize,
		DecodeBlock: func(rec []byte, cfg *model.Config) error {
			cfg.Settings.IntroLine1 = field.UTF16(rec, gsIntro1, introLen)
			cfg.Settings.IntroLine2 = field.UTF16(rec, gsIntro2, introLen)
			if v := rec[gsVOX]; v >= 1 && v <= maxVOX {
				cfg.Settings.VOXLevel = v
			}
			erased := binary.LittleEndian.Uint16(rec[gsName:]) == 0xffff
			name, id := field.UTF16(rec, gsName, nameLen), field.Uint24LE(rec, gsDMRID)
			if (name == "" || erased) && (id == 0 || id == 0xffffff) {
				return nil
			}
			cfg.RadioIDs = append(cfg.RadioIDs, &model.RadioID{Name: name, Number: id})
			return nil
		},
		EncodeBlock: func(rec []byte, cfg *model.Config, _ *codeplug.Context, _ codeplug.Flags) error {
			id := cfg.DefaultRadioID()
			if id == nil {
				return ErrNoRadioID
			}
			if id.Number > 0xffffff {
				return &codeplug.RangeError{Field: "DMR ID", Value: id.Number, Limit: "16777215"}
			}
			field.SetUTF16(rec, gsIntro1, introLen, cfg.Settings.IntroLine1)
			field.SetUTF16(rec, gsIntro2, introLen, cfg.Settings.IntroLine2)
			field.SetUint24LE(rec, gsDMRID, id.Number)
			field.SetUTF16(rec, gsName, nameLen, id.Name)
			if v := cfg.Settings.VOXLevel; v != 0 {
				rec[gsVOX] = min(max(v, 1), maxVOX)
			}
			return nil
		},
		Reset: resetSettings,
	}
}

const (
	tsYear       = 1
	tsMonth      = 3
	tsDay        = 4
	tsHour       = 5
	tsMinute     = 6
	tsSecond     = 7
	tsCPSVersion = 8

	defaultCPSVersion = 0x00010300
)

// timestampBlock records the last programming time and the version of the
// software that wrote the codeplug.
var timestampBlock = &codeplug.Block{
	BlockName: "timestamp",
	Address:   addrTimestamp,
	Size:      timestampSize,
	DecodeBlock: func(rec []byte, cfg *model.Config) error {
		month := int(field.BCD2(rec, tsMonth))
		if rec[tsMonth] == 0xff || month < 1 || month > 12 {
			return nil
		}
		cfg.Settings.Timestamp = time.Date(int(field.BCD4(rec, tsYear, binary.LittleEndian)),
			time.Month(month), int(field.BCD2(rec, tsDay)), int(field.BCD2(rec, tsHour)),
			int(field.BCD2(rec, tsMinute)), int(field.BCD2(rec, tsSecond)), 0, time.Local)
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
		rec[0] = 0
		field.SetBCD4(rec, tsYear, binary.LittleEndian, uint16(ts.Year()))
		field.SetBCD2(rec, tsMonth, uint8(ts.Month()))
		field.SetBCD2(rec, tsDay, uint8(ts.Day()))
		field.SetBCD2(rec, tsHour, uint8(ts.Hour()))
		field.SetBCD2(rec, tsMinute, uint8(ts.Minute()))
		field.SetBCD2(rec, tsSecond, uint8(ts.Second()))
		return nil
	},
	Reset: func(rec []byte) {
		field.Fill(rec, 0, tsCPSVersion, 0x00)
		field.SetUint32(rec, tsCPSVersion, binary.BigEndian, defaultCPSVersion)
	},
}

// CPSVersion returns the programming software version stored with the
// timestamp, formatted as the radio displays it.
func CPSVersion(img *image.Image) (string, error) {
	b, err := img.Data(addrTimestamp+tsCPSVersion, 4)
	if err != nil {
		return "", err
	}
	const digits = "0123456789:;<=>?"
	d := func(v byte) byte { return digits[min(v, 15)] }
	return fmt.Sprintf("%c%c.%c%c", d(b[0]), d(b[1]), d(b[2]), d(b[3])), nil
}
