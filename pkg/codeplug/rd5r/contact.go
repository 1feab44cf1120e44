package rd5r

import (
	"fmt"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/field"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

const (
	ctName      = 0
	ctID        = 16
	ctType      = 20
	ctRXTone    = 21
	ctRingStyle = 22

	callGroup   = 0
	callPrivate = 1
	callAll     = 2
)

func contactValid(rec []byte) bool {
	return rec[ctName] != 0xff
}

func clearContact(rec []byte) {
	field.Fill(rec, ctName, 16, 0xff)
	field.Fill(rec, ctID, contactSize-ctID, 0x00)
}

func decodeContact(rec []byte) (*model.Contact, error) {
	ct := &model.Contact{
		Name:   field.ASCII(rec, ctName, 16, 0xff),
		Number: field.DMRID(rec, ctID),
		Ring:   rec[ctRXTone] != 0 && rec[ctRingStyle] != 0,
	}
	switch rec[ctType] {
	case callGroup:
		ct.Type = model.GroupCall
	case callPrivate:
		ct.Type = model.PrivateCall
	case callAll:
		ct.Type = model.AllCall
	default:
		return nil, fmt.Errorf("unknown call type %d", rec[ctType])
	}
	return ct, nil
}

func encodeContact(rec []byte, ct *model.Contact, _ *codeplug.Context, _ codeplug.Flags) error {
	if ct.Name == "" {
		return errEmptyName
	}
	field.SetASCII(rec, ctName, 16, 0xff, ct.Name)
	field.SetDMRID(rec, ctID, ct.Number)
	switch ct.Type {
	case model.GroupCall:
		rec[ctType] = callGroup
	case model.AllCall:
		rec[ctType] = callAll
	default:
		rec[ctType] = callPrivate
	}
	if ct.Ring {
		rec[ctRXTone] = 1
		rec[ctRingStyle] = 1
	}
	return nil
}

var contactTable = &codeplug.Table[model.Contact]{
	Kind:     codeplug.Contacts,
	Capacity: MaxContacts,
	Base:     1,
	Slot: func(img *image.Image, i int) (image.Element, error) {
		return img.Element(addrContacts+uint32(i*contactSize), contactSize)
	},
	Valid:        contactValid,
	Clear:        clearContact,
	DecodeRecord: decodeContact,
	EncodeRecord: encodeContact,
	Items:        func(cfg *model.Config) []*model.Contact { return cfg.Contacts },
	Append:       func(cfg *model.Config, ct *model.Contact) { cfg.Contacts = append(cfg.Contacts, ct) },
	Label:        func(ct *model.Contact) string { return ct.Name },
}
