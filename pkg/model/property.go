package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PropertyKind tags the value type of a Property
type PropertyKind string

const (
	KindString    PropertyKind = "string"
	KindUint      PropertyKind = "uint"
	KindBool      PropertyKind = "bool"
	KindEnum      PropertyKind = "enum"
	KindFrequency PropertyKind = "frequency"
	KindTone      PropertyKind = "tone"
	KindDuration  PropertyKind = "duration"
	KindReference PropertyKind = "reference"
	KindList      PropertyKind = "list"
)

// ErrReadOnly is returned when setting a property without a setter
var ErrReadOnly = errors.New("property is read-only")

// Property describes one editable attribute of T
type Property[T any] struct {
	Name string
	Kind PropertyKind
	Get  func(*T) string
	Set  func(*T, string) error
}

// Value is a rendered property
type Value struct {
	Name  string       `json:"name"`
	Kind  PropertyKind `json:"kind"`
	Value string       `json:"value"`
}

// Describe renders every property of obj
func Describe[T any](props []Property[T], obj *T) []Value {
	out := make([]Value, 0, len(props))
	for _, p := range props {
		out = append(out, Value{Name: p.Name, Kind: p.Kind, Value: p.Get(obj)})
	}
	return out
}

// SetProperty parses value into the named property of obj
func SetProperty[T any](props []Property[T], obj *T, name, value string) error {
	for _, p := range props {
		if p.Name != name {
			continue
		}
		if p.Set == nil {
			return fmt.Errorf("%s: %w", name, ErrReadOnly)
		}
		if err := p.Set(obj, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown property %q", name)
}

func refName(name string, present bool) string {
	if !present {
		return "[None]"
	}
	return name
}

func parseUint(s string, max uint64) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("value %d exceeds %d", v, max)
	}
	return v, nil
}

func parseEnum(s string, names map[string]int) (int, error) {
	v, ok := names[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

// ContactProperties describes Contact
var ContactProperties = []Property[Contact]{
	{Name: "name", Kind: KindString,
		Get: func(c *Contact) string { return c.Name },
		Set: func(c *Contact, s string) error { c.Name = s; return nil }},
	{Name: "type", Kind: KindEnum,
		Get: func(c *Contact) string { return c.Type.String() },
		Set: func(c *Contact, s string) error {
			v, err := parseEnum(s, map[string]int{"private": int(PrivateCall), "group": int(GroupCall), "all": int(AllCall)})
			if err != nil {
				return err
			}
			c.Type = CallType(v)
			return nil
		}},
	{Name: "number", Kind: KindUint,
		Get: func(c *Contact) string { return strconv.FormatUint(uint64(c.Number), 10) },
		Set: func(c *Contact, s string) error {
			v, err := parseUint(s, 16777215)
			if err != nil {
				return err
			}
			c.Number = uint32(v)
			return nil
		}},
	{Name: "ring", Kind: KindBool,
		Get: func(c *Contact) string { return strconv.FormatBool(c.Ring) },
		Set: func(c *Contact, s string) (err error) { c.Ring, err = strconv.ParseBool(s); return }},
}

// ChannelProperties describes Channel
var ChannelProperties = []Property[Channel]{
	{Name: "name", Kind: KindString,
		Get: func(c *Channel) string { return c.Name },
		Set: func(c *Channel, s string) error { c.Name = s; return nil }},
	{Name: "mode", Kind: KindEnum,
		Get: func(c *Channel) string { return c.Mode.String() },
		Set: func(c *Channel, s string) error {
			v, err := parseEnum(s, map[string]int{"analog": int(Analog), "digital": int(Digital)})
			if err != nil {
				return err
			}
			c.Mode = ChannelMode(v)
			return nil
		}},
	{Name: "rx", Kind: KindFrequency,
		Get: func(c *Channel) string { return c.RX.String() },
		Set: func(c *Channel, s string) (err error) { c.RX, err = ParseFrequency(s); return }},
	{Name: "tx", Kind: KindFrequency,
		Get: func(c *Channel) string { return c.TX.String() },
		Set: func(c *Channel, s string) (err error) { c.TX, err = ParseFrequency(s); return }},
	{Name: "power", Kind: KindEnum,
		Get: func(c *Channel) string { return c.Power.String() },
		Set: func(c *Channel, s string) error {
			v, err := parseEnum(s, map[string]int{"low": int(PowerLow), "mid": int(PowerMid), "high": int(PowerHigh)})
			if err != nil {
				return err
			}
			c.Power = Power(v)
			return nil
		}},
	{Name: "timeout", Kind: KindDuration,
		Get: func(c *Channel) string { return c.Timeout.String() },
		Set: func(c *Channel, s string) error {
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			if d < 0 {
				return errors.New("negative duration")
			}
			c.Timeout = d
			return nil
		}},
	{Name: "rx_only", Kind: KindBool,
		Get: func(c *Channel) string { return strconv.FormatBool(c.RXOnly) },
		Set: func(c *Channel, s string) (err error) { c.RXOnly, err = strconv.ParseBool(s); return }},
	{Name: "talkaround", Kind: KindBool,
		Get: func(c *Channel) string { return strconv.FormatBool(c.Talkaround) },
		Set: func(c *Channel, s string) (err error) { c.Talkaround, err = strconv.ParseBool(s); return }},
	{Name: "vox", Kind: KindBool,
		Get: func(c *Channel) string { return strconv.FormatBool(c.VOX) },
		Set: func(c *Channel, s string) (err error) { c.VOX, err = strconv.ParseBool(s); return }},
	{Name: "squelch", Kind: KindUint,
		Get: func(c *Channel) string { return strconv.Itoa(int(c.Squelch)) },
		Set: func(c *Channel, s string) error {
			v, err := parseUint(s, 10)
			if err != nil {
				return err
			}
			c.Squelch = uint8(v)
			return nil
		}},
	{Name: "admit", Kind: KindEnum,
		Get: func(c *Channel) string { return c.Admit.String() },
		Set: func(c *Channel, s string) error {
			v, err := parseEnum(s, map[string]int{"always": int(AdmitAlways), "free": int(AdmitFree),
				"colorcode": int(AdmitColorCode), "tone": int(AdmitTone)})
			if err != nil {
				return err
			}
			c.Admit = Admit(v)
			return nil
		}},
	{Name: "bandwidth", Kind: KindEnum,
		Get: func(c *Channel) string { return c.Bandwidth.String() },
		Set: func(c *Channel, s string) error {
			v, err := parseEnum(s, map[string]int{"narrow": int(Narrow), "wide": int(Wide)})
			if err != nil {
				return err
			}
			c.Bandwidth = Bandwidth(v)
			return nil
		}},
	{Name: "rx_tone", Kind: KindTone,
		Get: func(c *Channel) string { return c.RXTone.String() },
		Set: func(c *Channel, s string) (err error) { c.RXTone, err = ParseTone(s); return }},
	{Name: "tx_tone", Kind: KindTone,
		Get: func(c *Channel) string { return c.TXTone.String() },
		Set: func(c *Channel, s string) (err error) { c.TXTone, err = ParseTone(s); return }},
	{Name: "color_code", Kind: KindUint,
		Get: func(c *Channel) string { return strconv.Itoa(int(c.ColorCode)) },
		Set: func(c *Channel, s string) error {
			v, err := parseUint(s, 15)
			if err != nil {
				return err
			}
			c.ColorCode = uint8(v)
			return nil
		}},
	{Name: "time_slot", Kind: KindEnum,
		Get: func(c *Channel) string { return c.TimeSlot.String() },
		Set: func(c *Channel, s string) error {
			v, err := parseEnum(s, map[string]int{"ts1": int(TS1), "1": int(TS1), "ts2": int(TS2), "2": int(TS2)})
			if err != nil {
				return err
			}
			c.TimeSlot = TimeSlot(v)
			return nil
		}},
	{Name: "scan_list", Kind: KindReference,
		Get: func(c *Channel) string {
			if c.ScanList == nil {
				return refName("", false)
			}
			return c.ScanList.Name
		}},
	{Name: "group_list", Kind: KindReference,
		Get: func(c *Channel) string {
			if c.GroupList == nil {
				return refName("", false)
			}
			return c.GroupList.Name
		}},
	{Name: "tx_contact", Kind: KindReference,
		Get: func(c *Channel) string {
			if c.TXContact == nil {
				return refName("", false)
			}
			return c.TXContact.Name
		}},
	{Name: "gps_system", Kind: KindReference,
		Get: func(c *Channel) string {
			if c.GPSSystem == nil {
				return refName("", false)
			}
			return c.GPSSystem.Name
		}},
}

// ZoneProperties describes Zone
var ZoneProperties = []Property[Zone]{
	{Name: "name", Kind: KindString,
		Get: func(z *Zone) string { return z.Name },
		Set: func(z *Zone, s string) error { z.Name = s; return nil }},
	{Name: "a", Kind: KindList, Get: func(z *Zone) string { return channelNames(z.A) }},
	{Name: "b", Kind: KindList, Get: func(z *Zone) string { return channelNames(z.B) }},
}

// ScanListProperties describes ScanList
var ScanListProperties = []Property[ScanList]{
	{Name: "name", Kind: KindString,
		Get: func(s *ScanList) string { return s.Name },
		Set: func(s *ScanList, v string) error { s.Name = v; return nil }},
	{Name: "primary", Kind: KindReference, Get: func(s *ScanList) string { return channelName(s.Primary) }},
	{Name: "secondary", Kind: KindReference, Get: func(s *ScanList) string { return channelName(s.Secondary) }},
	{Name: "revert", Kind: KindReference, Get: func(s *ScanList) string { return channelName(s.Revert) }},
	{Name: "channels", Kind: KindList, Get: func(s *ScanList) string { return channelNames(s.Channels) }},
	{Name: "hold_time", Kind: KindDuration, Get: func(s *ScanList) string { return s.HoldTime.String() }},
	{Name: "sample_time", Kind: KindDuration, Get: func(s *ScanList) string { return s.SampleTime.String() }},
}

// GroupListProperties describes GroupList
var GroupListProperties = []Property[GroupList]{
	{Name: "name", Kind: KindString,
		Get: func(g *GroupList) string { return g.Name },
		Set: func(g *GroupList, s string) error { g.Name = s; return nil }},
	{Name: "contacts", Kind: KindList, Get: func(g *GroupList) string {
		names := make([]string, len(g.Contacts))
		for i, c := range g.Contacts {
			names[i] = c.Name
		}
		return strings.Join(names, ", ")
	}},
}

// GPSSystemProperties describes GPSSystem
var GPSSystemProperties = []Property[GPSSystem]{
	{Name: "name", Kind: KindString,
		Get: func(g *GPSSystem) string { return g.Name },
		Set: func(g *GPSSystem, s string) error { g.Name = s; return nil }},
	{Name: "contact", Kind: KindReference, Get: func(g *GPSSystem) string {
		if g.Contact == nil {
			return refName("", false)
		}
		return g.Contact.Name
	}},
	{Name: "revert_channel", Kind: KindReference, Get: func(g *GPSSystem) string { return channelName(g.RevertChannel) }},
	{Name: "period", Kind: KindDuration, Get: func(g *GPSSystem) string { return g.Period.String() }},
}

// RadioIDProperties describes RadioID
var RadioIDProperties = []Property[RadioID]{
	{Name: "name", Kind: KindString,
		Get: func(r *RadioID) string { return r.Name },
		Set: func(r *RadioID, s string) error { r.Name = s; return nil }},
	{Name: "number", Kind: KindUint,
		Get: func(r *RadioID) string { return strconv.FormatUint(uint64(r.Number), 10) },
		Set: func(r *RadioID, s string) error {
			v, err := parseUint(s, 16777215)
			if err != nil {
				return err
			}
			r.Number = uint32(v)
			return nil
		}},
}

func channelName(ch *Channel) string {
	if ch == nil {
		return refName("", false)
	}
	return ch.Name
}

func channelNames(list []*Channel) string {
	names := make([]string, len(list))
	for i, ch := range list {
		names[i] = ch.Name
	}
	return strings.Join(names, ", ")
}
