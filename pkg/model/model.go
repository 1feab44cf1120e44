// Package model contains the manufacturer-independent configuration graph
// consumed and produced by the codeplug codecs.
//
// The graph owns its objects through the ordered slices of Config. All other
// references between objects (a channel's contact, a zone's channels) are
// plain pointers resolved by identity; Config's Remove helpers clear them.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ChannelMode selects analog FM or DMR operation
type ChannelMode int

const (
	Analog ChannelMode = iota
	Digital
)

func (m ChannelMode) String() string {
	if m == Digital {
		return "digital"
	}
	return "analog"
}

// Power is the transmit power level
type Power int

const (
	PowerLow Power = iota
	PowerMid
	PowerHigh
)

func (p Power) String() string {
	switch p {
	case PowerHigh:
		return "high"
	case PowerMid:
		return "mid"
	default:
		return "low"
	}
}

// Admit is the channel's transmit admission criterion
type Admit int

const (
	AdmitAlways Admit = iota
	AdmitFree
	AdmitColorCode
	AdmitTone
)

func (a Admit) String() string {
	switch a {
	case AdmitFree:
		return "free"
	case AdmitColorCode:
		return "colorcode"
	case AdmitTone:
		return "tone"
	default:
		return "always"
	}
}

// Bandwidth of an analog channel
type Bandwidth int

const (
	Narrow Bandwidth = iota
	Wide
)

func (b Bandwidth) String() string {
	if b == Wide {
		return "wide"
	}
	return "narrow"
}

// TimeSlot of a digital channel
type TimeSlot int

const (
	TS1 TimeSlot = 1
	TS2 TimeSlot = 2
)

func (ts TimeSlot) String() string {
	return fmt.Sprintf("TS%d", int(ts))
}

// CallType of a digital contact
type CallType int

const (
	PrivateCall CallType = iota
	GroupCall
	AllCall
)

func (c CallType) String() string {
	switch c {
	case GroupCall:
		return "group"
	case AllCall:
		return "all"
	default:
		return "private"
	}
}

// RadioID is a DMR ID the radio transmits with
type RadioID struct {
	Name   string
	Number uint32
}

// Contact is a digital call destination
type Contact struct {
	Name   string
	Type   CallType
	Number uint32
	Ring   bool
}

// GroupList is an RX group list
type GroupList struct {
	Name     string
	Contacts []*Contact
}

// Channel is an analog or digital channel. Fields under "analog" and
// "digital" only apply in the corresponding mode.
type Channel struct {
	Name       string
	Mode       ChannelMode
	RX         Frequency
	TX         Frequency
	Power      Power
	Timeout    time.Duration
	RXOnly     bool
	Talkaround bool
	VOX        bool
	Squelch    uint8
	Admit      Admit
	ScanList   *ScanList

	// analog
	Bandwidth Bandwidth
	RXTone    Tone
	TXTone    Tone

	// digital
	ColorCode uint8
	TimeSlot  TimeSlot
	GroupList *GroupList
	TXContact *Contact
	GPSSystem *GPSSystem
}

// SelectedChannel is the pseudo-channel "currently selected channel" usable
// in scan lists and positioning systems. It is never part of Config.Channels.
var SelectedChannel = &Channel{Name: "[Selected]"}

// NewChannel returns a channel with the common defaults
func NewChannel(name string, mode ChannelMode, rx, tx Frequency) *Channel {
	return &Channel{
		Name:      name,
		Mode:      mode,
		RX:        rx,
		TX:        tx,
		Power:     PowerHigh,
		Squelch:   1,
		ColorCode: 1,
		TimeSlot:  TS1,
	}
}

// Zone is a named set of channels with an optional B list
type Zone struct {
	Name string
	A    []*Channel
	B    []*Channel
}

// ScanList is a named list of channels scanned together. Primary, Secondary
// and Revert may be SelectedChannel.
type ScanList struct {
	Name       string
	Primary    *Channel
	Secondary  *Channel
	Revert     *Channel
	Channels   []*Channel
	HoldTime   time.Duration
	SampleTime time.Duration
}

// GPSSystem periodically reports the radio position to a contact
type GPSSystem struct {
	Name          string
	Contact       *Contact
	RevertChannel *Channel
	Period        time.Duration
}

// Settings holds radio-wide settings
type Settings struct {
	IntroLine1 string
	IntroLine2 string
	Timestamp  time.Time

	// VOXLevel is the VOX sensitivity, 0 when the radio default applies
	VOXLevel uint8
}

func (c *Contact) String() string {
	return fmt.Sprintf("%s (%s %d)", c.Name, c.Type, c.Number)
}

func (ch *Channel) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] RX %s TX %s", ch.Name, ch.Mode, ch.RX, ch.TX)
	if ch.Mode == Digital {
		fmt.Fprintf(&b, " CC%d %s", ch.ColorCode, ch.TimeSlot)
	}
	return b.String()
}
