package web

import (
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// ConfigView is the JSON form of a decoded configuration. References are
// flattened to names because the configuration graph may contain cycles.
type ConfigView struct {
	Family     string          `json:"family"`
	Settings   SettingsView    `json:"settings"`
	RadioIDs   []RadioIDView   `json:"radio_ids"`
	Contacts   []ContactView   `json:"contacts"`
	GroupLists []ListView      `json:"group_lists"`
	Channels   []ChannelView   `json:"channels"`
	Zones      []ZoneView      `json:"zones"`
	ScanLists  []ScanListView  `json:"scan_lists"`
	GPSSystems []GPSSystemView `json:"gps_systems"`
}

type SettingsView struct {
	IntroLine1 string `json:"intro_line1"`
	IntroLine2 string `json:"intro_line2"`
	Timestamp  string `json:"timestamp,omitempty"`
	VOXLevel   uint8  `json:"vox_level,omitempty"`
}

type RadioIDView struct {
	Name   string `json:"name"`
	Number uint32 `json:"number"`
}

type ContactView struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Number uint32 `json:"number"`
	Ring   bool   `json:"ring"`
}

type ListView struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type ChannelView struct {
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	RX        string `json:"rx"`
	TX        string `json:"tx"`
	Power     string `json:"power"`
	RXOnly    bool   `json:"rx_only,omitempty"`
	Admit     string `json:"admit"`
	ScanList  string `json:"scan_list,omitempty"`
	Bandwidth string `json:"bandwidth,omitempty"`
	RXTone    string `json:"rx_tone,omitempty"`
	TXTone    string `json:"tx_tone,omitempty"`
	ColorCode uint8  `json:"color_code,omitempty"`
	TimeSlot  int    `json:"time_slot,omitempty"`
	GroupList string `json:"group_list,omitempty"`
	Contact   string `json:"contact,omitempty"`
	GPSSystem string `json:"gps_system,omitempty"`
}

type ZoneView struct {
	Name string   `json:"name"`
	A    []string `json:"a"`
	B    []string `json:"b,omitempty"`
}

type ScanListView struct {
	Name      string   `json:"name"`
	Primary   string   `json:"primary,omitempty"`
	Secondary string   `json:"secondary,omitempty"`
	Revert    string   `json:"revert,omitempty"`
	Channels  []string `json:"channels"`
	HoldMS    int64    `json:"hold_ms"`
	SampleMS  int64    `json:"sample_ms"`
}

type GPSSystemView struct {
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	RevertChannel string `json:"revert_channel,omitempty"`
	PeriodSeconds int64  `json:"period_seconds"`
}

func channelName(ch *model.Channel) string {
	if ch == nil {
		return ""
	}
	return ch.Name
}

func channelNames(list []*model.Channel) []string {
	out := make([]string, len(list))
	for i, ch := range list {
		out[i] = ch.Name
	}
	return out
}

// NewConfigView flattens cfg
func NewConfigView(family string, cfg *model.Config) *ConfigView {
	v := &ConfigView{
		Family: family,
		Settings: SettingsView{
			IntroLine1: cfg.Settings.IntroLine1,
			IntroLine2: cfg.Settings.IntroLine2,
			VOXLevel:   cfg.Settings.VOXLevel,
		},
		RadioIDs:   []RadioIDView{},
		Contacts:   []ContactView{},
		GroupLists: []ListView{},
		Channels:   []ChannelView{},
		Zones:      []ZoneView{},
		ScanLists:  []ScanListView{},
		GPSSystems: []GPSSystemView{},
	}
	if !cfg.Settings.Timestamp.IsZero() {
		v.Settings.Timestamp = cfg.Settings.Timestamp.Format("2006-01-02T15:04:05")
	}
	for _, id := range cfg.RadioIDs {
		v.RadioIDs = append(v.RadioIDs, RadioIDView{Name: id.Name, Number: id.Number})
	}
	for _, c := range cfg.Contacts {
		v.Contacts = append(v.Contacts, ContactView{Name: c.Name, Type: c.Type.String(), Number: c.Number, Ring: c.Ring})
	}
	for _, gl := range cfg.GroupLists {
		lv := ListView{Name: gl.Name, Members: make([]string, len(gl.Contacts))}
		for i, c := range gl.Contacts {
			lv.Members[i] = c.Name
		}
		v.GroupLists = append(v.GroupLists, lv)
	}
	for _, ch := range cfg.Channels {
		cv := ChannelView{
			Name:   ch.Name,
			Mode:   ch.Mode.String(),
			RX:     ch.RX.String(),
			TX:     ch.TX.String(),
			Power:  ch.Power.String(),
			RXOnly: ch.RXOnly,
			Admit:  ch.Admit.String(),
		}
		if ch.ScanList != nil {
			cv.ScanList = ch.ScanList.Name
		}
		if ch.Mode == model.Digital {
			cv.ColorCode = ch.ColorCode
			cv.TimeSlot = int(ch.TimeSlot)
			if ch.GroupList != nil {
				cv.GroupList = ch.GroupList.Name
			}
			if ch.TXContact != nil {
				cv.Contact = ch.TXContact.Name
			}
			if ch.GPSSystem != nil {
				cv.GPSSystem = ch.GPSSystem.Name
			}
		} else {
			cv.Bandwidth = ch.Bandwidth.String()
			cv.RXTone = ch.RXTone.String()
			cv.TXTone = ch.TXTone.String()
		}
		v.Channels = append(v.Channels, cv)
	}
	for _, z := range cfg.Zones {
		v.Zones = append(v.Zones, ZoneView{Name: z.Name, A: channelNames(z.A), B: channelNames(z.B)})
	}
	for _, sl := range cfg.ScanLists {
		v.ScanLists = append(v.ScanLists, ScanListView{
			Name:      sl.Name,
			Primary:   channelName(sl.Primary),
			Secondary: channelName(sl.Secondary),
			Revert:    channelName(sl.Revert),
			Channels:  channelNames(sl.Channels),
			HoldMS:    sl.HoldTime.Milliseconds(),
			SampleMS:  sl.SampleTime.Milliseconds(),
		})
	}
	for _, g := range cfg.GPSSystems {
		gv := GPSSystemView{
			Name:          g.Name,
			RevertChannel: channelName(g.RevertChannel),
			PeriodSeconds: int64(g.Period.Seconds()),
		}
		if g.Contact != nil {
			gv.Contact = g.Contact.Name
		}
		v.GPSSystems = append(v.GPSSystems, gv)
	}
	return v
}
