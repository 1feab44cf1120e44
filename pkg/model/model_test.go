package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want Frequency
	}{
		{"440.000", 440000000},
		{"145.6125 MHz", 145612500},
		{"433500 kHz", 433500000},
		{"446006250 Hz", 446006250},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrequency(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "abc", "-1"} {
		if _, err := ParseFrequency(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}

	if s := Frequency(440000000).String(); s != "440.000000 MHz" {
		t.Errorf("String = %q", s)
	}
}

func TestTone(t *testing.T) {
	if len(CTCSSTones) != 50 {
		t.Fatalf("expected 50 standard tones, got %d", len(CTCSSTones))
	}
	tone, err := ParseTone("88.5 Hz")
	if err != nil || tone != 885 {
		t.Fatalf("ParseTone = %d, %v", tone, err)
	}
	if tone.String() != "88.5 Hz" {
		t.Errorf("String = %q", tone.String())
	}
	if tone, _ := ParseTone("none"); tone != NoTone {
		t.Errorf("none should parse as NoTone")
	}
	if _, err := ParseTone("88.6"); err == nil {
		t.Errorf("expected error for non-standard tone")
	}
	if Tone(1234).Valid() {
		t.Errorf("1234 is not a CTCSS tone")
	}
}

func TestConfig_RemoveChannelClearsReferences(t *testing.T) {
	cfg := NewConfig()
	a := NewChannel("A", Digital, MHz(439.1), MHz(431.5))
	b := NewChannel("B", Analog, MHz(145.5), MHz(145.5))
	cfg.Channels = []*Channel{a, b}
	z := &Zone{Name: "Z", A: []*Channel{a, b}, B: []*Channel{a}}
	sl := &ScanList{Name: "S", Primary: a, Revert: SelectedChannel, Channels: []*Channel{b, a}}
	gps := &GPSSystem{Name: "G", RevertChannel: a}
	cfg.Zones = []*Zone{z}
	cfg.ScanLists = []*ScanList{sl}
	cfg.GPSSystems = []*GPSSystem{gps}

	cfg.RemoveChannel(a)

	if len(cfg.Channels) != 1 || cfg.Channels[0] != b {
		t.Fatalf("channel not removed from config")
	}
	if len(z.A) != 1 || z.A[0] != b || len(z.B) != 0 {
		t.Errorf("zone still references removed channel")
	}
	if sl.Primary != nil || sl.Revert != SelectedChannel || len(sl.Channels) != 1 {
		t.Errorf("scan list references not cleared: %+v", sl)
	}
	if gps.RevertChannel != nil {
		t.Errorf("gps revert channel not cleared")
	}
}

func TestConfig_RemoveContact(t *testing.T) {
	cfg := NewConfig()
	ct := &Contact{Name: "TG91", Type: GroupCall, Number: 91}
	gl := &GroupList{Name: "RX", Contacts: []*Contact{ct}}
	ch := NewChannel("DMR", Digital, MHz(439), MHz(431.4))
	ch.TXContact = ct
	cfg.Contacts = []*Contact{ct}
	cfg.GroupLists = []*GroupList{gl}
	cfg.Channels = []*Channel{ch}

	cfg.RemoveContact(ct)

	if len(cfg.Contacts) != 0 || len(gl.Contacts) != 0 || ch.TXContact != nil {
		t.Errorf("contact references not cleared")
	}
}

func TestProperties(t *testing.T) {
	ch := NewChannel("Test", Digital, MHz(440), MHz(445))

	values := Describe(ChannelProperties, ch)
	got := map[string]string{}
	for _, v := range values {
		got[v.Name] = v.Value
	}
	if got["name"] != "Test" || got["mode"] != "digital" || got["tx_contact"] != "[None]" {
		t.Errorf("unexpected description: %v", got)
	}

	if err := SetProperty(ChannelProperties, ch, "rx", "439.5"); err != nil {
		t.Fatalf("set rx: %v", err)
	}
	if ch.RX != 439500000 {
		t.Errorf("rx = %d", ch.RX)
	}
	if err := SetProperty(ChannelProperties, ch, "timeout", "45s"); err != nil || ch.Timeout != 45*time.Second {
		t.Errorf("set timeout: %v %v", err, ch.Timeout)
	}
	if err := SetProperty(ChannelProperties, ch, "power", "turbo"); err == nil {
		t.Errorf("expected error for invalid enum")
	}
	if ch.Power != PowerHigh {
		t.Errorf("failed set must not change the value")
	}
	if err := SetProperty(ChannelProperties, ch, "color_code", "16"); err == nil {
		t.Errorf("expected range error")
	}
	if err := SetProperty(ChannelProperties, ch, "group_list", "x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if err := SetProperty(ChannelProperties, ch, "nope", "x"); err == nil {
		t.Errorf("expected unknown property error")
	}
}
