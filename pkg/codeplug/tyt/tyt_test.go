package tyt

import (
	"errors"
	"testing"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

func sampleConfig() *model.Config {
	cfg := model.NewConfig()
	cfg.RadioIDs = []*model.RadioID{{Name: "DM3MAT", Number: 2621370}}
	cfg.Settings.IntroLine1 = "Hällo"
	cfg.Settings.IntroLine2 = "Welt"
	cfg.Settings.VOXLevel = 5

	tg := &model.Contact{Name: "TG 91", Type: model.GroupCall, Number: 91}
	all := &model.Contact{Name: "All", Type: model.AllCall, Number: 16777215}
	priv := &model.Contact{Name: "Bob", Type: model.PrivateCall, Number: 1234567, Ring: true}
	cfg.Contacts = []*model.Contact{tg, all, priv}
	gl := &model.GroupList{Name: "Worldwide", Contacts: []*model.Contact{tg, all}}
	cfg.GroupLists = []*model.GroupList{gl}
	gps := &model.GPSSystem{Name: "APRS", Contact: priv, Period: 5 * time.Minute}
	cfg.GPSSystems = []*model.GPSSystem{gps}

	dig := model.NewChannel("DB0ABC TS2", model.Digital, model.MHz(439.5625), model.MHz(431.9625))
	dig.TimeSlot = model.TS2
	dig.ColorCode = 3
	dig.TXContact = tg
	dig.GroupList = gl
	dig.GPSSystem = gps
	dig.Admit = model.AdmitColorCode
	dig.Timeout = 45 * time.Second

	ana := model.NewChannel("S20", model.Analog, model.MHz(145.5), model.MHz(145.5))
	ana.Bandwidth = model.Wide
	ana.Power = model.PowerLow
	ana.TXTone = 885
	ana.Admit = model.AdmitTone

	cfg.Channels = []*model.Channel{dig, ana}
	sl := &model.ScanList{
		Name:     "Local",
		Primary:  model.SelectedChannel,
		Revert:   dig,
		HoldTime: time.Second,
		Channels: []*model.Channel{model.SelectedChannel, dig, ana},
	}
	cfg.ScanLists = []*model.ScanList{sl}
	ana.ScanList = sl

	cfg.Zones = []*model.Zone{{Name: "Home", A: []*model.Channel{dig, ana}}}
	return cfg
}

func encodeDecode(t *testing.T, l *Layout, cfg *model.Config, flags codeplug.Flags) *model.Config {
	t.Helper()
	cp := codeplug.New(l.Family(), nil)
	if err := cp.Encode(cfg, flags); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := cp.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestTyT_RoundTrip(t *testing.T) {
	for _, l := range []*Layout{MD390, UV390} {
		t.Run(l.Name, func(t *testing.T) {
			out := encodeDecode(t, l, sampleConfig(), codeplug.Flags{})

			if id := out.DefaultRadioID(); id == nil || id.Number != 2621370 || id.Name != "DM3MAT" {
				t.Errorf("unexpected radio ID %+v", id)
			}
			if out.Settings.IntroLine1 != "Hällo" || out.Settings.IntroLine2 != "Welt" {
				t.Errorf("unexpected intro lines %q %q", out.Settings.IntroLine1, out.Settings.IntroLine2)
			}
			if out.Settings.VOXLevel != 5 {
				t.Errorf("VOX level = %d, want 5", out.Settings.VOXLevel)
			}

			if len(out.Contacts) != 3 {
				t.Fatalf("expected 3 contacts, got %d", len(out.Contacts))
			}
			if c := out.Contacts[1]; c.Type != model.AllCall || c.Number != 16777215 {
				t.Errorf("unexpected all call contact %v", c)
			}
			if c := out.Contacts[2]; c.Type != model.PrivateCall || !c.Ring || c.Number != 1234567 {
				t.Errorf("unexpected private contact %v", c)
			}
			if len(out.GroupLists) != 1 || len(out.GroupLists[0].Contacts) != 2 {
				t.Fatalf("unexpected group lists %+v", out.GroupLists)
			}

			if len(out.Channels) != 2 {
				t.Fatalf("expected 2 channels, got %d", len(out.Channels))
			}
			dig, ana := out.Channels[0], out.Channels[1]
			if dig.Mode != model.Digital || dig.TimeSlot != model.TS2 || dig.ColorCode != 3 {
				t.Errorf("unexpected digital settings %v", dig)
			}
			if dig.TXContact != out.Contacts[0] || dig.GroupList != out.GroupLists[0] {
				t.Errorf("digital channel not linked: %+v", dig)
			}
			if dig.Admit != model.AdmitColorCode || dig.Timeout != 45*time.Second {
				t.Errorf("admit %s timeout %s", dig.Admit, dig.Timeout)
			}
			if ana.Mode != model.Analog || ana.Bandwidth != model.Wide || ana.TXTone != 885 || ana.RXTone != model.NoTone {
				t.Errorf("unexpected analog settings %+v", ana)
			}
			if ana.Admit != model.AdmitTone || ana.Power != model.PowerLow {
				t.Errorf("admit %s power %s", ana.Admit, ana.Power)
			}
			if len(out.ScanLists) != 1 || ana.ScanList != out.ScanLists[0] {
				t.Fatalf("scan list not linked")
			}

			sl := out.ScanLists[0]
			if sl.Primary != model.SelectedChannel || sl.Secondary != nil || sl.Revert != dig {
				t.Errorf("priority channels %v %v %v", sl.Primary, sl.Secondary, sl.Revert)
			}
			if len(sl.Channels) != 2 || sl.Channels[0] != dig || sl.Channels[1] != ana {
				t.Errorf("unexpected scan list members %v", sl.Channels)
			}
			if sl.HoldTime != time.Second || sl.SampleTime != 2*time.Second {
				t.Errorf("hold %s sample %s", sl.HoldTime, sl.SampleTime)
			}

			if len(out.GPSSystems) != 1 {
				t.Fatalf("expected 1 GPS system, got %d", len(out.GPSSystems))
			}
			gps := out.GPSSystems[0]
			if gps.Contact != out.Contacts[2] || gps.Period != 5*time.Minute || gps.RevertChannel != nil {
				t.Errorf("unexpected GPS system %+v", gps)
			}
			if dig.GPSSystem != gps {
				t.Errorf("channel does not reference GPS system")
			}

			if len(out.Zones) != 1 || len(out.Zones[0].A) != 2 || out.Zones[0].A[1] != ana {
				t.Errorf("unexpected zones %+v", out.Zones)
			}
		})
	}
}

func TestTyT_Squelch(t *testing.T) {
	cfg := sampleConfig()
	cfg.Channels[1].Squelch = 12

	if out := encodeDecode(t, UV390, cfg, codeplug.Flags{}); out.Channels[1].Squelch != 9 {
		t.Errorf("UV390 squelch = %d, want 9", out.Channels[1].Squelch)
	}
	if out := encodeDecode(t, MD390, cfg, codeplug.Flags{}); out.Channels[1].Squelch != 0 {
		t.Errorf("MD390 has no squelch field, got %d", out.Channels[1].Squelch)
	}
}

func TestTyT_Power(t *testing.T) {
	tests := []struct {
		layout *Layout
		in     model.Power
		want   model.Power
	}{
		{MD390, model.PowerHigh, model.PowerHigh},
		{MD390, model.PowerMid, model.PowerLow},
		{MD390, model.PowerLow, model.PowerLow},
		{UV390, model.PowerHigh, model.PowerHigh},
		{UV390, model.PowerMid, model.PowerMid},
		{UV390, model.PowerLow, model.PowerLow},
	}
	for _, tt := range tests {
		t.Run(tt.layout.Name+"/"+tt.in.String(), func(t *testing.T) {
			rec := make([]byte, channelSize)
			tt.layout.SetPower(rec, tt.in)
			if got := tt.layout.Power(rec); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTyT_ZoneExtension(t *testing.T) {
	cfg := sampleConfig()
	var chans []*model.Channel
	for i := 0; i < 20; i++ {
		ch := model.NewChannel("CH"+string(rune('A'+i)), model.Analog, model.MHz(145+float64(i)*0.0125), model.MHz(145))
		chans = append(chans, ch)
	}
	cfg.Channels = append(cfg.Channels, chans...)
	cfg.Zones = []*model.Zone{{Name: "Big", A: chans, B: chans[:3]}}

	out := encodeDecode(t, UV390, cfg, codeplug.Flags{})
	z := out.Zones[0]
	if len(z.A) != 20 || len(z.B) != 3 {
		t.Fatalf("got %d A and %d B members, want 20 and 3", len(z.A), len(z.B))
	}
	if z.A[16].Name != "CHQ" || z.A[19].Name != "CHT" || z.B[2].Name != "CHC" {
		t.Errorf("members out of order: %s %s %s", z.A[16].Name, z.A[19].Name, z.B[2].Name)
	}

	cp := codeplug.New(MD390.Family(), nil)
	err := cp.Encode(cfg, codeplug.Flags{})
	var capErr *codeplug.CapacityError
	if !errors.As(err, &capErr) || capErr.Capacity != 16 {
		t.Fatalf("expected zone capacity error for MD390, got %v", err)
	}

	cfg.Zones[0].A = chans[:4]
	out = encodeDecode(t, MD390, cfg, codeplug.Flags{})
	if z := out.Zones[0]; len(z.A) != 4 || len(z.B) != 0 {
		t.Errorf("MD390 zone: %d A and %d B members, want 4 and 0", len(z.A), len(z.B))
	}
}

func TestTyT_Timestamp(t *testing.T) {
	when := time.Date(2024, time.March, 9, 14, 5, 33, 0, time.Local)
	flags := codeplug.Flags{AutoTimestamp: true, Now: func() time.Time { return when }}

	cp := codeplug.New(UV390.Family(), nil)
	if err := cp.Encode(sampleConfig(), flags); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := cp.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !out.Settings.Timestamp.Equal(when) {
		t.Errorf("timestamp = %s, want %s", out.Settings.Timestamp, when)
	}
	v, err := CPSVersion(cp.Image())
	if err != nil {
		t.Fatal(err)
	}
	if v != "01.30" {
		t.Errorf("CPS version = %q, want 01.30", v)
	}
}

func TestTyT_EncodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *model.Config)
		check  func(err error) bool
	}{
		{
			name:   "no radio ID",
			mutate: func(cfg *model.Config) { cfg.RadioIDs = nil },
			check:  func(err error) bool { return errors.Is(err, ErrNoRadioID) },
		},
		{
			name: "contact ID too large",
			mutate: func(cfg *model.Config) {
				cfg.Contacts[2].Number = 1 << 24
			},
			check: func(err error) bool {
				var re *codeplug.RangeError
				return errors.As(err, &re)
			},
		},
		{
			name: "too many scan list members",
			mutate: func(cfg *model.Config) {
				sl := cfg.ScanLists[0]
				for len(sl.Channels) < 40 {
					sl.Channels = append(sl.Channels, cfg.Channels[0])
				}
			},
			check: func(err error) bool {
				var ce *codeplug.CapacityError
				return errors.As(err, &ce) && ce.Capacity == scanListMembers
			},
		},
		{
			name:   "GPS system without contact",
			mutate: func(cfg *model.Config) { cfg.GPSSystems[0].Contact = nil },
			check:  func(err error) bool { return err != nil },
		},
		{
			name: "unlisted zone member",
			mutate: func(cfg *model.Config) {
				stray := model.NewChannel("Stray", model.Analog, model.MHz(145), model.MHz(145))
				cfg.Zones[0].A = append(cfg.Zones[0].A, stray)
			},
			check: func(err error) bool {
				var ue *codeplug.UnindexedError
				return errors.As(err, &ue)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sampleConfig()
			tt.mutate(cfg)
			cp := codeplug.New(UV390.Family(), nil)
			before, _ := cp.Image().Data(UV390.ChannelAddr, channelSize)
			snapshot := append([]byte(nil), before...)

			err := cp.Encode(cfg, codeplug.Flags{})
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			after, _ := cp.Image().Data(UV390.ChannelAddr, channelSize)
			if string(after) != string(snapshot) {
				t.Errorf("failed encode modified the image")
			}
		})
	}
}

func TestTyT_File(t *testing.T) {
	for _, l := range []*Layout{MD390, UV390} {
		t.Run(l.Name, func(t *testing.T) {
			cp := codeplug.New(l.Family(), nil)
			if err := cp.Encode(sampleConfig(), codeplug.Flags{}); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			data, err := l.File.Write(cp.Image())
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if len(data) != l.File.Size {
				t.Fatalf("file is %d bytes, want %d", len(data), l.File.Size)
			}
			if data[0] != 0 || data[l.File.Segments[0].FileOffset-1] != 0 {
				t.Errorf("container bytes not zero filled")
			}

			img := l.NewImage()
			if err := l.File.Read(data, img); err != nil {
				t.Fatalf("Read: %v", err)
			}
			out, err := codeplug.Load(l.Family(), img, nil).Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(out.Channels) != 2 || out.Channels[0].Name != "DB0ABC TS2" {
				t.Errorf("unexpected channels after file round trip %v", out.Channels)
			}

			var sizeErr *codeplug.FileSizeError
			if err := l.File.Read(data[:100], l.NewImage()); !errors.As(err, &sizeErr) {
				t.Errorf("expected FileSizeError, got %v", err)
			}
		})
	}
}

func TestTyT_EmptyImageDecodes(t *testing.T) {
	for _, l := range []*Layout{MD390, UV390} {
		t.Run(l.Name, func(t *testing.T) {
			out, err := codeplug.New(l.Family(), nil).Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(out.Channels)+len(out.Contacts)+len(out.Zones)+len(out.ScanLists)+len(out.GPSSystems) != 0 {
				t.Errorf("empty image decoded objects: %d channels %d contacts %d zones",
					len(out.Channels), len(out.Contacts), len(out.Zones))
			}
			if !out.Settings.Timestamp.IsZero() {
				t.Errorf("erased timestamp decoded as %s", out.Settings.Timestamp)
			}
			if len(out.RadioIDs) != 0 {
				t.Errorf("erased settings decoded radio ID %+v", out.RadioIDs[0])
			}
		})
	}
}
