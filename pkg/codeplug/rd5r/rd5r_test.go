package rd5r

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

func sampleConfig() *model.Config {
	cfg := model.NewConfig()
	cfg.RadioIDs = []*model.RadioID{{Name: "DM3MAT", Number: 1234567}}
	cfg.Settings.IntroLine1 = "Hello"
	cfg.Settings.IntroLine2 = "World"

	tg := &model.Contact{Name: "TG 91", Type: model.GroupCall, Number: 91}
	priv := &model.Contact{Name: "Bob", Type: model.PrivateCall, Number: 2621370, Ring: true}
	cfg.Contacts = []*model.Contact{tg, priv}
	gl := &model.GroupList{Name: "Worldwide", Contacts: []*model.Contact{tg}}
	cfg.GroupLists = []*model.GroupList{gl}

	dig := model.NewChannel("DB0ABC TS2", model.Digital, model.MHz(439.5625), model.MHz(431.9625))
	dig.TimeSlot = model.TS2
	dig.TXContact = tg
	dig.GroupList = gl
	dig.Admit = model.AdmitColorCode
	dig.Timeout = 45 * time.Second

	ana := model.NewChannel("S20", model.Analog, model.MHz(145.5), model.MHz(145.5))
	ana.Bandwidth = model.Wide
	ana.Power = model.PowerLow
	ana.TXTone = 885

	cfg.Channels = []*model.Channel{dig, ana}
	sl := &model.ScanList{
		Name:     "Local",
		Primary:  model.SelectedChannel,
		Channels: []*model.Channel{model.SelectedChannel, dig, ana},
	}
	cfg.ScanLists = []*model.ScanList{sl}
	ana.ScanList = sl

	cfg.Zones = []*model.Zone{
		{Name: "Both", A: []*model.Channel{dig}, B: []*model.Channel{ana}},
		{Name: "Only A", A: []*model.Channel{ana, dig}},
	}
	return cfg
}

func encodeDecode(t *testing.T, cfg *model.Config, flags codeplug.Flags) *model.Config {
	t.Helper()
	cp := codeplug.New(Family(), nil)
	if err := cp.Encode(cfg, flags); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := cp.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestRD5R_MinimalChannel(t *testing.T) {
	cfg := model.NewConfig()
	cfg.RadioIDs = []*model.RadioID{{Name: "Test", Number: 1}}
	cfg.Channels = []*model.Channel{
		model.NewChannel("Test", model.Digital, model.MHz(440), model.MHz(445)),
	}

	cp := codeplug.New(Family(), nil)
	if err := cp.Encode(cfg, codeplug.Flags{}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	rec, err := cp.Image().Data(addrBank0+bankBitmapSize, channelSize)
	if err != nil {
		t.Fatal(err)
	}
	if string(rec[:4]) != "Test" || rec[4] != 0xff {
		t.Errorf("unexpected name bytes % x", rec[:16])
	}
	if !bytes.Equal(rec[chRX:chRX+4], []byte{0x00, 0x00, 0x00, 0x44}) {
		t.Errorf("rx frequency bytes = % x", rec[chRX:chRX+4])
	}
	if !bytes.Equal(rec[chTX:chTX+4], []byte{0x00, 0x00, 0x50, 0x44}) {
		t.Errorf("tx frequency bytes = % x", rec[chTX:chTX+4])
	}
	if rec[chMode] != modeDigital || rec[chColorRX] != 1 {
		t.Errorf("mode %d color code %d", rec[chMode], rec[chColorRX])
	}
	bitmap, _ := cp.Image().Data(addrBank0, 1)
	if bitmap[0] != 0x01 {
		t.Errorf("bank bitmap = %#02x, want 0x01", bitmap[0])
	}

	out, err := cp.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(out.Channels))
	}
	ch := out.Channels[0]
	if ch.Name != "Test" || ch.RX != model.MHz(440) || ch.TX != model.MHz(445) {
		t.Errorf("unexpected channel %v", ch)
	}
	if ch.Power != model.PowerHigh || ch.TimeSlot != model.TS1 || ch.ColorCode != 1 {
		t.Errorf("unexpected digital settings %+v", ch)
	}
	if ch.GroupList != nil || ch.TXContact != nil || ch.ScanList != nil {
		t.Errorf("expected no references, got %+v", ch)
	}
}

func TestRD5R_RoundTrip(t *testing.T) {
	out := encodeDecode(t, sampleConfig(), codeplug.Flags{})

	if id := out.DefaultRadioID(); id == nil || id.Number != 1234567 || id.Name != "DM3MAT" {
		t.Errorf("unexpected radio ID %+v", id)
	}
	if out.Settings.IntroLine1 != "Hello" || out.Settings.IntroLine2 != "World" {
		t.Errorf("unexpected intro lines %q %q", out.Settings.IntroLine1, out.Settings.IntroLine2)
	}
	if len(out.Contacts) != 2 || out.Contacts[1].Number != 2621370 || !out.Contacts[1].Ring {
		t.Fatalf("unexpected contacts %v", out.Contacts)
	}
	if len(out.GroupLists) != 1 || len(out.GroupLists[0].Contacts) != 1 || out.GroupLists[0].Contacts[0] != out.Contacts[0] {
		t.Fatalf("unexpected group lists %+v", out.GroupLists)
	}

	if len(out.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(out.Channels))
	}
	dig, ana := out.Channels[0], out.Channels[1]
	if dig.TimeSlot != model.TS2 || dig.TXContact != out.Contacts[0] || dig.GroupList != out.GroupLists[0] {
		t.Errorf("digital channel not linked: %+v", dig)
	}
	if dig.Admit != model.AdmitColorCode || dig.Timeout != 45*time.Second {
		t.Errorf("digital channel admit %v timeout %v", dig.Admit, dig.Timeout)
	}
	if ana.Bandwidth != model.Wide || ana.Power != model.PowerLow || ana.TXTone != 885 || ana.RXTone != model.NoTone {
		t.Errorf("unexpected analog channel %+v", ana)
	}
	if ana.ScanList == nil || ana.ScanList != out.ScanLists[0] {
		t.Errorf("analog channel scan list not linked")
	}

	sl := out.ScanLists[0]
	if sl.Primary != model.SelectedChannel || sl.Secondary != nil || sl.Revert != nil {
		t.Errorf("unexpected priority channels %+v", sl)
	}
	if len(sl.Channels) != 3 || sl.Channels[0] != model.SelectedChannel || sl.Channels[1] != dig || sl.Channels[2] != ana {
		t.Errorf("unexpected scan list members %v", sl.Channels)
	}
	if sl.HoldTime != time.Second || sl.SampleTime != 2*time.Second {
		t.Errorf("scan list times %v %v, want defaults", sl.HoldTime, sl.SampleTime)
	}
}

func TestRD5R_ZonePairs(t *testing.T) {
	cp := codeplug.New(Family(), nil)
	if err := cp.Encode(sampleConfig(), codeplug.Flags{}); err != nil {
		t.Fatal(err)
	}
	names := make([]string, 3)
	for i := range names {
		rec, _ := cp.Image().Data(addrZoneRecords+uint32(i*zoneSize), 16)
		names[i] = string(bytes.TrimRight(rec, "\xff"))
	}
	if names[0] != "Both A" || names[1] != "Both B" || names[2] != "Only A" {
		t.Errorf("unexpected zone slot names %q", names)
	}

	out, err := cp.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(out.Zones))
	}
	both := out.Zones[0]
	if both.Name != "Both" || len(both.A) != 1 || len(both.B) != 1 {
		t.Errorf("zone pair not merged: %+v", both)
	}
	if both.A[0] != out.Channels[0] || both.B[0] != out.Channels[1] {
		t.Errorf("zone lists linked to wrong channels")
	}
	// "Only A" is not followed by "Only B" and keeps its name.
	if out.Zones[1].Name != "Only A" || len(out.Zones[1].A) != 2 || len(out.Zones[1].B) != 0 {
		t.Errorf("unexpected second zone %+v", out.Zones[1])
	}
}

func TestRD5R_Timestamp(t *testing.T) {
	when := time.Date(2024, time.March, 9, 17, 5, 0, 0, time.Local)
	flags := codeplug.Flags{AutoTimestamp: true, Now: func() time.Time { return when }}
	out := encodeDecode(t, sampleConfig(), flags)
	if !out.Settings.Timestamp.Equal(when) {
		t.Errorf("timestamp = %v, want %v", out.Settings.Timestamp, when)
	}

	out = encodeDecode(t, sampleConfig(), codeplug.Flags{})
	if !out.Settings.Timestamp.IsZero() {
		t.Errorf("expected no timestamp, got %v", out.Settings.Timestamp)
	}
}

func TestRD5R_EncodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Config)
		check  func(error) bool
	}{
		{
			name:   "no radio ID",
			mutate: func(c *model.Config) { c.RadioIDs = nil },
			check:  func(err error) bool { return errors.Is(err, ErrNoRadioID) },
		},
		{
			name: "too many contacts",
			mutate: func(c *model.Config) {
				for len(c.Contacts) <= MaxContacts {
					c.Contacts = append(c.Contacts, &model.Contact{Name: "X", Number: 1})
				}
			},
			check: func(err error) bool {
				var ce *codeplug.CapacityError
				return errors.As(err, &ce) && ce.Capacity == MaxContacts
			},
		},
		{
			name: "group list too long",
			mutate: func(c *model.Config) {
				for len(c.GroupLists[0].Contacts) <= maxGroupMembers {
					c.GroupLists[0].Contacts = append(c.GroupLists[0].Contacts, c.Contacts[0])
				}
			},
			check: func(err error) bool {
				var ce *codeplug.CapacityError
				return errors.As(err, &ce) && ce.Capacity == maxGroupMembers
			},
		},
		{
			name:   "invalid tone",
			mutate: func(c *model.Config) { c.Channels[1].RXTone = 1234 },
			check: func(err error) bool {
				var re *codeplug.RangeError
				return errors.As(err, &re)
			},
		},
		{
			name: "contact outside configuration",
			mutate: func(c *model.Config) {
				c.Channels[0].TXContact = &model.Contact{Name: "Stray"}
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
			err := codeplug.New(Family(), nil).Encode(cfg, codeplug.Flags{})
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestRD5R_ClearInvalidates(t *testing.T) {
	rec := make([]byte, channelSize)
	clearChannel(rec)
	if channelValid(rec) {
		t.Errorf("cleared channel reports valid")
	}
	rec = make([]byte, contactSize)
	clearContact(rec)
	if contactValid(rec) {
		t.Errorf("cleared contact reports valid")
	}
}

func TestRD5R_MissingZoneMemberAbortsDecode(t *testing.T) {
	cp := codeplug.New(Family(), nil)
	if err := cp.Encode(sampleConfig(), codeplug.Flags{}); err != nil {
		t.Fatal(err)
	}
	rec, _ := cp.Image().Data(addrZoneRecords, zoneSize)
	rec[znMembers] = 9

	cfg, err := cp.Decode()
	if cfg != nil {
		t.Fatal("expected no configuration")
	}
	var ue *codeplug.UnresolvedError
	if !errors.As(err, &ue) || ue.Index != 9 {
		t.Errorf("expected unresolved channel 9, got %v", err)
	}
}

func TestRD5R_File(t *testing.T) {
	cp := codeplug.New(Family(), nil)
	if err := cp.Encode(sampleConfig(), codeplug.Flags{}); err != nil {
		t.Fatal(err)
	}
	data, err := File.Write(cp.Image())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != FileSize {
		t.Fatalf("file size %d", len(data))
	}

	img := NewImage()
	if err := File.Read(data, img); err != nil {
		t.Fatal(err)
	}
	out, err := codeplug.Load(Family(), img, nil).Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Channels) != 2 || len(out.Zones) != 2 {
		t.Errorf("unexpected decoded file: %d channels %d zones", len(out.Channels), len(out.Zones))
	}

	var se *codeplug.FileSizeError
	if err := File.Read(data[:100], NewImage()); !errors.As(err, &se) {
		t.Errorf("expected FileSizeError, got %v", err)
	}
}

func TestRD5R_EmptyImageDecodes(t *testing.T) {
	cfg, err := codeplug.New(Family(), nil).Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Channels) != 0 || len(cfg.Zones) != 0 || len(cfg.Contacts) != 0 {
		t.Errorf("expected empty configuration, got %d channels", len(cfg.Channels))
	}
	if len(cfg.RadioIDs) != 0 {
		t.Errorf("erased settings produced radio IDs %+v", cfg.RadioIDs[0])
	}

	img := Family().NewImage()
	rec, err := img.Data(addrSettings, 12)
	if err != nil {
		t.Fatal(err)
	}
	settingsBlock.Reset(rec)
	cfg, err = codeplug.Load(Family(), img, nil).Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.RadioIDs) != 0 {
		t.Errorf("reset settings produced radio IDs %+v", cfg.RadioIDs[0])
	}
}

func TestRD5R_ZoneWithOnlyB(t *testing.T) {
	cfg := sampleConfig()
	cfg.Zones = []*model.Zone{{Name: "Rover", B: []*model.Channel{cfg.Channels[1]}}}

	cp := codeplug.New(Family(), nil)
	if err := cp.Encode(cfg, codeplug.Flags{}); err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"Rover A", "Rover B"} {
		rec, _ := cp.Image().Data(addrZoneRecords+uint32(i*zoneSize), 16)
		if got := string(bytes.TrimRight(rec, "\xff")); got != want {
			t.Errorf("slot %d named %q, want %q", i, got, want)
		}
	}

	out, err := cp.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(out.Zones))
	}
	z := out.Zones[0]
	if z.Name != "Rover" || len(z.A) != 0 || len(z.B) != 1 || z.B[0] != out.Channels[1] {
		t.Errorf("B-only zone did not round-trip: %+v", z)
	}
}
