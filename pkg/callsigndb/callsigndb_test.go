package callsigndb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dbehnke/codeplug-nexus/pkg/image"
)

func TestEncode_Layout(t *testing.T) {
	users := []User{
		{ID: 2621370, Call: "DM3MAT"},
		{ID: 1234567, Call: "N0CALL-LONG"},
	}
	img, err := Encode(users, Selection{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if img.Size() != 64 {
		t.Errorf("image size %d, want 64 (36 bytes aligned to 32)", img.Size())
	}
	if !img.IsAligned(blockSize) {
		t.Errorf("image not aligned")
	}
	buf, err := img.Data(0, 36)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:12], []byte("ID-V001\x00\x02\x00\x00\x00")) {
		t.Errorf("header = % x", buf[:12])
	}
	// sorted by ID: 1234567 first, BCD little-endian
	if !bytes.Equal(buf[12:16], []byte{0x67, 0x45, 0x23, 0x01}) {
		t.Errorf("first ID bytes = % x", buf[12:16])
	}
	if string(buf[16:23]) != "N0CALL-" || buf[23] != 0 {
		t.Errorf("name bytes = % x", buf[16:24])
	}

	got, err := Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1234567 || got[1].Call != "DM3MAT" {
		t.Errorf("unexpected entries %+v", got)
	}
}

func TestSelect(t *testing.T) {
	users := []User{{ID: 100}, {ID: 5000}, {ID: 2600}, {ID: 2700}, {ID: 10}}

	tests := []struct {
		name string
		sel  Selection
		want []uint32
	}{
		{"all sorted", Selection{}, []uint32{10, 100, 2600, 2700, 5000}},
		{"first two", Selection{Limit: 2}, []uint32{100, 5000}},
		{"near", Selection{Limit: 3, Near: 2650}, []uint32{2600, 2700, 5000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(users, tt.sel)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, u := range got {
				if u.ID != tt.want[i] {
					t.Errorf("entry %d: got %d, want %d", i, u.ID, tt.want[i])
				}
			}
		})
	}
	if users[0].ID != 100 {
		t.Errorf("Select modified its input")
	}
}

func TestEncode_Capacity(t *testing.T) {
	users := make([]User, MaxEntries+10)
	for i := range users {
		users[i] = User{ID: uint32(i + 1), Call: "X"}
	}
	img, err := Encode(users, Selection{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != MaxEntries {
		t.Errorf("got %d entries, want %d", len(got), MaxEntries)
	}
}

func TestEncode_Empty(t *testing.T) {
	img, err := Encode(nil, Selection{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(img.Regions()) != 0 {
		t.Errorf("expected no regions")
	}
}

func TestDecode_BadMagic(t *testing.T) {
	img := image.New("junk", 0xff)
	if err := img.AddRegion(0, 32); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(img); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}
