package codeplug

import (
	"errors"
	"testing"

	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

func TestContext_RegisterAndLookup(t *testing.T) {
	ctx := NewContext()
	ch := &model.Channel{Name: "A"}
	ct := &model.Contact{Name: "TG9"}

	if err := Register(ctx, Channels, 3, ch); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(ctx, Contacts, 3, ct); err != nil {
		t.Fatalf("same index in another kind must not collide: %v", err)
	}

	got, ok := Lookup(ctx, Channels, 3)
	if !ok || got != ch {
		t.Fatalf("Lookup returned %v, %v", got, ok)
	}
	if idx, ok := IndexOf(ctx, Contacts, ct); !ok || idx != 3 {
		t.Errorf("IndexOf = %d, %v", idx, ok)
	}
	if _, ok := Lookup(ctx, Channels, 4); ok {
		t.Errorf("absent index should not resolve")
	}
	if _, ok := IndexOf(ctx, Channels, &model.Channel{}); ok {
		t.Errorf("unknown object should have no index")
	}
	if ctx.Count("channel") != 1 || ctx.Count("zone") != 0 {
		t.Errorf("unexpected counts")
	}
}

func TestContext_DuplicateIndexIsFatal(t *testing.T) {
	ctx := NewContext()
	if err := Register(ctx, Zones, 1, &model.Zone{Name: "A"}); err != nil {
		t.Fatal(err)
	}
	err := Register(ctx, Zones, 1, &model.Zone{Name: "B"})
	var dup *DuplicateIndexError
	if !errors.As(err, &dup) || dup.Index != 1 || dup.Kind != "zone" {
		t.Fatalf("expected DuplicateIndexError, got %v", err)
	}
}

func TestContext_SameObjectTwoIndices(t *testing.T) {
	ctx := NewContext()
	z := &model.Zone{Name: "Split"}
	if err := Register(ctx, Zones, 4, z); err != nil {
		t.Fatal(err)
	}
	if err := Register(ctx, Zones, 5, z); err != nil {
		t.Fatal(err)
	}
	if idx, _ := IndexOf(ctx, Zones, z); idx != 4 {
		t.Errorf("expected first index 4, got %d", idx)
	}
}

func TestContext_Resolve(t *testing.T) {
	ctx := NewContext()
	sl := &model.ScanList{Name: "S"}
	_ = Register(ctx, ScanLists, 2, sl)

	if got, err := Resolve(ctx, ScanLists, 2); err != nil || got != sl {
		t.Fatalf("Resolve = %v, %v", got, err)
	}
	_, err := Resolve(ctx, ScanLists, 7)
	if err == nil || err.Error() != "referenced scan list index 7 not yet defined" {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, err := Optional(ctx, ScanLists, 0, 0); got != nil || err != nil {
		t.Errorf("none index should resolve to nil without error")
	}
	if _, err := Optional(ctx, ScanLists, 9, 0); err == nil {
		t.Errorf("absent optional index other than none should fail")
	}
	if OptionalLenient(ctx, ScanLists, 9) != nil {
		t.Errorf("lenient lookup should yield nil")
	}

	if idx, err := IndexOrNone(ctx, ScanLists, nil, 0xff); err != nil || idx != 0xff {
		t.Errorf("nil reference should map to none, got %d %v", idx, err)
	}
}
