package database

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestSnapshot_BeforeCreate(t *testing.T) {
	repo := openTestDB(t).Snapshots()

	s := &Snapshot{Family: "rd5r", Source: SourceDownload, Data: []byte("abc")}
	if err := repo.Create(s); err != nil {
		t.Fatalf("Failed to create snapshot: %v", err)
	}
	if s.ID == 0 {
		t.Error("Expected non-zero ID after creation")
	}
	if s.Size != 3 {
		t.Errorf("Size = %d, want 3", s.Size)
	}
	if s.SHA256 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("SHA256 = %s", s.SHA256)
	}
	if s.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set by hook")
	}
}

func TestSnapshotRepository_ListAndGet(t *testing.T) {
	repo := openTestDB(t).Snapshots()

	base := time.Now().Add(-time.Hour)
	for i, fam := range []string{"rd5r", "md390", "rd5r"} {
		s := &Snapshot{Family: fam, Source: SourceFile, Data: []byte{byte(i)}, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(s); err != nil {
			t.Fatalf("Failed to create snapshot: %v", err)
		}
	}

	list, total, err := repo.List(1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("total=%d len=%d, want 3 and 2", total, len(list))
	}
	if list[0].ID != 3 || list[0].Data != nil {
		t.Errorf("expected newest snapshot without data first, got %+v", list[0])
	}

	latest, err := repo.Latest("rd5r")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != 3 || len(latest.Data) != 1 || latest.Data[0] != 2 {
		t.Errorf("unexpected latest snapshot %+v", latest)
	}

	got, err := repo.Get(2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Family != "md390" {
		t.Errorf("Family = %s, want md390", got.Family)
	}

	if _, err := repo.Get(99); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSnapshotRepository_DigestAndDelete(t *testing.T) {
	repo := openTestDB(t).Snapshots()

	old := &Snapshot{Family: "uv390", Source: SourceEncode, Data: []byte("same"), CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &Snapshot{Family: "uv390", Source: SourceUpload, Data: []byte("same")}
	for _, s := range []*Snapshot{old, fresh} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("Failed to create snapshot: %v", err)
		}
	}

	dups, err := repo.FindByDigest(fresh.SHA256)
	if err != nil {
		t.Fatalf("FindByDigest: %v", err)
	}
	if len(dups) != 2 {
		t.Errorf("expected 2 identical snapshots, got %d", len(dups))
	}

	n, err := repo.DeleteOlderThan(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d snapshots, want 1", n)
	}
}
