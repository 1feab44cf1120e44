package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})
	db, err := NewDB(Config{Path: filepath.Join(t.TempDir(), "test.db")}, log)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDMRUser_FullName(t *testing.T) {
	tests := []struct {
		name     string
		user     DMRUser
		expected string
	}{
		{"Both names present", DMRUser{FirstName: "John", LastName: "Doe"}, "John Doe"},
		{"Only first name", DMRUser{FirstName: "John"}, "John"},
		{"Only last name", DMRUser{LastName: "Doe"}, "Doe"},
		{"No names", DMRUser{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.user.FullName(); result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestDMRUserRepository_Upsert(t *testing.T) {
	repo := openTestDB(t).Users()

	user := &DMRUser{RadioID: 3138617, Callsign: "K7ABC", FirstName: "John", Country: "USA"}
	if err := repo.Upsert(user); err != nil {
		t.Fatalf("Failed to upsert user: %v", err)
	}

	user.FirstName = "Jane"
	if err := repo.Upsert(user); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	retrieved, err := repo.Get(3138617)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if retrieved.FirstName != "Jane" || retrieved.Callsign != "K7ABC" {
		t.Errorf("unexpected user %+v", retrieved)
	}

	if err := repo.Upsert(&DMRUser{RadioID: 3138618, Callsign: "K7ABC"}); err != nil {
		t.Fatal(err)
	}
	byCall, err := repo.FindByCallsign("k7abc")
	if err != nil {
		t.Fatalf("Failed to find users by callsign: %v", err)
	}
	if len(byCall) != 2 || byCall[0].RadioID != 3138617 || byCall[1].RadioID != 3138618 {
		t.Errorf("unexpected callsign matches %+v", byCall)
	}

	if _, err := repo.Get(1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDMRUserRepository_UpsertBatchAndCount(t *testing.T) {
	repo := openTestDB(t).Users()

	count, err := repo.Count()
	if err != nil || count != 0 {
		t.Fatalf("Expected empty table, got %d (%v)", count, err)
	}

	users := make([]DMRUser, 100)
	for i := range users {
		users[i] = DMRUser{RadioID: uint32(i + 1), Callsign: "TEST"}
	}
	if err := repo.UpsertBatch(users, 10); err != nil {
		t.Fatalf("Failed to upsert batch: %v", err)
	}

	count, err = repo.Count()
	if err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 100 {
		t.Errorf("Expected 100 users, got %d", count)
	}

	users[0].FirstName = "Updated"
	if err := repo.UpsertBatch(users[:1], 10); err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}
	if u, _ := repo.Get(1); u == nil || u.FirstName != "Updated" {
		t.Errorf("batch upsert did not overwrite: %+v", u)
	}
	if count, _ := repo.Count(); count != 100 {
		t.Errorf("Expected 100 users after overwrite, got %d", count)
	}
}

func TestDMRUserRepository_Prune(t *testing.T) {
	repo := openTestDB(t).Users()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	users := []DMRUser{
		{RadioID: 1, Callsign: "OLD", UpdatedAt: old},
		{RadioID: 2, Callsign: "NEW", UpdatedAt: fresh},
	}
	if err := repo.UpsertBatch(users, 10); err != nil {
		t.Fatal(err)
	}
	n, err := repo.Prune(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d users, want 1", n)
	}
	if _, err := repo.Get(2); err != nil {
		t.Errorf("fresh user was pruned: %v", err)
	}
}

func TestDMRUserRepository_CallsignUsers(t *testing.T) {
	repo := openTestDB(t).Users()

	users := []DMRUser{
		{RadioID: 3000003, Callsign: "W1AW"},
		{RadioID: 3000001, Callsign: "K7ABC"},
		{RadioID: 3000002},
	}
	if err := repo.UpsertBatch(users, 10); err != nil {
		t.Fatalf("Failed to upsert batch: %v", err)
	}

	got, err := repo.CallsignUsers()
	if err != nil {
		t.Fatalf("CallsignUsers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 users with callsigns, got %d", len(got))
	}
	if got[0].ID != 3000001 || got[0].Call != "K7ABC" || got[1].ID != 3000003 {
		t.Errorf("unexpected users %+v", got)
	}
}
