package database

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Snapshot sources
const (
	SourceDownload = "download"
	SourceUpload   = "upload"
	SourceFile     = "file"
	SourceEncode   = "encode"
)

// Snapshot is an archived codeplug image. Data holds the family file
// format so a snapshot can be written back out unchanged.
type Snapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Family    string    `gorm:"index;size:32;not null" json:"family"`
	Source    string    `gorm:"index;size:16;not null" json:"source"`
	Name      string    `gorm:"size:255" json:"name"`
	Size      int       `gorm:"not null" json:"size"`
	SHA256    string    `gorm:"index;size:64;not null" json:"sha256"`
	Data      []byte    `gorm:"not null" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Snapshot
func (Snapshot) TableName() string {
	return "snapshots"
}

// BeforeCreate fills the size, digest and creation time from Data
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.Size = len(s.Data)
	sum := sha256.Sum256(s.Data)
	s.SHA256 = hex.EncodeToString(sum[:])
	return nil
}

// DMRUser represents a DMR user from the RadioID database
type DMRUser struct {
	RadioID   uint32    `gorm:"primarykey;not null" json:"radio_id"`
	Callsign  string    `gorm:"index;size:20" json:"callsign"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`
	City      string    `gorm:"size:50" json:"city"`
	State     string    `gorm:"size:50" json:"state"`
	Country   string    `gorm:"size:50" json:"country"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for DMRUser
func (DMRUser) TableName() string {
	return "dmr_users"
}

// FullName returns the full name of the user
func (u *DMRUser) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}
