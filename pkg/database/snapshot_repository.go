package database

import (
	"time"

	"gorm.io/gorm"
)

// SnapshotRepository handles snapshot database operations
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create stores a snapshot; size and digest are computed from Data
func (r *SnapshotRepository) Create(s *Snapshot) error {
	return r.db.Create(s).Error
}

// Get retrieves a snapshot including its data
func (r *SnapshotRepository) Get(id uint) (*Snapshot, error) {
	var s Snapshot
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns snapshots newest first without their data
func (r *SnapshotRepository) List(page, perPage int) ([]Snapshot, int64, error) {
	var snapshots []Snapshot
	var total int64

	if err := r.db.Model(&Snapshot{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	err := r.db.Omit("data").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&snapshots).Error
	return snapshots, total, err
}

// Latest returns the newest snapshot of a family including its data
func (r *SnapshotRepository) Latest(family string) (*Snapshot, error) {
	var s Snapshot
	err := r.db.Where("family = ?", family).Order("created_at DESC, id DESC").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByDigest returns the snapshots holding identical data
func (r *SnapshotRepository) FindByDigest(sha string) ([]Snapshot, error) {
	var snapshots []Snapshot
	err := r.db.Omit("data").Where("sha256 = ?", sha).Order("id").Find(&snapshots).Error
	return snapshots, err
}

// DeleteOlderThan deletes snapshots created before the given time
func (r *SnapshotRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", before).Delete(&Snapshot{})
	return result.RowsAffected, result.Error
}
