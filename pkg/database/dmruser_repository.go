package database

import (
	"strings"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/callsigndb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DMRUserRepository handles DMR user database operations
type DMRUserRepository struct {
	db *gorm.DB
}

// NewDMRUserRepository creates a new DMR user repository
func NewDMRUserRepository(db *gorm.DB) *DMRUserRepository {
	return &DMRUserRepository{db: db}
}

// Upsert creates or updates a DMR user record
func (r *DMRUserRepository) Upsert(user *DMRUser) error {
	return r.db.Save(user).Error
}

// UpsertBatch stores users in batches inside one transaction. Existing rows
// are overwritten.
func (r *DMRUserRepository) UpsertBatch(users []DMRUser, batchSize int) error {
	if len(users) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(users, max(batchSize, 1)).Error
	})
}

// Get retrieves a user by radio ID
func (r *DMRUserRepository) Get(radioID uint32) (*DMRUser, error) {
	var user DMRUser
	if err := r.db.First(&user, "radio_id = ?", radioID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByCallsign returns every ID registered to a callsign. Callsigns are
// stored upper case.
func (r *DMRUserRepository) FindByCallsign(callsign string) ([]DMRUser, error) {
	var users []DMRUser
	err := r.db.Where("callsign = ?", strings.ToUpper(callsign)).
		Order("radio_id").
		Find(&users).Error
	return users, err
}

// Count returns the total number of users in the database
func (r *DMRUserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&DMRUser{}).Count(&count).Error
	return count, err
}

// Prune deletes users not refreshed since before and returns how many
func (r *DMRUserRepository) Prune(before time.Time) (int64, error) {
	res := r.db.Where("updated_at < ?", before).Delete(&DMRUser{})
	return res.RowsAffected, res.Error
}

// CallsignUsers returns every user with a callsign as call-sign database
// entries, ordered by radio ID
func (r *DMRUserRepository) CallsignUsers() ([]callsigndb.User, error) {
	var rows []DMRUser
	err := r.db.Select("radio_id", "callsign").
		Where("callsign <> ''").
		Order("radio_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	users := make([]callsigndb.User, len(rows))
	for i, u := range rows {
		users[i] = callsigndb.User{ID: u.RadioID, Call: u.Callsign}
	}
	return users, nil
}
