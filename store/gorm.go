package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/models"
)

// translate maps gorm sentinels onto the package errors. Duplicate keys are
// only recognised when the DB was opened with TranslateError.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

// CheckIns implements CheckInStore on gorm.
type CheckIns struct {
	db *gorm.DB
}

// NewCheckIns creates a gorm-backed CheckInStore.
func NewCheckIns(db *gorm.DB) *CheckIns {
	return &CheckIns{db: db}
}

// Upsert inserts or refreshes the proof of (userID, day). The unique index on
// (user_id, check_date) resolves concurrent double submits into one row, and
// only the submit whose insert went through reports created.
func (s *CheckIns) Upsert(ctx context.Context, userID uint, day calendar.Day, proofURL string) (models.CheckIn, bool, error) {
	var (
		out     models.CheckIn
		created bool
	)
	date := day.String()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		row := models.CheckIn{UserID: userID, CheckDate: date, ProofURL: proofURL, CreatedAt: now, UpdatedAt: now}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "check_date"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		if !created {
			if err := tx.Model(&models.CheckIn{}).
				Where("user_id = ? AND check_date = ?", userID, date).
				Updates(map[string]interface{}{"proof_url": proofURL, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return tx.Where("user_id = ? AND check_date = ?", userID, date).First(&out).Error
	})
	if err != nil {
		return models.CheckIn{}, false, err
	}
	return out, created, nil
}

// Find returns the check-in of (userID, day).
func (s *CheckIns) Find(ctx context.Context, userID uint, day calendar.Day) (models.CheckIn, error) {
	var row models.CheckIn
	if err := s.db.WithContext(ctx).Where("user_id = ? AND check_date = ?", userID, day.String()).First(&row).Error; err != nil {
		return models.CheckIn{}, translate(err)
	}
	return row, nil
}

// ListDays returns every day the user checked in, oldest first.
func (s *CheckIns) ListDays(ctx context.Context, userID uint) ([]calendar.Day, error) {
	var dates []string
	if err := s.db.WithContext(ctx).Model(&models.CheckIn{}).
		Where("user_id = ?", userID).
		Order("check_date ASC").
		Pluck("check_date", &dates).Error; err != nil {
		return nil, err
	}
	out := make([]calendar.Day, 0, len(dates))
	for _, raw := range dates {
		d, err := calendar.ParseDay(raw)
		if err != nil {
			return nil, fmt.Errorf("stored check-in of user %d: %w", userID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ListBetween returns the user's check-ins in [from, to], oldest first.
func (s *CheckIns) ListBetween(ctx context.Context, userID uint, from, to calendar.Day) ([]models.CheckIn, error) {
	var rows []models.CheckIn
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND check_date >= ? AND check_date <= ?", userID, from.String(), to.String()).
		Order("check_date ASC").
		Find(&rows).Error
	return rows, err
}

// ListByDate returns every member's check-in of one day.
func (s *CheckIns) ListByDate(ctx context.Context, day calendar.Day) ([]models.CheckIn, error) {
	var rows []models.CheckIn
	err := s.db.WithContext(ctx).Where("check_date = ?", day.String()).Order("user_id ASC").Find(&rows).Error
	return rows, err
}

// Users implements UserStore on gorm.
type Users struct {
	db *gorm.DB
}

// NewUsers creates a gorm-backed UserStore.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Create(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Users) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func (s *Users) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

// List returns all members ordered by id.
func (s *Users) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (s *Users) Update(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// Search matches username, email or display name, skipping excludeID.
func (s *Users) Search(ctx context.Context, query string, excludeID uint, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	like := "%" + query + "%"
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("username LIKE ? OR email LIKE ? OR display_name LIKE ?", like, like, like).
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ProofFiles implements ProofFileStore on gorm.
type ProofFiles struct {
	db *gorm.DB
}

// NewProofFiles creates a gorm-backed ProofFileStore.
func NewProofFiles(db *gorm.DB) *ProofFiles {
	return &ProofFiles{db: db}
}

func (s *ProofFiles) Create(ctx context.Context, file *models.ProofFile) error {
	return s.db.WithContext(ctx).Create(file).Error
}

// MarkReplaced never flags the proof the check-in row currently points to.
func (s *ProofFiles) MarkReplaced(ctx context.Context, userID uint, day calendar.Day, at time.Time) error {
	date := day.String()
	live := s.db.Model(&models.CheckIn{}).Select("proof_url").Where("user_id = ? AND check_date = ?", userID, date)
	return s.db.WithContext(ctx).Model(&models.ProofFile{}).
		Where("user_id = ? AND check_date = ? AND replaced_at IS NULL", userID, date).
		Where("url NOT IN (?)", live).
		Update("replaced_at", at).Error
}

func (s *ProofFiles) ListExpired(ctx context.Context, replacedBefore time.Time, limit int) ([]models.ProofFile, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []models.ProofFile
	err := s.db.WithContext(ctx).
		Where("replaced_at IS NOT NULL AND replaced_at <= ?", replacedBefore).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (s *ProofFiles) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.ProofFile{}, id).Error
}
