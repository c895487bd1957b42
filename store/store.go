// Package store persists members, check-ins and proof files with gorm.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// CheckInStore is the persistence side of check-ins.
type CheckInStore interface {
	// Upsert creates the (userID, day) check-in or replaces its proof URL.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, userID uint, day calendar.Day, proofURL string) (checkIn models.CheckIn, created bool, err error)
	// Find returns ErrNotFound when the user has no check-in that day.
	Find(ctx context.Context, userID uint, day calendar.Day) (models.CheckIn, error)
	ListDays(ctx context.Context, userID uint) ([]calendar.Day, error)
	ListBetween(ctx context.Context, userID uint, from, to calendar.Day) ([]models.CheckIn, error)
	ListByDate(ctx context.Context, day calendar.Day) ([]models.CheckIn, error)
}

// UserStore is the persistence side of members.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Search(ctx context.Context, query string, excludeID uint, limit int) ([]models.User, error)
}

// ProofFileStore tracks stored proof photos.
type ProofFileStore interface {
	Create(ctx context.Context, file *models.ProofFile) error
	// MarkReplaced flags every unflagged proof of (userID, day) that the
	// check-in row no longer points to.
	MarkReplaced(ctx context.Context, userID uint, day calendar.Day, at time.Time) error
	ListExpired(ctx context.Context, replacedBefore time.Time, limit int) ([]models.ProofFile, error)
	Delete(ctx context.Context, id uint) error
}
