package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/metrics"
	"github.com/cppla/gymchallenge/models"
	"github.com/cppla/gymchallenge/storage"
	"github.com/cppla/gymchallenge/store"
)

// Photo is an uploaded proof. Size is the declared length, or -1 when unknown.
type Photo struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// RecordResult is returned by Record. DaysThisWeek is the raw, uncapped count
// so clients can show "5 days trained, 4 count".
type RecordResult struct {
	CheckIn      models.CheckIn `json:"check_in"`
	Created      bool           `json:"created"`
	Date         calendar.Day   `json:"date"`
	DaysThisWeek int            `json:"days_this_week"`
	WeeklyGoal   int            `json:"weekly_goal"`
}

// UserSummary is the presentation identity of a member.
type UserSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func summarize(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name(), Avatar: u.AvatarOrDefault()}
}

// TodayEntry is the check-in of the current day.
type TodayEntry struct {
	Date      calendar.Day `json:"date"`
	ProofURL  string       `json:"proof_url"`
	Timestamp time.Time    `json:"timestamp"`
}

// TodayStatus answers whether the member already checked in today.
type TodayStatus struct {
	Date              calendar.Day `json:"date"`
	AlreadyRegistered bool         `json:"already_registered"`
	Entry             *TodayEntry  `json:"entry,omitempty"`
	User              UserSummary  `json:"user"`
}

// CheckInService records one check-in per member per calendar day.
type CheckInService struct {
	checkIns store.CheckInStore
	users    store.UserStore
	proofs   store.ProofFileStore
	storage  storage.ProofStorage
	cal      *calendar.Calendar
	cache    StatsCache
	maxBytes int64
	log      *zap.Logger
}

// CheckInDeps wires a CheckInService. Cache may be nil.
type CheckInDeps struct {
	CheckIns store.CheckInStore
	Users    store.UserStore
	Proofs   store.ProofFileStore
	Storage  storage.ProofStorage
	Calendar *calendar.Calendar
	Cache    StatsCache
	MaxBytes int64
	Logger   *zap.Logger
}

func NewCheckInService(d CheckInDeps) *CheckInService {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckInService{
		checkIns: d.CheckIns,
		users:    d.Users,
		proofs:   d.Proofs,
		storage:  d.Storage,
		cal:      d.Calendar,
		cache:    d.Cache,
		maxBytes: d.MaxBytes,
		log:      log.Named("checkin"),
	}
}

func (s *CheckInService) validate(p Photo) error {
	if p.Body == nil || p.Size == 0 {
		return errors.Join(ErrInvalidPhoto, errors.New("empty upload"))
	}
	if s.maxBytes > 0 && p.Size > s.maxBytes {
		return ErrPhotoTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(p.ContentType)), "image/") {
		return errors.Join(ErrInvalidPhoto, errors.New("content type must be image/*"))
	}
	return nil
}

func (s *CheckInService) lookupUser(ctx context.Context, userID uint) (models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.User{}, errors.Join(ErrUserNotFound, err)
	case err != nil:
		return models.User{}, unavailable("load user", err)
	}
	return u, nil
}

// Record stores the photo and upserts today's check-in of userID. A second
// call on the same day replaces the proof and keeps the count unchanged.
func (s *CheckInService) Record(ctx context.Context, userID uint, photo Photo) (RecordResult, error) {
	if err := s.validate(photo); err != nil {
		return RecordResult{}, err
	}
	if _, err := s.lookupUser(ctx, userID); err != nil {
		return RecordResult{}, err
	}

	today := s.cal.Today()
	stored, err := s.storage.Save(ctx, userID, today, photo.Body, photo.ContentType)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return RecordResult{}, ErrPhotoTooLarge
	case err != nil:
		return RecordResult{}, unavailable("store proof", err)
	}
	if stored.Size == 0 {
		s.discard(ctx, stored)
		return RecordResult{}, errors.Join(ErrInvalidPhoto, errors.New("empty upload"))
	}

	checkIn, created, err := s.checkIns.Upsert(ctx, userID, today, stored.URL)
	if err != nil {
		s.discard(ctx, stored)
		return RecordResult{}, unavailable("upsert check-in", err)
	}

	s.trackProof(ctx, userID, today, stored)
	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, StatsCachePrefix)
	}
	metrics.CheckInRecorded(created)

	week := calendar.Window(today)
	rows, err := s.checkIns.ListBetween(ctx, userID, week.Start, week.End)
	if err != nil {
		// The check-in is stored; a retry upserts the same row.
		return RecordResult{}, unavailable("count week", err)
	}
	days, err := daysOf(rows)
	if err != nil {
		return RecordResult{}, unavailable("count week", err)
	}

	s.log.Info("check-in recorded",
		zap.Uint("user_id", userID),
		zap.Stringer("date", today),
		zap.Bool("created", created),
	)
	return RecordResult{
		CheckIn:      checkIn,
		Created:      created,
		Date:         today,
		DaysThisWeek: attendance.WeeklyRawCount(days, week.Start),
		WeeklyGoal:   attendance.WeeklyGoal,
	}, nil
}

// trackProof registers the new file and flags the ones it supersedes. Failures
// only delay cleanup, so they are logged.
func (s *CheckInService) trackProof(ctx context.Context, userID uint, day calendar.Day, stored storage.Stored) {
	if s.proofs == nil {
		return
	}
	row := &models.ProofFile{UserID: userID, CheckDate: day.String(), FilePath: stored.Path, URL: stored.URL}
	if err := s.proofs.Create(ctx, row); err != nil {
		s.log.Warn("record proof file failed", zap.Uint("user_id", userID), zap.String("url", stored.URL), zap.Error(err))
	}
	if err := s.proofs.MarkReplaced(ctx, userID, day, time.Now()); err != nil {
		s.log.Warn("mark replaced proofs failed", zap.Uint("user_id", userID), zap.Stringer("date", day), zap.Error(err))
	}
}

func (s *CheckInService) discard(ctx context.Context, stored storage.Stored) {
	if err := s.storage.Remove(ctx, stored.Path); err != nil {
		s.log.Warn("remove orphan proof failed", zap.String("path", stored.Path), zap.Error(err))
	}
}

// CheckToday reports whether userID already checked in today.
func (s *CheckInService) CheckToday(ctx context.Context, userID uint) (TodayStatus, error) {
	u, err := s.lookupUser(ctx, userID)
	if err != nil {
		return TodayStatus{}, err
	}
	today := s.cal.Today()
	status := TodayStatus{Date: today, User: summarize(u)}

	ci, err := s.checkIns.Find(ctx, userID, today)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status, nil
	case err != nil:
		return TodayStatus{}, unavailable("load today's check-in", err)
	}
	status.AlreadyRegistered = true
	status.Entry = &TodayEntry{Date: today, ProofURL: ci.ProofURL, Timestamp: ci.UpdatedAt}
	return status, nil
}

func daysOf(rows []models.CheckIn) ([]calendar.Day, error) {
	days := make([]calendar.Day, 0, len(rows))
	for _, r := range rows {
		d, err := calendar.ParseDay(r.CheckDate)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}
