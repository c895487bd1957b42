package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/metrics"
	"github.com/cppla/gymchallenge/models"
	"github.com/cppla/gymchallenge/store"
)

const defaultFanout = 8

// WeekDay is one day of a member's week strip.
type WeekDay struct {
	attendance.WeekEntry
	ProofURL string `json:"proof_url,omitempty"`
}

// UserWeek is a member's progress for one week.
type UserWeek struct {
	User               UserSummary  `json:"user"`
	WeekStart          calendar.Day `json:"week_start"`
	WeekEnd            calendar.Day `json:"week_end"`
	DaysThisWeek       int          `json:"days_this_week"`
	DaysThisWeekCapped int          `json:"days_this_week_capped"`
	WeekEntries        []WeekDay    `json:"week_entries"`
	TotalDaysCapped    int          `json:"total_days_capped"`
	MonthlyDaysCapped  int          `json:"monthly_days_capped"`
	WeeklyGoal         int          `json:"weekly_goal"`
}

// UserFailure names a member whose history could not be loaded for a ranking.
type UserFailure struct {
	UserID uint   `json:"user_id"`
	Error  string `json:"error"`
}

// AllStats is the group leaderboard of one week.
type AllStats struct {
	WeekStart  calendar.Day              `json:"week_start"`
	WeekEnd    calendar.Day              `json:"week_end"`
	Order      attendance.RankingOrder   `json:"order"`
	WeeklyGoal int                       `json:"weekly_goal"`
	Users      []attendance.RankingEntry `json:"users"`
	Failures   []UserFailure             `json:"failures,omitempty"`
}

// DayMember is one member's state on a given day.
type DayMember struct {
	UserSummary
	Registered bool   `json:"registered"`
	ProofURL   string `json:"proof_url,omitempty"`
}

// DayStats lists every member with their proof of one day.
type DayStats struct {
	Date                calendar.Day `json:"date"`
	Members             []DayMember  `json:"members"`
	CurrentUserProofURL string       `json:"current_user_proof_url,omitempty"`
}

// StatsService answers the read-only attendance queries.
type StatsService struct {
	checkIns store.CheckInStore
	users    store.UserStore
	cal      *calendar.Calendar
	cache    StatsCache
	fanout   int
	log      *zap.Logger
}

// StatsDeps wires a StatsService. Cache may be nil.
type StatsDeps struct {
	CheckIns store.CheckInStore
	Users    store.UserStore
	Calendar *calendar.Calendar
	Cache    StatsCache
	Fanout   int
	Logger   *zap.Logger
}

func NewStatsService(d StatsDeps) *StatsService {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	fanout := d.Fanout
	if fanout <= 0 {
		fanout = defaultFanout
	}
	return &StatsService{
		checkIns: d.CheckIns,
		users:    d.Users,
		cal:      d.Calendar,
		cache:    d.Cache,
		fanout:   fanout,
		log:      log.Named("stats"),
	}
}

// GetUserWeek returns the progress of userID for the week of weekStart, or the
// current week when weekStart is nil.
func (s *StatsService) GetUserWeek(ctx context.Context, userID uint, weekStart *calendar.Day) (UserWeek, error) {
	u, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return UserWeek{}, errors.Join(ErrUserNotFound, err)
	case err != nil:
		return UserWeek{}, unavailable("load user", err)
	}

	week := s.cal.ResolveWeek(weekStart)
	today := s.cal.Today()

	days, err := s.checkIns.ListDays(ctx, userID)
	if err != nil {
		return UserWeek{}, unavailable("list check-ins", err)
	}
	rows, err := s.checkIns.ListBetween(ctx, userID, week.Start, week.End)
	if err != nil {
		return UserWeek{}, unavailable("list week check-ins", err)
	}
	proofs := make(map[string]string, len(rows))
	for _, r := range rows {
		proofs[r.CheckDate] = r.ProofURL
	}

	scores := attendance.Compute(userID, days, week.Start, today.Year(), today.Month())
	entries := attendance.WeekEntries(days, calendar.WeekDates(week.Start))
	strip := make([]WeekDay, len(entries))
	for i, e := range entries {
		strip[i] = WeekDay{WeekEntry: e}
		if e.Registered {
			strip[i].ProofURL = proofs[e.Date.String()]
		}
	}

	return UserWeek{
		User:               summarize(u),
		WeekStart:          week.Start,
		WeekEnd:            week.End,
		DaysThisWeek:       scores.DaysThisWeekRaw,
		DaysThisWeekCapped: scores.DaysThisWeekCapped,
		WeekEntries:        strip,
		TotalDaysCapped:    scores.TotalCapped,
		MonthlyDaysCapped:  scores.MonthlyCapped,
		WeeklyGoal:         attendance.WeeklyGoal,
	}, nil
}

// GetAllStats ranks every member for the week of weekStart. Monthly totals use
// the month of today. Members whose history cannot be loaded are reported in
// Failures and left out of the ranking.
func (s *StatsService) GetAllStats(ctx context.Context, weekStart *calendar.Day, order attendance.RankingOrder) (AllStats, error) {
	week := s.cal.ResolveWeek(weekStart)
	today := s.cal.Today()
	key := allStatsKey(week, order, today)

	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, key); ok {
			var cached AllStats
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return AllStats{}, unavailable("list users", err)
	}

	entries, failures := s.scoreAll(ctx, users, week.Start, today)
	if err := ctx.Err(); err != nil {
		return AllStats{}, unavailable("score users", err)
	}

	if week == s.cal.CurrentWeek() && len(entries) > 0 {
		rows, err := s.checkIns.ListByDate(ctx, today)
		if err != nil {
			return AllStats{}, unavailable("list today's check-ins", err)
		}
		proofs := make(map[uint]string, len(rows))
		for _, r := range rows {
			proofs[r.UserID] = r.ProofURL
		}
		for i := range entries {
			entries[i].TodayProofURL = proofs[entries[i].UserID]
		}
	}

	out := AllStats{
		WeekStart:  week.Start,
		WeekEnd:    week.End,
		Order:      order,
		WeeklyGoal: attendance.WeeklyGoal,
		Users:      attendance.BuildRanking(entries, order),
		Failures:   failures,
	}

	if s.cache != nil && len(failures) == 0 {
		if b, err := json.Marshal(out); err == nil {
			s.cache.Set(ctx, key, b)
		}
	}
	return out, nil
}

// scoreAll loads every member's history with at most s.fanout concurrent
// fetches. A failed fetch never cancels the others.
func (s *StatsService) scoreAll(ctx context.Context, users []models.User, weekStart, today calendar.Day) ([]attendance.RankingEntry, []UserFailure) {
	var (
		results  = make([]*attendance.RankingEntry, len(users))
		failures []UserFailure
		mu       sync.Mutex
		g        errgroup.Group
	)
	g.SetLimit(s.fanout)
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			days, err := s.checkIns.ListDays(ctx, u.ID)
			if err != nil {
				metrics.RankingUserFailed()
				s.log.Warn("load member history failed", zap.Uint("user_id", u.ID), zap.Error(err))
				mu.Lock()
				failures = append(failures, UserFailure{UserID: u.ID, Error: ErrUnavailable.Error()})
				mu.Unlock()
				return nil
			}
			results[i] = &attendance.RankingEntry{
				UserAttendance: attendance.Compute(u.ID, days, weekStart, today.Year(), today.Month()),
				Name:           u.Name(),
				Avatar:         u.AvatarOrDefault(),
			}
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]attendance.RankingEntry, 0, len(users))
	for _, r := range results {
		if r != nil {
			entries = append(entries, *r)
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].UserID < failures[j].UserID })
	return entries, failures
}

// DayStats lists every member with their proof of day. currentUserID may be 0
// for anonymous callers.
func (s *StatsService) DayStats(ctx context.Context, day calendar.Day, currentUserID uint) (DayStats, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return DayStats{}, unavailable("list users", err)
	}
	rows, err := s.checkIns.ListByDate(ctx, day)
	if err != nil {
		return DayStats{}, unavailable("list day check-ins", err)
	}
	proofs := make(map[uint]string, len(rows))
	for _, r := range rows {
		proofs[r.UserID] = r.ProofURL
	}

	out := DayStats{Date: day, Members: make([]DayMember, 0, len(users))}
	for _, u := range users {
		url, ok := proofs[u.ID]
		out.Members = append(out.Members, DayMember{UserSummary: summarize(u), Registered: ok, ProofURL: url})
	}
	sort.SliceStable(out.Members, func(i, j int) bool { return out.Members[i].ID < out.Members[j].ID })
	if currentUserID != 0 {
		out.CurrentUserProofURL = proofs[currentUserID]
	}
	return out, nil
}
