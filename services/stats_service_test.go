package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/models"
)

func newStats(t *testing.T, checkIns *memCheckIns, users *memUsers, cache StatsCache) *StatsService {
	return NewStatsService(StatsDeps{
		CheckIns: checkIns,
		Users:    users,
		Calendar: fixedCalendar(t),
		Cache:    cache,
		Fanout:   2,
	})
}

func TestGetUserWeekCurrent(t *testing.T) {
	ctx := context.Background()
	ci := newMemCheckIns()
	ci.add(1, "2026-02-23", "2026-02-24", "2026-02-25", "2026-02-26", "2026-02-27", "2026-03-02", "2026-03-04")
	svc := newStats(t, ci, newMemUsers("ana"), nil)

	w, err := svc.GetUserWeek(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", w.WeekStart.String())
	assert.Equal(t, "2026-03-08", w.WeekEnd.String())
	assert.Equal(t, 2, w.DaysThisWeek)
	assert.Equal(t, 2, w.DaysThisWeekCapped)
	assert.Equal(t, 4+2, w.TotalDaysCapped)
	assert.Equal(t, 2, w.MonthlyDaysCapped)
	require.Len(t, w.WeekEntries, 7)
	assert.True(t, w.WeekEntries[0].Registered)
	assert.Equal(t, "/p/2026-03-02", w.WeekEntries[0].ProofURL)
	assert.False(t, w.WeekEntries[1].Registered)
	assert.Empty(t, w.WeekEntries[1].ProofURL)
	assert.True(t, w.WeekEntries[2].Registered)
}

func TestGetUserWeekExplicitNonMonday(t *testing.T) {
	ci := newMemCheckIns()
	ci.add(1, "2026-02-23", "2026-02-24", "2026-02-25", "2026-02-26", "2026-02-27")
	svc := newStats(t, ci, newMemUsers("ana"), nil)

	ws := calendar.MustParseDay("2026-02-26")
	w, err := svc.GetUserWeek(context.Background(), 1, &ws)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-23", w.WeekStart.String())
	assert.Equal(t, 5, w.DaysThisWeek)
	assert.Equal(t, 4, w.DaysThisWeekCapped)
	// no March check-ins yet
	assert.Equal(t, 0, w.MonthlyDaysCapped)
}

func TestGetUserWeekErrors(t *testing.T) {
	ctx := context.Background()
	ci := newMemCheckIns()
	users := newMemUsers("ana")
	svc := newStats(t, ci, users, nil)

	_, err := svc.GetUserWeek(ctx, 7, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)

	w, err := svc.GetUserWeek(ctx, 1, nil)
	require.NoError(t, err)
	assert.Zero(t, w.TotalDaysCapped)

	ci.failAll = true
	_, err = svc.GetUserWeek(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetAllStatsRanking(t *testing.T) {
	ctx := context.Background()
	ci := newMemCheckIns()
	ci.add(1, "2026-03-02")
	ci.add(2, "2026-03-02", "2026-03-03", "2026-03-04")
	ci.add(3, "2026-03-02", "2026-03-03", "2026-03-04")
	svc := newStats(t, ci, newMemUsers("ana", "bruno", "carla", "dani"), nil)

	all, err := svc.GetAllStats(ctx, nil, attendance.OrderWeekly)
	require.NoError(t, err)
	assert.Equal(t, attendance.WeeklyGoal, all.WeeklyGoal)
	assert.Empty(t, all.Failures)
	require.Len(t, all.Users, 4)

	var got []uint
	for _, u := range all.Users {
		got = append(got, u.UserID)
	}
	assert.Equal(t, []uint{2, 3, 1, 4}, got)
	assert.Equal(t, 1, all.Users[0].Rank)
	assert.Equal(t, "Bruno", all.Users[0].Name)
	// current week: today's proofs are attached
	assert.Equal(t, "/p/2026-03-04", all.Users[0].TodayProofURL)
	assert.Empty(t, all.Users[2].TodayProofURL)
	assert.Equal(t, "🧑", all.Users[3].Avatar)
}

func TestGetAllStatsPastWeekHasNoTodayProofs(t *testing.T) {
	ci := newMemCheckIns()
	ci.add(1, "2026-02-24", "2026-03-04")
	svc := newStats(t, ci, newMemUsers("ana"), nil)

	ws := calendar.MustParseDay("2026-02-23")
	all, err := svc.GetAllStats(context.Background(), &ws, attendance.OrderMonthly)
	require.NoError(t, err)
	require.Len(t, all.Users, 1)
	assert.Equal(t, 1, all.Users[0].DaysThisWeekCapped)
	assert.Equal(t, 1, all.Users[0].MonthlyCapped)
	assert.Empty(t, all.Users[0].TodayProofURL)
}

func TestGetAllStatsPartialFailure(t *testing.T) {
	ci := newMemCheckIns()
	ci.add(1, "2026-03-02")
	ci.add(2, "2026-03-02", "2026-03-03")
	ci.failFor[2] = true
	cache := newMemCache()
	svc := newStats(t, ci, newMemUsers("ana", "bruno", "carla"), cache)

	all, err := svc.GetAllStats(context.Background(), nil, attendance.OrderMonthly)
	require.NoError(t, err)
	require.Len(t, all.Users, 2)
	assert.Equal(t, uint(1), all.Users[0].UserID)
	assert.Equal(t, uint(3), all.Users[1].UserID)
	require.Len(t, all.Failures, 1)
	assert.Equal(t, uint(2), all.Failures[0].UserID)
	// incomplete rankings are not cached
	assert.Empty(t, cache.data)
}

func TestGetAllStatsUserListFailure(t *testing.T) {
	users := newMemUsers("ana")
	users.fail = true
	svc := newStats(t, newMemCheckIns(), users, nil)
	_, err := svc.GetAllStats(context.Background(), nil, attendance.OrderWeekly)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetAllStatsCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	ci := newMemCheckIns()
	ci.add(1, "2026-03-02")
	cache := newMemCache()
	svc := newStats(t, ci, newMemUsers("ana"), cache)

	first, err := svc.GetAllStats(ctx, nil, attendance.OrderWeekly)
	require.NoError(t, err)
	require.Len(t, cache.data, 1)

	ci.add(1, "2026-03-03")
	cached, err := svc.GetAllStats(ctx, nil, attendance.OrderWeekly)
	require.NoError(t, err)
	assert.Equal(t, first.Users[0].DaysThisWeekCapped, cached.Users[0].DaysThisWeekCapped)

	cache.InvalidatePrefix(ctx, StatsCachePrefix)
	fresh, err := svc.GetAllStats(ctx, nil, attendance.OrderWeekly)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Users[0].DaysThisWeekCapped)
}

func TestDayStats(t *testing.T) {
	ci := newMemCheckIns()
	ci.add(2, "2026-03-03")
	ci.add(1, "2026-03-03")
	ci.add(3, "2026-03-04")
	svc := newStats(t, ci, newMemUsers("ana", "bruno", "carla"), nil)

	ds, err := svc.DayStats(context.Background(), calendar.MustParseDay("2026-03-03"), 2)
	require.NoError(t, err)
	require.Len(t, ds.Members, 3)
	assert.True(t, ds.Members[0].Registered)
	assert.True(t, ds.Members[1].Registered)
	assert.False(t, ds.Members[2].Registered)
	assert.Equal(t, "/p/2026-03-03", ds.CurrentUserProofURL)

	anon, err := svc.DayStats(context.Background(), calendar.MustParseDay("2026-03-03"), 0)
	require.NoError(t, err)
	assert.Empty(t, anon.CurrentUserProofURL)
}

func TestProofCleanerSweep(t *testing.T) {
	ctx := context.Background()
	proofs := &memProofs{}
	st := newMemStorage()
	day := calendar.MustParseDay("2026-03-04")

	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-time.Minute)
	require.NoError(t, proofs.Create(ctx, proofFile(day, "/data/a.jpg", &old)))
	require.NoError(t, proofs.Create(ctx, proofFile(day, "/data/b.jpg", &recent)))
	require.NoError(t, proofs.Create(ctx, proofFile(day, "/data/c.jpg", nil)))

	c := NewProofCleaner(proofs, st, time.Hour, time.Minute, nil)
	n, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"/data/a.jpg"}, st.removed)
	assert.Len(t, proofs.rows, 2)

	c.Start(ctx)
	c.Stop()
	c.Stop()
}

func proofFile(day calendar.Day, path string, replacedAt *time.Time) *models.ProofFile {
	return &models.ProofFile{UserID: 1, CheckDate: day.String(), FilePath: path, URL: "/static" + path, ReplacedAt: replacedAt}
}
