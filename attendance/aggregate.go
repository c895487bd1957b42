// Package attendance turns check-in days into weekly-capped scores.
//
// Only WeeklyGoal check-ins per ISO week count towards totals and rankings.
// Extra days in a week are dropped from the score, never carried elsewhere.
// The functions here are pure; dates are validated before they get here.
package attendance

import (
	"time"

	"github.com/cppla/gymchallenge/calendar"
)

// WeeklyGoal is the number of check-ins per week that count.
const WeeklyGoal = 4

// UserAttendance is the derived score set for one user.
type UserAttendance struct {
	UserID             uint `json:"user_id"`
	DaysThisWeekRaw    int  `json:"days_this_week_raw"`
	DaysThisWeekCapped int  `json:"days_this_week"`
	TotalCapped        int  `json:"total_days_capped"`
	MonthlyCapped      int  `json:"monthly_days_capped"`
}

// WeekEntry is one day of a week progress strip.
type WeekEntry struct {
	Date       calendar.Day `json:"date"`
	Registered bool         `json:"registered"`
}

// Cap applies the weekly goal to a single week's count.
func Cap(n int) int {
	if n < 0 {
		return 0
	}
	return min(n, WeeklyGoal)
}

// WeeklyRawCount counts the distinct days inside [weekStart, weekStart+6]. No cap.
func WeeklyRawCount(days []calendar.Day, weekStart calendar.Day) int {
	window := calendar.WeekWindow{Start: weekStart, End: weekStart.AddDays(6)}
	seen := make(map[calendar.Day]struct{}, len(days))
	for _, d := range days {
		if window.Contains(d) {
			seen[d] = struct{}{}
		}
	}
	return len(seen)
}

// CappedTotal buckets days by ISO week, caps every bucket and sums them.
func CappedTotal(days []calendar.Day) int {
	buckets := make(map[calendar.WeekKey]map[calendar.Day]struct{})
	for _, d := range days {
		key := calendar.ISOWeekKey(d)
		b, ok := buckets[key]
		if !ok {
			b = make(map[calendar.Day]struct{}, WeeklyGoal)
			buckets[key] = b
		}
		b[d] = struct{}{}
	}
	total := 0
	for _, b := range buckets {
		total += Cap(len(b))
	}
	return total
}

// CappedMonthlyTotal keeps the days of (year, month) and applies CappedTotal.
// A week that straddles two months is capped separately in each of them.
func CappedMonthlyTotal(days []calendar.Day, year int, month time.Month) int {
	inMonth := make([]calendar.Day, 0, len(days))
	for _, d := range days {
		if calendar.InMonth(d, year, month) {
			inMonth = append(inMonth, d)
		}
	}
	return CappedTotal(inMonth)
}

// WeekEntries marks which of the given week dates have a check-in.
func WeekEntries(days []calendar.Day, weekDates []calendar.Day) []WeekEntry {
	registered := make(map[calendar.Day]struct{}, len(days))
	for _, d := range days {
		registered[d] = struct{}{}
	}
	entries := make([]WeekEntry, len(weekDates))
	for i, d := range weekDates {
		_, ok := registered[d]
		entries[i] = WeekEntry{Date: d, Registered: ok}
	}
	return entries
}

// Compute derives every score of one user for the week starting at weekStart
// and the month (year, month).
func Compute(userID uint, days []calendar.Day, weekStart calendar.Day, year int, month time.Month) UserAttendance {
	raw := WeeklyRawCount(days, weekStart)
	return UserAttendance{
		UserID:             userID,
		DaysThisWeekRaw:    raw,
		DaysThisWeekCapped: Cap(raw),
		TotalCapped:        CappedTotal(days),
		MonthlyCapped:      CappedMonthlyTotal(days, year, month),
	}
}
