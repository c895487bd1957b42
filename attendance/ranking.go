package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RankingOrder selects the sort key of a leaderboard.
type RankingOrder string

const (
	// OrderWeekly sorts by the capped count of the requested week.
	OrderWeekly RankingOrder = "weekly"
	// OrderMonthly sorts by the capped total of the current month.
	OrderMonthly RankingOrder = "monthly"
)

var ErrInvalidOrder = errors.New("invalid ranking order")

// ParseRankingOrder accepts "weekly" or "monthly"; empty defaults to monthly.
func ParseRankingOrder(s string) (RankingOrder, error) {
	switch RankingOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderMonthly:
		return OrderMonthly, nil
	case OrderWeekly:
		return OrderWeekly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

// RankingEntry is a UserAttendance joined with the presentation fields of its user.
type RankingEntry struct {
	UserAttendance
	Rank          int    `json:"rank"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	TodayProofURL string `json:"today_proof_url,omitempty"`
}

// Key returns the score the entry is ranked by under order.
func (e RankingEntry) Key(order RankingOrder) int {
	if order == OrderWeekly {
		return e.DaysThisWeekCapped
	}
	return e.MonthlyCapped
}

// BuildRanking sorts entries by the order's key, highest first, and numbers them.
// Ties keep ascending user id order. The input slice is not modified.
func BuildRanking(entries []RankingEntry, order RankingOrder) []RankingEntry {
	out := make([]RankingEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].Key(order), out[j].Key(order)
		if ki != kj {
			return ki > kj
		}
		return out[i].UserID < out[j].UserID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
