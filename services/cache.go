package services

import (
	"context"
	"fmt"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
)

// StatsCachePrefix namespaces every cached stats payload. A check-in drops the whole prefix.
const StatsCachePrefix = "cache:stats:"

// StatsCache holds rendered stats payloads for a short TTL.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	InvalidatePrefix(ctx context.Context, prefix string)
}

func allStatsKey(week calendar.WeekWindow, order attendance.RankingOrder, today calendar.Day) string {
	return fmt.Sprintf("%sall:%s:%s:%s", StatsCachePrefix, week.Start, order, today)
}
