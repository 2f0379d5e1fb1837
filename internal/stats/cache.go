package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

// Setting keys for cached summaries.
const (
	TodayKey  = "todayStats"
	WeeklyKey = "weeklyStats"
)

// TodayStats is the cached summary of the current calendar day.
type TodayStats struct {
	TotalStudyTime float64 `json:"totalStudyTime"`
	FocusRate      int     `json:"focusRate"`
	Date           string  `json:"date"`
}

// WeeklyStats is the cached summary of the last 7 days.
type WeeklyStats struct {
	TotalStudyTime float64 `json:"totalStudyTime"`
	FocusRate      int     `json:"focusRate"`
	BestStudyDay   string  `json:"bestStudyDay"`
	BestStudyTime  string  `json:"bestStudyTime"`
}

// CacheStore reads sessions and reads and writes settings.
type CacheStore interface {
	SessionSource
	GetSetting(ctx context.Context, key string, dst any) (bool, error)
	PutSetting(ctx context.Context, key string, value any) error
}

// Today summarizes sessions from local midnight to now.
func Today(records []model.SessionRecord, now time.Time) TodayStats {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today := between(records, midnight, now, true)
	duration, focusSum := totals(today)
	return TodayStats{
		TotalStudyTime: duration,
		FocusRate:      int(math.Round(mean(focusSum, len(today)))),
		Date:           now.Format(dayLayout),
	}
}

// Weekly summarizes the last 7 days.
func Weekly(records []model.SessionRecord, now time.Time) WeeklyStats {
	summary := Summarize(records, now, 7)
	return WeeklyStats{
		TotalStudyTime: summary.TotalStudyTime,
		FocusRate:      summary.AverageFocusRate,
		BestStudyDay:   summary.BestStudyDay,
		BestStudyTime:  summary.BestStudyTime,
	}
}

// RefreshCache recomputes and stores the today and weekly summaries.
func RefreshCache(ctx context.Context, st CacheStore, now time.Time) (TodayStats, error) {
	records, err := st.SessionsByRange(ctx, now.AddDate(0, 0, -7), now)
	if err != nil {
		return TodayStats{}, fmt.Errorf("failed to load recent sessions: %w", err)
	}
	today := Today(records, now)
	if err := st.PutSetting(ctx, TodayKey, today); err != nil {
		return today, fmt.Errorf("failed to store %s: %w", TodayKey, err)
	}
	if err := st.PutSetting(ctx, WeeklyKey, Weekly(records, now)); err != nil {
		return today, fmt.Errorf("failed to store %s: %w", WeeklyKey, err)
	}
	return today, nil
}

// LoadToday returns the cached today summary, recomputing it when it is
// missing, malformed or from another day.
func LoadToday(ctx context.Context, st CacheStore, now time.Time) (TodayStats, error) {
	var cached TodayStats
	found, err := st.GetSetting(ctx, TodayKey, &cached)
	if err == nil && found && cached.Date == now.Format(dayLayout) {
		return cached, nil
	}
	return RefreshCache(ctx, st, now)
}
