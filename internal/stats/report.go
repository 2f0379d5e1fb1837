package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

// comparisonDays is how far back the week-over-week comparison reaches.
const comparisonDays = 14

// SessionSource queries stored sessions by date.
type SessionSource interface {
	SessionsByRange(ctx context.Context, start, end time.Time) ([]model.SessionRecord, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Days    int
	Now     time.Time
	Summary model.StatsSummary
	// Records covers the longer of the window and the comparison range.
	Records []model.SessionRecord
}

// Window returns the records inside the report's day window.
func (r Report) Window() []model.SessionRecord {
	return between(r.Records, r.Now.AddDate(0, 0, -r.Days), r.Now, true)
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src SessionSource, cfg model.StatsConfig) (Report, error) {
	days := cfg.Days
	if days <= 0 {
		days = DefaultDays
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	span := max(days, comparisonDays)
	records, err := src.SessionsByRange(ctx, now.AddDate(0, 0, -span), now)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Days:    days,
		Now:     now,
		Summary: Summarize(records, now, days),
		Records: records,
	}, nil
}
