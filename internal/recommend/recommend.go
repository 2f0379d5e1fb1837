// Package recommend proposes a session duration from history.
package recommend

import (
	"context"
	"math"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

const (
	// DefaultSeconds is returned when there is no history.
	DefaultSeconds = 1500
	// MinSeconds and MaxSeconds bound every recommendation.
	MinSeconds = 600
	MaxSeconds = 3600

	stepSeconds = 300
	hourSpread  = 2
)

// History loads every recorded session.
type History interface {
	AllSessions(ctx context.Context) ([]model.SessionRecord, error)
}

// Duration recommends a session length in seconds for the given hour.
// Sessions recorded within two hours of hour are preferred, completed
// sessions within them more so. The mean is rounded to 5 minutes and
// clamped to 10-60 minutes.
func Duration(history []model.SessionRecord, hour int) int {
	if len(history) == 0 {
		return DefaultSeconds
	}
	selected := make([]model.SessionRecord, 0, len(history))
	for _, rec := range history {
		if absInt(rec.TimeOfDayHour-hour) <= hourSpread {
			selected = append(selected, rec)
		}
	}
	if len(selected) == 0 {
		selected = history
	}
	completed := make([]model.SessionRecord, 0, len(selected))
	for _, rec := range selected {
		if rec.CompletedSuccessfully {
			completed = append(completed, rec)
		}
	}
	if len(completed) > 0 {
		selected = completed
	}

	var sum float64
	for _, rec := range selected {
		sum += rec.DurationSeconds
	}
	mean := sum / float64(len(selected))
	rounded := int(math.Round(mean/stepSeconds)) * stepSeconds
	if rounded < MinSeconds {
		return MinSeconds
	}
	if rounded > MaxSeconds {
		return MaxSeconds
	}
	return rounded
}

// FromHistory loads history and recommends a duration for now's hour.
// A load failure yields DefaultSeconds together with the error.
func FromHistory(ctx context.Context, h History, now time.Time) (int, error) {
	sessions, err := h.AllSessions(ctx)
	if err != nil {
		return DefaultSeconds, err
	}
	return Duration(sessions, now.Hour()), nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
