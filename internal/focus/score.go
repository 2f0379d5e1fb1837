package focus

import (
	"math"

	"github.com/verte-zerg/studyfocus/internal/model"
)

// Score computes a 0-100 recency-weighted focus score. Event i of n is
// weighted 1 + (i/n)*0.5. An empty log scores 100.
func Score(events []model.FocusEvent) int {
	n := len(events)
	if n == 0 {
		return 100
	}
	var total, focused float64
	for i, ev := range events {
		w := 1 + (float64(i)/float64(n))*0.5
		total += w
		if ev.IsFocused {
			focused += w
		}
	}
	return int(math.Round(100 * focused / total))
}

// Description returns a fixed description for a live focus score.
func Description(score int) string {
	switch {
	case score >= 90:
		return "Top focus. You are fully absorbed in your study."
	case score >= 80:
		return "Very good focus. Most of your time is being used well."
	case score >= 70:
		return "Good focus. Occasional distractions, but mostly on task."
	case score >= 60:
		return "Average focus. There is room for improvement."
	case score >= 50:
		return "Focus is somewhat low. Consider adjusting your environment and approach."
	default:
		return "Focus is very low. Rearrange your environment and remove distractions."
	}
}
