package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

// Focus issue labels attributed from a window of sessions.
const (
	IssueInterruption = "frequent session interruption"
	IssueLateNight    = "late-night fatigue"
	IssueLongSessions = "excessive session length"
	IssueDigital      = "digital-device distraction"
	IssueNoise        = "ambient noise distraction"
)

const (
	interruptedRatio   = 0.3
	distractionRatio   = 0.2
	lowFocusThreshold  = 70
	longSessionSeconds = 3600
)

var dayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Summarize aggregates the sessions that fall in [now-days, now]. records
// may extend further back; sessions up to 14 days old feed the week
// comparison regardless of days.
func Summarize(records []model.SessionRecord, now time.Time, days int) model.StatsSummary {
	if days <= 0 {
		days = DefaultDays
	}
	window := between(records, now.AddDate(0, 0, -days), now, true)
	if len(window) == 0 {
		return emptySummary()
	}

	loc := now.Location()
	total := float64(len(window))
	var studyTime, focusSum float64
	completed := 0
	for _, rec := range window {
		studyTime += rec.DurationSeconds
		focusSum += float64(rec.FocusRate)
		if rec.CompletedSuccessfully {
			completed++
		}
	}
	avgFocus := int(math.Round(focusSum / total))
	issues := FocusIssues(window, loc)

	return model.StatsSummary{
		TotalSessions:           len(window),
		TotalStudyTime:          studyTime,
		AverageFocusRate:        avgFocus,
		AverageSessionDuration:  studyTime / total,
		CompletionRate:          int(math.Round(100 * float64(completed) / total)),
		BestStudyDay:            bestBy(window, func(rec model.SessionRecord) string { return dayNames[rec.Date.In(loc).Weekday()] }),
		BestStudyTime:           bestBy(window, func(rec model.SessionRecord) string { return TimeLabel(rec.Date.In(loc).Hour()) }),
		MostProductiveTimeOfDay: mostProductive(window, loc),
		StudyStreak:             Streak(window, now),
		LastWeekComparison:      CompareWeeks(records, now),
		FocusRateReason:         FocusRateReason(avgFocus, issues),
		FocusIssues:             issues,
	}
}

func emptySummary() model.StatsSummary {
	return model.StatsSummary{FocusIssues: []string{}}
}

// between returns records with start <= date < end, or <= end when inclusive.
func between(records []model.SessionRecord, start, end time.Time, inclusive bool) []model.SessionRecord {
	out := make([]model.SessionRecord, 0, len(records))
	for _, rec := range records {
		if rec.Date.Before(start) {
			continue
		}
		if rec.Date.After(end) || (!inclusive && rec.Date.Equal(end)) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// TimeLabel names the two-hour slot that starts at hour.
func TimeLabel(hour int) string {
	if hour < 12 {
		return fmt.Sprintf("AM %d-%d", hour, hour+2)
	}
	return fmt.Sprintf("PM %d-%d", hour-12, hour-10)
}

// ParseTimeLabel returns the 24-hour start hour encoded in a TimeLabel.
func ParseTimeLabel(label string) (int, bool) {
	var period string
	var from, to int
	if _, err := fmt.Sscanf(label, "%s %d-%d", &period, &from, &to); err != nil {
		return 0, false
	}
	if to != from+2 || from < 0 || from > 11 {
		return 0, false
	}
	switch period {
	case "AM":
		return from, true
	case "PM":
		return from + 12, true
	default:
		return 0, false
	}
}

// bestBy groups by key in order of first appearance and returns the key with
// the strictly highest mean focus rate.
func bestBy(records []model.SessionRecord, key func(model.SessionRecord) string) string {
	type group struct {
		sum   float64
		count int
	}
	groups := make(map[string]*group)
	var order []string
	for _, rec := range records {
		k := key(rec)
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		g.sum += float64(rec.FocusRate)
		g.count++
	}
	best := ""
	bestRate := 0.0
	for _, k := range order {
		g := groups[k]
		rate := g.sum / float64(g.count)
		if rate > bestRate {
			bestRate = rate
			best = k
		}
	}
	return best
}

// Times of day in tie-break priority order.
var timesOfDay = []struct {
	name string
	in   func(hour int) bool
}{
	{"morning", func(h int) bool { return h >= 5 && h < 12 }},
	{"afternoon", func(h int) bool { return h >= 12 && h < 18 }},
	{"evening", func(h int) bool { return h >= 18 && h < 22 }},
	{"night", isLateNight},
}

func isLateNight(hour int) bool {
	return hour >= 22 || hour < 5
}

func mostProductive(records []model.SessionRecord, loc *time.Location) string {
	counts := make([]int, len(timesOfDay))
	for _, rec := range records {
		hour := rec.Date.In(loc).Hour()
		for i, tod := range timesOfDay {
			if tod.in(hour) {
				counts[i]++
				break
			}
		}
	}
	idx := make([]int, len(timesOfDay))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return counts[idx[a]] > counts[idx[b]]
	})
	if counts[idx[0]] == 0 {
		return ""
	}
	return timesOfDay[idx[0]].name
}

// Streak counts consecutive calendar days, ending today in now's location,
// that have at least one session. It is 0 when today has none.
func Streak(records []model.SessionRecord, now time.Time) int {
	loc := now.Location()
	days := make(map[string]bool, len(records))
	for _, rec := range records {
		days[rec.Date.In(loc).Format(dayLayout)] = true
	}
	streak := 0
	for day := now; days[day.Format(dayLayout)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// CompareWeeks returns percentage changes between [now-7d, now] and
// [now-14d, now-7d). All changes are 0 when the earlier week is empty.
func CompareWeeks(records []model.SessionRecord, now time.Time) model.WeekComparison {
	weekStart := now.AddDate(0, 0, -7)
	this := between(records, weekStart, now, true)
	last := between(records, now.AddDate(0, 0, -14), weekStart, false)
	if len(last) == 0 {
		return model.WeekComparison{}
	}
	thisTime, thisFocus := totals(this)
	lastTime, lastFocus := totals(last)
	return model.WeekComparison{
		StudyTimeChange:    percentChange(thisTime, lastTime),
		FocusRateChange:    percentChange(mean(thisFocus, len(this)), mean(lastFocus, len(last))),
		SessionCountChange: percentChange(float64(len(this)), float64(len(last))),
	}
}

func totals(records []model.SessionRecord) (duration, focus float64) {
	for _, rec := range records {
		duration += rec.DurationSeconds
		focus += float64(rec.FocusRate)
	}
	return duration, focus
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func percentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// FocusIssues runs the independent issue checks over a window of sessions.
func FocusIssues(records []model.SessionRecord, loc *time.Location) []string {
	issues := []string{}
	if len(records) == 0 {
		return issues
	}
	n := float64(len(records))

	interrupted := 0
	var lateNight, long []model.SessionRecord
	digital, noisy := 0, 0
	for _, rec := range records {
		if !rec.CompletedSuccessfully {
			interrupted++
		}
		if isLateNight(rec.Date.In(loc).Hour()) {
			lateNight = append(lateNight, rec)
		}
		if rec.DurationSeconds > longSessionSeconds {
			long = append(long, rec)
		}
		if rec.Metadata != nil {
			if contains(rec.Metadata.Distractions, "digital") {
				digital++
			}
			if contains(rec.Metadata.Environment, "noisy") {
				noisy++
			}
		}
	}

	if float64(interrupted) > n*interruptedRatio {
		issues = append(issues, IssueInterruption)
	}
	if lowFocus(lateNight) {
		issues = append(issues, IssueLateNight)
	}
	if lowFocus(long) {
		issues = append(issues, IssueLongSessions)
	}
	if float64(digital) > n*distractionRatio {
		issues = append(issues, IssueDigital)
	}
	if float64(noisy) > n*distractionRatio {
		issues = append(issues, IssueNoise)
	}
	return issues
}

func lowFocus(records []model.SessionRecord) bool {
	if len(records) == 0 {
		return false
	}
	_, focus := totals(records)
	return mean(focus, len(records)) < lowFocusThreshold
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// FocusRateReason explains an average focus rate. Below 60 the attributed
// issues are listed when there are any.
func FocusRateReason(rate int, issues []string) string {
	switch {
	case rate >= 90:
		return "Top-level focus. You are fully absorbed with almost no distractions."
	case rate >= 80:
		return "Very good focus. Most of your time is used efficiently."
	case rate >= 70:
		return "Good focus. There are occasional interruptions but you mostly stay on task."
	case rate >= 60:
		return "Average focus. Reducing distractions would make study more efficient."
	case rate >= 50:
		if len(issues) > 0 {
			return "Focus is somewhat low. Main causes: " + strings.Join(issues, ", ")
		}
		return "Focus is somewhat low. Your study environment and approach need improvement."
	default:
		if len(issues) > 0 {
			return "Focus is very low. Main causes: " + strings.Join(issues, ", ")
		}
		return "Focus is very low. Rebuild your study environment and remove distractions."
	}
}
