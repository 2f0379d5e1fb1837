// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/verte-zerg/studyfocus/internal/model"
)

const (
	// DefaultDays is the stats window when none is given.
	DefaultDays = 30

	sparkChars          = " .:-=+*#%@"
	dayLayout           = "2006-01-02"
	terminalWidthBackup = 80
	trendLabelWidth     = 12
)

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// DailyTrend returns per-day study minutes and mean focus for the days
// ending today, oldest first. Days without sessions have zero values.
func DailyTrend(records []model.SessionRecord, now time.Time, days int) (minutes, focusRates []float64) {
	if days <= 0 {
		return nil, nil
	}
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	first := today.AddDate(0, 0, -(days - 1))
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		index[first.AddDate(0, 0, i).Format(dayLayout)] = i
	}
	minutes = make([]float64, days)
	focusSum := make([]float64, days)
	counts := make([]int, days)
	for _, rec := range records {
		i, ok := index[rec.Date.In(loc).Format(dayLayout)]
		if !ok {
			continue
		}
		minutes[i] += rec.DurationSeconds / 60
		focusSum[i] += float64(rec.FocusRate)
		counts[i]++
	}
	focusRates = make([]float64, days)
	for i := range focusRates {
		focusRates[i] = mean(focusSum[i], counts[i])
	}
	return minutes, focusRates
}

// FormatDuration renders seconds as "1h 05m" or "25m".
func FormatDuration(seconds float64) string {
	total := int(math.Round(seconds / 60))
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

func signedPercent(v float64) string {
	return fmt.Sprintf("%+.0f%%", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderSummary prints a summary table for a window.
func RenderSummary(w io.Writer, summary model.StatsSummary, days int) error {
	if summary.TotalSessions == 0 {
		_, err := fmt.Fprintf(w, "No sessions in the last %d days.\n", days)
		return err
	}
	if _, err := fmt.Fprintf(w, "Summary (last %d days)\n", days); err != nil {
		return err
	}
	table := newTextTable()
	table.add("Sessions", fmt.Sprintf("%d", summary.TotalSessions))
	table.add("Study time", FormatDuration(summary.TotalStudyTime))
	table.add("Avg session", FormatDuration(summary.AverageSessionDuration))
	table.add("Avg focus", fmt.Sprintf("%d%%", summary.AverageFocusRate))
	table.add("Completion", fmt.Sprintf("%d%%", summary.CompletionRate))
	table.add("Streak", fmt.Sprintf("%d days", summary.StudyStreak))
	table.add("Best day", orDash(summary.BestStudyDay))
	table.add("Best time", orDash(summary.BestStudyTime))
	table.add("Most active", orDash(summary.MostProductiveTimeOfDay))
	if err := table.write(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return RenderFocus(w, summary)
}

// RenderFocus prints the focus explanation and the week comparison.
func RenderFocus(w io.Writer, summary model.StatsSummary) error {
	if _, err := fmt.Fprintf(w, "Focus: %s\n", summary.FocusRateReason); err != nil {
		return err
	}
	for _, issue := range summary.FocusIssues {
		if _, err := fmt.Fprintf(w, "  - %s\n", issue); err != nil {
			return err
		}
	}
	cmp := summary.LastWeekComparison
	table := newTextTable("vs last week", "Study time", "Focus", "Sessions").alignRight(1, 2, 3)
	table.add("", signedPercent(cmp.StudyTimeChange), signedPercent(cmp.FocusRateChange), signedPercent(cmp.SessionCountChange))
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return table.write(w)
}

// RenderTrend prints daily study-time and focus sparklines sized to width.
// A width of 0 uses the terminal width.
func RenderTrend(w io.Writer, records []model.SessionRecord, now time.Time, days, width int) error {
	if width <= 0 {
		width = TerminalWidth()
	}
	span := days
	if limit := width - trendLabelWidth; limit > 0 && span > limit {
		span = limit
	}
	minutes, focusRates := DailyTrend(records, now, span)
	if len(minutes) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\nDaily trend (last %d days)\n", span); err != nil {
		return err
	}
	table := newTextTable()
	table.add("Minutes", Sparkline(minutes))
	table.add("3-day avg", Sparkline(MovingAverage(minutes, 3)))
	table.add("Focus", Sparkline(focusRates))
	return table.write(w)
}

// TerminalWidth returns stdout's width or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
