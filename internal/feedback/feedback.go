// Package feedback turns aggregated stats into study advice.
package feedback

import (
	"context"
	"fmt"
	"math"
	"strings"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
)

const (
	minStudySeconds = 3600
	maxStudySeconds = 14400
	lowFocus        = 60
	highFocus       = 85
	lowCompletion   = 70
	highCompletion  = 90
	streakPraise    = 3
	weekChange      = 10
)

// Fallback is returned when feedback cannot be generated.
var Fallback = model.FeedbackItem{
	Type:    model.FeedbackSuggestion,
	Message: "Complete more sessions to get personalized feedback.",
}

type issueAdvice struct {
	match   string
	message string
	action  string
}

// Advice per attributed issue, matched by substring in order.
var issueTable = []issueAdvice{
	{"digital", "Digital devices are hurting your focus. Silence your phone and close unneeded apps while studying.", "Turn on do-not-disturb while studying"},
	{"noise", "Ambient noise is hurting your focus. Find a quieter place or try white noise.", "Play white noise"},
	{"fatigue", "Fatigue is hurting your focus. Get enough sleep and take regular breaks.", "Use pomodoro breaks"},
	{"length", "Overly long sessions are hurting your focus. Shorter blocks work better.", "Split study into 25-minute sessions"},
}

var genericFocus = issueAdvice{
	message: "Your focus is somewhat low. Remove distractions and set up an environment that helps you concentrate.",
	action:  "Turn on focus mode",
}

// Generate maps a summary to feedback items in priority order: study time,
// focus rate, completion rate, best time, streak, week comparison. A panic
// during evaluation yields the single Fallback item.
func Generate(summary model.StatsSummary) (items []model.FeedbackItem) {
	defer func() {
		if r := recover(); r != nil {
			items = []model.FeedbackItem{Fallback}
		}
	}()

	items = append(items, studyTime(summary.TotalStudyTime))
	items = append(items, focusRate(summary.AverageFocusRate, summary.FocusIssues)...)
	if item, ok := completion(summary.CompletionRate); ok {
		items = append(items, item)
	}
	if summary.BestStudyTime != "" {
		items = append(items, model.FeedbackItem{
			Type:       model.FeedbackSuggestion,
			Message:    fmt.Sprintf("Your focus peaks at %s. Plan important study in that slot.", summary.BestStudyTime),
			Actionable: true,
			Action:     fmt.Sprintf("Set a study reminder for %s", summary.BestStudyTime),
		})
	}
	if summary.StudyStreak >= streakPraise {
		items = append(items, model.FeedbackItem{
			Type:    model.FeedbackPositive,
			Message: fmt.Sprintf("You have studied %d days in a row. Consistency builds skill.", summary.StudyStreak),
		})
	}
	if item, ok := weekTrend(summary.LastWeekComparison.StudyTimeChange); ok {
		items = append(items, item)
	}
	return items
}

func studyTime(seconds float64) model.FeedbackItem {
	switch {
	case seconds < minStudySeconds:
		return model.FeedbackItem{
			Type:       model.FeedbackSuggestion,
			Message:    "Study time is on the low side. Aim for at least an hour a day.",
			Actionable: true,
			Action:     "Goal for today: study for 1 hour",
		}
	case seconds > maxStudySeconds:
		return model.FeedbackItem{
			Type:       model.FeedbackWarning,
			Message:    "Study time is very long. Rest properly to keep your study efficient.",
			Actionable: true,
			Action:     "Study 25 minutes, then rest 5 minutes",
		}
	default:
		return model.FeedbackItem{
			Type:    model.FeedbackPositive,
			Message: "Your study time is well balanced. Keep it up!",
		}
	}
}

func focusRate(rate int, issues []string) []model.FeedbackItem {
	switch {
	case rate < lowFocus:
		if len(issues) == 0 {
			return []model.FeedbackItem{suggestion(genericFocus)}
		}
		out := make([]model.FeedbackItem, 0, len(issues))
		for _, issue := range issues {
			out = append(out, suggestion(adviceFor(issue)))
		}
		return out
	case rate >= highFocus:
		return []model.FeedbackItem{{
			Type:    model.FeedbackPositive,
			Message: "Your focus is excellent. Keep your current environment and routine.",
		}}
	default:
		return []model.FeedbackItem{{
			Type:       model.FeedbackSuggestion,
			Message:    "Your focus is good. Regular short breaks can push it higher.",
			Actionable: true,
			Action:     "Study 50 minutes, then rest 10 minutes",
		}}
	}
}

func adviceFor(issue string) issueAdvice {
	for _, advice := range issueTable {
		if strings.Contains(issue, advice.match) {
			return advice
		}
	}
	return genericFocus
}

func suggestion(advice issueAdvice) model.FeedbackItem {
	return model.FeedbackItem{
		Type:       model.FeedbackSuggestion,
		Message:    advice.message,
		Actionable: true,
		Action:     advice.action,
	}
}

func completion(rate int) (model.FeedbackItem, bool) {
	switch {
	case rate < lowCompletion:
		return model.FeedbackItem{
			Type:       model.FeedbackSuggestion,
			Message:    "Your completion rate is low. Start with shorter sessions to build momentum.",
			Actionable: true,
			Action:     "Start with 15-minute sessions",
		}, true
	case rate >= highCompletion:
		return model.FeedbackItem{
			Type:    model.FeedbackPositive,
			Message: "Your completion rate is excellent. You follow through on your goals.",
		}, true
	default:
		return model.FeedbackItem{}, false
	}
}

func weekTrend(change float64) (model.FeedbackItem, bool) {
	switch {
	case change > weekChange:
		return model.FeedbackItem{
			Type:    model.FeedbackPositive,
			Message: fmt.Sprintf("Study time is up %d%% on last week. Great trend!", int(math.Round(change))),
		}, true
	case change < -weekChange:
		return model.FeedbackItem{
			Type:       model.FeedbackWarning,
			Message:    fmt.Sprintf("Study time is down %d%% on last week. Review your study plan.", int(math.Abs(math.Round(change)))),
			Actionable: true,
			Action:     "Make a weekly study plan",
		}, true
	default:
		return model.FeedbackItem{}, false
	}
}

// Load builds the report for cfg and generates feedback. Load failures are
// logged and yield the single Fallback item.
func Load(ctx context.Context, src stats.SessionSource, cfg model.StatsConfig, logger hclog.Logger) []model.FeedbackItem {
	report, err := stats.BuildReport(ctx, src, cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to build report for feedback", "error", err)
		}
		return []model.FeedbackItem{Fallback}
	}
	return Generate(report.Summary)
}
