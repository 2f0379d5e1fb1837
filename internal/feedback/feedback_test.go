package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
)

func types(items []model.FeedbackItem) []model.FeedbackType {
	out := make([]model.FeedbackType, len(items))
	for i, item := range items {
		out[i] = item.Type
	}
	return out
}

func TestGenerateOrderAndBands(t *testing.T) {
	summary := model.StatsSummary{
		TotalStudyTime:     7200,
		AverageFocusRate:   90,
		CompletionRate:     95,
		BestStudyTime:      "AM 9-11",
		StudyStreak:        4,
		LastWeekComparison: model.WeekComparison{StudyTimeChange: 25},
	}
	items := Generate(summary)
	want := []model.FeedbackType{
		model.FeedbackPositive,   // study time
		model.FeedbackPositive,   // focus
		model.FeedbackPositive,   // completion
		model.FeedbackSuggestion, // best time
		model.FeedbackPositive,   // streak
		model.FeedbackPositive,   // week
	}
	got := types(items)
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d: %+v", len(want), len(got), items)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if !items[3].Actionable || items[3].Action != "Set a study reminder for AM 9-11" {
		t.Fatalf("unexpected best-time item: %+v", items[3])
	}
}

func TestGenerateLowFocusPerIssue(t *testing.T) {
	summary := model.StatsSummary{
		TotalStudyTime:   20000,
		AverageFocusRate: 45,
		CompletionRate:   80,
		FocusIssues:      []string{stats.IssueDigital, stats.IssueNoise, stats.IssueInterruption},
		LastWeekComparison: model.WeekComparison{
			StudyTimeChange: -30,
		},
	}
	items := Generate(summary)
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d: %+v", len(items), items)
	}
	if items[0].Type != model.FeedbackWarning {
		t.Fatalf("expected long study time warning, got %+v", items[0])
	}
	wantActions := []string{"Turn on do-not-disturb while studying", "Play white noise", "Turn on focus mode"}
	for i, action := range wantActions {
		if items[i+1].Action != action {
			t.Fatalf("issue %d: expected action %q, got %q", i, action, items[i+1].Action)
		}
	}
	last := items[4]
	if last.Type != model.FeedbackWarning || last.Action != "Make a weekly study plan" {
		t.Fatalf("unexpected week item: %+v", last)
	}
	if last.Message != "Study time is down 30% on last week. Review your study plan." {
		t.Fatalf("unexpected week message: %q", last.Message)
	}
}

func TestGenerateMiddleBandsOmitItems(t *testing.T) {
	summary := model.StatsSummary{
		TotalStudyTime:   1200,
		AverageFocusRate: 70,
		CompletionRate:   80,
		StudyStreak:      2,
	}
	items := Generate(summary)
	if len(items) != 2 {
		t.Fatalf("expected study time and focus items only, got %+v", items)
	}
	if items[0].Action != "Goal for today: study for 1 hour" {
		t.Fatalf("unexpected study time item: %+v", items[0])
	}
	if items[1].Action != "Study 50 minutes, then rest 10 minutes" {
		t.Fatalf("unexpected focus item: %+v", items[1])
	}
}

type failingSource struct{}

func (failingSource) SessionsByRange(context.Context, time.Time, time.Time) ([]model.SessionRecord, error) {
	return nil, errors.New("boom")
}

func TestLoadFallsBackOnError(t *testing.T) {
	items := Load(context.Background(), failingSource{}, model.StatsConfig{Days: 7}, nil)
	if len(items) != 1 || items[0] != Fallback {
		t.Fatalf("expected fallback item, got %+v", items)
	}
	if items[0].Actionable {
		t.Fatalf("fallback must not be actionable")
	}
}
