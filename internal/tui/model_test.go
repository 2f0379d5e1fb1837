package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/studyfocus/internal/focus"
	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
	"github.com/verte-zerg/studyfocus/internal/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func newTestModel(t *testing.T, cfg model.Config) (*Model, *store.FlatStore, *testClock) {
	t.Helper()
	fs, err := store.OpenFlat(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open flat: %v", err)
	}
	clock := &testClock{now: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
	m := NewModel(cfg, fs, nil)
	m.now = clock.Now
	return m, fs, clock
}

func press(m *Model, s string) {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	if s == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	m.Update(msg)
}

func startDefault(t *testing.T, m *Model) {
	t.Helper()
	press(m, "s")
	if m.machine.Phase() != model.PhaseRecommending {
		t.Fatalf("expected recommending after start, got %s", m.machine.Phase())
	}
	msg := m.recommend()()
	rec, ok := msg.(recommendationMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if rec.err != nil || rec.seconds != 1500 {
		t.Fatalf("expected default recommendation, got %+v", rec)
	}
	m.Update(rec)
	if m.machine.Phase() != model.PhaseRunning {
		t.Fatalf("expected running, got %s", m.machine.Phase())
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		today:    stats.TodayStats{TotalStudyTime: 3900, FocusRate: 82},
		hasToday: true,
		status:   "Session complete. Focus 82%.",
	}
	out := m.renderFooter()
	for _, want := range []string{"Today 1h 05m · focus 82%", "Session complete"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
}

func TestStaleTicksAreIgnored(t *testing.T) {
	m, _, clock := newTestModel(t, model.Config{DurationSeconds: 1500, Visibility: true, Interaction: true})
	startDefault(t, m)
	running := m.gen

	m.Update(tickMsg{gen: running, at: clock.Advance(time.Second)})
	if got := m.machine.State().RemainingSeconds; got != 1499 {
		t.Fatalf("expected 1499, got %d", got)
	}

	clock.Advance(time.Second)
	press(m, " ")
	if m.machine.Phase() != model.PhasePaused {
		t.Fatalf("expected paused, got %s", m.machine.Phase())
	}
	m.Update(tickMsg{gen: running, at: clock.Advance(time.Second)})
	m.Update(probeMsg{gen: running, at: clock.Advance(30 * time.Second)})
	if got := m.machine.State().RemainingSeconds; got != 1499 {
		t.Fatalf("stale tick changed the countdown: %d", got)
	}

	press(m, " ")
	if m.machine.Phase() != model.PhaseRunning {
		t.Fatalf("expected running after resume, got %s", m.machine.Phase())
	}
	m.Update(tickMsg{gen: running, at: clock.Advance(time.Second)})
	if got := m.machine.State().RemainingSeconds; got != 1499 {
		t.Fatalf("tick from previous run must be ignored: %d", got)
	}
	m.Update(tickMsg{gen: m.gen, at: clock.Now()})
	if got := m.machine.State().RemainingSeconds; got != 1498 {
		t.Fatalf("expected 1498 after current tick, got %d", got)
	}
}

func TestCompletionPersistsSession(t *testing.T) {
	m, fs, clock := newTestModel(t, model.Config{DurationSeconds: 2})
	press(m, "s")
	m.Update(recommendationMsg{seconds: 600})
	if m.machine.Phase() != model.PhaseRecommending {
		t.Fatalf("expected dialog for distant recommendation, got %s", m.machine.Phase())
	}
	if !strings.Contains(m.View(), "Use it? [y/n]") {
		t.Fatalf("expected recommendation dialog in view")
	}
	press(m, "n")
	if got := m.machine.State().RemainingSeconds; got != 2 {
		t.Fatalf("expected default 2s, got %d", got)
	}

	m.Update(tickMsg{gen: m.gen, at: clock.Advance(time.Second)})
	_, cmd := m.Update(tickMsg{gen: m.gen, at: clock.Advance(time.Second)})
	if m.machine.Phase() != model.PhaseCompleted {
		t.Fatalf("expected completed, got %s", m.machine.Phase())
	}
	if cmd == nil {
		t.Fatalf("expected persist command")
	}
	saved, ok := cmd().(savedMsg)
	if !ok {
		t.Fatalf("expected savedMsg")
	}
	if saved.err != nil || !saved.rec.CompletedSuccessfully {
		t.Fatalf("unexpected save result: %+v", saved)
	}
	m.Update(saved)
	if !m.hasToday || m.today.TotalStudyTime != 2 {
		t.Fatalf("expected today stats refreshed, got %+v", m.today)
	}

	sessions, err := fs.AllSessions(context.Background())
	if err != nil || len(sessions) != 1 {
		t.Fatalf("expected 1 stored session, got %d err=%v", len(sessions), err)
	}
	var cached stats.TodayStats
	found, err := fs.GetSetting(context.Background(), stats.TodayKey, &cached)
	if err != nil || !found || cached.Date != "2026-03-10" {
		t.Fatalf("expected cached today stats, found=%v err=%v value=%+v", found, err, cached)
	}
}

func TestBlurRaisesAlert(t *testing.T) {
	m, _, clock := newTestModel(t, model.Config{DurationSeconds: 1500, Visibility: true, Interaction: true})
	startDefault(t, m)
	clock.Advance(5 * time.Second)
	_, cmd := m.Update(tea.BlurMsg{})
	if cmd == nil || m.alert == nil {
		t.Fatalf("expected alert after losing focus")
	}
	if m.machine.State().FocusRate != 0 {
		t.Fatalf("expected focus 0, got %d", m.machine.State().FocusRate)
	}
	if !strings.Contains(m.View(), "Focus dropped to 0%") {
		t.Fatalf("expected alert banner in view")
	}
	m.Update(alertExpiredMsg{raisedAt: m.alert.RaisedAt})
	if m.alert != nil {
		t.Fatalf("expected alert dismissed")
	}
}

func TestAlertExpiryIgnoresNewerAlert(t *testing.T) {
	m, _, clock := newTestModel(t, model.Config{})
	m.alert = &focus.Alert{RaisedAt: clock.Now(), ExpiresAt: clock.Now().Add(focus.AlertCooldown)}
	m.Update(alertExpiredMsg{raisedAt: clock.Now().Add(-time.Minute)})
	if m.alert == nil {
		t.Fatalf("older expiry must not dismiss a newer alert")
	}
}

func TestResetDiscardsAndQuitAbandons(t *testing.T) {
	m, _, clock := newTestModel(t, model.Config{DurationSeconds: 1500})
	startDefault(t, m)
	before := m.gen
	press(m, "r")
	if m.machine.Phase() != model.PhaseIdle || m.gen == before {
		t.Fatalf("expected idle with new generation after reset")
	}

	startDefault(t, m)
	clock.Advance(2 * time.Minute)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if m.machine.Phase() != model.PhaseIdle {
		t.Fatalf("expected abandoned session to leave the machine idle, got %s", m.machine.Phase())
	}
}

type historyFailingStore struct {
	*store.FlatStore
}

func (historyFailingStore) AllSessions(context.Context) ([]model.SessionRecord, error) {
	return nil, errors.New("history unavailable")
}

func TestRecommendationFailureStartsWithDefault(t *testing.T) {
	fs, err := store.OpenFlat(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open flat: %v", err)
	}
	m := NewModel(model.Config{DurationSeconds: 3000}, historyFailingStore{fs}, nil)
	clock := &testClock{now: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
	m.now = clock.Now

	press(m, "s")
	msg, ok := m.recommend()().(recommendationMsg)
	if !ok || msg.err == nil {
		t.Fatalf("expected failed recommendation, got %+v", msg)
	}
	m.Update(msg)
	if m.machine.Phase() != model.PhaseRunning {
		t.Fatalf("expected running with the default, got %s", m.machine.Phase())
	}
	if got := m.machine.State().RemainingSeconds; got != 3000 {
		t.Fatalf("expected 3000s countdown, got %d", got)
	}
	if strings.Contains(m.View(), "Use it? [y/n]") {
		t.Fatalf("no recommendation dialog expected without history")
	}
}

func TestTickAlignsToWallClock(t *testing.T) {
	m, _, _ := newTestModel(t, model.Config{})
	m.gen = 7
	msg, ok := m.scheduleTick()().(tickMsg)
	if !ok {
		t.Fatalf("expected tickMsg")
	}
	if msg.gen != 7 {
		t.Fatalf("expected generation 7, got %d", msg.gen)
	}
	if offset := msg.at.Sub(msg.at.Truncate(time.Second)); offset > 500*time.Millisecond {
		t.Fatalf("tick fired %s after the second boundary", offset)
	}
}
