// Package tui provides the Bubble Tea study timer interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/verte-zerg/studyfocus/internal/focus"
	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/recommend"
	"github.com/verte-zerg/studyfocus/internal/stats"
	"github.com/verte-zerg/studyfocus/internal/timer"
)

const (
	tickInterval = time.Second
	storeTimeout = 5 * time.Second
	barWidth     = 40
)

// Store is the persistence the timer UI needs.
type Store interface {
	recommend.History
	stats.CacheStore
	PutSession(ctx context.Context, rec model.SessionRecord) error
}

type (
	tickMsg struct {
		gen int
		at  time.Time
	}
	probeMsg struct {
		gen int
		at  time.Time
	}
	alertExpiredMsg struct {
		raisedAt time.Time
	}
	recommendationMsg struct {
		seconds int
		err     error
	}
	todayMsg struct {
		today stats.TodayStats
		err   error
	}
	savedMsg struct {
		rec   model.SessionRecord
		today stats.TodayStats
		err   error
	}
)

type keyMap struct {
	Start  key.Binding
	Pause  key.Binding
	Reset  key.Binding
	Accept key.Binding
	Reject key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Start:  key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "start")),
	Pause:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause/resume")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Accept: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "use recommendation")),
	Reject: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "keep default")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model implements the Bubble Tea timer UI. All timer state lives in the
// machine; the model only schedules ticks and performs I/O.
type Model struct {
	machine *timer.Machine
	store   Store
	logger  hclog.Logger
	now     func() time.Time

	width  int
	height int

	// gen invalidates scheduled ticks and probes when the session leaves Running.
	gen   int
	alert *focus.Alert
	bar   progress.Model

	today    stats.TodayStats
	hasToday bool
	status   string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	clockStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	dialogStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C89A3A")).Padding(0, 1)
	alertStyle  = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("#FF4D4F")).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a timer TUI model.
func NewModel(cfg model.Config, store Store, logger hclog.Logger) *Model {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = barWidth
	return &Model{
		machine: timer.New(cfg),
		store:   store,
		logger:  logger.Named("tui"),
		now:     time.Now,
		bar:     bar,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadToday()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(barWidth, max(10, msg.Width-10))
		return m, nil
	case tea.FocusMsg:
		return m, m.assess(m.machine.Visibility(m.now(), true))
	case tea.BlurMsg:
		return m, m.assess(m.machine.Visibility(m.now(), false))
	case tea.MouseMsg:
		return m, m.assess(m.machine.Interaction(m.now()))
	case tea.KeyMsg:
		interaction := m.assess(m.machine.Interaction(m.now()))
		return m, tea.Batch(interaction, m.handleKey(msg))
	case tickMsg:
		return m, m.handleTick(msg)
	case probeMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		assessment, ok := m.machine.Probe(msg.at)
		if !ok {
			return m, nil
		}
		return m, tea.Batch(m.assess(assessment, true), m.scheduleProbe())
	case alertExpiredMsg:
		if m.alert != nil && m.alert.RaisedAt.Equal(msg.raisedAt) {
			m.alert = nil
		}
		return m, nil
	case recommendationMsg:
		return m, m.handleRecommendation(msg)
	case todayMsg:
		if msg.err != nil {
			m.logger.Warn("failed to load today stats", "error", msg.err)
			return m, nil
		}
		m.today = msg.today
		m.hasToday = true
		return m, nil
	case savedMsg:
		m.handleSaved(msg)
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	now := m.now()
	switch {
	case key.Matches(msg, keys.Quit):
		if rec := m.machine.Abandon(now); rec != nil {
			m.gen++
			return tea.Sequence(m.persist(*rec), tea.Quit)
		}
		return tea.Quit
	case key.Matches(msg, keys.Start):
		phase := m.machine.Phase()
		if phase != model.PhaseIdle && phase != model.PhaseCompleted {
			return nil
		}
		if err := m.machine.Start(); err != nil {
			m.logger.Debug("start rejected", "error", err)
			return nil
		}
		m.status = ""
		return m.recommend()
	case key.Matches(msg, keys.Accept), key.Matches(msg, keys.Reject):
		if err := m.machine.Choose(now, key.Matches(msg, keys.Accept)); err != nil {
			m.logger.Debug("choice rejected", "error", err)
			return nil
		}
		return m.startTimers()
	case key.Matches(msg, keys.Pause):
		switch m.machine.Phase() {
		case model.PhaseRunning:
			if err := m.machine.Pause(now); err != nil {
				m.logger.Debug("pause rejected", "error", err)
				return nil
			}
			m.gen++
			return nil
		case model.PhasePaused:
			if err := m.machine.Resume(now); err != nil {
				m.logger.Debug("resume rejected", "error", err)
				return nil
			}
			return m.startTimers()
		}
		return nil
	case key.Matches(msg, keys.Reset):
		m.machine.Reset()
		m.gen++
		m.alert = nil
		m.status = "Session discarded."
		return nil
	}
	return nil
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	rec := m.machine.Tick(msg.at)
	if rec == nil {
		if m.machine.Phase() != model.PhaseRunning {
			return nil
		}
		return m.scheduleTick()
	}
	m.gen++
	m.alert = nil
	m.status = fmt.Sprintf("Session complete. Focus %d%%.", rec.FocusRate)
	return m.persist(*rec)
}

func (m *Model) handleRecommendation(msg recommendationMsg) tea.Cmd {
	seconds := msg.seconds
	if msg.err != nil {
		m.logger.Warn("recommendation unavailable, using default", "error", msg.err)
		seconds = m.machine.DefaultSeconds()
	}
	started, err := m.machine.Offer(m.now(), seconds)
	if err != nil {
		m.logger.Debug("stale recommendation", "error", err)
		return nil
	}
	if !started {
		return nil
	}
	return m.startTimers()
}

func (m *Model) handleSaved(msg savedMsg) {
	if msg.err != nil {
		m.logger.Error("failed to save session", "date", msg.rec.Date, "error", msg.err)
		m.status = "Session could not be saved."
		return
	}
	m.logger.Info("session saved", "date", msg.rec.Date, "duration", msg.rec.DurationSeconds, "focus", msg.rec.FocusRate, "completed", msg.rec.CompletedSuccessfully)
	m.today = msg.today
	m.hasToday = true
}

// startTimers begins a fresh tick and probe generation.
func (m *Model) startTimers() tea.Cmd {
	m.gen++
	return tea.Batch(m.scheduleTick(), m.scheduleProbe())
}

// scheduleTick fires on the next whole second of the wall clock so handling
// latency does not accumulate across ticks.
func (m *Model) scheduleTick() tea.Cmd {
	gen := m.gen
	return tea.Every(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg{gen: gen, at: t}
	})
}

func (m *Model) scheduleProbe() tea.Cmd {
	gen := m.gen
	return tea.Tick(focus.ProbeInterval, func(t time.Time) tea.Msg {
		return probeMsg{gen: gen, at: t}
	})
}

func (m *Model) assess(a focus.Assessment, ok bool) tea.Cmd {
	if !ok || a.Alert == nil {
		return nil
	}
	m.alert = a.Alert
	raisedAt := a.Alert.RaisedAt
	return tea.Tick(a.Alert.ExpiresAt.Sub(m.now()), func(time.Time) tea.Msg {
		return alertExpiredMsg{raisedAt: raisedAt}
	})
}

func (m *Model) recommend() tea.Cmd {
	st := m.store
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		seconds, err := recommend.FromHistory(ctx, st, now)
		return recommendationMsg{seconds: seconds, err: err}
	}
}

func (m *Model) loadToday() tea.Cmd {
	st := m.store
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		today, err := stats.LoadToday(ctx, st, now)
		return todayMsg{today: today, err: err}
	}
}

// persist writes rec and refreshes the cached summaries. A failed cache
// refresh is logged; only a failed session write is reported.
func (m *Model) persist(rec model.SessionRecord) tea.Cmd {
	st := m.store
	logger := m.logger
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.PutSession(ctx, rec); err != nil {
			return savedMsg{rec: rec, err: err}
		}
		today, err := stats.RefreshCache(ctx, st, now)
		if err != nil {
			logger.Warn("failed to refresh cached stats", "error", err)
		}
		return savedMsg{rec: rec, today: today}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	now := m.now()
	state := m.machine.State()
	sections := []string{
		titleStyle.Render("studyfocus"),
		"",
		clockStyle.Render(formatClock(state.RemainingSeconds)),
		phaseStyle.Render(state.Phase.String()),
		"",
	}
	if state.Phase == model.PhaseRecommending && m.machine.Recommended() > 0 {
		sections = append(sections, m.renderDialog(), "")
	}
	sections = append(sections, m.renderFocus(state))
	if m.alert.Active(now) {
		sections = append(sections, "", m.renderAlert())
	}
	sections = append(sections, "", footerStyle.Render(m.renderHelp(state.Phase)))
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderDialog() string {
	text := fmt.Sprintf("Recommended %s instead of %s. Use it? [y/n]",
		formatClock(m.machine.Recommended()), formatClock(m.machine.DefaultSeconds()))
	return dialogStyle.Render(text)
}

func (m *Model) renderFocus(state model.TimerState) string {
	line := fmt.Sprintf("Focus %3d%% %s", state.FocusRate, m.bar.ViewAs(float64(state.FocusRate)/100))
	if state.Phase != model.PhaseRunning && state.Phase != model.PhaseCompleted {
		return line
	}
	return line + "\n" + phaseStyle.Render(focus.Description(state.FocusRate))
}

func (m *Model) renderAlert() string {
	width := 60
	if m.width > 0 {
		width = min(width, max(20, m.width-6))
	}
	text := fmt.Sprintf("Focus dropped to %d%% (%s)\n%s\n%s", m.alert.Score, m.alert.Category, m.alert.Reason, m.alert.Tip)
	return alertStyle.Width(width).Render(text)
}

func (m *Model) renderHelp(phase model.Phase) string {
	var bindings []key.Binding
	switch phase {
	case model.PhaseIdle, model.PhaseCompleted:
		bindings = []key.Binding{keys.Start, keys.Quit}
	case model.PhaseRecommending:
		bindings = []key.Binding{keys.Accept, keys.Reject, keys.Quit}
	default:
		bindings = []key.Binding{keys.Pause, keys.Reset, keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.hasToday {
		segments = append(segments, fmt.Sprintf("Today %s · focus %d%%", stats.FormatDuration(m.today.TotalStudyTime), m.today.FocusRate))
	}
	if m.status != "" {
		segments = append(segments, m.status)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
