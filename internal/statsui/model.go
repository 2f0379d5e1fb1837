// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/verte-zerg/studyfocus/internal/feedback"
	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
)

const (
	tabOverview = iota
	tabSessions
	tabFeedback
)

const (
	loadTimeout = 5 * time.Second
	maxDays     = 3650
)

// windowPresets are cycled with - and =.
var windowPresets = []int{7, 30, 90}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	positiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	suggestStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type reportMsg struct {
	report stats.Report
	err    error
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	src    stats.SessionSource
	logger hclog.Logger
	cfg    model.StatsConfig

	report stats.Report
	items  []model.FeedbackItem
	loaded bool
	errMsg string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	sessionTable table.Model

	width  int
	height int

	inputMode  bool
	daysInput  textinput.Model
	inputError string
}

// NewModel constructs a stats UI model.
func NewModel(src stats.SessionSource, cfg model.StatsConfig, logger hclog.Logger) *Model {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.Days <= 0 {
		cfg.Days = stats.DefaultDays
	}
	m := &Model{
		src:    src,
		logger: logger.Named("statsui"),
		cfg:    cfg,
		tabs:   []string{"Overview", "Sessions", "Feedback"},
	}
	m.daysInput = newInput("Days: ")
	m.sessionTable = buildSessionTable(nil, 0, 1)
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	return m
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 5
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.load()
}

func (m *Model) load() tea.Cmd {
	src := m.src
	cfg := m.cfg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		report, err := stats.BuildReport(ctx, src, cfg)
		return reportMsg{report: report, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case reportMsg:
		m.applyReport(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.inputMode {
			return m.updateInput(msg)
		}
		if m.activeTab == tabSessions {
			m.sessionTable.Focus()
		} else {
			m.sessionTable.Blur()
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.Days = nextWindow(m.cfg.Days)
			return m, m.load()
		case "-":
			m.cfg.Days = prevWindow(m.cfg.Days)
			return m, m.load()
		case "/":
			m.inputMode = true
			m.inputError = ""
			m.daysInput.SetValue(strconv.Itoa(m.cfg.Days))
			return m, m.daysInput.Focus()
		case "g", "home":
			if m.activeTab == tabSessions {
				m.sessionTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSessions {
				m.sessionTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabSessions {
				var cmd tea.Cmd
				m.sessionTable, cmd = m.sessionTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputMode = false
		m.daysInput.Blur()
		return m, nil
	case tea.KeyEnter:
		days, err := parseDays(m.daysInput.Value())
		if err != nil {
			m.inputError = err.Error()
			return m, nil
		}
		m.inputMode = false
		m.daysInput.Blur()
		m.cfg.Days = days
		return m, m.load()
	}
	var cmd tea.Cmd
	m.daysInput, cmd = m.daysInput.Update(msg)
	return m, cmd
}

func parseDays(value string) (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || days <= 0 || days > maxDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxDays)
	}
	return days, nil
}

func (m *Model) applyReport(msg reportMsg) {
	if msg.err != nil {
		m.logger.Warn("failed to load stats", "days", m.cfg.Days, "error", msg.err)
		m.errMsg = msg.err.Error()
		m.renderTabContents()
		return
	}
	m.errMsg = ""
	m.loaded = true
	m.report = msg.report
	m.items = feedback.Generate(msg.report.Summary)
	_, bodyHeight, _ := m.layoutHeights()
	m.sessionTable = buildSessionTable(m.report.Window(), m.bodyWidth(), bodyHeight)
	m.renderTabContents()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.inputMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) bodyWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.sessionTable.SetWidth(m.width)
	m.sessionTable.SetHeight(max(1, vpHeight-1))
	m.daysInput.Width = max(10, m.width-lipgloss.Width(m.daysInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabSessions {
		m.sessionTable.Focus()
	} else {
		m.sessionTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := fmt.Sprintf("Window: last %d days", m.cfg.Days)
	if !m.report.Now.IsZero() {
		summary += "  as of " + m.report.Now.Format("2006-01-02 15:04")
	}
	return tabs + "\n" + padLines(headerStyle.Render(truncateLine(summary, m.width)), m.width)
}

func (m *Model) renderFooter() string {
	if m.inputMode {
		return headerStyle.Render("enter: apply  esc: cancel  ctrl+c: quit")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Days: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.inputMode {
		lines := []string{"Stats window (enter to apply, esc to cancel)", m.daysInput.View()}
		if m.inputError != "" {
			lines = append(lines, errorStyle.Render(m.inputError))
		}
		return fitLines(strings.Join(lines, "\n"), m.width, height)
	}
	if m.activeTab == tabSessions {
		if len(m.report.Window()) == 0 {
			return fitLines(m.emptyText(), m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.sessionTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) emptyText() string {
	if !m.loaded && m.errMsg == "" {
		return "Loading..."
	}
	return fmt.Sprintf("No sessions in the last %d days.", m.cfg.Days)
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	if !m.loaded {
		for i := range m.viewports {
			m.viewports[i].SetContent("Loading...")
		}
		return
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.bodyWidth()))
	m.viewports[tabFeedback].SetContent(renderFeedback(m.items, m.bodyWidth()))
}

func renderOverview(report stats.Report, width int) string {
	summary := report.Summary
	if summary.TotalSessions == 0 {
		return fmt.Sprintf("No sessions in the last %d days.", report.Days)
	}
	cards := []string{
		metricCard("Sessions", strconv.Itoa(summary.TotalSessions)),
		metricCard("Study time", stats.FormatDuration(summary.TotalStudyTime)),
		metricCard("Avg focus", fmt.Sprintf("%d%%", summary.AverageFocusRate)),
		metricCard("Completion", fmt.Sprintf("%d%%", summary.CompletionRate)),
		metricCard("Streak", fmt.Sprintf("%d days", summary.StudyStreak)),
	}
	var grid string
	if width < 80 {
		grid = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		grid = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	patterns := []string{
		fmt.Sprintf("Best day: %s", orDash(summary.BestStudyDay)),
		fmt.Sprintf("Best time: %s", orDash(summary.BestStudyTime)),
		fmt.Sprintf("Most active: %s", orDash(summary.MostProductiveTimeOfDay)),
		fmt.Sprintf("Avg session: %s", stats.FormatDuration(summary.AverageSessionDuration)),
	}
	var buf bytes.Buffer
	if err := stats.RenderFocus(&buf, summary); err != nil {
		return fmt.Sprintf("Failed to render focus: %v", err)
	}
	if err := stats.RenderTrend(&buf, report.Records, report.Now, report.Days, width); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	focusText := lipgloss.NewStyle().Width(max(20, width-2)).Render(strings.TrimRight(buf.String(), "\n"))
	return strings.Join([]string{grid, "", strings.Join(patterns, "   "), "", focusText}, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderFeedback(items []model.FeedbackItem, width int) string {
	if len(items) == 0 {
		return "No feedback yet."
	}
	wrap := lipgloss.NewStyle().Width(max(20, width-4))
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		marker := feedbackMarker(item.Type)
		text := wrap.Render(item.Message)
		if item.Actionable && item.Action != "" {
			text += "\n" + headerStyle.Render("-> "+item.Action)
		}
		blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Top, marker, " ", text))
	}
	return strings.Join(blocks, "\n\n")
}

func feedbackMarker(t model.FeedbackType) string {
	switch t {
	case model.FeedbackPositive:
		return positiveStyle.Render("+")
	case model.FeedbackWarning:
		return warningStyle.Render("!")
	default:
		return suggestStyle.Render("?")
	}
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Time", Width: 5},
		{Title: "Duration", Width: 8},
		{Title: "Focus", Width: 5},
		{Title: "Done", Width: 4},
		{Title: "Notes", Width: 24},
	}
}

func buildSessionTable(records []model.SessionRecord, width, height int) table.Model {
	rows := make([]table.Row, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		local := rec.Date.Local()
		done := "no"
		if rec.CompletedSuccessfully {
			done = "yes"
		}
		rows = append(rows, table.Row{
			local.Format("2006-01-02"),
			local.Format("15:04"),
			stats.FormatDuration(rec.DurationSeconds),
			fmt.Sprintf("%d%%", rec.FocusRate),
			done,
			sessionNotes(rec.Metadata),
		})
	}
	t := table.New(
		table.WithColumns(sessionColumns()),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(sessionTableStyles())
	return t
}

func sessionNotes(meta *model.SessionMetadata) string {
	if meta == nil {
		return ""
	}
	parts := append([]string{}, meta.Distractions...)
	parts = append(parts, meta.Environment...)
	if meta.Notes != "" {
		parts = append(parts, meta.Notes)
	}
	return strings.Join(parts, ", ")
}

func sessionTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func nextWindow(days int) int {
	for _, preset := range windowPresets {
		if preset > days {
			return preset
		}
	}
	return windowPresets[len(windowPresets)-1]
}

func prevWindow(days int) int {
	for i := len(windowPresets) - 1; i >= 0; i-- {
		if windowPresets[i] < days {
			return windowPresets[i]
		}
	}
	return windowPresets[0]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
