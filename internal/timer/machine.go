// Package timer implements the study session lifecycle.
package timer

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/studyfocus/internal/focus"
	"github.com/verte-zerg/studyfocus/internal/model"
)

const (
	// DefaultDuration is the countdown length when nothing else is configured.
	DefaultDuration = 1500
	// RecommendationThreshold is the minimum difference, in seconds, that
	// makes a recommendation worth asking about.
	RecommendationThreshold = 300
	// MinAbandonedSeconds is the active time below which an abandoned
	// session is not recorded.
	MinAbandonedSeconds = 60

	digitalDistraction = "digital"
	tabSwitchLimit     = 3
)

// ErrInvalidTransition is returned for requests the current phase does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// Machine is the single source of truth for one session attempt at a time.
// It performs no I/O and never reads the clock; every call carries now.
type Machine struct {
	cfg model.Config

	phase       model.Phase
	remaining   int
	recommended int
	focusRate   int

	startedAt     time.Time
	activeSeconds float64

	monitor *focus.Monitor
}

// New returns an idle Machine.
func New(cfg model.Config) *Machine {
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = DefaultDuration
	}
	return &Machine{
		cfg:       cfg,
		phase:     model.PhaseIdle,
		remaining: cfg.DurationSeconds,
		focusRate: 100,
	}
}

// State returns the current read model.
func (m *Machine) State() model.TimerState {
	rate := m.focusRate
	if m.monitor != nil {
		rate = m.monitor.Score()
	}
	return model.TimerState{
		RemainingSeconds: m.remaining,
		Phase:            m.phase,
		FocusRate:        rate,
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() model.Phase {
	return m.phase
}

// DefaultSeconds returns the configured countdown length.
func (m *Machine) DefaultSeconds() int {
	return m.cfg.DurationSeconds
}

// Recommended returns the duration offered in the Recommending phase.
func (m *Machine) Recommended() int {
	return m.recommended
}

// ActiveSeconds returns accumulated active time, including the open interval.
func (m *Machine) ActiveSeconds(now time.Time) float64 {
	total := m.activeSeconds
	if !m.startedAt.IsZero() {
		total += now.Sub(m.startedAt).Seconds()
	}
	return total
}

// Start handles a start request. A fresh attempt begins after Completed.
func (m *Machine) Start() error {
	if m.phase == model.PhaseCompleted {
		m.clear()
	}
	if m.phase != model.PhaseIdle {
		return fmt.Errorf("start from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.phase = model.PhaseRecommending
	return nil
}

// Offer applies a recommended duration. If it differs from the default by
// less than RecommendationThreshold the session starts with the default and
// Offer returns true; otherwise the machine waits for Choose.
func (m *Machine) Offer(now time.Time, recommended int) (bool, error) {
	if m.phase != model.PhaseRecommending {
		return false, fmt.Errorf("offer from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.recommended = recommended
	diff := recommended - m.cfg.DurationSeconds
	if diff < 0 {
		diff = -diff
	}
	if diff >= RecommendationThreshold {
		return false, nil
	}
	m.run(now, m.cfg.DurationSeconds)
	return true, nil
}

// Choose starts the session with the recommended or the default duration.
func (m *Machine) Choose(now time.Time, useRecommended bool) error {
	if m.phase != model.PhaseRecommending {
		return fmt.Errorf("choose from %s: %w", m.phase, ErrInvalidTransition)
	}
	duration := m.cfg.DurationSeconds
	if useRecommended && m.recommended > 0 {
		duration = m.recommended
	}
	m.run(now, duration)
	return nil
}

func (m *Machine) run(now time.Time, duration int) {
	m.remaining = duration
	m.startedAt = now
	m.activeSeconds = 0
	m.monitor = focus.NewMonitor(now, focus.Capabilities{
		Visibility:  m.cfg.Visibility,
		Interaction: m.cfg.Interaction,
	})
	m.phase = model.PhaseRunning
}

// Pause stops the countdown and banks the open active interval.
func (m *Machine) Pause(now time.Time) error {
	if m.phase != model.PhaseRunning {
		return fmt.Errorf("pause from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.flush(now)
	m.phase = model.PhasePaused
	return nil
}

// Resume restarts the countdown.
func (m *Machine) Resume(now time.Time) error {
	if m.phase != model.PhasePaused {
		return fmt.Errorf("resume from %s: %w", m.phase, ErrInvalidTransition)
	}
	m.startedAt = now
	m.phase = model.PhaseRunning
	return nil
}

// Reset abandons the attempt without producing a record.
func (m *Machine) Reset() {
	m.clear()
}

func (m *Machine) clear() {
	m.phase = model.PhaseIdle
	m.remaining = m.cfg.DurationSeconds
	m.recommended = 0
	m.focusRate = 100
	m.startedAt = time.Time{}
	m.activeSeconds = 0
	m.monitor = nil
}

// Tick advances the countdown by one second. It returns the finished record
// when the countdown reaches zero.
func (m *Machine) Tick(now time.Time) *model.SessionRecord {
	if m.phase != model.PhaseRunning {
		return nil
	}
	m.remaining--
	if m.remaining > 0 {
		return nil
	}
	m.remaining = 0
	m.flush(now)
	rec := m.record(now, true)
	m.focusRate = rec.FocusRate
	m.phase = model.PhaseCompleted
	m.monitor = nil
	return &rec
}

// Abandon ends a running or paused session early. A record with
// CompletedSuccessfully=false is returned when enough active time was spent.
func (m *Machine) Abandon(now time.Time) *model.SessionRecord {
	if m.phase != model.PhaseRunning && m.phase != model.PhasePaused {
		m.clear()
		return nil
	}
	m.flush(now)
	var rec *model.SessionRecord
	if m.activeSeconds >= MinAbandonedSeconds {
		r := m.record(now, false)
		rec = &r
	}
	m.clear()
	return rec
}

// Visibility forwards a visibility transition while running.
func (m *Machine) Visibility(now time.Time, visible bool) (focus.Assessment, bool) {
	if m.phase != model.PhaseRunning {
		return focus.Assessment{}, false
	}
	return m.monitor.Visibility(now, visible), true
}

// Interaction forwards an interaction while running.
func (m *Machine) Interaction(now time.Time) (focus.Assessment, bool) {
	if m.phase != model.PhaseRunning {
		return focus.Assessment{}, false
	}
	return m.monitor.Interaction(now), true
}

// Probe forwards a periodic probe while running.
func (m *Machine) Probe(now time.Time) (focus.Assessment, bool) {
	if m.phase != model.PhaseRunning {
		return focus.Assessment{}, false
	}
	return m.monitor.Probe(now), true
}

func (m *Machine) flush(now time.Time) {
	if m.startedAt.IsZero() {
		return
	}
	m.activeSeconds += now.Sub(m.startedAt).Seconds()
	m.startedAt = time.Time{}
}

func (m *Machine) record(now time.Time, completed bool) model.SessionRecord {
	rec := model.SessionRecord{
		Date:                  now.UTC().Truncate(time.Millisecond),
		DurationSeconds:       m.activeSeconds,
		FocusRate:             100,
		TimeOfDayHour:         now.Hour(),
		CompletedSuccessfully: completed,
	}
	meta := &model.SessionMetadata{
		Environment: append([]string(nil), m.cfg.Environment...),
		Notes:       m.cfg.Notes,
	}
	if m.monitor != nil {
		rec.FocusRate = m.monitor.Score()
		c := m.monitor.Collector()
		meta.FocusEvents, meta.UnfocusEvents = c.Counts()
		if c.TabSwitches() > tabSwitchLimit {
			meta.Distractions = []string{digitalDistraction}
		}
	}
	if len(meta.Environment) == 0 {
		meta.Environment = nil
	}
	rec.Metadata = meta
	return rec
}
