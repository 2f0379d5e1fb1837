package focus

import "time"

// Alert is raised when focus declines or falls below the low-score threshold.
type Alert struct {
	Score     int
	Category  Category
	Reason    string
	Tip       string
	RaisedAt  time.Time
	ExpiresAt time.Time
}

// Active reports whether the alert should still be displayed at now.
func (a *Alert) Active(now time.Time) bool {
	return a != nil && now.Before(a.ExpiresAt)
}

// Assessment is the result of observing one event.
type Assessment struct {
	Score int
	Alert *Alert
}

// Monitor owns the collector for one session and re-scores on every event.
type Monitor struct {
	collector *Collector
	startedAt time.Time
	lastScore int
	lastAlert time.Time
}

// NewMonitor starts monitoring a session at now.
func NewMonitor(now time.Time, caps Capabilities) *Monitor {
	return &Monitor{
		collector: NewCollector(now, caps),
		startedAt: now,
		lastScore: 100,
	}
}

// Visibility feeds a visibility transition.
func (m *Monitor) Visibility(now time.Time, visible bool) Assessment {
	if _, ok := m.collector.Visibility(now, visible); !ok {
		return Assessment{Score: m.lastScore}
	}
	return m.evaluate(now)
}

// Interaction feeds a user interaction.
func (m *Monitor) Interaction(now time.Time) Assessment {
	if _, ok := m.collector.Interaction(now); !ok {
		return Assessment{Score: m.lastScore}
	}
	return m.evaluate(now)
}

// Probe feeds a periodic idle probe.
func (m *Monitor) Probe(now time.Time) Assessment {
	m.collector.Probe(now)
	return m.evaluate(now)
}

// Score returns the most recently computed score.
func (m *Monitor) Score() int {
	return m.lastScore
}

// Collector exposes the underlying collector.
func (m *Monitor) Collector() *Collector {
	return m.collector
}

func (m *Monitor) evaluate(now time.Time) Assessment {
	events := m.collector.events
	score := Score(events)
	previous := m.lastScore
	m.lastScore = score

	flagged := Declining(events) || previous-score >= scoreDropThreshold || score < lowScoreThreshold
	if !flagged {
		return Assessment{Score: score}
	}
	if !m.lastAlert.IsZero() && now.Sub(m.lastAlert) < AlertCooldown {
		return Assessment{Score: score}
	}
	category := Attribute(Signals{
		TabSwitches:    m.collector.TabSwitches(),
		InactiveProbes: m.collector.InactiveProbes(),
		Elapsed:        now.Sub(m.startedAt),
		LastScore:      previous,
		Score:          score,
	})
	m.lastAlert = now
	return Assessment{
		Score: score,
		Alert: &Alert{
			Score:     score,
			Category:  category,
			Reason:    category.Reason(),
			Tip:       category.Tip(),
			RaisedAt:  now,
			ExpiresAt: now.Add(AlertCooldown),
		},
	}
}
