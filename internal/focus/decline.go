package focus

import (
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

const (
	minDeclineEvents   = 10
	declineWindow      = 5
	declineFraction    = 0.20
	unfocusedStreak    = 3
	scoreDropThreshold = 10
	lowScoreThreshold  = 70

	tabSwitchLimit      = 3
	inactiveProbeLimit  = 2
	fatigueAfter        = 45 * time.Minute
	fatigueDropRequired = 15

	// AlertCooldown is how long a raised alert suppresses the next one.
	AlertCooldown = 10 * time.Second
)

// Category is the probable cause of a focus decline.
type Category string

const (
	CategoryDistraction Category = "distraction"
	CategoryInactivity  Category = "inactivity"
	CategoryFatigue     Category = "fatigue"
	CategoryGeneral     Category = "general"
)

type explanation struct {
	reason string
	tip    string
}

var explanations = map[Category]explanation{
	CategoryDistraction: {
		reason: "You are switching to other apps or sites often. Close unneeded tabs while studying.",
		tip:    "Tip: turn off social and messenger notifications while you study.",
	},
	CategoryInactivity: {
		reason: "No activity for a long time. You may be looking at the screen without engaging with it.",
		tip:    "Tip: summarize the material actively as you go.",
	},
	CategoryFatigue: {
		reason: "Fatigue from a long session detected. Take a short break before continuing.",
		tip:    "Tip: try the Pomodoro technique, 25 minutes of study then a 5 minute break.",
	},
	CategoryGeneral: {
		reason: "Your focus is dropping. Take a deep breath and bring your attention back to the material.",
		tip:    "Tip: drink a glass of water and take a few deep breaths.",
	},
}

// Reason returns the fixed explanation for a category.
func (c Category) Reason() string {
	return explanations[c].reason
}

// Tip returns the fixed tip for a category.
func (c Category) Tip() string {
	return explanations[c].tip
}

// Declining reports whether the event log shows a decline pattern: the
// previous five events were focused noticeably more often than the last
// five, or the last three events are all unfocused. Logs shorter than ten
// events never decline.
func Declining(events []model.FocusEvent) bool {
	n := len(events)
	if n < minDeclineEvents {
		return false
	}
	recent := events[n-declineWindow:]
	previous := events[n-2*declineWindow : n-declineWindow]
	if focusedFraction(previous)-focusedFraction(recent) > declineFraction {
		return true
	}
	for _, ev := range events[n-unfocusedStreak:] {
		if ev.IsFocused {
			return false
		}
	}
	return true
}

func focusedFraction(events []model.FocusEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	focused := 0
	for _, ev := range events {
		if ev.IsFocused {
			focused++
		}
	}
	return float64(focused) / float64(len(events))
}

// Signals are the session counters used to attribute a decline.
type Signals struct {
	TabSwitches    int
	InactiveProbes int
	Elapsed        time.Duration
	LastScore      int
	Score          int
}

// Attribute picks the probable cause of a decline, first match wins.
func Attribute(s Signals) Category {
	switch {
	case s.TabSwitches > tabSwitchLimit:
		return CategoryDistraction
	case s.InactiveProbes > inactiveProbeLimit:
		return CategoryInactivity
	case s.Elapsed > fatigueAfter && s.LastScore-s.Score >= fatigueDropRequired:
		return CategoryFatigue
	default:
		return CategoryGeneral
	}
}
