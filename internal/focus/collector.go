// Package focus infers attentiveness from interaction signals.
package focus

import (
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

const (
	// InteractionWindow is the maximum gap between interactions that still counts as focused.
	InteractionWindow = 10 * time.Second
	// ProbeInterval is the period of the idle probe.
	ProbeInterval = 30 * time.Second
)

// Capabilities describes which signal sources the host can observe.
// A missing source degrades to "always focused" for that signal.
type Capabilities struct {
	Visibility  bool
	Interaction bool
}

// Collector normalizes visibility, interaction and probe signals into an
// ordered event log. One Collector belongs to exactly one session attempt.
type Collector struct {
	caps   Capabilities
	events []model.FocusEvent

	visible              bool
	lastVisibilityChange time.Time
	lastInteraction      time.Time

	inactiveProbes int
	tabSwitches    int
}

// NewCollector returns a Collector for a session starting at now.
func NewCollector(now time.Time, caps Capabilities) *Collector {
	return &Collector{
		caps:                 caps,
		visible:              true,
		lastVisibilityChange: now,
		lastInteraction:      now,
	}
}

// Visibility records a visibility transition.
func (c *Collector) Visibility(now time.Time, visible bool) (model.FocusEvent, bool) {
	if !c.caps.Visibility {
		return model.FocusEvent{}, false
	}
	c.lastVisibilityChange = now
	if !visible && c.visible {
		c.tabSwitches++
	}
	c.visible = visible
	return c.append(now, visible, model.EventVisibility), true
}

// Interaction records a pointer, touch or key interaction.
func (c *Collector) Interaction(now time.Time) (model.FocusEvent, bool) {
	if !c.caps.Interaction {
		return model.FocusEvent{}, false
	}
	focused := now.Sub(c.lastInteraction) < InteractionWindow
	c.lastInteraction = now
	return c.append(now, focused, model.EventTouch), true
}

// Probe records a periodic idle probe.
func (c *Collector) Probe(now time.Time) model.FocusEvent {
	recent := !c.caps.Interaction ||
		now.Sub(c.lastInteraction) < ProbeInterval ||
		now.Sub(c.lastVisibilityChange) < ProbeInterval
	focused := c.visible && recent
	if focused {
		c.inactiveProbes = 0
	} else {
		c.inactiveProbes++
	}
	return c.append(now, focused, model.EventTimer)
}

// Events returns a copy of the event log, oldest first.
func (c *Collector) Events() []model.FocusEvent {
	out := make([]model.FocusEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of recorded events.
func (c *Collector) Len() int {
	return len(c.events)
}

// TabSwitches returns how many times the session became hidden.
func (c *Collector) TabSwitches() int {
	return c.tabSwitches
}

// InactiveProbes returns the number of consecutive unfocused probes.
func (c *Collector) InactiveProbes() int {
	return c.inactiveProbes
}

// Counts returns the number of focused and unfocused events.
func (c *Collector) Counts() (focused, unfocused int) {
	for _, ev := range c.events {
		if ev.IsFocused {
			focused++
		} else {
			unfocused++
		}
	}
	return focused, unfocused
}

func (c *Collector) append(now time.Time, focused bool, kind model.EventType) model.FocusEvent {
	ev := model.FocusEvent{
		Timestamp: now.UnixMilli(),
		IsFocused: focused,
		EventType: kind,
	}
	c.events = append(c.events, ev)
	return ev
}
