// Package model defines shared data structures.
package model

import "time"

// Config defines timer settings.
type Config struct {
	DurationSeconds int
	Visibility      bool
	Interaction     bool
	Environment     []string
	Notes           string
}

// StatsConfig defines the window and options for stats output.
type StatsConfig struct {
	Days int
	Now  time.Time
}

// EventType identifies the signal source of a focus event.
type EventType string

const (
	EventVisibility EventType = "visibility"
	EventTouch      EventType = "touch"
	EventTimer      EventType = "timer"
)

// FocusEvent is a single timestamped attentiveness observation.
type FocusEvent struct {
	Timestamp int64     `json:"timestamp"`
	IsFocused bool      `json:"isFocused"`
	EventType EventType `json:"eventType"`
}

// SessionMetadata holds optional context recorded with a session.
type SessionMetadata struct {
	Distractions  []string `json:"distractions,omitempty" yaml:"distractions,omitempty"`
	Environment   []string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Notes         string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	FocusEvents   int      `json:"focusEvents,omitempty" yaml:"focusEvents,omitempty"`
	UnfocusEvents int      `json:"unfocusEvents,omitempty" yaml:"unfocusEvents,omitempty"`
}

// SessionRecord captures a finished study session. DurationSeconds is
// accumulated active time, not the configured countdown length.
type SessionRecord struct {
	Date                  time.Time        `json:"date" yaml:"date"`
	DurationSeconds       float64          `json:"durationSeconds" yaml:"durationSeconds"`
	FocusRate             int              `json:"focusRate" yaml:"focusRate"`
	TimeOfDayHour         int              `json:"timeOfDayHour" yaml:"timeOfDayHour"`
	CompletedSuccessfully bool             `json:"completedSuccessfully" yaml:"completedSuccessfully"`
	Metadata              *SessionMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// WeekComparison holds percentage changes between the last 7 days and the 7 days before.
type WeekComparison struct {
	StudyTimeChange    float64 `json:"studyTimeChange" yaml:"studyTimeChange"`
	FocusRateChange    float64 `json:"focusRateChange" yaml:"focusRateChange"`
	SessionCountChange float64 `json:"sessionCountChange" yaml:"sessionCountChange"`
}

// StatsSummary is a derived aggregate over a window of sessions.
type StatsSummary struct {
	TotalSessions           int            `json:"totalSessions" yaml:"totalSessions"`
	TotalStudyTime          float64        `json:"totalStudyTime" yaml:"totalStudyTime"`
	AverageFocusRate        int            `json:"averageFocusRate" yaml:"averageFocusRate"`
	AverageSessionDuration  float64        `json:"averageSessionDuration" yaml:"averageSessionDuration"`
	CompletionRate          int            `json:"completionRate" yaml:"completionRate"`
	BestStudyDay            string         `json:"bestStudyDay" yaml:"bestStudyDay"`
	BestStudyTime           string         `json:"bestStudyTime" yaml:"bestStudyTime"`
	MostProductiveTimeOfDay string         `json:"mostProductiveTimeOfDay" yaml:"mostProductiveTimeOfDay"`
	StudyStreak             int            `json:"studyStreak" yaml:"studyStreak"`
	LastWeekComparison      WeekComparison `json:"lastWeekComparison" yaml:"lastWeekComparison"`
	FocusRateReason         string         `json:"focusRateReason" yaml:"focusRateReason"`
	FocusIssues             []string       `json:"focusIssues" yaml:"focusIssues"`
}

// FeedbackType classifies a feedback item.
type FeedbackType string

const (
	FeedbackPositive   FeedbackType = "positive"
	FeedbackSuggestion FeedbackType = "suggestion"
	FeedbackWarning    FeedbackType = "warning"
)

// FeedbackItem is a single human-readable recommendation.
type FeedbackItem struct {
	Type       FeedbackType `json:"type"`
	Message    string       `json:"message"`
	Actionable bool         `json:"actionable"`
	Action     string       `json:"action,omitempty"`
}

// Phase is the lifecycle phase of a session attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecommending
	PhaseRunning
	PhasePaused
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecommending:
		return "recommending"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// TimerState is the read model exposed to the presentation layer.
type TimerState struct {
	RemainingSeconds int
	Phase            Phase
	FocusRate        int
}
