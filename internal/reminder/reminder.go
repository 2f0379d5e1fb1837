// Package reminder schedules study reminders with cron.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	rcron "github.com/robfig/cron/v3"

	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
)

const stopTimeout = 5 * time.Second

// ErrNoBestTime is returned when no schedule is configured and history has
// no best study time to derive one from.
var ErrNoBestTime = errors.New("no best study time yet")

var parser = rcron.NewParser(rcron.Second | rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow)

// Reminder is delivered to the notify callback when a job fires.
type Reminder struct {
	Message string
	FiredAt time.Time
}

// Plan resolves the cron expression and message to use. A configured
// schedule wins; otherwise the job fires daily at the start of the best
// study time over days.
func Plan(ctx context.Context, src stats.SessionSource, now time.Time, days int, configured string) (string, string, error) {
	if configured != "" {
		if _, err := parser.Parse(configured); err != nil {
			return "", "", fmt.Errorf("invalid reminder schedule %q: %w", configured, err)
		}
		return configured, "Time to study.", nil
	}
	report, err := stats.BuildReport(ctx, src, model.StatsConfig{Days: days, Now: now})
	if err != nil {
		return "", "", fmt.Errorf("failed to load history: %w", err)
	}
	label := report.Summary.BestStudyTime
	hour, ok := stats.ParseTimeLabel(label)
	if !ok {
		return "", "", ErrNoBestTime
	}
	return fmt.Sprintf("0 0 %d * * *", hour), fmt.Sprintf("Your focus peaks at %s. Time to study.", label), nil
}

// Service runs reminder jobs.
type Service struct {
	cron   *rcron.Cron
	logger hclog.Logger
	notify func(Reminder)

	mu      sync.Mutex
	entries []rcron.EntryID
}

// New builds a Service. notify is called from the cron goroutine.
func New(logger hclog.Logger, notify func(Reminder)) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		cron:   rcron.New(rcron.WithParser(parser)),
		logger: logger.Named("reminder"),
		notify: notify,
	}
}

// Add registers a job firing on expr with message.
func (s *Service) Add(expr, message string) error {
	id, err := s.cron.AddFunc(expr, func() {
		s.logger.Debug("reminder fired", "schedule", expr)
		if s.notify != nil {
			s.notify(Reminder{Message: message, FiredAt: time.Now()})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register reminder %q: %w", expr, err)
	}
	s.mu.Lock()
	s.entries = append(s.entries, id)
	s.mu.Unlock()
	s.logger.Info("reminder registered", "schedule", expr)
	return nil
}

// Next returns the next fire time of every registered job.
func (s *Service) Next() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, 0, len(s.entries))
	for _, id := range s.entries {
		out = append(out, s.cron.Entry(id).Next)
	}
	return out
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		s.logger.Warn("stop timeout waiting for running reminders")
	}
	s.logger.Info("reminders stopped")
	return nil
}
