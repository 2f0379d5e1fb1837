package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verte-zerg/studyfocus/internal/model"
)

// Chain presents a primary and a fallback store as one SessionStore.
// Writes go to both paths; reads use the fallback only when the primary
// fails. There are no retries.
type Chain struct {
	primary  SessionStore
	fallback SessionStore
	logger   hclog.Logger
}

// NewChain builds a Chain. primary may be nil when it could not be opened.
func NewChain(primary, fallback SessionStore, logger hclog.Logger) *Chain {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Chain{primary: primary, fallback: fallback, logger: logger.Named("store")}
}

// Close closes both paths.
func (c *Chain) Close() error {
	var errs []error
	for _, s := range c.paths() {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PutSession writes rec to both paths. It fails only when every path fails.
func (c *Chain) PutSession(ctx context.Context, rec model.SessionRecord) error {
	return c.write("put session", func(s SessionStore) error {
		return s.PutSession(ctx, rec)
	})
}

// PutSetting writes value to both paths. It fails only when every path fails.
func (c *Chain) PutSetting(ctx context.Context, key string, value any) error {
	return c.write("put setting "+key, func(s SessionStore) error {
		return s.PutSetting(ctx, key, value)
	})
}

// Clear wipes both paths.
func (c *Chain) Clear(ctx context.Context) error {
	return c.write("clear", func(s SessionStore) error {
		return s.Clear(ctx)
	})
}

// AllSessions reads every session.
func (c *Chain) AllSessions(ctx context.Context) ([]model.SessionRecord, error) {
	return c.readSessions("all sessions", func(s SessionStore) ([]model.SessionRecord, error) {
		return s.AllSessions(ctx)
	})
}

// SessionsByRange reads sessions with start <= date <= end.
func (c *Chain) SessionsByRange(ctx context.Context, start, end time.Time) ([]model.SessionRecord, error) {
	return c.readSessions("sessions by range", func(s SessionStore) ([]model.SessionRecord, error) {
		return s.SessionsByRange(ctx, start, end)
	})
}

// SessionsByHour reads sessions recorded at hour.
func (c *Chain) SessionsByHour(ctx context.Context, hour int) ([]model.SessionRecord, error) {
	return c.readSessions("sessions by hour", func(s SessionStore) ([]model.SessionRecord, error) {
		return s.SessionsByHour(ctx, hour)
	})
}

// GetSetting decodes the value under key into dst. A malformed value is
// discarded and reported as missing so the caller keeps its default.
func (c *Chain) GetSetting(ctx context.Context, key string, dst any) (bool, error) {
	var lastErr error
	for _, s := range c.paths() {
		found, err := s.GetSetting(ctx, key, dst)
		if err == nil {
			return found, nil
		}
		var malformed *MalformedError
		if errors.As(err, &malformed) {
			c.logger.Warn("discarding malformed setting", "key", key, "error", err)
			return false, nil
		}
		c.logger.Warn("setting read failed, trying fallback", "key", key, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		return false, nil
	}
	c.logger.Error("setting read failed on every path", "key", key, "error", lastErr)
	return false, fmt.Errorf("failed to get setting %q: %w", key, lastErr)
}

func (c *Chain) paths() []SessionStore {
	out := make([]SessionStore, 0, 2)
	if c.primary != nil {
		out = append(out, c.primary)
	}
	if c.fallback != nil {
		out = append(out, c.fallback)
	}
	return out
}

func (c *Chain) write(op string, fn func(SessionStore) error) error {
	paths := c.paths()
	var errs []error
	for _, s := range paths {
		if err := fn(s); err != nil {
			c.logger.Warn("write failed", "op", op, "error", err)
			errs = append(errs, err)
		}
	}
	if len(paths) > 0 && len(errs) < len(paths) {
		return nil
	}
	err := errors.Join(errs...)
	if err == nil {
		err = errors.New("no store configured")
	}
	c.logger.Error("write failed on every path", "op", op, "error", err)
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (c *Chain) readSessions(op string, fn func(SessionStore) ([]model.SessionRecord, error)) ([]model.SessionRecord, error) {
	var lastErr error
	for _, s := range c.paths() {
		sessions, err := fn(s)
		if err == nil {
			return sessions, nil
		}
		c.logger.Warn("read failed, trying fallback", "op", op, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		return nil, nil
	}
	c.logger.Error("read failed on every path", "op", op, "error", lastErr)
	return nil, fmt.Errorf("failed to read %s: %w", op, lastErr)
}
