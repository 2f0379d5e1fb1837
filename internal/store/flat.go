package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/verte-zerg/studyfocus/internal/model"
)

const (
	historyFile  = "history.jsonl"
	settingsFile = "settings.json"
)

// FlatStore is the fallback persistence path: an append-only JSON-lines
// history file and a single settings document.
type FlatStore struct {
	dir    string
	logger hclog.Logger
}

// OpenFlat prepares dir for the flat store.
func OpenFlat(dir string, logger hclog.Logger) (*FlatStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FlatStore{dir: dir, logger: logger.Named("flat")}, nil
}

// Close is a no-op; files are opened per operation.
func (f *FlatStore) Close() error {
	return nil
}

// PutSession appends rec to the history file.
func (f *FlatStore) PutSession(_ context.Context, rec model.SessionRecord) error {
	rec.Date = normalizeDate(rec.Date)
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	file, err := os.OpenFile(f.path(historyFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(raw, '\n')); err != nil {
		if cerr := file.Close(); cerr != nil {
			_ = cerr
		}
		return err
	}
	return file.Close()
}

// AllSessions returns every readable session ordered by date. A later line
// with the same date replaces an earlier one; corrupt lines are skipped.
func (f *FlatStore) AllSessions(_ context.Context) ([]model.SessionRecord, error) {
	raw, err := os.ReadFile(f.path(historyFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]model.SessionRecord)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec model.SessionRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			f.logger.Warn("skipping malformed history line", "line", line, "error", err)
			continue
		}
		rec.Date = normalizeDate(rec.Date)
		byDate[formatDate(rec.Date)] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sessions := make([]model.SessionRecord, 0, len(byDate))
	for _, rec := range byDate {
		sessions = append(sessions, rec)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date.Before(sessions[j].Date)
	})
	return sessions, nil
}

// SessionsByRange returns sessions with start <= date <= end.
func (f *FlatStore) SessionsByRange(ctx context.Context, start, end time.Time) ([]model.SessionRecord, error) {
	all, err := f.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.SessionRecord
	for _, rec := range all {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// SessionsByHour returns sessions recorded at the given hour of day.
func (f *FlatStore) SessionsByHour(ctx context.Context, hour int) ([]model.SessionRecord, error) {
	all, err := f.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.SessionRecord
	for _, rec := range all {
		if rec.TimeOfDayHour == hour {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetSetting decodes the value stored under key into dst.
func (f *FlatStore) GetSetting(_ context.Context, key string, dst any) (bool, error) {
	settings, err := f.readSettings()
	if err != nil {
		return false, err
	}
	raw, ok := settings[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &MalformedError{Key: key, Err: err}
	}
	return true, nil
}

// PutSetting stores value under key, rewriting the settings document.
func (f *FlatStore) PutSetting(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %q: %w", key, err)
	}
	settings, err := f.readSettings()
	if err != nil {
		var malformed *MalformedError
		if !errors.As(err, &malformed) {
			return err
		}
		f.logger.Warn("discarding malformed settings file", "error", err)
		settings = make(map[string]json.RawMessage)
	}
	settings[key] = raw
	return f.writeSettings(settings)
}

// Clear removes the history and settings files.
func (f *FlatStore) Clear(_ context.Context) error {
	for _, name := range []string{historyFile, settingsFile} {
		if err := os.Remove(f.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (f *FlatStore) readSettings() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(f.path(settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}
	settings := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, &MalformedError{Key: settingsFile, Err: err}
	}
	return settings, nil
}

func (f *FlatStore) writeSettings(settings map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path(settingsFile + ".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(settingsFile))
}

func (f *FlatStore) path(name string) string {
	return filepath.Join(f.dir, name)
}
