package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"
)

func sampleRecord(at time.Time) model.SessionRecord {
	return model.SessionRecord{
		Date:                  at.UTC().Truncate(time.Millisecond),
		DurationSeconds:       1499.25,
		FocusRate:             83,
		TimeOfDayHour:         at.Hour(),
		CompletedSuccessfully: true,
		Metadata: &model.SessionMetadata{
			Distractions:  []string{"digital"},
			Environment:   []string{"noisy"},
			Notes:         "chapter 4",
			FocusEvents:   12,
			UnfocusEvents: 3,
		},
	}
}

func assertSameRecord(t *testing.T, got, want model.SessionRecord) {
	t.Helper()
	if !got.Date.Equal(want.Date) {
		t.Fatalf("date mismatch: got %s want %s", got.Date, want.Date)
	}
	got.Date, want.Date = time.Time{}, time.Time{}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("record mismatch:\n got %+v %+v\nwant %+v %+v", got, got.Metadata, want, want.Metadata)
	}
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "studyfocus.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return st
}

func openFlat(t *testing.T) *FlatStore {
	t.Helper()
	fs, err := OpenFlat(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open flat: %v", err)
	}
	return fs
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 15, 30, 123456789, time.UTC)
	want := sampleRecord(at)
	bare := model.SessionRecord{
		Date:            at.Add(time.Hour).Truncate(time.Millisecond),
		DurationSeconds: 600,
		FocusRate:       55,
		TimeOfDayHour:   11,
	}

	for name, st := range map[string]SessionStore{"sqlite": openSQLite(t), "flat": openFlat(t)} {
		if err := st.PutSession(ctx, want); err != nil {
			t.Fatalf("%s put: %v", name, err)
		}
		if err := st.PutSession(ctx, bare); err != nil {
			t.Fatalf("%s put bare: %v", name, err)
		}
		got, err := st.AllSessions(ctx)
		if err != nil {
			t.Fatalf("%s all: %v", name, err)
		}
		if len(got) != 2 {
			t.Fatalf("%s: expected 2 sessions, got %d", name, len(got))
		}
		assertSameRecord(t, got[0], want)
		assertSameRecord(t, got[1], bare)
	}
}

func TestPutSessionReplacesSameDate(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for name, st := range map[string]SessionStore{"sqlite": openSQLite(t), "flat": openFlat(t)} {
		rec := sampleRecord(at)
		if err := st.PutSession(ctx, rec); err != nil {
			t.Fatalf("%s put: %v", name, err)
		}
		rec.FocusRate = 40
		if err := st.PutSession(ctx, rec); err != nil {
			t.Fatalf("%s put again: %v", name, err)
		}
		got, err := st.AllSessions(ctx)
		if err != nil {
			t.Fatalf("%s all: %v", name, err)
		}
		if len(got) != 1 || got[0].FocusRate != 40 {
			t.Fatalf("%s: expected single replaced record, got %+v", name, got)
		}
	}
}

func TestSubMillisecondDatesMatchAcrossPaths(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 1, 15, 30, 123456789, time.UTC)
	want := time.Date(2026, 3, 2, 1, 15, 30, 123000000, time.UTC)
	rec := model.SessionRecord{Date: at, DurationSeconds: 900, FocusRate: 70, TimeOfDayHour: 1}

	for name, st := range map[string]SessionStore{"sqlite": openSQLite(t), "flat": openFlat(t)} {
		if err := st.PutSession(ctx, rec); err != nil {
			t.Fatalf("%s put: %v", name, err)
		}
		got, err := st.AllSessions(ctx)
		if err != nil || len(got) != 1 {
			t.Fatalf("%s all: %d sessions, err=%v", name, len(got), err)
		}
		if !got[0].Date.Equal(want) {
			t.Fatalf("%s: expected %s, got %s", name, want.Format(time.RFC3339Nano), got[0].Date.Format(time.RFC3339Nano))
		}
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for name, st := range map[string]SessionStore{"sqlite": openSQLite(t), "flat": openFlat(t)} {
		for day := 0; day < 5; day++ {
			rec := sampleRecord(base.AddDate(0, 0, day).Add(time.Duration(day) * time.Hour))
			if err := st.PutSession(ctx, rec); err != nil {
				t.Fatalf("%s put: %v", name, err)
			}
		}
		ranged, err := st.SessionsByRange(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3).Add(3*time.Hour))
		if err != nil {
			t.Fatalf("%s range: %v", name, err)
		}
		if len(ranged) != 3 {
			t.Fatalf("%s: expected 3 sessions in range, got %d", name, len(ranged))
		}
		byHour, err := st.SessionsByHour(ctx, 11)
		if err != nil {
			t.Fatalf("%s by hour: %v", name, err)
		}
		if len(byHour) != 1 || byHour[0].TimeOfDayHour != 11 {
			t.Fatalf("%s: expected one session at hour 11, got %+v", name, byHour)
		}
		if err := st.Clear(ctx); err != nil {
			t.Fatalf("%s clear: %v", name, err)
		}
		all, err := st.AllSessions(ctx)
		if err != nil {
			t.Fatalf("%s all after clear: %v", name, err)
		}
		if len(all) != 0 {
			t.Fatalf("%s: expected empty history after clear, got %d", name, len(all))
		}
	}
}

type todayStats struct {
	TotalStudyTime float64 `json:"totalStudyTime"`
	FocusRate      int     `json:"focusRate"`
	Date           string  `json:"date"`
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	for name, st := range map[string]SessionStore{"sqlite": openSQLite(t), "flat": openFlat(t)} {
		var missing todayStats
		found, err := st.GetSetting(ctx, "todayStats", &missing)
		if err != nil || found {
			t.Fatalf("%s: expected missing setting, found=%v err=%v", name, found, err)
		}
		want := todayStats{TotalStudyTime: 1800, FocusRate: 77, Date: "2026-03-02"}
		if err := st.PutSetting(ctx, "todayStats", want); err != nil {
			t.Fatalf("%s put setting: %v", name, err)
		}
		var got todayStats
		found, err = st.GetSetting(ctx, "todayStats", &got)
		if err != nil || !found {
			t.Fatalf("%s: expected setting, found=%v err=%v", name, found, err)
		}
		if got != want {
			t.Fatalf("%s: setting mismatch: got %+v want %+v", name, got, want)
		}
	}
}

func TestFlatSkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	fs := openFlat(t)
	rec := sampleRecord(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if err := fs.PutSession(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	file, err := os.OpenFile(filepath.Join(fs.dir, historyFile), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	if _, err := file.WriteString("{not json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := fs.AllSessions(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected corrupt line skipped, got %d sessions", len(got))
	}
}

type failingStore struct{}

var errUnavailable = errors.New("unavailable")

func (failingStore) PutSession(context.Context, model.SessionRecord) error { return errUnavailable }
func (failingStore) AllSessions(context.Context) ([]model.SessionRecord, error) {
	return nil, errUnavailable
}
func (failingStore) SessionsByRange(context.Context, time.Time, time.Time) ([]model.SessionRecord, error) {
	return nil, errUnavailable
}
func (failingStore) SessionsByHour(context.Context, int) ([]model.SessionRecord, error) {
	return nil, errUnavailable
}
func (failingStore) GetSetting(context.Context, string, any) (bool, error) {
	return false, errUnavailable
}
func (failingStore) PutSetting(context.Context, string, any) error { return errUnavailable }
func (failingStore) Clear(context.Context) error                   { return errUnavailable }
func (failingStore) Close() error                                  { return nil }

func TestChainFallsBackWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	chain := NewChain(failingStore{}, openFlat(t), nil)
	rec := sampleRecord(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if err := chain.PutSession(ctx, rec); err != nil {
		t.Fatalf("expected fallback write to succeed: %v", err)
	}
	got, err := chain.AllSessions(ctx)
	if err != nil {
		t.Fatalf("expected fallback read to succeed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 session from fallback, got %d", len(got))
	}
	assertSameRecord(t, got[0], rec)

	if err := chain.PutSetting(ctx, "todayStats", todayStats{FocusRate: 90}); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	var ts todayStats
	found, err := chain.GetSetting(ctx, "todayStats", &ts)
	if err != nil || !found || ts.FocusRate != 90 {
		t.Fatalf("expected fallback setting, found=%v err=%v value=%+v", found, err, ts)
	}
}

func TestChainDualWrites(t *testing.T) {
	ctx := context.Background()
	primary := openSQLite(t)
	fallback := openFlat(t)
	chain := NewChain(primary, fallback, nil)
	rec := sampleRecord(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if err := chain.PutSession(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	for name, st := range map[string]SessionStore{"primary": primary, "fallback": fallback} {
		got, err := st.AllSessions(ctx)
		if err != nil || len(got) != 1 {
			t.Fatalf("%s: expected mirrored record, got %d err=%v", name, len(got), err)
		}
	}
}

func TestChainFailsWhenEveryPathFails(t *testing.T) {
	ctx := context.Background()
	chain := NewChain(failingStore{}, failingStore{}, nil)
	if err := chain.PutSession(ctx, sampleRecord(time.Now())); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected combined error, got %v", err)
	}
	if _, err := chain.AllSessions(ctx); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestChainDiscardsMalformedSetting(t *testing.T) {
	ctx := context.Background()
	fallback := openFlat(t)
	if err := os.WriteFile(filepath.Join(fallback.dir, settingsFile), []byte(`{"todayStats": "oops"}`), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	chain := NewChain(nil, fallback, nil)
	var ts todayStats
	found, err := chain.GetSetting(ctx, "todayStats", &ts)
	if err != nil || found {
		t.Fatalf("expected malformed setting to be discarded, found=%v err=%v", found, err)
	}
	if err := chain.PutSetting(ctx, "todayStats", todayStats{FocusRate: 70}); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	found, err = chain.GetSetting(ctx, "todayStats", &ts)
	if err != nil || !found || ts.FocusRate != 70 {
		t.Fatalf("expected repaired setting, found=%v err=%v value=%+v", found, err, ts)
	}
}
