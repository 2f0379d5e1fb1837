package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
)

func sampleReport() stats.Report {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	records := []model.SessionRecord{
		{Date: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), DurationSeconds: 900, FocusRate: 60, TimeOfDayHour: 9},
		{
			Date:                  time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
			DurationSeconds:       1500,
			FocusRate:             88,
			TimeOfDayHour:         10,
			CompletedSuccessfully: true,
			Metadata:              &model.SessionMetadata{Environment: []string{"noisy"}},
		},
	}
	return stats.Report{Days: 7, Now: now, Summary: stats.Summarize(records, now, 7), Records: records}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "json", FromReport(sampleReport())); err != nil {
		t.Fatalf("write: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Sessions) != 1 || doc.Sessions[0].FocusRate != 88 {
		t.Fatalf("expected only the window session, got %+v", doc.Sessions)
	}
	if doc.Summary.TotalSessions != 1 || doc.Days != 7 {
		t.Fatalf("unexpected summary: %+v", doc.Summary)
	}
	if !strings.Contains(buf.String(), `"completedSuccessfully": true`) {
		t.Fatalf("expected camelCase keys, got:\n%s", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "YML", FromReport(sampleReport())); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"averageFocusRate: 88", "timeOfDayHour: 10", "- noisy"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml:\n%s", want, out)
		}
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml must decode: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("csv"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if got, err := ParseFormat(""); err != nil || got != FormatJSON {
		t.Fatalf("expected json default, got %q err=%v", got, err)
	}
}
