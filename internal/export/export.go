// Package export writes session history in portable formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/stats"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the exported payload.
type Document struct {
	ExportedAt time.Time             `json:"exportedAt" yaml:"exportedAt"`
	Days       int                   `json:"days" yaml:"days"`
	Summary    model.StatsSummary    `json:"summary" yaml:"summary"`
	Sessions   []model.SessionRecord `json:"sessions" yaml:"sessions"`
}

// FromReport builds a Document from a stats report.
func FromReport(report stats.Report) Document {
	sessions := report.Window()
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	return Document{
		ExportedAt: report.Now.UTC().Truncate(time.Second),
		Days:       report.Days,
		Summary:    report.Summary,
		Sessions:   sessions,
	}
}

// ParseFormat normalizes a format name.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// Write encodes doc to w in the given format.
func Write(w io.Writer, format string, doc Document) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		return nil
	}
}
