// Package report persists scan findings as JSON and renders them for the
// console.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/raysh454/vulnprobe/internal/model"
)

// DefaultPath is where the CLI writes its report.
const DefaultPath = "report.json"

// Enriched is a report with severities filled in and aggregate counts.
type Enriched struct {
	*model.Report
	Summary model.Summary `json:"summary"`
}

// Enrich fills missing severities in place and attaches the summary.
func Enrich(r *model.Report) *Enriched {
	for _, f := range r.Findings {
		if f != nil && f.Severity == "" {
			f.Severity = model.SeverityOf(f.Type)
		}
	}
	return &Enriched{Report: r, Summary: model.Summarize(r.Findings)}
}

// Marshal renders r as indented JSON.
func Marshal(r *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// WriteJSON writes {target, timestamp, findings} to path, or DefaultPath when
// path is empty, and returns the path written.
func WriteJSON(path, target string, findings []*model.Finding) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := Marshal(model.NewReport(target, findings))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
