package model

import "time"

// ScanStatus is the lifecycle state of an asynchronous scan.
type ScanStatus string

const (
	ScanQueued  ScanStatus = "queued"
	ScanRunning ScanStatus = "running"
	ScanDone    ScanStatus = "done"
	ScanError   ScanStatus = "error"
)

// ScanRequest represents a request to submit a target for scanning.
type ScanRequest struct {
	// Target is the seed URL.
	Target string `json:"target"`

	// Depth is the crawl depth; 0 selects the default.
	Depth int `json:"depth,omitempty"`

	// MaxPages caps the number of crawled pages; 0 selects the default.
	MaxPages int `json:"max_pages,omitempty"`
}

// Report is the persisted outcome of a scan.
type Report struct {
	Target    string     `json:"target"`
	Timestamp string     `json:"timestamp"`
	Findings  []*Finding `json:"findings"`
}

// TimestampLayout renders report timestamps as "2006-01-02 15:04:05".
const TimestampLayout = "2006-01-02 15:04:05"

// NewReport stamps findings with the current local time.
func NewReport(target string, findings []*Finding) *Report {
	if findings == nil {
		findings = []*Finding{}
	}
	return &Report{
		Target:    target,
		Timestamp: time.Now().Format(TimestampLayout),
		Findings:  findings,
	}
}

// Summary aggregates a report for dashboards.
type Summary struct {
	Total         int              `json:"total"`
	Severities    map[Severity]int `json:"severities"`
	Types         map[string]int   `json:"types"`
	AffectedPages int              `json:"affected_pages"`
}

// Summarize counts findings by severity and type and counts distinct URLs.
// Findings without a severity are classified from their type.
func Summarize(findings []*Finding) Summary {
	s := Summary{
		Severities: map[Severity]int{
			SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0, SeverityInfo: 0,
		},
		Types: map[string]int{},
	}
	pages := map[string]struct{}{}
	for _, f := range findings {
		if f == nil {
			continue
		}
		s.Total++
		sev := f.Severity
		if sev == "" {
			sev = SeverityOf(f.Type)
		}
		s.Severities[sev]++
		s.Types[string(f.Type)]++
		if f.URL != "" {
			pages[f.URL] = struct{}{}
		}
	}
	s.AffectedPages = len(pages)
	return s
}
