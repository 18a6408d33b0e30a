package model

// FindingType names the kind of weakness a finding reports.
type FindingType string

const (
	TypeSQLi          FindingType = "SQLi"
	TypeSQLiSuspected FindingType = "SQLi-suspected"
	TypeXSSReflected  FindingType = "XSS-reflected"
	TypeSQLiForm      FindingType = "SQLi-form"
	TypeXSSForm       FindingType = "XSS-form"
	TypeHeaderMissing FindingType = "Header-Missing"
)

// Severity is the lowercase severity level attached to a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// Score orders severities for sorting. High=3 down to Info=0.
func (s Severity) Score() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// SeverityOf derives the severity of a finding type.
func SeverityOf(t FindingType) Severity {
	switch t {
	case TypeSQLi, TypeSQLiForm:
		return SeverityHigh
	case TypeXSSReflected, TypeXSSForm, TypeSQLiSuspected:
		return SeverityMedium
	case TypeHeaderMissing:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Finding is one piece of heuristic evidence of a weakness.
type Finding struct {
	Type     FindingType `json:"type"`
	URL      string      `json:"url"`
	Param    string      `json:"param,omitempty"`
	Payload  string      `json:"payload,omitempty"`
	Header   string      `json:"header,omitempty"`
	Evidence string      `json:"evidence"`
	Severity Severity    `json:"severity,omitempty"`

	// Method and Data describe a form submission so it can be replayed.
	Method string            `json:"method,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

// NewFinding returns a finding with its severity filled in.
func NewFinding(t FindingType, url, evidence string) *Finding {
	return &Finding{
		Type:     t,
		URL:      url,
		Evidence: evidence,
		Severity: SeverityOf(t),
	}
}
