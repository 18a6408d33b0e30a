package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/raysh454/vulnprobe/internal/model"
)

var severityColors = map[model.Severity]lipgloss.Color{
	model.SeverityHigh:   lipgloss.Color("#FF6B6B"),
	model.SeverityMedium: lipgloss.Color("#FFD93D"),
	model.SeverityLow:    lipgloss.Color("#6BCB77"),
	model.SeverityInfo:   lipgloss.Color("#4D96FF"),
}

// PrintSummary writes the finding count followed by one block per finding.
// Colors are only emitted when w is a color-capable terminal.
func PrintSummary(w io.Writer, findings []*model.Finding) {
	r := lipgloss.NewRenderer(w)
	okStyle := r.NewStyle().Foreground(lipgloss.Color("#00D26A")).Bold(true)
	muted := r.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(findings) == 0 {
		fmt.Fprintln(w, okStyle.Render("[+] No findings."))
		return
	}

	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("[+] %d finding(s):", len(findings))))
	for i, f := range findings {
		sev := f.Severity
		if sev == "" {
			sev = model.SeverityOf(f.Type)
		}
		tag := r.NewStyle().Foreground(severityColors[sev]).Bold(true).Render("[" + string(f.Type) + "]")

		detail := fmt.Sprintf("param=%s payload=%s", orNone(f.Param), orNone(f.Payload))
		if f.Header != "" {
			detail = "header=" + f.Header
		}
		fmt.Fprintf(w, "  %d. %s %s\n", i+1, tag, detail)
		fmt.Fprintf(w, "     %s %s\n", muted.Render("evidence:"), f.Evidence)
		fmt.Fprintf(w, "     %s %s\n", muted.Render("url:"), f.URL)
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
