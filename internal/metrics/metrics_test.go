package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/raysh454/vulnprobe/internal/metrics"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Observe(t *testing.T) {
	t.Parallel()
	c, err := metrics.NewCollector()
	require.NoError(t, err)

	c.Observe(scanner.Event{Type: scanner.EventScanStarted})
	c.Observe(scanner.Event{Type: scanner.EventPageDone})
	c.Observe(scanner.Event{Type: scanner.EventPageFailed})
	c.Observe(scanner.Event{Type: scanner.EventProbeSent})
	c.Observe(scanner.Event{Type: scanner.EventProbeSent})
	c.Observe(scanner.Event{Type: scanner.EventFinding, Finding: model.NewFinding(model.TypeSQLi, "http://h/", "x")})
	c.ScanCompleted("done", 1.5)

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	expected := `
# HELP vulnprobe_findings_total Findings by type and severity
# TYPE vulnprobe_findings_total counter
vulnprobe_findings_total{severity="high",type="SQLi"} 1
`
	assert.NoError(t, promtestutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "vulnprobe_findings_total"))

	expectedProbes := `
# HELP vulnprobe_probes_total Probe requests by outcome
# TYPE vulnprobe_probes_total counter
vulnprobe_probes_total{outcome="ok"} 2
`
	assert.NoError(t, promtestutil.GatherAndCompare(c.Registry(), strings.NewReader(expectedProbes), "vulnprobe_probes_total"))

	c.Observe(scanner.Event{Type: scanner.EventScanFinished})
	expectedRunning := `
# HELP vulnprobe_scans_running Scans currently in progress
# TYPE vulnprobe_scans_running gauge
vulnprobe_scans_running 0
`
	assert.NoError(t, promtestutil.GatherAndCompare(c.Registry(), strings.NewReader(expectedRunning), "vulnprobe_scans_running"))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()
	c, err := metrics.NewCollector()
	require.NoError(t, err)
	c.ScanCompleted("error", 0)

	ts := httptest.NewServer(c.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `vulnprobe_scans_total{status="error"} 1`)
}
