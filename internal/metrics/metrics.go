// Package metrics exposes scan activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raysh454/vulnprobe/internal/scanner"
)

// Collector turns scanner events into metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	scansTotal    *prometheus.CounterVec
	pagesTotal    *prometheus.CounterVec
	probesTotal   *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	scansRunning  prometheus.Gauge
	scanDuration  prometheus.Histogram
}

func NewCollector() (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnprobe_scans_total",
			Help: "Scans by final status",
		},
		[]string{"status"},
	)
	c.pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnprobe_pages_total",
			Help: "Page pipelines by outcome",
		},
		[]string{"outcome"},
	)
	c.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnprobe_probes_total",
			Help: "Probe requests by outcome",
		},
		[]string{"outcome"},
	)
	c.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulnprobe_findings_total",
			Help: "Findings by type and severity",
		},
		[]string{"type", "severity"},
	)
	c.scansRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vulnprobe_scans_running",
		Help: "Scans currently in progress",
	})
	c.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vulnprobe_scan_duration_seconds",
		Help:    "Wall time of completed scans",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	collectors := []prometheus.Collector{
		c.scansTotal,
		c.pagesTotal,
		c.probesTotal,
		c.findingsTotal,
		c.scansRunning,
		c.scanDuration,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

// Observe records one scanner event. Safe for concurrent use.
func (c *Collector) Observe(ev scanner.Event) {
	switch ev.Type {
	case scanner.EventScanStarted:
		c.scansRunning.Inc()
	case scanner.EventPageDone:
		c.pagesTotal.WithLabelValues("ok").Inc()
	case scanner.EventPageFailed:
		c.pagesTotal.WithLabelValues("failed").Inc()
	case scanner.EventProbeSent:
		c.probesTotal.WithLabelValues("ok").Inc()
	case scanner.EventProbeFailed:
		c.probesTotal.WithLabelValues("failed").Inc()
	case scanner.EventFinding:
		if ev.Finding != nil {
			c.findingsTotal.WithLabelValues(string(ev.Finding.Type), string(ev.Finding.Severity)).Inc()
		}
	case scanner.EventScanFinished:
		c.scansRunning.Dec()
	}
}

// ScanCompleted records the final status and duration of a scan.
func (c *Collector) ScanCompleted(status string, seconds float64) {
	c.scansTotal.WithLabelValues(status).Inc()
	if seconds >= 0 {
		c.scanDuration.Observe(seconds)
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
