// Package app wires configuration, transport, payloads, persistence and
// metrics into the runtime shared by the CLI and the scan API.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/metrics"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/payloads"
	"github.com/raysh454/vulnprobe/internal/registry"
	"github.com/raysh454/vulnprobe/internal/scanner"
	"github.com/raysh454/vulnprobe/internal/webclient"
)

// Application is the global runtime state container. Pass it to the
// components that need shared services rather than using package-level
// variables.
type Application struct {
	Config *Config
	Logger logging.Logger

	WebClient webclient.WebClient
	Catalog   *payloads.Catalog
	Metrics   *metrics.Collector
	// Registry is nil when Config.DBPath is empty.
	Registry *registry.Registry
	Tasks    *Tasks
}

// NewApplication builds the shared services described by cfg. wc may be nil,
// in which case a pooled net/http client is created from cfg.WebClient.
func NewApplication(cfg *Config, logger logging.Logger, wc webclient.WebClient) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	catalog := payloads.Default()
	if cfg.PayloadFile != "" {
		c, err := payloads.LoadFile(cfg.PayloadFile)
		if err != nil {
			return nil, fmt.Errorf("load payloads: %w", err)
		}
		catalog = c
	}

	if wc == nil {
		nc, err := webclient.NewNetHTTPClient(cfg.WebClient, logger, nil)
		if err != nil {
			return nil, fmt.Errorf("new webclient: %w", err)
		}
		wc = nc
	}

	m, err := metrics.NewCollector()
	if err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("new metrics: %w", err)
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		WebClient: wc,
		Catalog:   catalog,
		Metrics:   m,
	}

	var saver ReportSaver
	if cfg.DBPath != "" {
		reg, err := registry.Open(cfg.DBPath, logger)
		if err != nil {
			_ = wc.Close()
			return nil, fmt.Errorf("open registry: %w", err)
		}
		a.Registry = reg
		saver = reg
	}

	a.Tasks = NewTasks(a.runScan, saver, m, logger)
	return a, nil
}

// NewScanner builds a scanner for req, applying its depth and page overrides.
func (a *Application) NewScanner(req model.ScanRequest) (*scanner.Scanner, error) {
	cfg := a.Config.Scanner
	if req.Depth > 0 {
		cfg.MaxDepth = req.Depth
	}
	if req.MaxPages > 0 {
		cfg.MaxPages = req.MaxPages
	}
	return scanner.New(cfg, a.WebClient, a.Catalog, a.Logger)
}

// Scan runs a scan synchronously. Progress events feed the metrics collector
// and then onEvent, which may be nil.
func (a *Application) Scan(ctx context.Context, req model.ScanRequest, onEvent scanner.EventFunc) (*scanner.Result, error) {
	start := time.Now()
	res, err := a.runScan(ctx, req, func(ev scanner.Event) {
		a.Metrics.Observe(ev)
		if onEvent != nil {
			onEvent(ev)
		}
	})
	status := model.ScanDone
	if err != nil {
		status = model.ScanError
	}
	a.Metrics.ScanCompleted(string(status), time.Since(start).Seconds())
	return res, err
}

func (a *Application) runScan(ctx context.Context, req model.ScanRequest, onEvent scanner.EventFunc) (*scanner.Result, error) {
	sc, err := a.NewScanner(req)
	if err != nil {
		return nil, err
	}
	sc.OnEvent(onEvent)
	return sc.Scan(ctx, req.Target)
}

// Shutdown waits for running scans, then releases the transport and database.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	// Bound the wait for in-flight scans.
	waitCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var errs []error
	if err := a.Tasks.Wait(waitCtx); err != nil {
		a.Logger.Warn("scans still running at shutdown", logging.Field{Key: "error", Value: err})
		errs = append(errs, err)
	}
	if err := a.WebClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close webclient: %w", err))
	}
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}
	return errors.Join(errs...)
}
