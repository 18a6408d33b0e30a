// Package scanner drives a scan: crawl the target, then run the per-page
// probe pipeline for every discovered page on a bounded worker pool.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/raysh454/vulnprobe/internal/assessor"
	"github.com/raysh454/vulnprobe/internal/enumerator"
	"github.com/raysh454/vulnprobe/internal/forms"
	"github.com/raysh454/vulnprobe/internal/injector"
	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/model"
	"github.com/raysh454/vulnprobe/internal/payloads"
	"github.com/raysh454/vulnprobe/internal/utils"
	"github.com/raysh454/vulnprobe/internal/webclient"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidTarget is returned before any network activity when the target
// is not an absolute http(s) URL.
var ErrInvalidTarget = errors.New("invalid target url")

// Result is the outcome of one scan.
type Result struct {
	Target      string
	Pages       []string
	Findings    []*model.Finding
	FailedPages int
	StartedAt   time.Time
	FinishedAt  time.Time
}

type Scanner struct {
	cfg        Config
	wc         webclient.WebClient
	catalog    *payloads.Catalog
	classifier *assessor.Classifier
	forms      *forms.Tester
	logger     logging.Logger
	onEvent    EventFunc
}

// New wires a scanner around a shared transport. A nil catalog selects the
// built-in payloads.
func New(cfg Config, wc webclient.WebClient, catalog *payloads.Catalog, logger logging.Logger) (*Scanner, error) {
	if wc == nil {
		return nil, errors.New("scanner: webclient is nil")
	}
	if catalog == nil {
		catalog = payloads.Default()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	cfg = cfg.withDefaults()

	classifier, err := assessor.NewClassifier(cfg.assessorConfig(), catalog)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	logger = logger.With(logging.Field{Key: "component", Value: "scanner"})

	return &Scanner{
		cfg:        cfg,
		wc:         wc,
		catalog:    catalog,
		classifier: classifier,
		forms:      forms.NewTester(wc, catalog, classifier.Signatures(), logger),
		logger:     logger,
	}, nil
}

// OnEvent registers a progress listener.
func (s *Scanner) OnEvent(fn EventFunc) {
	s.onEvent = fn
}

func (s *Scanner) emit(ev Event) {
	if s.onEvent == nil {
		return
	}
	ev.Time = time.Now().UTC()
	s.onEvent(ev)
}

// Scan validates target, crawls it and probes every discovered page. Pages
// that fail are logged and skipped. Scan fails on an invalid target, and
// returns the partial result with ctx.Err() once ctx is done.
func (s *Scanner) Scan(ctx context.Context, target string) (*Result, error) {
	if !utils.ValidateURL(target) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	res := &Result{Target: target, StartedAt: time.Now().UTC()}
	s.emit(Event{Type: EventScanStarted, URL: target})
	s.logger.Info("scan started",
		logging.Field{Key: "target", Value: target},
		logging.Field{Key: "max_depth", Value: s.cfg.MaxDepth},
		logging.Field{Key: "max_pages", Value: s.cfg.MaxPages},
		logging.Field{Key: "workers", Value: s.cfg.Workers})

	spider := enumerator.NewSpider(enumerator.Config{MaxDepth: s.cfg.MaxDepth, MaxPages: s.cfg.MaxPages}, s.wc, s.logger)
	spider.OnPage(func(url string, depth int) {
		s.emit(Event{Type: EventPageVisited, URL: url, Count: depth})
	})
	pages, err := spider.Enumerate(ctx, target)
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Pages = pages
		return s.abort(res, ctxErr)
	}
	if err != nil || len(pages) == 0 {
		pages = []string{target}
	}
	res.Pages = pages
	s.emit(Event{Type: EventCrawlDone, Count: len(pages)})

	perPage := make([][]*model.Finding, len(pages))
	var (
		mu     sync.Mutex
		failed int
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, page := range pages {
		g.Go(func() error {
			findings, err := s.safeScanPage(ctx, page)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Warn("page scan failed",
					logging.Field{Key: "url", Value: page},
					logging.Field{Key: "error", Value: err})
				s.emit(Event{Type: EventPageFailed, URL: page, Error: err.Error()})
				return nil
			}
			perPage[i] = findings
			s.emit(Event{Type: EventPageDone, URL: page, Count: len(findings)})
			return nil
		})
	}
	_ = g.Wait()

	for _, findings := range perPage {
		res.Findings = append(res.Findings, findings...)
	}
	if res.Findings == nil {
		res.Findings = []*model.Finding{}
	}
	res.FailedPages = failed
	if err := ctx.Err(); err != nil {
		return s.abort(res, err)
	}
	res.FinishedAt = time.Now().UTC()

	s.emit(Event{Type: EventScanFinished, URL: target, Count: len(res.Findings)})
	s.logger.Info("scan finished",
		logging.Field{Key: "target", Value: target},
		logging.Field{Key: "pages", Value: len(pages)},
		logging.Field{Key: "failed_pages", Value: failed},
		logging.Field{Key: "findings", Value: len(res.Findings)},
		logging.Field{Key: "elapsed", Value: res.FinishedAt.Sub(res.StartedAt).String()})
	return res, nil
}

// abort finalizes a scan interrupted by its context.
func (s *Scanner) abort(res *Result, err error) (*Result, error) {
	if res.Findings == nil {
		res.Findings = []*model.Finding{}
	}
	res.FinishedAt = time.Now().UTC()
	s.logger.Warn("scan aborted",
		logging.Field{Key: "target", Value: res.Target},
		logging.Field{Key: "pages", Value: len(res.Pages)},
		logging.Field{Key: "findings", Value: len(res.Findings)},
		logging.Field{Key: "error", Value: err})
	return res, fmt.Errorf("scan %s: %w", res.Target, err)
}

// safeScanPage converts a panic in the page pipeline into an error.
func (s *Scanner) safeScanPage(ctx context.Context, page string) (findings []*model.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("page pipeline panicked",
				logging.Field{Key: "url", Value: page},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)},
				logging.Field{Key: "stack", Value: string(debug.Stack())})
			findings = nil
			err = fmt.Errorf("page %s: panic: %v", page, r)
		}
	}()
	return s.ScanPage(ctx, page)
}

// ScanPage runs the probe pipeline for one page: baseline fetch, header audit,
// form tests, then the query parameter matrix. Pages without query parameters
// are probed through the synthetic parameter.
func (s *Scanner) ScanPage(ctx context.Context, page string) ([]*model.Finding, error) {
	s.emit(Event{Type: EventPageStarted, URL: page})

	target, err := utils.ParseURL(page)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var findings []*model.Finding
	record := func(fs ...*model.Finding) {
		for _, f := range fs {
			findings = append(findings, f)
			s.emit(Event{Type: EventFinding, URL: f.URL, Finding: f})
		}
	}

	baseURL := target.Build(target.Params)
	baseResp, err := s.wc.Get(ctx, baseURL)
	if baseResp == nil {
		s.logger.Warn("baseline fetch failed",
			logging.Field{Key: "url", Value: baseURL},
			logging.Field{Key: "error", Value: err})
	}
	baseline := assessor.NewBaseline(baseResp.Text())

	if baseResp != nil {
		record(assessor.AuditHeaders(baseResp)...)
		pageForms := forms.Extract(baseline.Body, baseURL)
		record(s.forms.TestForms(ctx, pageForms)...)
	}

	params := target.Params
	if len(params) == 0 {
		s.logger.Debug("no query parameters, probing synthetic parameter",
			logging.Field{Key: "url", Value: baseURL},
			logging.Field{Key: "param", Value: s.cfg.SyntheticParam})
		params = utils.Params{s.cfg.SyntheticParam: ""}
	}

	suite := injector.NewSuite(target, params, s.catalog, s.cfg.Strategy)
	for tc := range suite.All() {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		resp, err := s.wc.Get(ctx, tc.URL)
		if resp == nil {
			s.emit(Event{Type: EventProbeFailed, URL: tc.URL, Error: errString(err)})
			continue
		}
		s.emit(Event{Type: EventProbeSent, URL: tc.URL})
		if f := s.classifier.Classify(tc, resp.Text(), baseline); f != nil {
			record(f)
		}
	}
	return findings, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
