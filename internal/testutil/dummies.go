// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of recorded warnings.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// StubResponse is a canned reply for StubWebClient.
type StubResponse struct {
	Status  int
	Body    string
	Headers http.Header
}

// StubWebClient implements webclient.WebClient.
// Lookup order for a request: FailURLs and Fail, Handler, Pages[url]; otherwise it
// returns body "ok:<url>" with status 200.
type StubWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Pages         map[string]StubResponse

	// Fail, when set, forces an error for every request it returns true for.
	Fail func(req *webclient.Request) bool

	// Handler, when set, answers any request it returns a non-nil response for.
	Handler func(req *webclient.Request) *StubResponse

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *StubWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if (d.FailURLs != nil && d.FailURLs[req.URL]) || (d.Fail != nil && d.Fail(req)) {
		return nil, &errString{"stub fetch fail for " + req.URL}
	}

	var stub *StubResponse
	if d.Handler != nil {
		stub = d.Handler(req)
	}
	if stub == nil {
		if page, ok := d.Pages[req.URL]; ok {
			stub = &page
		}
	}
	if stub == nil {
		stub = &StubResponse{Body: "ok:" + req.URL}
	}

	status := stub.Status
	if status == 0 {
		status = http.StatusOK
	}
	headers := stub.Headers
	if headers == nil {
		headers = http.Header{}
	}
	return &webclient.Response{
		Request:    req,
		Body:       []byte(stub.Body),
		Headers:    headers,
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *StubWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: url})
}

func (d *StubWebClient) Close() error { return nil }

// RequestedURLs returns the URLs requested so far, in order.
func (d *StubWebClient) RequestedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.Requests))
	for _, r := range d.Requests {
		out = append(out, r.URL)
	}
	return out
}

// RequestCount returns the number of requests received.
func (d *StubWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
