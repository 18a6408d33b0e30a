package webclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/raysh454/vulnprobe/internal/logging"
)

// net/http backed implementation of webclient.
type NetHTTPClient struct {
	client *http.Client
	cfg    Config
	logger logging.Logger
}

// NewNetHTTPClient builds a pooled client. When httpClient is nil one is
// constructed from cfg; otherwise only the retry and User-Agent settings apply.
func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) (*NetHTTPClient, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "nethttp"})

	cfg = cfg.withDefaults()
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConns = cfg.PoolSize
		transport.MaxIdleConnsPerHost = cfg.PoolSize
		transport.MaxConnsPerHost = cfg.PoolSize
		httpClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	}

	componentLogger.Debug("created nethttp webclient",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()},
		logging.Field{Key: "max_retries", Value: cfg.MaxRetries},
		logging.Field{Key: "pool_size", Value: cfg.PoolSize})

	return &NetHTTPClient{
		client: httpClient,
		cfg:    cfg,
		logger: componentLogger,
	}, nil
}

// Do executes req, retrying transport errors and retryable statuses with
// exponential backoff. If a retryable status outlives the retry budget no
// response is returned, only a *StatusError.
func (nhc *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var attempts int
	operation := func() (*Response, error) {
		attempts++
		resp, err := nhc.once(ctx, method, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if IsRetryableStatus(resp.StatusCode) && nhc.cfg.MaxRetries > 0 {
			return resp, &StatusError{URL: req.URL, StatusCode: resp.StatusCode, Attempts: attempts}
		}
		return resp, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = nhc.cfg.BackoffFactor
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.1

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(nhc.cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			nhc.logger.Debug("retrying request",
				logging.Field{Key: "url", Value: req.URL},
				logging.Field{Key: "wait", Value: wait.String()},
				logging.Field{Key: "error", Value: err})
		}))
	if err == nil {
		return resp, nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		nhc.logger.Warn("retryable status persisted",
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "status", Value: statusErr.StatusCode},
			logging.Field{Key: "attempts", Value: statusErr.Attempts})
		return nil, statusErr
	}

	nhc.logger.Warn("http request failed",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "attempts", Value: attempts},
		logging.Field{Key: "error", Value: err.Error()})
	return nil, fmt.Errorf("http do: %w", err)
}

func (nhc *NetHTTPClient) once(ctx context.Context, method string, req *Request) (*Response, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", nhc.cfg.UserAgent)
	}

	nhc.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: req.URL})

	resp, err := nhc.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Request:    req,
		Body:       body,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now(),
	}, nil
}

// Get is a convenience method for simple GET requests
func (nhc *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (nhc *NetHTTPClient) Close() error {
	nhc.logger.Debug("closing nethttp webclient")
	nhc.client.CloseIdleConnections()
	return nil
}

// HTTPClient returns the underlying *http.Client
func (nhc *NetHTTPClient) HTTPClient() *http.Client {
	return nhc.client
}
