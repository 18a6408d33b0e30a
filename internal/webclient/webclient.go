package webclient

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// WebClient is the transport every scan component shares.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Get(ctx context.Context, url string) (*Response, error)
	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response always points back at the request that produced it, so header
// checks can tell whether the original URL was https.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// StatusError reports a retryable status that persisted after the last attempt.
type StatusError struct {
	URL        string
	StatusCode int
	Attempts   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether code is one of 429, 500, 502, 503, 504.
func IsRetryableStatus(code int) bool {
	return retryableStatus[code]
}
