package http_utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// maxDocumentSize bounds spec and capability downloads.
const maxDocumentSize = 50 * 1024 * 1024

// TransportError wraps a failure to reach a remote host. It is distinct from
// any contract nonconformance and may be retried by the caller.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Retryable is always true for transport failures, retry policy belongs to callers.
func (e *TransportError) Retryable() bool { return true }

// StatusError reports an unexpected HTTP status code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received status code %d from %s", e.StatusCode, e.URL)
}

// FetchDocument GETs url and returns the body when the status is 200.
func FetchDocument(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = CreateHttpClient(0)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/x-yaml, text/yaml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "GET", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, &TransportError{Op: "read", URL: url, Err: err}
	}
	return data, nil
}
