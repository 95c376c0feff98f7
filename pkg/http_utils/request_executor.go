package http_utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseSize bounds the response bodies read by ExecuteRequest.
const maxResponseSize = 50 * 1024 * 1024

// RequestExecutionResult contains the complete result of an HTTP request execution
type RequestExecutionResult struct {
	Response *http.Response
	Body     []byte
	Duration time.Duration
	Err      error
	TimedOut bool
}

// RequestExecutionOptions contains options for executing HTTP requests
type RequestExecutionOptions struct {
	Client  *http.Client
	Timeout time.Duration
}

// ExecuteRequest sends req and reads the whole response body. The response
// body is replaced by an in-memory copy so callers may read it again.
// Failures to reach the host are returned as *TransportError.
func ExecuteRequest(req *http.Request, options RequestExecutionOptions) RequestExecutionResult {
	startTime := time.Now()

	client := options.Client
	if client == nil {
		client = CreateHttpClient(options.Timeout)
	}
	if options.Timeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), options.Timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	var result RequestExecutionResult
	response, err := client.Do(req)
	if err != nil {
		result.Duration = time.Since(startTime)
		result.TimedOut = IsTimeoutError(err)
		result.Err = &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
		return result
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	result.Duration = time.Since(startTime)
	if err != nil {
		result.TimedOut = IsTimeoutError(err)
		result.Err = &TransportError{Op: "read", URL: req.URL.String(), Err: err}
		return result
	}
	response.Body = io.NopCloser(bytes.NewReader(body))
	result.Response = response
	result.Body = body
	return result
}

// IsTimeoutError checks if an error is due to timeout
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
