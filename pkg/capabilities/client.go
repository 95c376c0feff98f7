package capabilities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pyneda/openeoct/pkg/http_utils"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds capability fetches.
const DefaultTimeout = 5 * time.Second

// TransportError is a retryable failure to reach the backend.
type TransportError = http_utils.TransportError

// StatusError is a non-200 answer from the backend.
type StatusError = http_utils.StatusError

// WellKnownVersion is one entry of /.well-known/openeo.
type WellKnownVersion struct {
	URL        string `json:"url"`
	APIVersion string `json:"api_version"`
	Production bool   `json:"production,omitempty"`
}

// WellKnown is the version discovery document.
type WellKnown struct {
	Versions []WellKnownVersion `json:"versions"`
}

// Client fetches capability documents.
type Client struct {
	http *http.Client
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: http_utils.CreateHttpClient(timeout)}
}

// NewClientWith wraps an existing HTTP client.
func NewClientWith(client *http.Client) *Client {
	return &Client{http: client}
}

// Fetch reads the capabilities document at the backend root.
func (c *Client) Fetch(ctx context.Context, rootURL string) (*Document, error) {
	target := strings.TrimRight(rootURL, "/") + "/"
	data, err := http_utils.FetchDocument(ctx, c.http, target)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding capabilities of %s: %w", target, err)
	}
	log.Debug().Str("url", target).Int("endpoints", len(doc.Endpoints)).Str("api_version", doc.APIVersion).Msg("Fetched capabilities")
	return &doc, nil
}

// WellKnown reads the version discovery document of a backend.
func (c *Client) WellKnown(ctx context.Context, baseURL string) (*WellKnown, error) {
	target := strings.TrimRight(baseURL, "/") + "/.well-known/openeo"
	data, err := http_utils.FetchDocument(ctx, c.http, target)
	if err != nil {
		return nil, err
	}
	var wk WellKnown
	if err := json.Unmarshal(data, &wk); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", target, err)
	}
	return &wk, nil
}

// ResolveURL returns the root URL serving apiVersion according to the
// backend's version discovery, or baseURL when no version is requested, the
// backend has no discovery document or it lists no matching version.
// Transport failures are returned.
func (c *Client) ResolveURL(ctx context.Context, baseURL, apiVersion string) (string, error) {
	if apiVersion == "" {
		return baseURL, nil
	}
	wk, err := c.WellKnown(ctx, baseURL)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			log.Debug().Str("url", baseURL).Int("status", statusErr.StatusCode).Msg("No version discovery, using base url")
			return baseURL, nil
		}
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			return "", err
		}
		log.Warn().Err(err).Str("url", baseURL).Msg("Invalid version discovery document, using base url")
		return baseURL, nil
	}
	for _, v := range wk.Versions {
		if strings.TrimSpace(v.APIVersion) == apiVersion && v.URL != "" {
			return v.URL, nil
		}
	}
	return baseURL, nil
}
