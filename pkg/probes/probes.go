// Package probes checks backend behavior that response schemas cannot
// express: authentication errors, error documents and CORS headers.
package probes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/http_utils"
	"github.com/pyneda/openeoct/pkg/validation"
	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency bounds requests in flight per probe.
const DefaultConcurrency = 4

// Outcome is the verdict of one probe check.
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
	Skip Outcome = "skip"
)

// Result is one probe check against one path.
type Result struct {
	Probe      string  `json:"probe" yaml:"probe"`
	Path       string  `json:"path" yaml:"path"`
	Outcome    Outcome `json:"outcome" yaml:"outcome"`
	StatusCode int     `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string  `json:"message,omitempty" yaml:"message,omitempty"`
	Retryable  bool    `json:"retryable,omitempty" yaml:"retryable,omitempty"`
}

func (r Result) TableHeaders() []string {
	return []string{"Probe", "Path", "Outcome", "Status", "Message"}
}

func (r Result) TableRow() []string {
	status := ""
	if r.StatusCode != 0 {
		status = strconv.Itoa(r.StatusCode)
	}
	return []string{r.Probe, r.Path, string(r.Outcome), status, r.Message}
}

func (r Result) String() string {
	s := fmt.Sprintf("%s %s: %s", r.Probe, r.Path, r.Outcome)
	if r.Message != "" {
		s += " (" + r.Message + ")"
	}
	return s
}

func (r Result) Pretty() string {
	outcome := string(r.Outcome)
	switch r.Outcome {
	case Pass:
		outcome = lib.Pass(outcome)
	case Fail:
		outcome = lib.Fail(outcome)
	default:
		outcome = lib.Warn(outcome)
	}
	s := fmt.Sprintf("%s%s%s %s -> %s", lib.Blue, r.Probe, lib.ResetColor, r.Path, outcome)
	if r.Message != "" {
		s += "\n  " + r.Message
	}
	return s
}

// Failed reports whether any result failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Outcome == Fail {
			return true
		}
	}
	return false
}

// Prober sends the probe requests to one backend.
type Prober struct {
	client      *http.Client
	base        string
	concurrency int
}

// New creates a prober for the backend root URL. A nil client uses the
// default transport.
func New(client *http.Client, baseURL string) *Prober {
	if client == nil {
		client = http_utils.CreateHttpClient(0)
	}
	return &Prober{client: client, base: strings.TrimRight(baseURL, "/"), concurrency: DefaultConcurrency}
}

// WithConcurrency sets the number of requests in flight per probe.
func (p *Prober) WithConcurrency(n int) *Prober {
	if n > 0 {
		p.concurrency = n
	}
	return p
}

func (p *Prober) do(ctx context.Context, method, path string, header http.Header) http_utils.RequestExecutionResult {
	req, err := http.NewRequestWithContext(ctx, method, p.base+path, nil)
	if err != nil {
		return http_utils.RequestExecutionResult{Err: err}
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	return http_utils.ExecuteRequest(req, http_utils.RequestExecutionOptions{Client: p.client})
}

func transportFailure(probe, path string, err error) Result {
	var terr *http_utils.TransportError
	return Result{
		Probe:     probe,
		Path:      path,
		Outcome:   Fail,
		Message:   err.Error(),
		Retryable: errors.As(err, &terr),
	}
}

// each runs check for every path concurrently, keeping the path order.
func (p *Prober) each(ctx context.Context, paths []string, check func(context.Context, string) Result) []Result {
	pl := pool.New().WithContext(ctx).WithMaxGoroutines(p.concurrency)
	results := make([]Result, len(paths))
	for i, path := range paths {
		i, path := i, path
		pl.Go(func(ctx context.Context) error {
			results[i] = check(ctx, path)
			return nil
		})
	}
	pl.Wait()
	return results
}

// Unauthorized requests each path without credentials. Backends must
// answer 401, a 404 skips the path.
func (p *Prober) Unauthorized(ctx context.Context, paths []string) []Result {
	return p.each(ctx, paths, func(ctx context.Context, path string) Result {
		const probe = "unauthorized"
		res := p.do(ctx, http.MethodGet, path, nil)
		if res.Err != nil {
			return transportFailure(probe, path, res.Err)
		}
		status := res.Response.StatusCode
		switch status {
		case http.StatusNotFound:
			return Result{Probe: probe, Path: path, Outcome: Skip, StatusCode: status, Message: path + " not found"}
		case http.StatusUnauthorized:
			return Result{Probe: probe, Path: path, Outcome: Pass, StatusCode: status}
		default:
			return Result{Probe: probe, Path: path, Outcome: Fail, StatusCode: status, Message: fmt.Sprintf("expected status 401, got %d", status)}
		}
	})
}

type invalidPath struct {
	path string
	code string
}

var invalidPaths = []invalidPath{
	{"/invalid/path/to/nowhere", "NotFound"},
	{"/collections/invalid-collection-name-foobar", "CollectionNotFound"},
}

// InvalidPath requests paths that cannot exist and expects 404 with an
// openEO error document carrying the matching code.
func (p *Prober) InvalidPath(ctx context.Context) []Result {
	paths := make([]string, len(invalidPaths))
	codes := make(map[string]string, len(invalidPaths))
	for i, ip := range invalidPaths {
		paths[i] = ip.path
		codes[ip.path] = ip.code
	}
	return p.each(ctx, paths, func(ctx context.Context, path string) Result {
		const probe = "invalid-path"
		res := p.do(ctx, http.MethodGet, path, nil)
		if res.Err != nil {
			return transportFailure(probe, path, res.Err)
		}
		status := res.Response.StatusCode
		fail := func(format string, args ...any) Result {
			return Result{Probe: probe, Path: path, Outcome: Fail, StatusCode: status, Message: fmt.Sprintf(format, args...)}
		}
		if status != http.StatusNotFound {
			return fail("expected status 404, got %d", status)
		}
		var doc map[string]any
		if err := json.Unmarshal(res.Body, &doc); err != nil {
			return fail("error response is not a JSON object: %v", err)
		}
		code, ok := doc["code"].(string)
		if !ok {
			return fail("error response has no code")
		}
		if code != codes[path] {
			return fail("expected error code %s, got %s", codes[path], code)
		}
		if _, ok := doc["message"]; !ok {
			return fail("error response has no message")
		}
		return Result{Probe: probe, Path: path, Outcome: Pass, StatusCode: status}
	})
}

// CORSOrigin is sent as Origin header by the CORS probe.
const CORSOrigin = "http://example.com"

// DefaultCORSPaths are checked when CORS is called without paths.
var DefaultCORSPaths = []string{"/", "/collections", "/processes"}

var requiredExposeHeaders = []string{"location", "openeo-identifier", "openeo-costs"}

// CORS sends preflight requests and checks the CORS response headers.
func (p *Prober) CORS(ctx context.Context, paths []string) []Result {
	if len(paths) == 0 {
		paths = DefaultCORSPaths
	}
	return p.each(ctx, paths, func(ctx context.Context, path string) Result {
		const probe = "cors"
		res := p.do(ctx, http.MethodOptions, path, http.Header{"Origin": {CORSOrigin}})
		if res.Err != nil {
			return transportFailure(probe, path, res.Err)
		}
		status := res.Response.StatusCode
		h := res.Response.Header
		var problems []string
		if status != http.StatusNoContent {
			problems = append(problems, fmt.Sprintf("expected status 204, got %d", status))
		}
		if got := h.Get("Access-Control-Allow-Origin"); got != CORSOrigin {
			problems = append(problems, fmt.Sprintf("access-control-allow-origin is %q", got))
		}
		if !containsAll(csvToSet(h.Get("Access-Control-Allow-Headers")), "content-type") {
			problems = append(problems, "access-control-allow-headers lacks content-type")
		}
		if !containsAll(csvToSet(h.Get("Access-Control-Allow-Methods")), "get") {
			problems = append(problems, "access-control-allow-methods lacks get")
		}
		if !containsAll(csvToSet(h.Get("Access-Control-Expose-Headers")), requiredExposeHeaders...) {
			problems = append(problems, "access-control-expose-headers lacks "+strings.Join(requiredExposeHeaders, ", "))
		}
		if len(problems) > 0 {
			return Result{Probe: probe, Path: path, Outcome: Fail, StatusCode: status, Message: strings.Join(problems, "; ")}
		}
		return Result{Probe: probe, Path: path, Outcome: Pass, StatusCode: status}
	})
}

// Responses validates the public discovery documents against the contract,
// including every collection listed by /collections.
func (p *Prober) Responses(ctx context.Context, v *validation.Validator) []Result {
	const probe = "response"
	check := func(ctx context.Context, path, template string) (Result, []byte) {
		res := p.do(ctx, http.MethodGet, path, http.Header{"Accept": {"application/json"}})
		if res.Err != nil {
			return transportFailure(probe, path, res.Err), nil
		}
		status := res.Response.StatusCode
		r := Result{Probe: probe, Path: path, StatusCode: status}
		if status != http.StatusOK {
			r.Outcome = Fail
			r.Message = fmt.Sprintf("expected status 200, got %d", status)
			return r, nil
		}
		err := v.ValidateJSON(template, http.MethodGet, status, "application/json", res.Body)
		switch {
		case err == nil:
			r.Outcome = Pass
		case errors.Is(err, validation.ErrCoordinateMissing):
			r.Outcome = Skip
			r.Message = err.Error()
		default:
			r.Outcome = Fail
			r.Message = err.Error()
		}
		return r, res.Body
	}

	results := p.each(ctx, []string{"/", "/processes"}, func(ctx context.Context, path string) Result {
		r, _ := check(ctx, path, path)
		return r
	})

	collections, body := check(ctx, "/collections", "/collections")
	results = append(results, collections)
	if collections.Outcome != Pass {
		return results
	}
	template := "/collections/{collection_id}"
	field := "id"
	if !v.Document().HasPath(template) {
		template, field = "/collections/{name}", "name"
	}
	var listing struct {
		Collections []map[string]any `json:"collections"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return results
	}
	var paths []string
	for _, c := range listing.Collections {
		if id, ok := c[field].(string); ok && id != "" {
			paths = append(paths, "/collections/"+url.PathEscape(id))
		}
	}
	return append(results, p.each(ctx, paths, func(ctx context.Context, path string) Result {
		r, _ := check(ctx, path, template)
		return r
	})...)
}

func csvToSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			set[part] = struct{}{}
		}
	}
	return set
}

func containsAll(set map[string]struct{}, want ...string) bool {
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
