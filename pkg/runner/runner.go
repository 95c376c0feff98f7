package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/http_utils"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
	DefaultAuthPath    = "/credentials/basic"
	DefaultMediaType   = "application/json"
)

// Input describes one compliance run.
type Input struct {
	Backend   registry.Backend
	Endpoints []registry.EndpointRecord
	Variables []registry.Variable
	Validator *validation.Validator `json:"-"`
	// HttpClient sends endpoint and authentication requests.
	HttpClient  *http.Client `json:"-"`
	Concurrency int
	// Timeout applies to endpoints without their own timeout.
	Timeout time.Duration
	// AuthPath is used when the backend has credentials but no auth URL.
	AuthPath string
	// BodyDir resolves relative body file paths.
	BodyDir string
}

// Validate checks and sets default values for Input
func (in *Input) Validate() error {
	if in.Backend.URL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	if _, err := url.Parse(lib.ExpandValue(in.Backend.URL)); err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if in.Validator == nil {
		return fmt.Errorf("a validator is required")
	}
	if in.Concurrency <= 0 {
		in.Concurrency = DefaultConcurrency
	}
	if in.Timeout <= 0 {
		in.Timeout = DefaultTimeout
	}
	if in.AuthPath == "" {
		in.AuthPath = DefaultAuthPath
	}
	if in.HttpClient == nil {
		in.HttpClient = http_utils.CreateHttpClient(0)
	}
	return nil
}

type run struct {
	in        Input
	base      string
	vars      map[string]string
	token     string
	authErr   error
	templates []string
	logger    zerolog.Logger
}

// Run validates every endpoint of the input against the contract. Groups
// run concurrently, endpoints inside a group run in order. A cancelled
// context returns the partial report together with the context error.
func Run(ctx context.Context, in Input) (*Report, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	r := &run{
		in:        in,
		base:      strings.TrimRight(lib.ExpandValue(in.Backend.URL), "/"),
		vars:      make(map[string]string, len(in.Variables)),
		templates: in.Validator.Document().Paths(),
		logger:    log.With().Str("component", "runner").Str("backend", in.Backend.ID).Logger(),
	}
	for _, v := range in.Variables {
		r.vars[v.Name] = lib.ExpandValue(v.Value)
	}

	report := &Report{
		BackendID:  in.Backend.ID,
		BackendURL: r.base,
		StartedAt:  time.Now(),
	}
	if t := in.Validator.Document().OpenAPI(); t != nil && t.Info != nil {
		report.APIVersion = t.Info.Version
	}

	r.token, r.authErr = r.authenticate(ctx)

	groups := groupEndpoints(in.Endpoints)
	r.logger.Info().Int("groups", len(groups)).Int("endpoints", len(in.Endpoints)).Msg("Starting compliance run")

	p := pool.NewWithResults[GroupResult]().WithContext(ctx).WithMaxGoroutines(in.Concurrency)
	for i, g := range groups {
		i, g := i, g
		p.Go(func(ctx context.Context) (GroupResult, error) {
			result := r.runGroup(ctx, g)
			result.position = i
			return result, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(a, b int) bool { return results[a].position < results[b].position })

	report.Groups = results
	report.State = StateValid
	for _, g := range results {
		if g.State != StateValid {
			report.State = StateInvalid
		}
	}
	report.FinishedAt = time.Now()
	r.logger.Info().Str("state", string(report.State)).Dur("duration", report.FinishedAt.Sub(report.StartedAt)).Msg("Compliance run finished")
	return report, ctx.Err()
}

type group struct {
	name      string
	endpoints []registry.EndpointRecord
}

// groupEndpoints keeps groups in first seen order and sorts each group by
// endpoint order.
func groupEndpoints(endpoints []registry.EndpointRecord) []group {
	var groups []group
	index := make(map[string]int)
	for _, e := range endpoints {
		name := e.Group
		if name == "" {
			name = registry.DefaultGroup
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, group{name: name})
		}
		groups[i].endpoints = append(groups[i].endpoints, e)
	}
	for _, g := range groups {
		sort.SliceStable(g.endpoints, func(a, b int) bool { return g.endpoints[a].Order < g.endpoints[b].Order })
	}
	return groups
}

func (r *run) runGroup(ctx context.Context, g group) GroupResult {
	result := GroupResult{Group: g.name, Endpoints: make([]EndpointResult, 0, len(g.endpoints))}
	for _, e := range g.endpoints {
		res := r.runEndpoint(ctx, e)
		res.Group = g.name
		result.Endpoints = append(result.Endpoints, res)
	}
	result.State = summarize(result.Endpoints)
	return result
}

// authenticate exchanges basic credentials for a bearer token. Missing
// credentials or a non-200 answer leave requests unauthenticated.
func (r *run) authenticate(ctx context.Context) (string, error) {
	b := r.in.Backend
	username := lib.ExpandValue(b.Username)
	password := lib.ExpandValue(b.Password)
	if username == "" || password == "" {
		return "", nil
	}
	authPath := lib.ExpandValue(b.AuthURL)
	if authPath == "" {
		authPath = r.in.AuthPath
	}
	authURL := authPath
	if !strings.HasPrefix(authPath, "http://") && !strings.HasPrefix(authPath, "https://") {
		authURL = r.base + authPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating auth request: %w", err)
	}
	req.SetBasicAuth(username, password)
	result := http_utils.ExecuteRequest(req, http_utils.RequestExecutionOptions{Client: r.in.HttpClient, Timeout: r.in.Timeout})
	if result.Err != nil {
		r.logger.Error().Err(result.Err).Str("url", authURL).Msg("Error calling the authentication url")
		return "", result.Err
	}
	if result.Response.StatusCode != http.StatusOK {
		r.logger.Warn().Int("status", result.Response.StatusCode).Str("url", authURL).Msg("Authentication was not accepted")
		return "", nil
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(result.Body, &payload); err != nil {
		r.logger.Warn().Err(err).Msg("Could not decode authentication response")
		return "", nil
	}
	return payload.AccessToken, nil
}

func (r *run) runEndpoint(ctx context.Context, e registry.EndpointRecord) EndpointResult {
	start := time.Now()
	res := r.check(ctx, e)
	res.EndpointID = e.ID
	res.Method = e.Method
	res.URL = e.URL
	res.Duration = time.Since(start)
	if e.Optional && res.State != StateValid {
		r.logger.Debug().Str("endpoint", e.ID).Str("state", string(res.State)).Msg("Optional endpoint did not validate")
		res.State = StateValid
		res.Message = nonMandatoryMessage
		res.Details = nil
	}
	return res
}

func (r *run) check(ctx context.Context, e registry.EndpointRecord) EndpointResult {
	if r.authErr != nil {
		return EndpointResult{
			State:     StateError,
			Message:   fmt.Sprintf("Error calling the authentication url: %v", r.authErr),
			Retryable: true,
		}
	}

	method := strings.ToUpper(e.Method)
	if method == "" {
		method = http.MethodGet
	}
	concrete := substitute(e.URL, r.vars)
	template := matchTemplate(concrete, r.templates)

	req, err := http.NewRequestWithContext(ctx, method, r.base+concrete, nil)
	if err != nil {
		return EndpointResult{State: StateError, Message: fmt.Sprintf("Error building request: %v", err)}
	}
	if e.Body != "" {
		path := e.Body
		if !filepath.IsAbs(path) && r.in.BodyDir != "" {
			path = filepath.Join(r.in.BodyDir, path)
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return EndpointResult{State: StateInvalid, Message: fmt.Sprintf("%s: Body was set in config file, but the file does not exist: %s", e.URL, e.Body)}
		}
		if err != nil {
			return EndpointResult{State: StateError, Message: fmt.Sprintf("Error loading body file: %v", err)}
		}
		req, err = http.NewRequestWithContext(ctx, method, r.base+concrete, strings.NewReader(string(data)))
		if err != nil {
			return EndpointResult{State: StateError, Message: fmt.Sprintf("Error building request: %v", err)}
		}
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range parseHeader(e.Header) {
		req.Header.Set(name, lib.ExpandValue(value))
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer basic//"+r.token)
	}

	timeout := r.in.Timeout
	if e.Timeout > 0 {
		timeout = time.Duration(e.Timeout) * time.Second
	}
	result := http_utils.ExecuteRequest(req, http_utils.RequestExecutionOptions{Client: r.in.HttpClient, Timeout: timeout})
	if result.Err != nil {
		r.logger.Debug().Err(result.Err).Str("endpoint", e.ID).Msg("Error sending request to back end")
		return EndpointResult{State: StateError, Message: fmt.Sprintf("Error sending request to back end: %v", result.Err), Retryable: true}
	}
	return r.classify(e, template, method, result)
}

func (r *run) classify(e registry.EndpointRecord, template, method string, result http_utils.RequestExecutionResult) EndpointResult {
	status := result.Response.StatusCode
	res := EndpointResult{StatusCode: status}
	switch {
	case status == http.StatusUnauthorized:
		res.State = StateInvalid
		res.Message = "Authentication failed, currently only BasicAuth is supported"
		return res
	case status == http.StatusNotFound:
		res.State = StateMissing
		res.Message = "Endpoint was not found"
		return res
	case status >= 400 && status < 600:
		res.State = StateError
		res.Message = fmt.Sprintf("A client or server error occurred, response code %d", status)
		return res
	}

	mediaType := DefaultMediaType
	if ct := result.Response.Header.Get("Content-Type"); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = parsed
		}
	}
	empty := len(strings.TrimSpace(string(result.Body))) == 0

	err := r.in.Validator.ValidateJSON(template, method, status, mediaType, result.Body)
	var missing *validation.CoordinateMissingError
	var failed *validation.ValidationFailedError
	switch {
	case err == nil:
		res.State = StateValid
	case errors.As(err, &missing):
		if empty && (missing.Segment == "media type" || missing.Segment == "schema") {
			res.State = StateValid
			return res
		}
		res.State = StateSkipped
		res.Message = fmt.Sprintf("Not described by the contract: %v", err)
	case errors.As(err, &failed):
		res.State = StateInvalid
		res.Message = "Response of the back end not valid"
		res.Details = failed.Details
	default:
		r.logger.Error().Err(err).Str("endpoint", e.ID).Msg("Error validating response")
		res.State = StateError
		res.Message = fmt.Sprintf("Error validating response: %v", err)
	}
	return res
}

// substitute replaces {name} placeholders with variable values. Unknown
// placeholders are kept.
func substitute(path string, vars map[string]string) string {
	if !strings.Contains(path, "{") {
		return path
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if name, ok := placeholder(s); ok {
			if v, found := vars[name]; found {
				segments[i] = url.PathEscape(v)
			}
		}
	}
	return strings.Join(segments, "/")
}

func placeholder(segment string) (string, bool) {
	if len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}' {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

// matchTemplate finds the contract path a concrete path belongs to. An
// exact match wins, otherwise the template with the fewest placeholders.
// Paths matching no template are returned unchanged.
func matchTemplate(path string, templates []string) string {
	trimmed := path
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	best, bestWild := "", -1
	segments := strings.Split(trimmed, "/")
	for _, t := range templates {
		if t == trimmed {
			return t
		}
		parts := strings.Split(t, "/")
		if len(parts) != len(segments) {
			continue
		}
		wild := 0
		matched := true
		for i, p := range parts {
			if _, ok := placeholder(p); ok {
				wild++
				continue
			}
			if p != segments[i] {
				matched = false
				break
			}
		}
		if matched && (bestWild < 0 || wild < bestWild) {
			best, bestWild = t, wild
		}
	}
	if bestWild < 0 {
		return trimmed
	}
	return best
}

// parseHeader reads "Name: value" pairs separated by newlines or semicolons.
func parseHeader(header string) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.FieldsFunc(header, func(r rune) bool { return r == '\n' || r == ';' }) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers
}
