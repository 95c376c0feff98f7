package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/validation"
)

// State is the verdict for one endpoint, group or run.
type State string

const (
	StateValid   State = "Valid"
	StateInvalid State = "Invalid"
	StateMissing State = "Missing"
	StateError   State = "Error"
	StateSkipped State = "Skipped"
)

// Passed reports whether the state does not fail its group.
func (s State) Passed() bool {
	return s == StateValid || s == StateMissing || s == StateSkipped
}

// Colored renders the state for terminals.
func (s State) Colored() string {
	switch s {
	case StateValid:
		return lib.Pass(string(s))
	case StateInvalid, StateError:
		return lib.Fail(string(s))
	default:
		return lib.Warn(string(s))
	}
}

const nonMandatoryMessage = "Non-mandatory endpoint, not supported by back-end"

// EndpointResult is the outcome of validating one endpoint.
type EndpointResult struct {
	EndpointID string              `json:"endpoint_id" yaml:"endpoint_id"`
	Group      string              `json:"group" yaml:"group"`
	Method     string              `json:"method" yaml:"method"`
	URL        string              `json:"url" yaml:"url"`
	State      State               `json:"state" yaml:"state"`
	Message    string              `json:"message,omitempty" yaml:"message,omitempty"`
	StatusCode int                 `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Retryable  bool                `json:"retryable,omitempty" yaml:"retryable,omitempty"`
	Details    []validation.Detail `json:"details,omitempty" yaml:"details,omitempty"`
	Duration   time.Duration       `json:"duration" yaml:"duration"`
}

func (r EndpointResult) TableHeaders() []string {
	return []string{"Group", "ID", "Method", "URL", "State", "Status", "Message"}
}

func (r EndpointResult) TableRow() []string {
	status := ""
	if r.StatusCode != 0 {
		status = strconv.Itoa(r.StatusCode)
	}
	return []string{r.Group, r.EndpointID, r.Method, r.URL, string(r.State), status, r.Message}
}

func (r EndpointResult) ColoredTableRow() []string {
	row := r.TableRow()
	row[4] = r.State.Colored()
	return row
}

func (r EndpointResult) String() string {
	s := fmt.Sprintf("%s %s %s: %s", r.EndpointID, r.Method, r.URL, r.State)
	if r.Message != "" {
		s += " (" + r.Message + ")"
	}
	return s
}

func (r EndpointResult) Pretty() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s%s %s%s -> %s\n", r.EndpointID, lib.Blue, r.Method, r.URL, lib.ResetColor, r.State.Colored())
	if r.Message != "" {
		fmt.Fprintf(&b, "    %s\n", r.Message)
	}
	for _, d := range r.Details {
		fmt.Fprintf(&b, "    - %s\n", d.String())
	}
	return b.String()
}

// GroupResult summarizes the endpoints of one group.
type GroupResult struct {
	Group     string           `json:"group" yaml:"group"`
	State     State            `json:"group_summary" yaml:"group_summary"`
	Endpoints []EndpointResult `json:"endpoints" yaml:"endpoints"`

	position int
}

func (g GroupResult) TableHeaders() []string {
	return []string{"Group", "State", "Endpoints", "Failed"}
}

func (g GroupResult) TableRow() []string {
	failed := 0
	for _, e := range g.Endpoints {
		if !e.State.Passed() {
			failed++
		}
	}
	return []string{g.Group, string(g.State), strconv.Itoa(len(g.Endpoints)), strconv.Itoa(failed)}
}

func (g GroupResult) ColoredTableRow() []string {
	row := g.TableRow()
	row[1] = g.State.Colored()
	return row
}

func (g GroupResult) String() string {
	return fmt.Sprintf("%s: %s", g.Group, g.State)
}

func (g GroupResult) Pretty() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sGroup:%s %s -> %s\n", lib.Blue, lib.ResetColor, g.Group, g.State.Colored())
	for _, e := range g.Endpoints {
		b.WriteString(e.Pretty())
	}
	return b.String()
}

// Report is the result of one compliance run against a backend.
type Report struct {
	BackendID  string        `json:"backend_id" yaml:"backend_id"`
	BackendURL string        `json:"backend_url" yaml:"backend_url"`
	APIVersion string        `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	State      State         `json:"state" yaml:"state"`
	Groups     []GroupResult `json:"groups" yaml:"groups"`
}

// Results flattens the endpoint results of every group.
func (r *Report) Results() []EndpointResult {
	var out []EndpointResult
	for _, g := range r.Groups {
		out = append(out, g.Endpoints...)
	}
	return out
}

// Group returns the group result with the given name.
func (r *Report) Group(name string) (GroupResult, bool) {
	for _, g := range r.Groups {
		if g.Group == name {
			return g, true
		}
	}
	return GroupResult{}, false
}

func (r Report) TableHeaders() []string {
	return []string{"Backend", "URL", "API Version", "State", "Groups", "Duration"}
}

func (r Report) TableRow() []string {
	return []string{r.BackendID, r.BackendURL, r.APIVersion, string(r.State), strconv.Itoa(len(r.Groups)), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()}
}

func (r Report) ColoredTableRow() []string {
	row := r.TableRow()
	row[3] = r.State.Colored()
	return row
}

func (r Report) String() string {
	return fmt.Sprintf("%s (%s): %s", r.BackendID, r.BackendURL, r.State)
}

func (r Report) Pretty() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sBackend:%s %s\n", lib.Blue, lib.ResetColor, r.BackendURL)
	if r.APIVersion != "" {
		fmt.Fprintf(&b, "%sAPI Version:%s %s\n", lib.Blue, lib.ResetColor, r.APIVersion)
	}
	fmt.Fprintf(&b, "%sState:%s %s\n\n", lib.Blue, lib.ResetColor, r.State.Colored())
	for _, g := range r.Groups {
		b.WriteString(g.Pretty())
		b.WriteString("\n")
	}
	return b.String()
}

func summarize(results []EndpointResult) State {
	for _, r := range results {
		if !r.State.Passed() {
			return StateInvalid
		}
	}
	return StateValid
}
