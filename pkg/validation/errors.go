package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCoordinateMissing means the contract has no schema at the requested
	// path/method/status/media-type. Callers should skip, not fail.
	ErrCoordinateMissing = errors.New("schema coordinate missing from api spec")
	// ErrValidationFailed means the body violates the contract schema.
	ErrValidationFailed = errors.New("response does not match api spec")
)

// Coordinate identifies one schema location in a contract.
type Coordinate struct {
	Path      string `json:"path"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	MediaType string `json:"media_type"`
}

func (c Coordinate) String() string {
	s := strings.ToUpper(c.Method) + " " + c.Path
	if c.Status != "" {
		s += " " + c.Status
	}
	if c.MediaType != "" {
		s += " " + c.MediaType
	}
	return s
}

// CoordinateMissingError names the first segment of the coordinate absent from the contract.
type CoordinateMissingError struct {
	Coordinate Coordinate
	// Segment is one of "path", "method", "status", "media type" or "schema".
	Segment string
}

func (e *CoordinateMissingError) Error() string {
	return fmt.Sprintf("%s not in api spec: %s", e.Segment, e.Coordinate)
}

func (e *CoordinateMissingError) Unwrap() error { return ErrCoordinateMissing }

// Detail is one violated constraint.
type Detail struct {
	// InstanceLocation is a JSON pointer into the body.
	InstanceLocation string `json:"instance_location"`
	// KeywordLocation is the path of keywords that led to the violation.
	KeywordLocation string `json:"keyword_location"`
	Message         string `json:"message"`
}

func (d Detail) String() string {
	loc := d.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("at %s: %s", loc, d.Message)
}

// ValidationFailedError lists every violation found in a body.
type ValidationFailedError struct {
	Coordinate Coordinate
	Details    []Detail
}

func (e *ValidationFailedError) Error() string {
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.Coordinate, strings.Join(parts, "; "))
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// RefCycleError is returned when $ref aliases point back at themselves.
type RefCycleError struct {
	Chain []string
}

func (e *RefCycleError) Error() string {
	return "reference cycle: " + strings.Join(e.Chain, " -> ")
}
