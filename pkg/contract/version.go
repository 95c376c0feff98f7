package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrInvalidVersionFormat is returned for malformed or unguessable versions
	ErrInvalidVersionFormat = errors.New("invalid API version format")
	// ErrNoVersion is returned when neither an explicit version nor a backend URL is known
	ErrNoVersion = errors.New("no API version information")
)

var (
	strictVersionRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	guessVersionRe  = regexp.MustCompile(`(\d+)[._-](\d+)[._-](\d+)`)
)

// Version is a MAJOR.MINOR.PATCH contract version.
type Version struct {
	v *semver.Version
}

// ParseVersion parses a strict MAJOR.MINOR.PATCH version string.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if !strictVersionRe.MatchString(s) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, s)
	}
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersionFormat, s, err)
	}
	return Version{v: v}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for tests and constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// GuessVersion extracts a version from a backend URL such as
// https://openeo.example.com/openeo/1.0.0/ or .../v1_0_0.
func GuessVersion(backendURL string) (Version, error) {
	match := guessVersionRe.FindStringSubmatch(backendURL)
	if match == nil {
		return Version{}, fmt.Errorf("%w: failed to guess API version from backend url %s", ErrInvalidVersionFormat, backendURL)
	}
	return ParseVersion(strings.Join(match[1:], "."))
}

// ResolveVersion returns the explicit version when given, otherwise guesses it from the backend URL.
func ResolveVersion(explicit, backendURL string) (Version, error) {
	if explicit != "" {
		return ParseVersion(explicit)
	}
	if backendURL == "" {
		return Version{}, ErrNoVersion
	}
	return GuessVersion(backendURL)
}

// IsZero reports whether v was never set.
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Compare returns -1, 0 or 1. A zero version sorts first.
func (v Version) Compare(o Version) int {
	switch {
	case v.v == nil && o.v == nil:
		return 0
	case v.v == nil:
		return -1
	case o.v == nil:
		return 1
	}
	return v.v.Compare(o.v)
}

// AtLeast reports whether v >= constraint version s. Used to branch on contract evolution,
// e.g. /collections/{collection_id} exists since 0.4.0.
func (v Version) AtLeast(s string) bool {
	o, err := ParseVersion(s)
	if err != nil || v.v == nil {
		return false
	}
	return v.Compare(o) >= 0
}
