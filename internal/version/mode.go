package version

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how the next version is derived.
type Mode int

const (
	// ModeLiteral uses an explicit version string.
	ModeLiteral Mode = iota
	// ModeCVE increments the cve component; the previous version must have one.
	ModeCVE
	// ModeRefresh increments refresh and drops cve.
	ModeRefresh
	// ModeMinor increments minor, zeroes refresh and drops cve.
	ModeMinor
)

const skipPrefix = "skip-or-"

// String returns the command-line spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeLiteral:
		return "literal"
	case ModeCVE:
		return "cve"
	case ModeRefresh:
		return "refresh"
	case ModeMinor:
		return "minor"
	default:
		return "unknown"
	}
}

// Apply derives the next version from prev.
//
// Given 1.2.4.8: minor == 1.3.0, refresh == 1.2.5, cve == 1.2.4.9.
func (m Mode) Apply(prev Version) (Version, error) {
	switch m {
	case ModeCVE:
		if !prev.HasCVE() {
			return nil, &PolicyError{Reason: fmt.Sprintf("no <cve> component to increment in %s", prev)}
		}
		if err := checkIncrement(prev, CVE); err != nil {
			return nil, err
		}
		return Version{prev[ReleaseVer], prev[Minor], prev[Refresh], prev[CVE] + 1}, nil
	case ModeRefresh:
		if err := checkIncrement(prev, Refresh); err != nil {
			return nil, err
		}
		return Version{prev[ReleaseVer], prev[Minor], prev[Refresh] + 1}, nil
	case ModeMinor:
		if err := checkIncrement(prev, Minor); err != nil {
			return nil, err
		}
		return Version{prev[ReleaseVer], prev[Minor] + 1, 0}, nil
	default:
		return nil, fmt.Errorf("mode %s does not derive from a previous version", m)
	}
}

func checkIncrement(prev Version, i int) error {
	if prev[i] == math.MaxUint64 {
		return &ValidationError{Input: prev.String(), Reason: fmt.Sprintf("<%s> component overflows", ComponentName(i))}
	}
	return nil
}

// Request is a parsed --versioning value.
type Request struct {
	Raw  string
	Mode Mode
	// Literal is set for ModeLiteral.
	Literal Version
	// SkipIfUnversioned is set by the skip-or- prefix.
	SkipIfUnversioned bool
}

// Absent reports whether no versioning was requested at all.
func (r Request) Absent() bool {
	return r.Raw == ""
}

// ParseRequest parses a versioning specifier: a literal version, one of
// cve, refresh or minor, optionally prefixed with skip-or-.
func ParseRequest(spec string) (Request, error) {
	req := Request{Raw: spec}
	if spec == "" {
		return req, nil
	}

	rest := spec
	if strings.HasPrefix(rest, skipPrefix) {
		req.SkipIfUnversioned = true
		rest = rest[len(skipPrefix):]
	}

	switch rest {
	case "cve":
		req.Mode = ModeCVE
	case "refresh":
		req.Mode = ModeRefresh
	case "minor":
		req.Mode = ModeMinor
	default:
		v, err := Parse(rest)
		if err != nil {
			return Request{}, err
		}
		req.Mode = ModeLiteral
		req.Literal = v
	}
	return req, nil
}
