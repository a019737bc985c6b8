package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Component indexes of a Version.
const (
	ReleaseVer = iota
	Minor
	Refresh
	CVE
)

var componentNames = [...]string{"releasever", "minor", "refresh", "cve"}

// ComponentName returns the conventional name of the i-th version component.
func ComponentName(i int) string {
	if i < 0 || i >= len(componentNames) {
		return "unknown"
	}
	return componentNames[i]
}

// Version is a tree version of the form <releasever>.<minor>.<refresh>[.<cve>].
type Version []uint64

// Parse parses a dotted version string with 3 or 4 numeric components.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 3 || len(parts) > 4 {
		return nil, &ValidationError{Input: s, Reason: "not in correct format (3-4 numbers), e.g. 1.2.3.4"}
	}

	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, &ValidationError{Input: s, Reason: fmt.Sprintf("<%s> %q is not a number", componentNames[i], p)}
		}
		v[i] = n
	}
	return v, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// HasCVE reports whether the version carries a fourth (cve) component.
func (v Version) HasCVE() bool {
	return len(v) == 4
}

// String formats the version in dotted form.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}

// Compare orders two versions component by component.
// A 3-component version sorts before a 4-component version that shares its
// first three components.
func Compare(a, b Version) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// CheckMonotonic returns a *MonotonicityError naming the first component at
// which next is older than prev. Equal versions are accepted.
func CheckMonotonic(next, prev Version) error {
	for i := ReleaseVer; i <= Refresh; i++ {
		switch {
		case next[i] < prev[i]:
			return &MonotonicityError{Component: i, Next: next, Prev: prev}
		case next[i] > prev[i]:
			return nil
		}
	}

	switch {
	case !prev.HasCVE():
		return nil
	case !next.HasCVE():
		return &MonotonicityError{Component: CVE, Next: next, Prev: prev, Missing: true}
	case next[CVE] < prev[CVE]:
		return &MonotonicityError{Component: CVE, Next: next, Prev: prev}
	}
	return nil
}
