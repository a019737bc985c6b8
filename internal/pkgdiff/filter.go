package pkgdiff

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Name returns the package name of a NEVRA such as "bash-4.3.33-1.fc22.x86_64",
// dropping the version, release and arch fields.
func Name(nevra string) string {
	// name-[epoch:]version-release.arch
	parts := strings.Split(nevra, "-")
	if len(parts) < 3 {
		return nevra
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

// Filter returns the part of r concerning packages whose name matches one of
// the include patterns (all packages if include is empty) and none of the
// exclude patterns. Patterns are doublestar globs matched against both the
// package name and the full NEVRA.
func (r *Result) Filter(include, exclude []string) *Result {
	if len(include) == 0 && len(exclude) == 0 {
		return r
	}

	keep := func(pkg string) bool {
		if len(include) > 0 && !matchAny(include, pkg) {
			return false
		}
		return !matchAny(exclude, pkg)
	}

	out := &Result{}
	for _, c := range r.Changed {
		if keep(c.From) || keep(c.To) {
			out.Changed = append(out.Changed, c)
		}
	}
	for _, pkg := range r.Added {
		if keep(pkg) {
			out.Added = append(out.Added, pkg)
		}
	}
	for _, pkg := range r.Removed {
		if keep(pkg) {
			out.Removed = append(out.Removed, pkg)
		}
	}
	return out
}

func matchAny(patterns []string, pkg string) bool {
	name := Name(pkg)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, pkg); matched {
			return true
		}
	}
	return false
}
