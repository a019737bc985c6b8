package pkgdiff

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CommitHeaderPrefix starts the header lines of `rpm-ostree db diff` output.
const CommitHeaderPrefix = "ostree diff commit "

// Change is a package whose version changed between the two commits.
type Change struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Result is a package-level diff between two commits.
type Result struct {
	Changed []Change `json:"changed"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty reports whether the two commits carry the same packages.
func (r *Result) Empty() bool {
	return len(r.Changed) == 0 && len(r.Added) == 0 && len(r.Removed) == 0
}

// ParseError reports a line of diff output that does not follow the grammar.
type ParseError struct {
	Line   int // 1-based
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pkgdiff: line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Parse parses the lines of `rpm-ostree db diff --format=diff` output.
//
// Each line is a change code followed by a package NEVRA: "+" added,
// "-" removed, and a "!" line immediately followed by a "=" line for a
// package changed from the first to the second.
func Parse(lines []string) (*Result, error) {
	p := &parser{res: &Result{}}
	for i, line := range lines {
		if err := p.line(i+1, line); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.res, nil
}

// ParseReader parses diff output read from r.
func ParseReader(r io.Reader) (*Result, error) {
	p := &parser{res: &Result{}}
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		if err := p.line(n, sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.res, nil
}

type parser struct {
	res *Result

	pending     string
	pendingLine int
	hasPending  bool
}

func (p *parser) line(n int, raw string) error {
	if strings.HasPrefix(raw, CommitHeaderPrefix) {
		return nil
	}
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil
	}

	code, pkg := line[0], strings.TrimSpace(line[1:])
	if p.hasPending && code != '=' {
		return &ParseError{Line: n, Text: raw, Reason: fmt.Sprintf("expected '=' after '!%s'", p.pending)}
	}

	switch code {
	case '!':
		p.pending, p.pendingLine, p.hasPending = pkg, n, true
	case '=':
		if !p.hasPending {
			return &ParseError{Line: n, Text: raw, Reason: "'=' without preceding '!'"}
		}
		p.res.Changed = append(p.res.Changed, Change{From: p.pending, To: pkg})
		p.pending, p.hasPending = "", false
	case '-':
		p.res.Removed = append(p.res.Removed, pkg)
	case '+':
		p.res.Added = append(p.res.Added, pkg)
	default:
		return &ParseError{Line: n, Text: raw, Reason: fmt.Sprintf("unknown change code %q", code)}
	}
	return nil
}

func (p *parser) finish() error {
	if p.hasPending {
		return &ParseError{Line: p.pendingLine, Text: "!" + p.pending, Reason: "'!' without following '='"}
	}
	return nil
}
