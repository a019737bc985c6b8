package pkgdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Differ computes package diffs with `rpm-ostree db diff`.
type Differ struct {
	// Tool is the rpm-ostree executable; "rpm-ostree" if empty.
	Tool     string
	RepoPath string
}

// Args returns the argument list passed to the tool.
func (d *Differ) Args(from, to string) []string {
	return []string{"db", "diff", "--format=diff", "--repo=" + d.RepoPath, from, to}
}

// Diff returns the package changes between the commits from and to.
func (d *Differ) Diff(ctx context.Context, from, to string) (*Result, error) {
	tool := d.Tool
	if tool == "" {
		tool = "rpm-ostree"
	}

	cmd := exec.CommandContext(ctx, tool, d.Args(from, to)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s db diff failed: %w: %s", tool, err, strings.TrimSpace(stderr.String()))
	}

	res, err := ParseReader(&stdout)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", from, to, err)
	}
	return res, nil
}
