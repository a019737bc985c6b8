package ostree

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"
)

// showDateLayout is the layout of the Date: line printed by `ostree show`.
const showDateLayout = "2006-01-02 15:04:05 -0700"

// CLIRepository drives an OSTree repository through the ostree command-line tool.
type CLIRepository struct {
	Path string
	Tool string
	// DetachedKeys are the detached metadata keys ReadDetachedMetadata
	// probes for; the ostree CLI cannot enumerate them.
	DetachedKeys []string
}

// NewCLIRepository returns a CLIRepository for the repository at path.
func NewCLIRepository(path, tool string, detachedKeys ...string) *CLIRepository {
	if tool == "" {
		tool = "ostree"
	}
	return &CLIRepository{Path: path, Tool: tool, DetachedKeys: detachedKeys}
}

// cmdError carries the stderr of a failed ostree invocation.
type cmdError struct {
	args   []string
	err    error
	stderr string
}

func (e *cmdError) Error() string {
	return fmt.Sprintf("%s failed: %v: %s", strings.Join(e.args, " "), e.err, e.stderr)
}

func (e *cmdError) Unwrap() error {
	return e.err
}

func (r *CLIRepository) run(ctx context.Context, sub string, args ...string) (string, error) {
	argv := append([]string{sub, "--repo=" + r.Path}, args...)
	cmd := exec.CommandContext(ctx, r.Tool, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &cmdError{
			args:   append([]string{r.Tool}, argv...),
			err:    err,
			stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// ResolveRev runs `ostree rev-parse`.
func (r *CLIRepository) ResolveRev(ctx context.Context, ref string, allowNotFound bool) (string, error) {
	out, err := r.run(ctx, "rev-parse", ref)
	if err != nil {
		if isNotFound(err) {
			if allowNotFound {
				return "", nil
			}
			return "", fmt.Errorf("%s: %w", ref, ErrRefNotFound)
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// LoadCommit runs `ostree show` and parses its header.
func (r *CLIRepository) LoadCommit(ctx context.Context, rev string) (*Commit, error) {
	out, err := r.run(ctx, "show", rev)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
		}
		return nil, err
	}
	return parseShowOutput(out)
}

// ReadDetachedMetadata probes each of DetachedKeys with
// `ostree show --print-detached-metadata-key`.
func (r *CLIRepository) ReadDetachedMetadata(ctx context.Context, rev string) (map[string]string, error) {
	var md map[string]string
	for _, key := range r.DetachedKeys {
		out, err := r.run(ctx, "show", "--print-detached-metadata-key="+key, rev)
		if err != nil {
			if isMissingMetadata(err) {
				continue
			}
			return nil, err
		}
		if md == nil {
			md = make(map[string]string)
		}
		md[key] = parseVariantText(out)
	}
	return md, nil
}

// SetRef runs `ostree reset`.
func (r *CLIRepository) SetRef(ctx context.Context, ref, rev string) error {
	_, err := r.run(ctx, "reset", ref, rev)
	return err
}

// PruneUnreachable runs `ostree prune`.
func (r *CLIRepository) PruneUnreachable(ctx context.Context, scope PruneScope) (PruneStats, error) {
	var args []string
	if scope == PruneRefsOnly {
		args = append(args, "--refs-only")
	}
	out, err := r.run(ctx, "prune", args...)
	if err != nil {
		return PruneStats{}, err
	}
	return parsePruneOutput(out)
}

// ListRefs runs `ostree refs`.
func (r *CLIRepository) ListRefs(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "refs")
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			refs = append(refs, line)
		}
	}
	return refs, nil
}

func isNotFound(err error) bool {
	var ce *cmdError
	if !errors.As(err, &ce) {
		return false
	}
	s := strings.ToLower(ce.stderr)
	return strings.Contains(s, "not found") || strings.Contains(s, "no such")
}

func isMissingMetadata(err error) bool {
	var ce *cmdError
	if !errors.As(err, &ce) {
		return false
	}
	s := strings.ToLower(ce.stderr)
	return strings.Contains(s, "no such metadata key") || strings.Contains(s, "no detached metadata")
}

// parseShowOutput parses the header printed by `ostree show`:
//
//	commit 3f1c...
//	Parent:  9ab0...
//	ContentChecksum:  77e2...
//	Date:  2015-03-02 18:44:07 +0000
//	Version: 22.1.3
func parseShowOutput(out string) (*Commit, error) {
	c := &Commit{Metadata: make(map[string]string)}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			// The subject and body follow the first blank line.
			break
		}
		if rest, ok := strings.CutPrefix(line, "commit "); ok {
			c.Rev = strings.TrimSpace(rest)
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch key {
		case "Parent":
			c.Parent = val
		case "Date":
			ts, err := time.Parse(showDateLayout, val)
			if err != nil {
				return nil, fmt.Errorf("parse commit date: %w", err)
			}
			c.Timestamp = ts
		case "Version":
			c.Metadata[VersionKey] = val
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if c.Rev == "" {
		return nil, fmt.Errorf("unexpected ostree show output (no commit line)")
	}
	return c, nil
}

// parseVariantText strips GVariant text quoting from a printed value.
func parseVariantText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

var (
	pruneTotalRe   = regexp.MustCompile(`^Total objects: (\d+)`)
	pruneDeletedRe = regexp.MustCompile(`^Deleted (\d+) objects, (.+) freed`)
)

// parsePruneOutput parses the summary printed by `ostree prune`.
func parsePruneOutput(out string) (PruneStats, error) {
	var stats PruneStats
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if m := pruneTotalRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return stats, fmt.Errorf("parse total objects %q: %w", m[1], err)
			}
			stats.ObjectsTotal = n
			continue
		}
		if m := pruneDeletedRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return stats, fmt.Errorf("parse deleted objects %q: %w", m[1], err)
			}
			size, err := parseFreedSize(m[2])
			if err != nil {
				return stats, err
			}
			stats.ObjectsRemoved = n
			stats.BytesFreed = size
		}
	}
	return stats, nil
}

// parseFreedSize parses a GLib formatted size ("512 bytes", "1.4 MB").
func parseFreedSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{" bytes", " byte"} {
		if n, ok := strings.CutSuffix(s, suffix); ok {
			return strconv.ParseInt(n, 10, 64)
		}
	}
	size, err := units.FromHumanSize(s)
	if err != nil {
		return 0, fmt.Errorf("parse freed size %q: %w", s, err)
	}
	return size, nil
}
