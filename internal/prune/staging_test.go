package prune

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/masmgr/rpmostree-toolbox/internal/ostree"
)

const testKey = "test.staging"

var baseTime = time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)

type testCommit struct {
	rev    string
	marked bool
	ts     time.Time
}

// newRepo builds a linear history from commits (root first) and points ref at the last one.
func newRepo(t *testing.T, ref string, commits ...testCommit) *ostree.MemoryRepository {
	t.Helper()
	repo := ostree.NewMemoryRepository()
	parent := ""
	for i, c := range commits {
		ts := c.ts
		if ts.IsZero() {
			ts = baseTime.Add(time.Duration(i) * time.Hour)
		}
		if err := repo.AddCommit(ostree.Commit{Rev: c.rev, Parent: parent, Timestamp: ts}); err != nil {
			t.Fatalf("AddCommit(%s): %v", c.rev, err)
		}
		if c.marked {
			if err := repo.SetDetachedMetadata(c.rev, map[string]string{testKey: "true"}); err != nil {
				t.Fatalf("SetDetachedMetadata(%s): %v", c.rev, err)
			}
		}
		parent = c.rev
	}
	if parent != "" {
		if err := repo.SetRef(context.Background(), ref, parent); err != nil {
			t.Fatalf("SetRef: %v", err)
		}
	}
	return repo
}

func resolve(t *testing.T, repo ostree.Repository, ref string) string {
	t.Helper()
	rev, err := repo.ResolveRev(context.Background(), ref, true)
	if err != nil {
		t.Fatalf("ResolveRev: %v", err)
	}
	return rev
}

func TestStagingPruner_DropsMarkedTip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, "os/base",
		testCommit{rev: "root"},
		testCommit{rev: "A"},
		testCommit{rev: "B"},
		testCommit{rev: "C", marked: true},
		testCommit{rev: "D", marked: true},
	)

	report, err := NewStagingPruner(repo, testKey, nil).Prune(ctx, "os/base")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if !report.Pruned() {
		t.Fatal("Pruned() = false, expected true")
	}
	if report.From != "D" || report.To != "B" {
		t.Errorf("From/To = %s/%s, expected D/B", report.From, report.To)
	}
	if got := resolve(t, repo, "os/base"); got != "B" {
		t.Errorf("ref = %s, expected B", got)
	}
	if len(report.Skipped) != 2 || report.Skipped[0] != "D" || report.Skipped[1] != "C" {
		t.Errorf("Skipped = %v, expected [D C]", report.Skipped)
	}
	// two commits plus their detached metadata
	if report.ObjectsRemoved != 4 {
		t.Errorf("ObjectsRemoved = %d, expected 4", report.ObjectsRemoved)
	}
	if report.BytesFreed <= 0 {
		t.Errorf("BytesFreed = %d, expected > 0", report.BytesFreed)
	}
	for _, rev := range []string{"C", "D"} {
		if repo.HasCommit(rev) {
			t.Errorf("staging commit %s survived", rev)
		}
	}
}

func TestStagingPruner_NoMarkedCommits(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, "os/base",
		testCommit{rev: "root"},
		testCommit{rev: "A"},
		testCommit{rev: "B"},
	)

	report, err := NewStagingPruner(repo, testKey, nil).Prune(ctx, "os/base")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned() || report.ObjectsRemoved != 0 || len(report.Skipped) != 0 {
		t.Errorf("report = %+v, expected no work", report)
	}
	if got := resolve(t, repo, "os/base"); got != "B" {
		t.Errorf("ref = %s, expected B", got)
	}
}

func TestStagingPruner_MarkedBelowTipIgnored(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, "os/base",
		testCommit{rev: "root"},
		testCommit{rev: "A", marked: true},
		testCommit{rev: "B"},
	)

	report, err := NewStagingPruner(repo, testKey, nil).Prune(ctx, "os/base")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned() {
		t.Errorf("Pruned() = true, expected the walk to stop at the unmarked tip")
	}
	if !repo.HasCommit("A") {
		t.Error("commit A was removed")
	}
}

func TestStagingPruner_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, "os/base",
		testCommit{rev: "root"},
		testCommit{rev: "A"},
		testCommit{rev: "B", marked: true},
	)
	p := NewStagingPruner(repo, testKey, nil)

	first, err := p.Prune(ctx, "os/base")
	if err != nil {
		t.Fatalf("first Prune: %v", err)
	}
	if !first.Pruned() {
		t.Fatal("first Prune did nothing")
	}

	second, err := p.Prune(ctx, "os/base")
	if err != nil {
		t.Fatalf("second Prune: %v", err)
	}
	if second.Pruned() || second.ObjectsRemoved != 0 {
		t.Errorf("second report = %+v, expected no-op", second)
	}
	if got := resolve(t, repo, "os/base"); got != "A" {
		t.Errorf("ref = %s, expected A", got)
	}
}

func TestStagingPruner_MarkedRootIsInconsistent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, "os/base",
		testCommit{rev: "root", marked: true},
		testCommit{rev: "A", marked: true},
	)
	core, logs := observer.New(zap.ErrorLevel)

	report, err := NewStagingPruner(repo, testKey, zap.New(core)).Prune(ctx, "os/base")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if !report.Inconsistent {
		t.Error("Inconsistent = false, expected true")
	}
	if report.Pruned() {
		t.Error("ref was reset on an inconsistent chain")
	}
	if got := resolve(t, repo, "os/base"); got != "A" {
		t.Errorf("ref = %s, expected A", got)
	}
	if logs.Len() != 1 {
		t.Errorf("logged %d errors, expected 1", logs.Len())
	}
}

func TestStagingPruner_MissingRef(t *testing.T) {
	repo := ostree.NewMemoryRepository()
	report, err := NewStagingPruner(repo, testKey, nil).Prune(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned() || report.From != "" {
		t.Errorf("report = %+v, expected empty", report)
	}
}

func TestStagingPruner_OtherKeyIgnored(t *testing.T) {
	repo := newRepo(t, "os/base",
		testCommit{rev: "root"},
		testCommit{rev: "A", marked: true},
	)
	report, err := NewStagingPruner(repo, "other.key", nil).Prune(context.Background(), "os/base")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if report.Pruned() {
		t.Error("commit marked with a different key was pruned")
	}
}

func TestStagingPruner_PruneMatching(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, "fedora/22/x86_64/docker-host",
		testCommit{rev: "root"},
		testCommit{rev: "A", marked: true},
	)
	if err := repo.AddCommit(ostree.Commit{Rev: "W", Parent: "root", Timestamp: baseTime}); err != nil {
		t.Fatalf("AddCommit: %v", err)
	}
	if err := repo.SetRef(ctx, "fedora/22/x86_64/workstation", "W"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	if err := repo.SetRef(ctx, "centos/7/x86_64/base", "root"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	p := NewStagingPruner(repo, testKey, nil)

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{name: "Glob", pattern: "fedora/**", want: []string{"fedora/22/x86_64/docker-host", "fedora/22/x86_64/workstation"}},
		{name: "Literal", pattern: "centos/7/x86_64/base", want: []string{"centos/7/x86_64/base"}},
		{name: "Literal missing", pattern: "centos/8/x86_64/base", want: []string{"centos/8/x86_64/base"}},
		{name: "No match", pattern: "rhel/*", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports, err := p.PruneMatching(ctx, tt.pattern)
			if err != nil {
				t.Fatalf("PruneMatching: %v", err)
			}
			if len(reports) != len(tt.want) {
				t.Fatalf("got %d reports, expected %d", len(reports), len(tt.want))
			}
			for i, r := range reports {
				if r.Ref != tt.want[i] {
					t.Errorf("reports[%d].Ref = %s, expected %s", i, r.Ref, tt.want[i])
				}
			}
		})
	}

	if got := resolve(t, repo, "fedora/22/x86_64/docker-host"); got != "root" {
		t.Errorf("docker-host ref = %s, expected root", got)
	}
}

func TestStagingPruner_PruneMatchingInvalidPattern(t *testing.T) {
	p := NewStagingPruner(ostree.NewMemoryRepository(), testKey, nil)
	if _, err := p.PruneMatching(context.Background(), "fedora/[x"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
