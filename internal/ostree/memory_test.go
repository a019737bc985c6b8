package ostree

import (
	"context"
	"errors"
	"testing"
	"time"
)

// buildChain adds a linear history root -> ... -> revs[len-1] and points ref at the tip.
func buildChain(t *testing.T, repo *MemoryRepository, ref string, revs ...string) {
	t.Helper()
	base := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	parent := ""
	for i, rev := range revs {
		if err := repo.AddCommit(Commit{Rev: rev, Parent: parent, Timestamp: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("AddCommit(%s): %v", rev, err)
		}
		parent = rev
	}
	if err := repo.SetRef(context.Background(), ref, parent); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
}

func TestMemoryRepository_ResolveRev(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	buildChain(t, repo, "os/x86_64/base", "a", "b")

	t.Run("Ref", func(t *testing.T) {
		rev, err := repo.ResolveRev(ctx, "os/x86_64/base", false)
		if err != nil || rev != "b" {
			t.Fatalf("ResolveRev = (%q, %v), expected (b, nil)", rev, err)
		}
	})

	t.Run("Revision", func(t *testing.T) {
		rev, err := repo.ResolveRev(ctx, "a", false)
		if err != nil || rev != "a" {
			t.Fatalf("ResolveRev = (%q, %v), expected (a, nil)", rev, err)
		}
	})

	t.Run("MissingAllowed", func(t *testing.T) {
		rev, err := repo.ResolveRev(ctx, "missing", true)
		if err != nil || rev != "" {
			t.Fatalf("ResolveRev = (%q, %v), expected empty", rev, err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := repo.ResolveRev(ctx, "missing", false)
		if !errors.Is(err, ErrRefNotFound) {
			t.Fatalf("error = %v, expected ErrRefNotFound", err)
		}
	})
}

func TestMemoryRepository_AddCommitRequiresParent(t *testing.T) {
	repo := NewMemoryRepository()
	err := repo.AddCommit(Commit{Rev: "b", Parent: "a"})
	if !errors.Is(err, ErrCommitNotFound) {
		t.Fatalf("error = %v, expected ErrCommitNotFound", err)
	}
}

func TestMemoryRepository_PruneUnreachable(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	buildChain(t, repo, "main", "a", "b", "c", "d")
	if err := repo.SetDetachedMetadata("d", map[string]string{"staging": "true"}); err != nil {
		t.Fatalf("SetDetachedMetadata: %v", err)
	}

	stats, err := repo.PruneUnreachable(ctx, PruneRefsOnly)
	if err != nil {
		t.Fatalf("PruneUnreachable: %v", err)
	}
	if stats.ObjectsRemoved != 0 {
		t.Fatalf("ObjectsRemoved = %d with everything reachable", stats.ObjectsRemoved)
	}

	if err := repo.SetRef(ctx, "main", "b"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	stats, err = repo.PruneUnreachable(ctx, PruneRefsOnly)
	if err != nil {
		t.Fatalf("PruneUnreachable: %v", err)
	}
	// c, d and d's detached metadata
	if stats.ObjectsRemoved != 3 {
		t.Errorf("ObjectsRemoved = %d, expected 3", stats.ObjectsRemoved)
	}
	if stats.BytesFreed <= 0 {
		t.Errorf("BytesFreed = %d, expected > 0", stats.BytesFreed)
	}
	for _, rev := range []string{"c", "d"} {
		if repo.HasCommit(rev) {
			t.Errorf("commit %s survived prune", rev)
		}
	}
	for _, rev := range []string{"a", "b"} {
		if !repo.HasCommit(rev) {
			t.Errorf("commit %s was pruned", rev)
		}
	}
}

func TestAncestry_WalksToRoot(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	buildChain(t, repo, "main", "a", "b", "c")

	var got []string
	err := ForEach(ctx, repo, "c", func(c *Commit) error {
		got = append(got, c.Rev)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("walked %v, expected %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walked %v, expected %v", got, want)
		}
	}
}

func TestAncestry_Stop(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	buildChain(t, repo, "main", "a", "b", "c")

	n := 0
	err := ForEach(ctx, repo, "c", func(c *Commit) error {
		n++
		if c.Rev == "b" {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if n != 2 {
		t.Errorf("visited %d commits, expected 2", n)
	}
}

func TestAncestry_MissingCommit(t *testing.T) {
	it := NewAncestry(NewMemoryRepository(), "nope")
	if it.Next(context.Background()) {
		t.Fatal("Next returned true for a missing commit")
	}
	if !errors.Is(it.Err(), ErrCommitNotFound) {
		t.Fatalf("Err() = %v, expected ErrCommitNotFound", it.Err())
	}
}

func TestAncestry_EmptyRev(t *testing.T) {
	it := NewAncestry(NewMemoryRepository(), "")
	if it.Next(context.Background()) {
		t.Fatal("Next returned true for an empty revision")
	}
	if it.Err() != nil {
		t.Fatalf("Err() = %v, expected nil", it.Err())
	}
}
