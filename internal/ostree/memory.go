package ostree

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MemoryRepository is an in-memory Repository.
// It allows tests to build commit histories without an on-disk store.
type MemoryRepository struct {
	mu       sync.Mutex
	refs     map[string]string
	commits  map[string]Commit
	detached map[string]map[string]string
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		refs:     make(map[string]string),
		commits:  make(map[string]Commit),
		detached: make(map[string]map[string]string),
	}
}

// AddCommit stores a commit object. Its parent, if any, must already exist.
func (m *MemoryRepository) AddCommit(c Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.Rev == "" {
		return fmt.Errorf("commit has no revision")
	}
	if c.Parent != "" {
		if _, ok := m.commits[c.Parent]; !ok {
			return fmt.Errorf("parent %s of %s: %w", c.Parent, c.Rev, ErrCommitNotFound)
		}
	}
	m.commits[c.Rev] = c
	return nil
}

// SetDetachedMetadata replaces the detached metadata of a commit.
func (m *MemoryRepository) SetDetachedMetadata(rev string, md map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.commits[rev]; !ok {
		return fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
	}
	m.detached[rev] = maps.Clone(md)
	return nil
}

// HasCommit reports whether the commit object is still stored.
func (m *MemoryRepository) HasCommit(rev string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.commits[rev]
	return ok
}

// ResolveRev resolves a ref name or a full commit checksum.
func (m *MemoryRepository) ResolveRev(_ context.Context, ref string, allowNotFound bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rev, ok := m.refs[ref]; ok {
		return rev, nil
	}
	if _, ok := m.commits[ref]; ok {
		return ref, nil
	}
	if allowNotFound {
		return "", nil
	}
	return "", fmt.Errorf("%s: %w", ref, ErrRefNotFound)
}

// LoadCommit returns a copy of the stored commit.
func (m *MemoryRepository) LoadCommit(_ context.Context, rev string) (*Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.commits[rev]
	if !ok {
		return nil, fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
	}
	c.Metadata = maps.Clone(c.Metadata)
	return &c, nil
}

// ReadDetachedMetadata returns a copy of the commit's detached metadata.
func (m *MemoryRepository) ReadDetachedMetadata(_ context.Context, rev string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.commits[rev]; !ok {
		return nil, fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
	}
	return maps.Clone(m.detached[rev]), nil
}

// SetRef points ref at an existing commit.
func (m *MemoryRepository) SetRef(_ context.Context, ref, rev string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.commits[rev]; !ok {
		return fmt.Errorf("%s: %w", rev, ErrCommitNotFound)
	}
	m.refs[ref] = rev
	return nil
}

// PruneUnreachable deletes every commit not reachable from a ref.
// Each commit and its detached metadata count as separate objects.
func (m *MemoryRepository) PruneUnreachable(_ context.Context, _ PruneScope) (PruneStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := make(map[string]struct{}, len(m.commits))
	for _, rev := range m.refs {
		for rev != "" {
			if _, ok := live[rev]; ok {
				break
			}
			live[rev] = struct{}{}
			rev = m.commits[rev].Parent
		}
	}

	stats := PruneStats{ObjectsTotal: len(m.commits) + len(m.detached)}
	for rev, c := range m.commits {
		if _, ok := live[rev]; ok {
			continue
		}
		stats.ObjectsRemoved++
		stats.BytesFreed += commitSize(c)
		if md, ok := m.detached[rev]; ok {
			stats.ObjectsRemoved++
			stats.BytesFreed += metadataSize(md)
			delete(m.detached, rev)
		}
		delete(m.commits, rev)
	}
	return stats, nil
}

// ListRefs returns the ref names in sorted order.
func (m *MemoryRepository) ListRefs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.refs)), nil
}

func commitSize(c Commit) int64 {
	return int64(len(c.Rev)+len(c.Parent)+8) + metadataSize(c.Metadata)
}

func metadataSize(md map[string]string) int64 {
	var n int64
	for k, v := range md {
		n += int64(len(k) + len(v))
	}
	return n
}
