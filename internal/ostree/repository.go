package ostree

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRefNotFound is returned when a ref (or revision) cannot be resolved.
	ErrRefNotFound = errors.New("ref not found")
	// ErrCommitNotFound is returned when a commit object is not in the repository.
	ErrCommitNotFound = errors.New("commit not found")
)

// VersionKey is the inline metadata key holding the tree version.
const VersionKey = "version"

// Commit represents the parts of a commit object the toolbox cares about.
type Commit struct {
	Rev       string
	Parent    string // empty for a root commit
	Timestamp time.Time
	Metadata  map[string]string
}

// Version returns the version recorded in the commit metadata, if any.
func (c *Commit) Version() string {
	return c.Metadata[VersionKey]
}

// PruneScope restricts which roots are considered live when pruning.
type PruneScope int

const (
	// PruneRefsOnly only keeps objects reachable from refs.
	PruneRefsOnly PruneScope = iota
	// PruneAll also honours other roots a backend may know about.
	PruneAll
)

// PruneStats summarises a prune run.
type PruneStats struct {
	ObjectsTotal   int
	ObjectsRemoved int
	BytesFreed     int64
}

// Repository is the commit store the toolbox operates on.
// This abstraction allows for easier testing and alternative implementations.
type Repository interface {
	// ResolveRev resolves a ref or revision to a commit checksum. When
	// allowNotFound is set a missing ref resolves to "" without error;
	// otherwise ErrRefNotFound is returned.
	ResolveRev(ctx context.Context, ref string, allowNotFound bool) (string, error)

	// LoadCommit loads a commit object.
	LoadCommit(ctx context.Context, rev string) (*Commit, error)

	// ReadDetachedMetadata returns the detached metadata of a commit, or nil
	// if it has none.
	ReadDetachedMetadata(ctx context.Context, rev string) (map[string]string, error)

	// SetRef points ref at rev.
	SetRef(ctx context.Context, ref, rev string) error

	// PruneUnreachable deletes objects that are no longer reachable.
	PruneUnreachable(ctx context.Context, scope PruneScope) (PruneStats, error)

	// ListRefs returns the names of all refs.
	ListRefs(ctx context.Context) ([]string, error)
}

// Compile-time interface conformance checks.
var (
	_ Repository = (*CLIRepository)(nil)
	_ Repository = (*GitRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
