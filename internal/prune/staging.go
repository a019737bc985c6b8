package prune

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	units "github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/masmgr/rpmostree-toolbox/internal/ostree"
)

// DefaultStagingKey is the detached metadata key marking a staging commit.
const DefaultStagingKey = "rpmostree-toolbox.staging"

// StagingReport describes what a staging prune did to one ref.
type StagingReport struct {
	Ref string
	// From is the revision the ref pointed at before pruning ("" if the ref
	// does not exist).
	From string
	// To is the revision the ref points at afterwards.
	To string
	// Skipped holds the staging revisions removed from the ref, newest first.
	Skipped []string
	Reset   bool

	ObjectsRemoved int
	BytesFreed     int64

	// Inconsistent is set when a staging commit without a parent was found.
	// The ref is left untouched in that case.
	Inconsistent bool
}

// Pruned reports whether the ref was moved.
func (r *StagingReport) Pruned() bool {
	return r.Reset
}

// StagingPruner drops intermediate staging commits from the tip of a ref.
type StagingPruner struct {
	repo ostree.Repository
	key  string
	log  *zap.Logger
}

// NewStagingPruner returns a pruner treating commits whose detached metadata
// contains markerKey as staging commits.
func NewStagingPruner(repo ostree.Repository, markerKey string, log *zap.Logger) *StagingPruner {
	if markerKey == "" {
		markerKey = DefaultStagingKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StagingPruner{repo: repo, key: markerKey, log: log}
}

// Prune moves ref back past every staging commit at its tip and then prunes
// objects that are no longer reachable from any ref. A missing ref is not
// an error.
func (p *StagingPruner) Prune(ctx context.Context, ref string) (*StagingReport, error) {
	log := p.log.With(zap.String("ref", ref))
	report := &StagingReport{Ref: ref}

	rev, err := p.repo.ResolveRev(ctx, ref, true)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	if rev == "" {
		log.Info("No previous commit")
		return report, nil
	}
	report.From = rev
	report.To = rev

	target, skipped, err := p.findTarget(ctx, rev)
	if err != nil {
		return nil, err
	}
	if target == "" {
		log.Error("Found a staging commit but no parent", zap.Strings("staging", skipped))
		report.Inconsistent = true
		return report, nil
	}
	if target == rev {
		log.Info("No staging commits to prune")
		return report, nil
	}

	log.Info("Resetting ref", zap.String("from", rev), zap.String("to", target), zap.Int("staging", len(skipped)))
	if err := p.repo.SetRef(ctx, ref, target); err != nil {
		return nil, fmt.Errorf("reset %s to %s: %w", ref, target, err)
	}
	report.To = target
	report.Skipped = skipped
	report.Reset = true

	stats, err := p.repo.PruneUnreachable(ctx, ostree.PruneRefsOnly)
	if err != nil {
		return report, fmt.Errorf("prune: %w", err)
	}
	report.ObjectsRemoved = stats.ObjectsRemoved
	report.BytesFreed = stats.BytesFreed
	if stats.ObjectsRemoved == 0 {
		log.Info("No unreachable objects")
	} else {
		log.Info(fmt.Sprintf("Deleted %d objects, %s freed", stats.ObjectsRemoved, units.HumanSize(float64(stats.BytesFreed))))
	}
	return report, nil
}

// findTarget walks from rev toward the root and returns the first commit
// without the staging marker. It returns "" if a marked root is reached.
func (p *StagingPruner) findTarget(ctx context.Context, rev string) (string, []string, error) {
	var (
		target  string
		skipped []string
	)
	err := ostree.ForEach(ctx, p.repo, rev, func(c *ostree.Commit) error {
		md, err := p.repo.ReadDetachedMetadata(ctx, c.Rev)
		if err != nil {
			return fmt.Errorf("read detached metadata of %s: %w", c.Rev, err)
		}
		if _, marked := md[p.key]; !marked {
			target = c.Rev
			return ostree.ErrStop
		}
		skipped = append(skipped, c.Rev)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return target, skipped, nil
}

// PruneMatching prunes every ref whose name matches the doublestar pattern.
// A pattern without glob metacharacters names a single ref, which need not exist.
func (p *StagingPruner) PruneMatching(ctx context.Context, pattern string) ([]*StagingReport, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid ref pattern %q", pattern)
	}

	var refs []string
	if isLiteral(pattern) {
		refs = []string{pattern}
	} else {
		all, err := p.repo.ListRefs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list refs: %w", err)
		}
		for _, ref := range all {
			if matched, _ := doublestar.Match(pattern, ref); matched {
				refs = append(refs, ref)
			}
		}
	}

	reports := make([]*StagingReport, 0, len(refs))
	for _, ref := range refs {
		r, err := p.Prune(ctx, ref)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func isLiteral(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{', '\\':
			return false
		}
	}
	return true
}
