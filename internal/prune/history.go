package prune

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/masmgr/rpmostree-toolbox/internal/ostree"
)

// DefaultHistoryDays is the retention window used when none is configured.
const DefaultHistoryDays = 14

// Candidate is a commit older than the cutoff.
type Candidate struct {
	Rev       string
	Timestamp time.Time
	// Age is how far before the cutoff the commit was made.
	Age time.Duration
}

// HistoryReport lists the commits of a ref that are older than a cutoff.
type HistoryReport struct {
	Ref        string
	Rev        string
	Cutoff     time.Time
	Walked     int
	Candidates []Candidate
}

// Count returns the number of prune candidates.
func (r *HistoryReport) Count() int {
	return len(r.Candidates)
}

// HistoryPruner finds commits older than a cutoff. It only reports them;
// removing them requires rewriting the ancestry of younger commits.
type HistoryPruner struct {
	repo ostree.Repository
	log  *zap.Logger
}

// NewHistoryPruner returns a HistoryPruner over repo.
func NewHistoryPruner(repo ostree.Repository, log *zap.Logger) *HistoryPruner {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryPruner{repo: repo, log: log}
}

// CutoffDays returns the instant days days before now.
func CutoffDays(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// Prune walks the whole history of ref and collects every commit made
// strictly before cutoff. Timestamps are not assumed to decrease along the
// chain, so the walk always reaches the root.
func (p *HistoryPruner) Prune(ctx context.Context, ref string, cutoff time.Time) (*HistoryReport, error) {
	log := p.log.With(zap.String("ref", ref))

	rev, err := p.repo.ResolveRev(ctx, ref, false)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	report := &HistoryReport{Ref: ref, Rev: rev, Cutoff: cutoff}
	err = ostree.ForEach(ctx, p.repo, rev, func(c *ostree.Commit) error {
		report.Walked++
		if !c.Timestamp.Before(cutoff) {
			return nil
		}
		age := cutoff.Sub(c.Timestamp)
		log.Info(fmt.Sprintf("Commit %s is %d seconds in the past", c.Rev, int64(age.Seconds())))
		report.Candidates = append(report.Candidates, Candidate{Rev: c.Rev, Timestamp: c.Timestamp, Age: age})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", ref, err)
	}

	log.Info(fmt.Sprintf("%d commits older than cutoff", report.Count()), zap.Int("walked", report.Walked))
	return report, nil
}
