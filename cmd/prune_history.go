package cmd

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/rpmostree-toolbox/internal/output"
	"github.com/masmgr/rpmostree-toolbox/internal/prune"
)

// PruneHistoryCmd returns the prune-history command.
func PruneHistoryCmd() *cli.Command {
	flags := append([]cli.Flag{
		profileFlag(),
		&cli.StringFlag{
			Name:  "ref",
			Usage: "Ref to inspect (default: ref of the profile's tree file)",
		},
		&cli.IntFlag{
			Name:  "days",
			Usage: "Report commits older than this many days (default: history_days of the profile)",
		},
		&cli.StringFlag{
			Name:  "before",
			Usage: "Report commits made before this date (YYYY-MM-DD)",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Number of commits to list (0 for all)",
		},
	}, outputFlags()...)

	return &cli.Command{
		Name:   "prune-history",
		Usage:  "Report the commits of a ref older than a cutoff",
		Flags:  flags,
		Action: pruneHistoryAction,
	}
}

func pruneHistoryAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	cutoff, err := resolveCutoff(time.Now(), c.String("before"), c.Int("days"), cctx.Profile.HistoryDays)
	if err != nil {
		return err
	}
	ref, err := cctx.DefaultRef(c.String("ref"))
	if err != nil {
		return err
	}

	res, err := prune.NewHistoryPruner(cctx.Repo, cctx.Log).Prune(c.Context, ref, cutoff)
	if err != nil {
		return err
	}

	opts := OutputOptions(c)
	report := &output.HistoryPruneReport{
		RepoPath:    cctx.RepoPath,
		GeneratedAt: time.Now(),
		Result:      res,
	}
	return output.NewHistoryReportWriter(opts.Format).Write(report, opts)
}

// resolveCutoff picks the cutoff from --before, --days or the profile, in
// that order.
func resolveCutoff(now time.Time, before string, days, profileDays int) (time.Time, error) {
	if before != "" {
		if days > 0 {
			return time.Time{}, errors.New("--before and --days are mutually exclusive")
		}
		t, err := parseDateFlag(before)
		if err != nil {
			return time.Time{}, err
		}
		return *t, nil
	}
	if days < 0 {
		return time.Time{}, errors.New("--days must not be negative")
	}
	if days == 0 {
		days = profileDays
	}
	if days == 0 {
		days = prune.DefaultHistoryDays
	}
	return prune.CutoffDays(now, days), nil
}
