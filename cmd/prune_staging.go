package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/rpmostree-toolbox/internal/ostree"
	"github.com/masmgr/rpmostree-toolbox/internal/output"
	"github.com/masmgr/rpmostree-toolbox/internal/prune"
)

// PruneStagingCmd returns the prune-staging command.
func PruneStagingCmd() *cli.Command {
	flags := append([]cli.Flag{
		profileFlag(),
		&cli.StringFlag{
			Name:  "ref",
			Usage: "Ref or doublestar pattern of refs to prune (default: ref of the profile's tree file)",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "Detached metadata key marking staging commits (default: staging_key of the profile)",
		},
	}, outputFlags()...)

	return &cli.Command{
		Name:   "prune-staging",
		Usage:  "Drop staging commits from the tip of a ref and prune unreachable objects",
		Flags:  flags,
		Action: pruneStagingAction,
	}
}

func pruneStagingAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	key := c.String("key")
	if key == "" {
		key = cctx.Profile.StagingKey
	}
	if r, ok := cctx.Repo.(*ostree.CLIRepository); ok {
		r.DetachedKeys = append(r.DetachedKeys, key)
	}

	ref, err := cctx.DefaultRef(c.String("ref"))
	if err != nil {
		return err
	}

	pruner := prune.NewStagingPruner(cctx.Repo, key, cctx.Log)
	items, err := pruner.PruneMatching(c.Context, ref)
	if err != nil {
		return err
	}

	opts := OutputOptions(c)
	report := &output.StagingPruneReport{
		RepoPath:    cctx.RepoPath,
		GeneratedAt: time.Now(),
		Items:       items,
	}
	return output.NewStagingReportWriter(opts.Format).Write(report, opts)
}
