package cmd

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/rpmostree-toolbox/internal/output"
	"github.com/masmgr/rpmostree-toolbox/internal/pkgdiff"
)

// PkgdiffCmd returns the pkgdiff command.
func PkgdiffCmd() *cli.Command {
	flags := append([]cli.Flag{
		profileFlag(),
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Package name patterns to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Package name patterns to exclude (can be specified multiple times)",
		},
	}, outputFlags("markdown")...)

	return &cli.Command{
		Name:      "pkgdiff",
		Usage:     "Show the package changes between two commits",
		ArgsUsage: "FROM [TO]",
		Flags:     flags,
		Action:    pkgdiffAction,
	}
}

func pkgdiffAction(c *cli.Context) error {
	from, to, err := pkgdiffRange(c.Args().Slice())
	if err != nil {
		return err
	}

	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	differ := &pkgdiff.Differ{Tool: cctx.Profile.ComposeTool, RepoPath: cctx.RepoPath}
	res, err := differ.Diff(c.Context, from, to)
	if err != nil {
		return err
	}
	res = res.Filter(c.StringSlice("include"), c.StringSlice("exclude"))

	opts := OutputOptions(c)
	report := &output.PackageDiffReport{
		RepoPath:    cctx.RepoPath,
		From:        from,
		To:          to,
		GeneratedAt: time.Now(),
		Result:      res,
	}
	return output.NewPackageDiffWriter(opts.Format).Write(report, opts)
}

// pkgdiffRange returns the revisions to compare. A single argument is
// compared against its parent.
func pkgdiffRange(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		return args[0] + "^", args[0], nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", errors.New("expected FROM [TO]")
	}
}
