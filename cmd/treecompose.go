package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/rpmostree-toolbox/internal/compose"
	"github.com/masmgr/rpmostree-toolbox/internal/output"
)

// TreecomposeCmd returns the treecompose command.
func TreecomposeCmd() *cli.Command {
	flags := append([]cli.Flag{
		profileFlag(),
		&cli.StringFlag{
			Name:    "versioning",
			Aliases: []string{"V"},
			Usage:   "Version to mark compose (X.Y.Z[.W], cve, refresh, minor, optionally prefixed with skip-or-)",
			Value:   "skip-or-refresh",
		},
		&cli.StringFlag{
			Name:  "check-passwd",
			Usage: "File/commit to check passwd file against",
		},
		&cli.StringFlag{
			Name:  "check-groups",
			Usage: "File/commit to check group file against",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Verbose output",
		},
	}, outputFlags()...)

	return &cli.Command{
		Name:    "treecompose",
		Aliases: []string{"compose"},
		Usage:   "Compose an OSTree tree, stamping a negotiated version",
		Flags:   flags,
		Action:  treecomposeAction,
	}
}

func treecomposeAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	if c.Bool("verbose") {
		cctx.ShowConfig()
	}

	p := cctx.Profile
	if p.TreeFile == "" {
		return errors.New("no tree file configured (set tree_file or pkgdatadir, os_name and tree_name)")
	}

	opts := OutputOptions(c)
	driver := compose.NewDriver(cctx.Repo, p.ComposeTool, cctx.Log)
	if opts.Format == output.FormatJSON && opts.OutputPath == "" {
		// Keep stdout for the report.
		driver.Runner = &compose.ExecRunner{Stdout: os.Stderr, Stderr: os.Stderr}
	}

	outcome, err := driver.ComposeVersioned(c.Context, compose.Request{
		TreeFile:    p.TreeFile,
		RepoPath:    cctx.RepoPath,
		CacheDir:    p.CacheDir,
		CheckPasswd: c.String("check-passwd"),
		CheckGroups: c.String("check-groups"),
	}, c.String("versioning"))
	if err != nil {
		return err
	}

	report := &output.ComposeReport{
		RepoPath:    cctx.RepoPath,
		Profile:     p.Name,
		GeneratedAt: time.Now(),
		Outcome:     outcome,
	}
	return output.NewComposeReportWriter(opts.Format).Write(report, opts)
}
