package compose

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/masmgr/rpmostree-toolbox/internal/ostree"
	"github.com/masmgr/rpmostree-toolbox/internal/version"
)

// DefaultTool is the compose executable used when Driver.Tool is empty.
const DefaultTool = "rpm-ostree"

// Request describes one compose run.
type Request struct {
	TreeFile string
	RepoPath string
	// CacheDir is created if it does not exist. Empty disables caching.
	CacheDir string
	// Version is stamped as the "version" metadata of the new commit
	// unless empty.
	Version     string
	CheckPasswd string
	CheckGroups string
}

// Outcome is the result of a compose run.
type Outcome struct {
	Ref     string
	OrigRev string
	NewRev  string
	Version string
	// ExitErr holds the failure of the compose process, if any. The ref is
	// re-resolved regardless, so a failed run normally reports an
	// unchanged ref.
	ExitErr error
}

// Changed reports whether the compose moved the ref.
func (o *Outcome) Changed() bool {
	return o.OrigRev != o.NewRev
}

// Driver runs the compose tool against a repository.
type Driver struct {
	Repo   ostree.Repository
	Runner Runner
	Fs     afero.Fs
	Tool   string
	Log    *zap.Logger
}

// NewDriver returns a Driver running tool on the local filesystem.
func NewDriver(repo ostree.Repository, tool string, log *zap.Logger) *Driver {
	return &Driver{
		Repo:   repo,
		Runner: &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr},
		Fs:     afero.NewOsFs(),
		Tool:   tool,
		Log:    log,
	}
}

func (d *Driver) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func (d *Driver) tool() string {
	if d.Tool == "" {
		return DefaultTool
	}
	return d.Tool
}

// Args returns the compose tool arguments for req.
func (d *Driver) Args(req Request) []string {
	args := []string{"compose", "tree", "--repo=" + req.RepoPath}
	if req.Version != "" {
		args = append(args, "--add-metadata-string=version="+req.Version)
	}
	if req.CacheDir != "" {
		args = append(args, "--cachedir="+req.CacheDir)
	}
	if req.CheckPasswd != "" {
		args = append(args, "--check-passwd="+req.CheckPasswd)
	}
	if req.CheckGroups != "" {
		args = append(args, "--check-groups="+req.CheckGroups)
	}
	return append(args, req.TreeFile)
}

// Compose runs the compose tool for req and reports the ref's revision
// before and after. A failing compose process does not make Compose fail;
// it is reported in Outcome.ExitErr.
func (d *Driver) Compose(ctx context.Context, req Request) (*Outcome, error) {
	tf, err := LoadTreeFile(d.Fs, req.TreeFile)
	if err != nil {
		return nil, err
	}
	return d.compose(ctx, tf, req)
}

// ComposeVersioned negotiates the version of the new commit from the version
// of the ref's current commit and the versioning specifier, then composes.
// Negotiation failures are returned before anything is run.
func (d *Driver) ComposeVersioned(ctx context.Context, req Request, versioning string) (*Outcome, error) {
	tf, err := LoadTreeFile(d.Fs, req.TreeFile)
	if err != nil {
		return nil, err
	}

	loaded, err := LoadedVersion(ctx, d.Repo, tf.Ref)
	if err != nil {
		return nil, err
	}
	res, err := (&version.Negotiator{Log: d.logger()}).Negotiate(loaded, versioning)
	if err != nil {
		return nil, fmt.Errorf("version of %s: %w", tf.Ref, err)
	}

	req.Version = ""
	if res.Versioned() {
		req.Version = res.Version.String()
		d.logger().Info("Building version", zap.String("version", req.Version))
	}
	return d.compose(ctx, tf, req)
}

func (d *Driver) compose(ctx context.Context, tf *TreeFile, req Request) (*Outcome, error) {
	log := d.logger().With(zap.String("ref", tf.Ref))

	origRev, err := d.Repo.ResolveRev(ctx, tf.Ref, true)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", tf.Ref, err)
	}

	if req.CacheDir != "" {
		exists, err := afero.DirExists(d.Fs, req.CacheDir)
		if err != nil {
			return nil, err
		}
		if !exists {
			log.Debug("creating cache directory", zap.String("dir", req.CacheDir))
			if err := d.Fs.MkdirAll(req.CacheDir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache directory: %w", err)
			}
		}
	}

	out := &Outcome{Ref: tf.Ref, OrigRev: origRev, Version: req.Version}

	args := d.Args(req)
	log.Debug("running compose", zap.String("tool", d.tool()), zap.Strings("args", args))
	if err := d.Runner.Run(ctx, d.tool(), args...); err != nil {
		log.Error("compose failed", zap.Error(err))
		out.ExitErr = err
	}

	newRev, err := d.Repo.ResolveRev(ctx, tf.Ref, true)
	if err != nil {
		log.Error("cannot resolve ref after compose", zap.Error(err))
		out.NewRev = origRev
		out.ExitErr = errors.Join(out.ExitErr, err)
		return out, nil
	}
	out.NewRev = newRev
	return out, nil
}

// LoadedVersion returns the version recorded on ref's current commit, or ""
// if the ref does not exist or carries no version.
func LoadedVersion(ctx context.Context, repo ostree.Repository, ref string) (string, error) {
	rev, err := repo.ResolveRev(ctx, ref, true)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	if rev == "" {
		return "", nil
	}
	c, err := repo.LoadCommit(ctx, rev)
	if err != nil {
		return "", err
	}
	return c.Version(), nil
}
