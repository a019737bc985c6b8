package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/masmgr/rpmostree-toolbox/config"
	"github.com/masmgr/rpmostree-toolbox/internal/compose"
	"github.com/masmgr/rpmostree-toolbox/internal/logging"
	"github.com/masmgr/rpmostree-toolbox/internal/ostree"
)

const (
	backendOstree = "ostree"
	backendGit    = "git"
)

// CommandContext holds common state for command execution.
// It encapsulates the shared setup logic across all commands.
type CommandContext struct {
	Config   *config.Config
	Profile  *config.Profile
	RepoPath string
	Repo     ostree.Repository
	Log      *zap.Logger
	RunID    string
}

// NewCommandContext creates a context from CLI flags.
// It loads the configuration, resolves the profile, sets up logging and
// opens the repository.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	profile, err := cfg.Profile(c.String("profile"))
	if err != nil {
		return nil, err
	}

	level := c.String("log-level")
	if c.Bool("verbose") {
		level = logging.LevelDebug
	}
	base, err := logging.GetLogger(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	runID := logging.NewRunID()
	log := logging.WithRun(base, runID).With(zap.String("profile", profile.Name))

	repoPath := c.String("repo")
	if repoPath == "" {
		repoPath = profile.OstreeRepo
	}
	if repoPath == "" {
		return nil, errors.New("no repository configured (set ostree_repo or pass --repo)")
	}

	repo, err := openRepository(c.String("backend"), repoPath, profile.OstreeTool)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return &CommandContext{
		Config:   cfg,
		Profile:  profile,
		RepoPath: repoPath,
		Repo:     repo,
		Log:      log,
		RunID:    runID,
	}, nil
}

func openRepository(backend, path, tool string) (ostree.Repository, error) {
	switch backend {
	case "", backendOstree:
		return ostree.NewCLIRepository(path, tool), nil
	case backendGit:
		return ostree.OpenGitRepository(path)
	default:
		return nil, fmt.Errorf("unknown backend %q (expected %s or %s)", backend, backendOstree, backendGit)
	}
}

// loadConfig loads configuration from file or defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// ShowConfig logs the resolved profile.
func (ctx *CommandContext) ShowConfig() {
	fields := []zap.Field{zap.String("config", ctx.Config.Path), zap.String("repo", ctx.RepoPath)}
	for _, kv := range ctx.Profile.Fields() {
		fields = append(fields, zap.String(kv[0], kv[1]))
	}
	ctx.Log.Debug("configuration", fields...)
}

// DefaultRef returns ref, or the ref named by the profile's tree file when
// ref is empty.
func (ctx *CommandContext) DefaultRef(ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	if ctx.Profile.TreeFile == "" {
		return "", errors.New("no ref given and the profile has no tree file")
	}
	tf, err := compose.LoadTreeFile(afero.NewOsFs(), ctx.Profile.TreeFile)
	if err != nil {
		return "", err
	}
	return tf.Ref, nil
}

// Close flushes the logger.
func (ctx *CommandContext) Close() {
	_ = ctx.Log.Sync()
}
