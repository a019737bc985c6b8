package output

import (
	"time"

	"github.com/masmgr/rpmostree-toolbox/internal/compose"
	"github.com/masmgr/rpmostree-toolbox/internal/pkgdiff"
	"github.com/masmgr/rpmostree-toolbox/internal/prune"
)

// Compile-time interface conformance checks.
// These ensure that all writer types correctly implement their respective interfaces.
var (
	// PackageDiffWriter implementations
	_ PackageDiffWriter = (*ConsolePackageDiffWriter)(nil)
	_ PackageDiffWriter = (*JSONPackageDiffWriter)(nil)
	_ PackageDiffWriter = (*MarkdownPackageDiffWriter)(nil)

	// StagingReportWriter implementations
	_ StagingReportWriter = (*ConsoleStagingWriter)(nil)
	_ StagingReportWriter = (*JSONStagingWriter)(nil)

	// HistoryReportWriter implementations
	_ HistoryReportWriter = (*ConsoleHistoryWriter)(nil)
	_ HistoryReportWriter = (*JSONHistoryWriter)(nil)

	// ComposeReportWriter implementations
	_ ComposeReportWriter = (*ConsoleComposeWriter)(nil)
	_ ComposeReportWriter = (*JSONComposeWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
)

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int
	OutputPath string
}

// PackageDiffReport holds a package diff between two revisions.
type PackageDiffReport struct {
	RepoPath    string
	From        string
	To          string
	GeneratedAt time.Time
	Result      *pkgdiff.Result
}

// StagingPruneReport holds the staging prune results of one or more refs.
type StagingPruneReport struct {
	RepoPath    string
	GeneratedAt time.Time
	Items       []*prune.StagingReport
}

// HistoryPruneReport holds the commits of a ref older than a cutoff.
type HistoryPruneReport struct {
	RepoPath    string
	GeneratedAt time.Time
	Result      *prune.HistoryReport
}

// ComposeReport holds the outcome of a compose run.
type ComposeReport struct {
	RepoPath    string
	Profile     string
	GeneratedAt time.Time
	Outcome     *compose.Outcome
}

// PackageDiffWriter writes package diff reports.
type PackageDiffWriter interface {
	Write(report *PackageDiffReport, options OutputOptions) error
}

// StagingReportWriter writes staging prune reports.
type StagingReportWriter interface {
	Write(report *StagingPruneReport, options OutputOptions) error
}

// HistoryReportWriter writes history prune reports.
type HistoryReportWriter interface {
	Write(report *HistoryPruneReport, options OutputOptions) error
}

// ComposeReportWriter writes compose outcomes.
type ComposeReportWriter interface {
	Write(report *ComposeReport, options OutputOptions) error
}

// NewPackageDiffWriter creates a package diff writer for the specified format.
func NewPackageDiffWriter(format OutputFormat) PackageDiffWriter {
	switch format {
	case FormatJSON:
		return &JSONPackageDiffWriter{}
	case FormatMarkdown:
		return &MarkdownPackageDiffWriter{}
	default:
		return &ConsolePackageDiffWriter{}
	}
}

// NewStagingReportWriter creates a staging report writer for the specified format.
func NewStagingReportWriter(format OutputFormat) StagingReportWriter {
	switch format {
	case FormatJSON:
		return &JSONStagingWriter{}
	default:
		return &ConsoleStagingWriter{}
	}
}

// NewHistoryReportWriter creates a history report writer for the specified format.
func NewHistoryReportWriter(format OutputFormat) HistoryReportWriter {
	switch format {
	case FormatJSON:
		return &JSONHistoryWriter{}
	default:
		return &ConsoleHistoryWriter{}
	}
}

// NewComposeReportWriter creates a compose report writer for the specified format.
func NewComposeReportWriter(format OutputFormat) ComposeReportWriter {
	switch format {
	case FormatJSON:
		return &JSONComposeWriter{}
	default:
		return &ConsoleComposeWriter{}
	}
}
