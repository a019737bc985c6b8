package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONPackageDiffWriter writes package diffs as JSON.
type JSONPackageDiffWriter struct{}

// JSONPackageDiffReport is the JSON output structure for a package diff.
type JSONPackageDiffReport struct {
	RepoPath    string              `json:"repo"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	GeneratedAt string              `json:"generatedAt"`
	Changed     []JSONPackageChange `json:"changed"`
	Added       []string            `json:"added"`
	Removed     []string            `json:"removed"`
}

// JSONPackageChange is a changed package in JSON format.
type JSONPackageChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Write outputs the package diff as JSON.
func (w *JSONPackageDiffWriter) Write(report *PackageDiffReport, options OutputOptions) error {
	res := report.Result
	changed := make([]JSONPackageChange, len(res.Changed))
	for i, c := range res.Changed {
		changed[i] = JSONPackageChange{From: c.From, To: c.To}
	}

	jsonReport := JSONPackageDiffReport{
		RepoPath:    report.RepoPath,
		From:        report.From,
		To:          report.To,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Changed:     changed,
		Added:       nonNil(res.Added),
		Removed:     nonNil(res.Removed),
	}
	return writeJSON(jsonReport, options.OutputPath)
}

// JSONStagingWriter writes staging prune results as JSON.
type JSONStagingWriter struct{}

// JSONStagingReport is the JSON output structure for staging prunes.
type JSONStagingReport struct {
	RepoPath    string            `json:"repo"`
	GeneratedAt string            `json:"generatedAt"`
	Refs        []JSONStagingItem `json:"refs"`
}

// JSONStagingItem is the staging prune result of one ref.
type JSONStagingItem struct {
	Ref            string   `json:"ref"`
	From           string   `json:"from,omitempty"`
	To             string   `json:"to,omitempty"`
	Pruned         bool     `json:"pruned"`
	Staging        []string `json:"staging"`
	ObjectsRemoved int      `json:"objectsRemoved"`
	BytesFreed     int64    `json:"bytesFreed"`
	Inconsistent   bool     `json:"inconsistent,omitempty"`
}

// Write outputs the staging prune results as JSON.
func (w *JSONStagingWriter) Write(report *StagingPruneReport, options OutputOptions) error {
	items := make([]JSONStagingItem, len(report.Items))
	for i, r := range report.Items {
		items[i] = JSONStagingItem{
			Ref:            r.Ref,
			From:           r.From,
			To:             r.To,
			Pruned:         r.Pruned(),
			Staging:        nonNil(r.Skipped),
			ObjectsRemoved: r.ObjectsRemoved,
			BytesFreed:     r.BytesFreed,
			Inconsistent:   r.Inconsistent,
		}
	}

	return writeJSON(JSONStagingReport{
		RepoPath:    report.RepoPath,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Refs:        items,
	}, options.OutputPath)
}

// JSONHistoryWriter writes history prune candidates as JSON.
type JSONHistoryWriter struct{}

// JSONHistoryReport is the JSON output structure for history prunes.
type JSONHistoryReport struct {
	RepoPath    string              `json:"repo"`
	Ref         string              `json:"ref"`
	Rev         string              `json:"rev"`
	Cutoff      string              `json:"cutoff"`
	GeneratedAt string              `json:"generatedAt"`
	Walked      int                 `json:"walked"`
	Total       int                 `json:"total"`
	Candidates  []JSONHistoryCommit `json:"candidates"`
}

// JSONHistoryCommit is a prune candidate in JSON format.
type JSONHistoryCommit struct {
	Rev        string `json:"rev"`
	Timestamp  string `json:"timestamp"`
	AgeSeconds int64  `json:"ageSeconds"`
}

// Write outputs the history prune candidates as JSON.
func (w *JSONHistoryWriter) Write(report *HistoryPruneReport, options OutputOptions) error {
	res := report.Result
	candidates := limitTop(res.Candidates, options.Top)
	items := make([]JSONHistoryCommit, len(candidates))
	for i, c := range candidates {
		items[i] = JSONHistoryCommit{
			Rev:        c.Rev,
			Timestamp:  c.Timestamp.UTC().Format(time.RFC3339),
			AgeSeconds: int64(c.Age / time.Second),
		}
	}

	return writeJSON(JSONHistoryReport{
		RepoPath:    report.RepoPath,
		Ref:         res.Ref,
		Rev:         res.Rev,
		Cutoff:      res.Cutoff.UTC().Format(time.RFC3339),
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Walked:      res.Walked,
		Total:       res.Count(),
		Candidates:  items,
	}, options.OutputPath)
}

// JSONComposeWriter writes compose outcomes as JSON.
type JSONComposeWriter struct{}

// JSONComposeReport is the JSON output structure for a compose run.
type JSONComposeReport struct {
	RepoPath    string  `json:"repo"`
	Profile     string  `json:"profile"`
	GeneratedAt string  `json:"generatedAt"`
	Ref         string  `json:"ref"`
	OrigRev     string  `json:"origRev"`
	NewRev      string  `json:"newRev"`
	Changed     bool    `json:"changed"`
	Version     string  `json:"version,omitempty"`
	Error       *string `json:"error,omitempty"`
}

// Write outputs the compose outcome as JSON.
func (w *JSONComposeWriter) Write(report *ComposeReport, options OutputOptions) error {
	o := report.Outcome
	jsonReport := JSONComposeReport{
		RepoPath:    report.RepoPath,
		Profile:     report.Profile,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Ref:         o.Ref,
		OrigRev:     o.OrigRev,
		NewRev:      o.NewRev,
		Changed:     o.Changed(),
		Version:     o.Version,
	}
	if o.ExitErr != nil {
		msg := o.ExitErr.Error()
		jsonReport.Error = &msg
	}
	return writeJSON(jsonReport, options.OutputPath)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(data interface{}, outputPath string) error {
	encoder := json.NewEncoder(os.Stdout)
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		encoder = json.NewEncoder(file)
	}

	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
