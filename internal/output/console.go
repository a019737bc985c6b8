package output

import (
	"fmt"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/fatih/color"
)

// ConsolePackageDiffWriter writes package diffs to the console.
type ConsolePackageDiffWriter struct{}

// Write outputs the package diff in the `db diff` notation, colorized.
func (w *ConsolePackageDiffWriter) Write(report *PackageDiffReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	res := report.Result
	color.New(color.FgGreen).Fprintf(out, "Package diff %s..%s\n", report.From, report.To)
	if res.Empty() {
		fmt.Fprintln(out, "No package changes")
		return nil
	}
	fmt.Fprintf(out, "Changed: %d  Added: %d  Removed: %d\n\n", len(res.Changed), len(res.Added), len(res.Removed))

	yellow := color.New(color.FgYellow)
	for _, c := range res.Changed {
		yellow.Fprintf(out, "!%s\n", c.From)
		yellow.Fprintf(out, "=%s\n", c.To)
	}
	green := color.New(color.FgGreen)
	for _, pkg := range res.Added {
		green.Fprintf(out, "+%s\n", pkg)
	}
	red := color.New(color.FgRed)
	for _, pkg := range res.Removed {
		red.Fprintf(out, "-%s\n", pkg)
	}
	return nil
}

// ConsoleStagingWriter writes staging prune results to the console.
type ConsoleStagingWriter struct{}

// Write outputs one line per ref.
func (w *ConsoleStagingWriter) Write(report *StagingPruneReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	if len(report.Items) == 0 {
		fmt.Fprintln(out, "No matching refs")
		return nil
	}
	for _, item := range report.Items {
		switch {
		case item.Inconsistent:
			color.New(color.FgRed).Fprintf(out, "%s: staging commit without parent, left at %s\n", item.Ref, shortRev(item.From))
		case item.From == "":
			fmt.Fprintf(out, "%s: no such ref\n", item.Ref)
		case !item.Pruned():
			fmt.Fprintf(out, "%s: no staging commits at %s\n", item.Ref, shortRev(item.From))
		default:
			color.New(color.FgGreen).Fprintf(out, "%s: %s => %s (%d staging commits)\n",
				item.Ref, shortRev(item.From), shortRev(item.To), len(item.Skipped))
			if item.ObjectsRemoved == 0 {
				fmt.Fprintln(out, "  No unreachable objects")
			} else {
				fmt.Fprintf(out, "  Deleted %d objects, %s freed\n", item.ObjectsRemoved, units.HumanSize(float64(item.BytesFreed)))
			}
		}
	}
	return nil
}

// ConsoleHistoryWriter writes history prune candidates to the console.
type ConsoleHistoryWriter struct{}

// Write outputs the candidates as a table.
func (w *ConsoleHistoryWriter) Write(report *HistoryPruneReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	res := report.Result
	color.New(color.FgGreen).Fprintf(out, "History of %s before %s\n", res.Ref, res.Cutoff.Format(reportDateLayout))
	fmt.Fprintf(out, "Commits walked: %d\n", res.Walked)
	fmt.Fprintf(out, "Older than cutoff: %d\n", res.Count())
	if res.Count() == 0 {
		return nil
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCommit\tDate\tAge")
	for i, c := range limitTop(res.Candidates, options.Top) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			i+1,
			shortRev(c.Rev),
			c.Timestamp.UTC().Format(reportDateTimeLayout),
			units.HumanDuration(c.Age),
		)
	}
	return tw.Flush()
}

// ConsoleComposeWriter writes compose outcomes to the console.
type ConsoleComposeWriter struct{}

// Write prints "<ref> => <rev>" for a new commit or
// "<ref> is unchanged at <rev>" otherwise.
func (w *ConsoleComposeWriter) Write(report *ComposeReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	o := report.Outcome
	if o.ExitErr != nil {
		color.New(color.FgYellow).Fprintf(out, "compose failed: %v\n", o.ExitErr)
	}
	if o.Changed() {
		fmt.Fprintf(out, "%s => %s\n", o.Ref, o.NewRev)
	} else {
		fmt.Fprintf(out, "%s is unchanged at %s\n", o.Ref, revOrNone(o.OrigRev))
	}
	return nil
}
