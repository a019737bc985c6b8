package output

import (
	"fmt"
)

// MarkdownPackageDiffWriter writes package diffs as Markdown, suitable for
// release notes.
type MarkdownPackageDiffWriter struct{}

// Write outputs the package diff as Markdown.
func (w *MarkdownPackageDiffWriter) Write(report *PackageDiffReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	res := report.Result
	fmt.Fprintf(out, "# Package changes: %s..%s\n\n", escapeMarkdown(report.From), escapeMarkdown(report.To))
	if res.Empty() {
		fmt.Fprintln(out, "No package changes.")
		return nil
	}

	if len(res.Changed) > 0 {
		fmt.Fprintf(out, "## Changed (%d)\n\n", len(res.Changed))
		fmt.Fprintln(out, "| From | To |")
		fmt.Fprintln(out, "|------|----|")
		for _, c := range res.Changed {
			fmt.Fprintf(out, "| `%s` | `%s` |\n", c.From, c.To)
		}
		fmt.Fprintln(out)
	}
	if len(res.Added) > 0 {
		fmt.Fprintf(out, "## Added (%d)\n\n", len(res.Added))
		for _, pkg := range res.Added {
			fmt.Fprintf(out, "- `%s`\n", pkg)
		}
		fmt.Fprintln(out)
	}
	if len(res.Removed) > 0 {
		fmt.Fprintf(out, "## Removed (%d)\n\n", len(res.Removed))
		for _, pkg := range res.Removed {
			fmt.Fprintf(out, "- `%s`\n", pkg)
		}
		fmt.Fprintln(out)
	}
	return nil
}
