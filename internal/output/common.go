package output

import (
	"io"
	"os"
	"strings"
)

const (
	reportDateLayout     = "2006-01-02"
	reportDateTimeLayout = "2006-01-02T15:04:05"
)

// shortRevLen is how many characters of a checksum the console reports show.
const shortRevLen = 12

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

func shortRev(rev string) string {
	if len(rev) <= shortRevLen {
		return rev
	}
	return rev[:shortRevLen]
}

func revOrNone(rev string) string {
	if rev == "" {
		return "(none)"
	}
	return rev
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}
