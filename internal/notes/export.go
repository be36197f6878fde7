package notes

import (
	"fmt"
	"strings"
	"time"
)

// Export formats.
const (
	ExportText     = "txt"
	ExportMarkdown = "md"
)

// Export returns the file content for a note in the given format. Notes are
// already markdown, so both formats carry the output unchanged.
func Export(output, format string) (string, error) {
	switch format {
	case ExportText, ExportMarkdown:
		return output, nil
	}
	return "", fmt.Errorf("unsupported export format %q", format)
}

// ExportFilename names a downloaded note, e.g. notes_cell_biology_20250301.md.
func ExportFilename(topic, format string, now time.Time) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(topic), " ", "_"))
	return fmt.Sprintf("notes_%s_%s.%s", slug, now.Format("20060102"), format)
}
