package build

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

const defaultAnalysisRows = 10

// DisplayAnalysis prints the size breakdown. Only the largest inputs are
// listed unless showAll is set.
func DisplayAnalysis(w io.Writer, result *AnalysisResult, showAll bool) {
	_, _ = fmt.Fprintf(w, "\n=== Bundle Analysis: %s ===\n", result.Output)
	_, _ = fmt.Fprintf(w, "Total bundle size: %s\n", formatBytesHuman(result.TotalBytes))

	if len(result.ExternalImports) > 0 {
		_, _ = fmt.Fprintln(w, "\nExternal imports (resolved at runtime):")
		for _, imp := range result.ExternalImports {
			_, _ = fmt.Fprintf(w, "  - %s\n", imp)
		}
	}

	if len(result.Inputs) == 0 {
		_, _ = fmt.Fprintln(w)
		return
	}

	rows := result.Inputs
	if !showAll && len(rows) > defaultAnalysisRows {
		rows = rows[:defaultAnalysisRows]
	}

	_, _ = fmt.Fprintln(w, "\nBundle breakdown:")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Module", "Size", "Share", "Imports"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, in := range rows {
		table.Append([]string{
			truncatePath(in.Path, 60),
			formatBytesHuman(in.BytesInOutput),
			fmt.Sprintf("%.1f%%", in.Percentage),
			strconv.Itoa(in.ImportCount),
		})
	}
	table.Render()

	if remaining := len(result.Inputs) - len(rows); remaining > 0 {
		_, _ = fmt.Fprintf(w, "  ... and %d more files\n", remaining)
	}
	_, _ = fmt.Fprintln(w)
}

func formatBytesHuman(bytes int) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}
