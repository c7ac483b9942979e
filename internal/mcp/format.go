package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/session"
)

func formatAddResult(res *session.AddResult) string {
	text := fmt.Sprintf("Added %d file(s)\n", len(res.Added))
	if len(res.Skipped) > 0 {
		text += fmt.Sprintf("Skipped %d (not a PDF or already added): %s\n", len(res.Skipped), strings.Join(res.Skipped, ", "))
	}
	return text
}

func fileStatus(v session.FileView) string {
	switch r := v.AnalysisResult; {
	case v.IsAnalyzing:
		return "analyzing"
	case r == nil:
		return "pending"
	case r.Error != "":
		return "error: " + r.Error
	case r.Total > 0:
		return fmt.Sprintf("%d matches (%d unique)", r.Total, r.Unique)
	default:
		return "no matches"
	}
}

func formatFileList(views []session.FileView, total int) string {
	if len(views) == 0 {
		return "No files in session\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Files (%d):\n", len(views))
	for i, v := range views {
		fmt.Fprintf(&b, "%d. %s", i+1, v.Name)
		if v.Pages > 0 {
			fmt.Fprintf(&b, " [%d pages]", v.Pages)
		}
		fmt.Fprintf(&b, " - %s", fileStatus(v))
		if v.Hidden {
			b.WriteString(" (hidden by filter)")
		}
		if v.Superseded {
			b.WriteString(" (older revision)")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal matches: %d\n", total)
	return b.String()
}

func formatResults(items []match.MatchedItem) string {
	if len(items) == 0 {
		return "No matches found\n"
	}

	var b strings.Builder
	summary := match.Count(items)
	fmt.Fprintf(&b, "Results: %d item(s), %d active, %d unique\n\n", len(items), summary.Total, summary.Unique)

	for i, it := range items {
		fmt.Fprintf(&b, "[%d] %s", i, it.Label())
		if it.Excluded {
			b.WriteString(" (excluded)")
		}
		fmt.Fprintf(&b, " - page %d", it.Page)
		if it.Grid != "" {
			fmt.Fprintf(&b, ", grid %s", it.Grid)
		}
		if it.Revision != nil {
			fmt.Fprintf(&b, ", rev %d", *it.Revision)
		}
		fmt.Fprintf(&b, ", %s", it.SourceFile.Name)
		if it.IsOcr {
			b.WriteString(" [OCR]")
		}
		b.WriteString("\n")
		if it.Comment != "" {
			fmt.Fprintf(&b, "    comment: %s\n", it.Comment)
		}
	}
	return b.String()
}
