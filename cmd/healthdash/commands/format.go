package commands

import (
	"fmt"

	"github.com/healthdash/backend/internal/ingest"
)

// PrintReport prints a run report, one line per stage
func PrintReport(report *ingest.Report) {
	PrintDoubleSeparator()
	fmt.Printf("  Ingestion  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	PrintSeparator()

	for _, sr := range report.Stages {
		icon := "✅"
		switch sr.Status {
		case ingest.StatusSkipped:
			icon = "⏭️ "
		case ingest.StatusFailed:
			icon = "❌"
		}
		fmt.Printf("%s %s\n", icon, sr.String())
	}

	PrintSeparator()
	for _, h := range report.Heatmaps {
		fmt.Printf("  🗺️  %s (%d points)\n", h.File, h.Points)
	}
	fmt.Printf("  records=%d failed=%d duration=%.2fs\n", report.Records(), report.Failed(), report.Duration().Seconds())
	PrintDoubleSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}
