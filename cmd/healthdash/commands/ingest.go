package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ingestCmd runs one ingestion
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scrape every source, store the metrics and render heatmaps",
	Long: `Runs one ingestion:

  1. ensure the schema
  2. CDC COVID test positivity
  3. Worldometers new cases, deaths and recovered
  4. CDC RSV hospitalization rates
  5. state centroids
  6. heatmaps for every configured disease and period

Sources whose freshness token did not change since the last successful
run are skipped. Stage failures are reported and never stop the run.

Example:
  go run ./cmd/healthdash ingest
  go run ./cmd/healthdash ingest --reference ./reference.yaml`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.orchestrator.Run(cmd.Context())
	if report != nil {
		PrintReport(report)
	}
	if err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}

	if n := report.Failed(); n > 0 {
		PrintWarning(fmt.Sprintf("%d stage(s) failed", n))
	}
	return nil
}
