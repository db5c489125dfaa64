package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	referenceFile string
	verbose       bool
)

// rootCmd runs one ingestion and then serves the dashboard API when called
// without a subcommand
var rootCmd = &cobra.Command{
	Use:   "healthdash",
	Short: "healthdash - COVID/RSV scrape, store and heatmap pipeline",
	Long: `healthdash Unified CLI

Scrapes COVID-19 and RSV statistics from CDC and Worldometers, stores them
in a local SQLite file (or PostgreSQL), renders one heatmap HTML file per
disease and period, and serves the data to the dashboard.

Without a subcommand it runs one ingestion and then starts the API server.

Usage:
  go run ./cmd/healthdash [command]

Examples:
  go run ./cmd/healthdash
  go run ./cmd/healthdash ingest
  go run ./cmd/healthdash render
  go run ./cmd/healthdash serve --port 9000
  go run ./cmd/healthdash scheduler start
  go run ./cmd/healthdash db check`,
	SilenceUsage: true,
	RunE:         runDefault,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&referenceFile, "reference", "", "YAML reference table (overrides REFERENCE_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().StringVar(&servePort, "port", "", "API server port (overrides PORT)")
}

func runDefault(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.orchestrator.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}
	PrintReport(report)

	return a.serve(cmd.Context(), servePort)
}
