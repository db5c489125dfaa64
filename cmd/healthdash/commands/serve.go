package commands

import (
	"github.com/spf13/cobra"
)

var servePort string

// serveCmd starts the dashboard API without ingesting first
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Starts the read-only dashboard API and the chat relay.

Endpoints:
  GET  /health                          - Health check
  GET  /api/metrics/{kind}/summary      - Average per state
  GET  /api/metrics/{kind}/heat         - Heat points (?period=&exact=)
  GET  /api/metrics/{kind}/years        - Distinct years
  GET  /api/metrics/{kind}/current      - Latest value per state
  GET  /api/heatmaps                    - Rendered map files
  GET  /heatmaps/{file}                 - One rendered map
  POST /api/ingest                      - Run one ingestion
  GET  /ws/chat                         - AI chat relay

Example:
  go run ./cmd/healthdash serve
  go run ./cmd/healthdash serve --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return a.serve(cmd.Context(), servePort)
}
