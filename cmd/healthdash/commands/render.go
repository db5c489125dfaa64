package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// renderCmd re-renders heatmaps from stored data without scraping
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render heatmaps from the stored metrics",
	Long: `Renders one HTML heatmap per configured disease and period from the
metrics already in the store. Nothing is scraped.

Example:
  go run ./cmd/healthdash render`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	outputs, err := a.renderer.RenderAll(cmd.Context(), a.reference.Diseases)
	for _, out := range outputs {
		PrintSuccess(fmt.Sprintf("%s (%d points)", out.File, out.Points))
	}
	if len(outputs) == 0 {
		PrintWarning("No heatmaps written; run ingest first")
	}
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
