package heatmap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/internal/reference"
	"github.com/healthdash/backend/pkg/logger"
)

// Source is the part of the metric store the renderer reads
type Source interface {
	JoinWithCentroids(ctx context.Context, kind contracts.Kind, period string, exactMatch bool) ([]contracts.HeatPoint, error)
	AggregateByRegion(ctx context.Context, kind contracts.Kind) (map[string]float64, error)
	DistinctYears(ctx context.Context, kind contracts.Kind) ([]string, error)
}

// Output describes one written map
type Output struct {
	Disease string `json:"disease"`
	Period  string `json:"period"`
	File    string `json:"file"`
	Points  int    `json:"points"`
}

// Renderer writes one HTML heatmap per (disease, period)
// ⭐ SSOT: heatmap files are written here only
type Renderer struct {
	source    Source
	outputDir string
	logger    *logger.Logger
}

// NewRenderer creates a new Renderer writing into outputDir
func NewRenderer(source Source, outputDir string, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.Nop()
	}
	if outputDir == "" {
		outputDir = "."
	}
	return &Renderer{
		source:    source,
		outputDir: outputDir,
		logger:    log.Component("heatmap"),
	}
}

// OutputDir returns the directory maps are written to
func (r *Renderer) OutputDir() string {
	return r.outputDir
}

// FileName returns heatmap_{disease}_{period}.html with spaces replaced by
// underscores. "Past 4 Weeks" becomes "Past-4-Weeks".
func FileName(disease, period string) string {
	safeDisease := sanitize(disease)
	safePeriod := sanitize(period)
	if safePeriod == "Past_4_Weeks" {
		safePeriod = "Past-4-Weeks"
	}
	return fmt.Sprintf("heatmap_%s_%s.html", safeDisease, safePeriod)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	// periods taken verbatim from a source may contain path separators
	s = strings.ReplaceAll(s, "/", "-")
	return strings.ReplaceAll(s, `\`, "-")
}

// RenderAll renders every period of every disease. A failing or empty
// period never stops the others; failures are joined into the returned
// error.
func (r *Renderer) RenderAll(ctx context.Context, diseases []reference.Disease) ([]Output, error) {
	var (
		outputs []Output
		errs    []error
	)

	for _, d := range diseases {
		periods := d.Periods
		if d.PeriodsFromStore {
			years, err := r.source.DistinctYears(ctx, d.Kind)
			if err != nil {
				r.logger.WithError(err).WithField("disease", d.Name).Error("Failed to list periods")
				errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
				continue
			}
			periods = years
		}

		var summary map[string]float64
		for _, period := range periods {
			if err := ctx.Err(); err != nil {
				return outputs, err
			}

			if summary == nil {
				summary = r.summary(ctx, d.Kind)
			}

			out, err := r.render(ctx, d, period, summary)
			if err != nil {
				r.logger.WithError(err).WithFields(map[string]interface{}{
					"disease": d.Name,
					"period":  period,
				}).Error("Failed to render heatmap")
				errs = append(errs, fmt.Errorf("%s %s: %w", d.Name, period, err))
				continue
			}
			if out != nil {
				outputs = append(outputs, *out)
			}
		}
	}

	return outputs, errors.Join(errs...)
}

// Render renders one (disease, period) map. It returns nil without error
// when there is nothing to draw.
func (r *Renderer) Render(ctx context.Context, d reference.Disease, period string) (*Output, error) {
	return r.render(ctx, d, period, r.summary(ctx, d.Kind))
}

func (r *Renderer) summary(ctx context.Context, kind contracts.Kind) map[string]float64 {
	agg, err := r.source.AggregateByRegion(ctx, kind)
	if err != nil {
		r.logger.WithError(err).WithField("kind", string(kind)).Warn("State overlay values unavailable")
		return map[string]float64{}
	}

	rounded := make(map[string]float64, len(agg))
	for region, v := range agg {
		rounded[region] = math.Round(v*100) / 100
	}
	return rounded
}

func (r *Renderer) render(ctx context.Context, d reference.Disease, period string, summary map[string]float64) (*Output, error) {
	points, err := r.source.JoinWithCentroids(ctx, d.Kind, period, d.ExactMatch)
	if err != nil {
		return nil, err
	}

	log := r.logger.WithFields(map[string]interface{}{
		"disease": d.Name,
		"period":  period,
	})

	if len(points) == 0 {
		log.Info("No valid data, heatmap not written")
		return nil, nil
	}

	data := pageData{
		Title:       fmt.Sprintf("%s %s", d.Name, period),
		CenterLat:   centerLat,
		CenterLon:   centerLon,
		Zoom:        zoom,
		Radius:      radius,
		Blur:        blur,
		MinOpacity:  minOpacity,
		MaxOpacity:  maxOpacity,
		Gradient:    gradient,
		Points:      make([][3]float64, len(points)),
		Metrics:     summary,
		BordersURL:  StateBordersURL,
		TileURL:     tileURL,
		Attribution: tileAttribution,
	}
	for i, p := range points {
		data.Points[i] = [3]float64{p.Lat, p.Lon, p.Value}
	}

	name := FileName(d.Name, period)
	if err := r.write(name, data); err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"file":   name,
		"points": len(points),
	}).Info("Heatmap written")

	return &Output{Disease: d.Name, Period: period, File: name, Points: len(points)}, nil
}

// write renders into a temporary file and renames it so readers never see
// a partial map
func (r *Renderer) write(name string, data pageData) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.outputDir, ".heatmap-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := page.Execute(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to render template: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(r.outputDir, name)); err != nil {
		return fmt.Errorf("failed to move heatmap into place: %w", err)
	}
	return nil
}

// FileInfo describes a rendered map on disk
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ListFiles returns the rendered maps in dir sorted by name
func ListFiles(dir string) ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "heatmap_*.html"))
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(matches))
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     filepath.Base(m),
			Size:     st.Size(),
			Modified: st.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// IsHeatmapFile reports whether name is a bare heatmap file name
func IsHeatmapFile(name string) bool {
	return name == filepath.Base(name) &&
		strings.HasPrefix(name, "heatmap_") &&
		strings.HasSuffix(name, ".html")
}
