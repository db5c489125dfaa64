package heatmap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/internal/reference"
	"github.com/healthdash/backend/pkg/logger"
)

type joinKey struct {
	kind   contracts.Kind
	period string
	exact  bool
}

type fakeSource struct {
	points  map[joinKey][]contracts.HeatPoint
	agg     map[contracts.Kind]map[string]float64
	years   map[contracts.Kind][]string
	joinErr error
	calls   []joinKey
}

func (f *fakeSource) JoinWithCentroids(_ context.Context, kind contracts.Kind, period string, exact bool) ([]contracts.HeatPoint, error) {
	k := joinKey{kind, period, exact}
	f.calls = append(f.calls, k)
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return f.points[k], nil
}

func (f *fakeSource) AggregateByRegion(_ context.Context, kind contracts.Kind) (map[string]float64, error) {
	return f.agg[kind], nil
}

func (f *fakeSource) DistinctYears(_ context.Context, kind contracts.Kind) ([]string, error) {
	return f.years[kind], nil
}

func TestFileName(t *testing.T) {
	tests := []struct {
		disease string
		period  string
		want    string
	}{
		{"COVID-19", "Past 4 Weeks", "heatmap_COVID-19_Past-4-Weeks.html"},
		{"RSV", "2023", "heatmap_RSV_2023.html"},
		{"Seasonal Flu", "Current Week", "heatmap_Seasonal_Flu_Current_Week.html"},
		{"RSV", "10/15/2022", "heatmap_RSV_10-15-2022.html"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.disease, tt.period))
		})
	}
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{
		points: map[joinKey][]contracts.HeatPoint{
			{contracts.KindCOVIDPositivity, "Past 4 Weeks", true}: {{Lat: 29.7604, Lon: -95.3698, Value: 12.5}},
			{contracts.KindRSVRate, "2023", false}:                {{Lat: 39.9612, Lon: -82.9988, Value: 15}},
		},
		agg: map[contracts.Kind]map[string]float64{
			contracts.KindCOVIDPositivity: {"Texas": 12.456},
		},
		years: map[contracts.Kind][]string{
			contracts.KindRSVRate: {"2022", "2023"},
		},
	}

	r := NewRenderer(src, dir, logger.Nop())
	outputs, err := r.RenderAll(context.Background(), reference.Default().Diseases)
	require.NoError(t, err)

	require.Len(t, outputs, 2, "RSV 2022 has no data and produces no file")
	assert.Equal(t, "heatmap_COVID-19_Past-4-Weeks.html", outputs[0].File)
	assert.Equal(t, "heatmap_RSV_2023.html", outputs[1].File)

	assert.Contains(t, src.calls, joinKey{contracts.KindRSVRate, "2022", false})
	_, err = os.Stat(filepath.Join(dir, FileName("RSV", "2022")))
	assert.True(t, os.IsNotExist(err))

	html, err := os.ReadFile(filepath.Join(dir, outputs[0].File))
	require.NoError(t, err)
	content := string(html)
	assert.Contains(t, content, "29.7604")
	assert.Contains(t, content, "-95.3698")
	assert.Contains(t, content, "12.46", "overlay values are rounded to 2 decimals")
	assert.Contains(t, content, "39.8283")
	assert.Contains(t, content, "lime")
	assert.Contains(t, content, "L.heatLayer")
	assert.Contains(t, content, "State Borders")

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "heatmap_COVID-19_Past-4-Weeks.html", files[0].Name)
}

func TestRenderAll_ErrorsDoNotStopOtherPeriods(t *testing.T) {
	src := &fakeSource{
		joinErr: errors.New("database is locked"),
		years:   map[contracts.Kind][]string{contracts.KindRSVRate: {"2022", "2023"}},
	}

	r := NewRenderer(src, t.TempDir(), logger.Nop())
	outputs, err := r.RenderAll(context.Background(), reference.Default().Diseases)
	assert.Error(t, err)
	assert.Empty(t, outputs)
	assert.Len(t, src.calls, 3, "every period is attempted")
}

func TestRender_Empty(t *testing.T) {
	r := NewRenderer(&fakeSource{}, t.TempDir(), nil)

	out, err := r.Render(context.Background(), reference.Default().Diseases[0], "Past 4 Weeks")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestIsHeatmapFile(t *testing.T) {
	assert.True(t, IsHeatmapFile("heatmap_RSV_2023.html"))
	assert.False(t, IsHeatmapFile("../heatmap_RSV_2023.html"))
	assert.False(t, IsHeatmapFile("health_data.db"))
	assert.False(t, IsHeatmapFile("heatmap_RSV_2023.js"))
}
