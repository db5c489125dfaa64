package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdash/backend/internal/contracts"
)

func TestDefault(t *testing.T) {
	table := Default()
	require.NoError(t, Validate(table))

	assert.Len(t, table.Centroids, 52)

	byRegion := make(map[string]contracts.Centroid)
	for _, c := range table.Centroids {
		byRegion[c.Region] = c
	}
	assert.Equal(t, contracts.Centroid{Region: "Texas", Latitude: 29.7604, Longitude: -95.3698}, byRegion["Texas"])
	assert.Equal(t, contracts.Centroid{Region: "Ohio", Latitude: 39.9612, Longitude: -82.9988}, byRegion["Ohio"])
	assert.Contains(t, byRegion, "District of Columbia")
	assert.Contains(t, byRegion, "Puerto Rico")

	require.Len(t, table.Diseases, 2)
	assert.Equal(t, "COVID-19", table.Diseases[0].Name)
	assert.True(t, table.Diseases[0].ExactMatch)
	assert.Equal(t, []string{"Past 4 Weeks"}, table.Diseases[0].Periods)
	assert.Equal(t, contracts.KindRSVRate, table.Diseases[1].Kind)
	assert.True(t, table.Diseases[1].PeriodsFromStore)
	assert.False(t, table.Diseases[1].ExactMatch)
}

func TestDefault_ReturnsCopy(t *testing.T) {
	a := Default()
	a.Centroids[0].Latitude = 0

	b := Default()
	assert.NotEqual(t, 0.0, b.Centroids[0].Latitude)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	data := `
centroids:
  - region: Texas
    latitude: 29.7604
    longitude: -95.3698
diseases:
  - name: COVID-19
    kind: COVID_Positivity
    periods: ["Past 4 Weeks"]
    exact_match: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	require.Len(t, table.Centroids, 1)
	assert.Equal(t, -95.3698, table.Centroids[0].Longitude)
	assert.Equal(t, contracts.KindCOVIDPositivity, table.Diseases[0].Kind)
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte("centroid:\n  - region: Texas\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		field string
	}{
		{
			name:  "duplicate region",
			table: Table{Centroids: []contracts.Centroid{{Region: "Ohio"}, {Region: "Ohio"}}},
			field: "centroids[1].region",
		},
		{
			name:  "latitude out of range",
			table: Table{Centroids: []contracts.Centroid{{Region: "Ohio", Latitude: 91}}},
			field: "centroids[0].latitude",
		},
		{
			name:  "unknown kind",
			table: Table{Diseases: []Disease{{Name: "Flu", Kind: "Flu_Rate", Periods: []string{"2024"}}}},
			field: "diseases[0].kind",
		},
		{
			name:  "no periods",
			table: Table{Diseases: []Disease{{Name: "RSV", Kind: contracts.KindRSVRate}}},
			field: "diseases[0].periods",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.table)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestHash(t *testing.T) {
	h1, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, _ := Hash(Default())
	assert.Equal(t, h1, h2)

	changed := Default()
	changed.Diseases = changed.Diseases[:1]
	h3, _ := Hash(changed)
	assert.NotEqual(t, h1, h3)
}
