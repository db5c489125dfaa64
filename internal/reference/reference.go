package reference

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/healthdash/backend/internal/contracts"
)

// Disease is one row of the heatmap matrix
type Disease struct {
	Name string         `yaml:"name" json:"name"`
	Kind contracts.Kind `yaml:"kind" json:"kind"`

	// Periods rendered for this disease. When PeriodsFromStore is set the
	// list is read from the stored years at render time instead.
	Periods          []string `yaml:"periods" json:"periods"`
	PeriodsFromStore bool     `yaml:"periods_from_store" json:"periods_from_store"`
	ExactMatch       bool     `yaml:"exact_match" json:"exact_match"`
}

// Table holds the fixed reference data the pipeline runs against
// ⭐ SSOT: centroid table and disease matrix
type Table struct {
	Centroids []contracts.Centroid `yaml:"centroids" json:"centroids"`
	Diseases  []Disease            `yaml:"diseases" json:"diseases"`
}

// Default returns a fresh copy of the built-in reference table
func Default() *Table {
	return &Table{
		Centroids: append([]contracts.Centroid(nil), defaultCentroids...),
		Diseases: []Disease{
			{
				Name:       "COVID-19",
				Kind:       contracts.KindCOVIDPositivity,
				Periods:    []string{contracts.PeriodPast4Weeks},
				ExactMatch: true,
			},
			{
				Name:             "RSV",
				Kind:             contracts.KindRSVRate,
				PeriodsFromStore: true,
				ExactMatch:       false,
			},
		},
	}
}

// Load reads a YAML reference file. Unknown fields are rejected so that a
// typo never silently falls back to a default.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode reference file: %w", err)
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}

	return &t, nil
}

// LoadOrDefault loads path, or returns Default when path is empty
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the table
func Validate(t *Table) error {
	seen := make(map[string]bool, len(t.Centroids))
	for i, c := range t.Centroids {
		field := fmt.Sprintf("centroids[%d]", i)
		if c.Region == "" {
			return ValidationError{field + ".region", "required"}
		}
		if seen[c.Region] {
			return ValidationError{field + ".region", fmt.Sprintf("duplicate region %q", c.Region)}
		}
		seen[c.Region] = true
		if c.Latitude < -90 || c.Latitude > 90 {
			return ValidationError{field + ".latitude", "must be in [-90, 90]"}
		}
		if c.Longitude < -180 || c.Longitude > 180 {
			return ValidationError{field + ".longitude", "must be in [-180, 180]"}
		}
	}

	for i, d := range t.Diseases {
		field := fmt.Sprintf("diseases[%d]", i)
		if d.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if _, err := contracts.ParseKind(string(d.Kind)); err != nil {
			return ValidationError{field + ".kind", err.Error()}
		}
		if len(d.Periods) == 0 && !d.PeriodsFromStore {
			return ValidationError{field + ".periods", "required unless periods_from_store is set"}
		}
	}

	return nil
}

// Hash returns a SHA256 of the table's canonical JSON. Logged with each
// ingestion run so rendered maps can be traced to the reference data used.
func Hash(t *Table) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
