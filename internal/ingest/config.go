package ingest

import (
	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/internal/reference"
)

// Config is the reference data an Orchestrator runs against. It is copied
// on construction and never modified afterwards.
type Config struct {
	Centroids     []contracts.Centroid
	Diseases      []reference.Disease
	ReferenceHash string
}

// NewConfig builds a Config from a reference table
func NewConfig(t *reference.Table) (Config, error) {
	if err := reference.Validate(t); err != nil {
		return Config{}, err
	}

	hash, err := reference.Hash(t)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Centroids:     t.Centroids,
		Diseases:      t.Diseases,
		ReferenceHash: hash,
	}.clone(), nil
}

func (c Config) clone() Config {
	out := Config{
		Centroids:     append([]contracts.Centroid(nil), c.Centroids...),
		Diseases:      make([]reference.Disease, len(c.Diseases)),
		ReferenceHash: c.ReferenceHash,
	}
	for i, d := range c.Diseases {
		d.Periods = append([]string(nil), d.Periods...)
		out.Diseases[i] = d
	}
	return out
}
