package contracts

import (
	"fmt"
	"strings"
)

// Kind identifies what a stored metric value measures. The string value is
// persisted verbatim in state_metrics.metric_type.
// ⭐ SSOT: metric kind names
type Kind string

const (
	KindCOVIDPositivity Kind = "COVID_Positivity"
	KindCOVIDCases      Kind = "COVID_Cases"
	KindCOVIDDeaths     Kind = "COVID_Deaths"
	KindCOVIDRecovered  Kind = "COVID_Recovered"
	KindRSVRate         Kind = "RSV_Rate"
)

// AllKinds lists every known kind in a stable order
var AllKinds = []Kind{
	KindCOVIDPositivity,
	KindCOVIDCases,
	KindCOVIDDeaths,
	KindCOVIDRecovered,
	KindRSVRate,
}

// ParseKind resolves a metric_type string into a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown metric kind %q", s)
}

// IsSnapshot reports whether at most one row per (region, kind, period) is
// kept. Time-series kinds stay append-only.
func (k Kind) IsSnapshot() bool {
	switch k {
	case KindCOVIDCases, KindCOVIDDeaths, KindCOVIDRecovered:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Periods used by the scrapers
const (
	PeriodPast4Weeks = "Past 4 Weeks"
	PeriodCurrent    = "Current"
)

// NationalRegion is the region name used for country-wide counters
const NationalRegion = "United States"

// Record is one observation produced by an extractor
type Record struct {
	Region string  `json:"region"`
	Value  float64 `json:"value"`
	Period string  `json:"period"`
}

// StoredMetric is a persisted state_metrics row
type StoredMetric struct {
	ID     int64   `json:"id"`
	Region string  `json:"region"`
	Kind   Kind    `json:"kind"`
	Value  float64 `json:"value"`
	Period string  `json:"period"`
}

// Centroid is the representative coordinate of a region
type Centroid struct {
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CacheEntry is the last freshness token seen for a source URL
type CacheEntry struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// HeatPoint is one weighted point on a heatmap
type HeatPoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
}
