package contracts

import "context"

// ⭐ SSOT: repository interfaces are defined here only

// MetricRepository persists and queries state_metrics and state_centroids
type MetricRepository interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, kind Kind, records []Record) error
	UpsertCentroids(ctx context.Context, centroids []Centroid) error
	IncrementOrInsert(ctx context.Context, region string, kind Kind, delta float64, period string) error
	OverwriteOrInsert(ctx context.Context, region string, kind Kind, value float64, period string) error
	ApplyCounters(ctx context.Context, counters *Counters) (int, error)
	AggregateByRegion(ctx context.Context, kind Kind) (map[string]float64, error)
	JoinWithCentroids(ctx context.Context, kind Kind, period string, exactMatch bool) ([]HeatPoint, error)
	DistinctYears(ctx context.Context, kind Kind) ([]string, error)
	LatestSnapshot(ctx context.Context, kind Kind) ([]StoredMetric, error)
	Counts(ctx context.Context) (map[Kind]int, error)
}

// TokenStore persists freshness tokens in scrape_cache
type TokenStore interface {
	GetToken(ctx context.Context, url string) (string, error)
	PutToken(ctx context.Context, url, token string) error
}
