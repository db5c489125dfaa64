package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/database"
	"github.com/healthdash/backend/pkg/logger"
)

// Store implements contracts.MetricRepository and contracts.TokenStore on
// top of SQLite or PostgreSQL.
// ⭐ SSOT: state_metrics, state_centroids and scrape_cache are accessed here only
type Store struct {
	db     *database.DB
	logger *logger.Logger

	// set by EnsureSchema
	snapshotUnique bool
}

// New creates a new Store
func New(db *database.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		db:     db,
		logger: log.Component("store"),
	}
}

// SnapshotUnique reports whether the snapshot uniqueness index is in place
func (s *Store) SnapshotUnique() bool {
	return s.snapshotUnique
}

// Append inserts one row per record inside a single transaction. No
// deduplication is performed.
func (s *Store) Append(ctx context.Context, kind contracts.Kind, records []contracts.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(`
		INSERT INTO state_metrics (state, metric_type, metric_value, year)
		VALUES (?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Region, string(kind), rec.Value, rec.Period); err != nil {
			return fmt.Errorf("failed to insert %s record %d (%s): %w", kind, i, rec.Region, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s records: %w", kind, err)
	}

	return nil
}

// UpsertCentroids inserts or replaces centroids by region name
func (s *Store) UpsertCentroids(ctx context.Context, centroids []contracts.Centroid) error {
	if len(centroids) == 0 {
		return nil
	}

	tx, err := s.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(`
		INSERT INTO state_centroids (state, latitude, longitude)
		VALUES (?, ?, ?)
		ON CONFLICT (state) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude
	`)

	for _, c := range centroids {
		if _, err := tx.ExecContext(ctx, query, c.Region, c.Latitude, c.Longitude); err != nil {
			return fmt.Errorf("failed to upsert centroid %s: %w", c.Region, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit centroids: %w", err)
	}

	return nil
}

const (
	incrementSQL = `UPDATE state_metrics SET metric_value = metric_value + ? WHERE id = ?`
	overwriteSQL = `UPDATE state_metrics SET metric_value = ? WHERE id = ?`
)

// IncrementOrInsert adds delta to the (region, kind) row, or inserts a row
// with value = delta when none exists.
func (s *Store) IncrementOrInsert(ctx context.Context, region string, kind contracts.Kind, delta float64, period string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.updateOrInsert(ctx, tx, region, kind, delta, period, incrementSQL)
	})
}

// OverwriteOrInsert replaces the value of the (region, kind) row, or inserts
// one when none exists.
func (s *Store) OverwriteOrInsert(ctx context.Context, region string, kind contracts.Kind, value float64, period string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.updateOrInsert(ctx, tx, region, kind, value, period, overwriteSQL)
	})
}

// ApplyCounters writes a Worldometers snapshot in one transaction: new cases
// are added to COVID_Cases, deaths and recovered overwrite their national
// rows. Either every row is written or none is, so a retried page never
// adds the same deltas twice. It returns the number of rows touched.
func (s *Store) ApplyCounters(ctx context.Context, counters *contracts.Counters) (int, error) {
	if counters == nil {
		return 0, nil
	}

	written := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range counters.NewCases {
			if err := s.updateOrInsert(ctx, tx, rec.Region, contracts.KindCOVIDCases, rec.Value, rec.Period, incrementSQL); err != nil {
				return err
			}
			written++
		}

		national := []struct {
			kind contracts.Kind
			rec  *contracts.Record
		}{
			{contracts.KindCOVIDDeaths, counters.Deaths},
			{contracts.KindCOVIDRecovered, counters.Recovered},
		}
		for _, n := range national {
			if n.rec == nil {
				continue
			}
			if err := s.updateOrInsert(ctx, tx, n.rec.Region, n.kind, n.rec.Value, n.rec.Period, overwriteSQL); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// updateOrInsert resolves the (region, kind) row by id so that at most one
// row is touched even when duplicates exist.
func (s *Store) updateOrInsert(ctx context.Context, tx *sql.Tx, region string, kind contracts.Kind, value float64, period, update string) error {
	rows, err := tx.QueryContext(ctx, s.db.Rebind(`
		SELECT id FROM state_metrics
		WHERE state = ? AND metric_type = ?
		ORDER BY id
	`), region, string(kind))
	if err != nil {
		return fmt.Errorf("failed to look up %s row for %s: %w", kind, region, err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan row id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read row ids: %w", err)
	}

	if len(ids) > 1 {
		s.logger.WithFields(map[string]interface{}{
			"region": region,
			"kind":   string(kind),
			"rows":   len(ids),
		}).Warn("Duplicate snapshot rows, updating the oldest")
	}

	if len(ids) == 0 {
		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO state_metrics (state, metric_type, metric_value, year)
			VALUES (?, ?, ?, ?)
		`), region, string(kind), value, period)
	} else {
		_, err = tx.ExecContext(ctx, s.db.Rebind(update), value, ids[0])
	}
	if err != nil {
		return fmt.Errorf("failed to write %s row for %s: %w", kind, region, err)
	}

	return nil
}

// AggregateByRegion returns the average stored value per region
func (s *Store) AggregateByRegion(ctx context.Context, kind contracts.Kind) (map[string]float64, error) {
	rows, err := s.db.SQL.QueryContext(ctx, s.db.Rebind(`
		SELECT TRIM(state), AVG(metric_value)
		FROM state_metrics
		WHERE metric_type = ?
		GROUP BY TRIM(state)
	`), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", kind, err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var region sql.NullString
		var avg sql.NullFloat64
		if err := rows.Scan(&region, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		if !region.Valid || !avg.Valid {
			continue
		}
		result[region.String] = avg.Float64
	}

	return result, rows.Err()
}

// JoinWithCentroids returns one heat point per stored row of kind whose
// period matches. exactMatch compares the whole period string, otherwise
// only the first four characters (the year) of the stored period are
// compared with period. Rows without a centroid or with non-numeric fields
// are dropped.
func (s *Store) JoinWithCentroids(ctx context.Context, kind contracts.Kind, period string, exactMatch bool) ([]contracts.HeatPoint, error) {
	periodClause := "m.year = ?"
	if !exactMatch {
		periodClause = "SUBSTR(m.year, 1, 4) = ?"
	}

	query := fmt.Sprintf(`
		SELECT c.latitude, c.longitude, m.metric_value
		FROM state_centroids c
		JOIN state_metrics m ON TRIM(c.state) = TRIM(m.state)
		WHERE m.metric_type = ?
		  AND %s
		  AND c.latitude IS NOT NULL
		  AND c.longitude IS NOT NULL
		ORDER BY m.id
	`, periodClause)

	rows, err := s.db.SQL.QueryContext(ctx, s.db.Rebind(query), string(kind), period)
	if err != nil {
		return nil, fmt.Errorf("failed to join %s with centroids: %w", kind, err)
	}
	defer rows.Close()

	var points []contracts.HeatPoint
	dropped := 0
	for rows.Next() {
		var lat, lon, value sql.NullString
		if err := rows.Scan(&lat, &lon, &value); err != nil {
			return nil, fmt.Errorf("failed to scan heat point: %w", err)
		}

		p, ok := heatPoint(lat, lon, value)
		if !ok {
			dropped++
			continue
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if dropped > 0 {
		s.logger.WithFields(map[string]interface{}{
			"kind":    string(kind),
			"period":  period,
			"dropped": dropped,
		}).Debug("Dropped non-numeric heat points")
	}

	return points, nil
}

func heatPoint(lat, lon, value sql.NullString) (contracts.HeatPoint, bool) {
	var out [3]float64
	for i, f := range []sql.NullString{lat, lon, value} {
		if !f.Valid {
			return contracts.HeatPoint{}, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f.String), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return contracts.HeatPoint{}, false
		}
		out[i] = v
	}
	return contracts.HeatPoint{Lat: out[0], Lon: out[1], Value: out[2]}, true
}

// DistinctYears returns the sorted distinct first-four-character prefixes of
// the stored periods for kind
func (s *Store) DistinctYears(ctx context.Context, kind contracts.Kind) ([]string, error) {
	rows, err := s.db.SQL.QueryContext(ctx, s.db.Rebind(`
		SELECT DISTINCT SUBSTR(year, 1, 4) AS y
		FROM state_metrics
		WHERE metric_type = ?
		ORDER BY y
	`), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list years for %s: %w", kind, err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var y sql.NullString
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		if y.Valid && y.String != "" {
			years = append(years, y.String)
		}
	}

	return years, rows.Err()
}

// LatestSnapshot returns the most recently written row per region for kind
func (s *Store) LatestSnapshot(ctx context.Context, kind contracts.Kind) ([]contracts.StoredMetric, error) {
	rows, err := s.db.SQL.QueryContext(ctx, s.db.Rebind(`
		SELECT id, state, metric_type, metric_value, year
		FROM state_metrics
		WHERE id IN (
			SELECT MAX(id) FROM state_metrics
			WHERE metric_type = ?
			GROUP BY state
		)
		ORDER BY state
	`), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s snapshot: %w", kind, err)
	}
	defer rows.Close()

	var metrics []contracts.StoredMetric
	for rows.Next() {
		var (
			m      contracts.StoredMetric
			kindS  string
			region sql.NullString
			value  sql.NullFloat64
			period sql.NullString
		)
		if err := rows.Scan(&m.ID, &region, &kindS, &value, &period); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		m.Region = region.String
		m.Kind = contracts.Kind(kindS)
		m.Value = value.Float64
		m.Period = period.String
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// Counts returns the number of stored rows per kind
func (s *Store) Counts(ctx context.Context) (map[contracts.Kind]int, error) {
	rows, err := s.db.SQL.QueryContext(ctx, `
		SELECT metric_type, COUNT(*)
		FROM state_metrics
		GROUP BY metric_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count metrics: %w", err)
	}
	defer rows.Close()

	counts := make(map[contracts.Kind]int)
	for rows.Next() {
		var kind sql.NullString
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[contracts.Kind(kind.String)] = n
	}

	return counts, rows.Err()
}

// GetToken returns the stored freshness token for url, or "" when none
func (s *Store) GetToken(ctx context.Context, url string) (string, error) {
	var token sql.NullString
	err := s.db.SQL.QueryRowContext(ctx, s.db.Rebind(`
		SELECT etag FROM scrape_cache WHERE url = ?
	`), url).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token for %s: %w", url, err)
	}
	return token.String, nil
}

// PutToken stores the freshness token for url
func (s *Store) PutToken(ctx context.Context, url, token string) error {
	_, err := s.db.SQL.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO scrape_cache (url, etag)
		VALUES (?, ?)
		ON CONFLICT (url) DO UPDATE SET etag = EXCLUDED.etag
	`), url, token)
	if err != nil {
		return fmt.Errorf("failed to store token for %s: %w", url, err)
	}
	return nil
}

// Tokens lists every tracked source with its last committed token
func (s *Store) Tokens(ctx context.Context) ([]contracts.CacheEntry, error) {
	rows, err := s.db.SQL.QueryContext(ctx, `SELECT url, etag FROM scrape_cache ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var entries []contracts.CacheEntry
	for rows.Next() {
		var e contracts.CacheEntry
		var token sql.NullString
		if err := rows.Scan(&e.URL, &token); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		e.Token = token.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var (
	_ contracts.MetricRepository = (*Store)(nil)
	_ contracts.TokenStore       = (*Store)(nil)
)
