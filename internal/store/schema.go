package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/database"
)

// snapshotIndex keeps one row per (state, kind, period) for the snapshot
// kinds. Creation fails when legacy duplicates exist; EnsureSchema reports
// that as a warning instead of rewriting data.
const snapshotIndex = "uq_state_metrics_snapshot"

func schemaStatements(dialect database.Dialect) []string {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	realType := "REAL"
	if dialect == database.DialectPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		realType = "DOUBLE PRECISION"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS state_metrics (
			%s,
			state TEXT,
			metric_type TEXT,
			metric_value %s,
			year TEXT
		)`, idColumn, realType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS state_centroids (
			%s,
			state TEXT UNIQUE,
			latitude %s,
			longitude %s
		)`, idColumn, realType, realType),
		`CREATE TABLE IF NOT EXISTS scrape_cache (
			url TEXT PRIMARY KEY,
			etag TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_state_metrics_type ON state_metrics (metric_type, state)`,
	}
}

func snapshotIndexStatement() string {
	var kinds []string
	for _, k := range contracts.AllKinds {
		if k.IsSnapshot() {
			kinds = append(kinds, "'"+string(k)+"'")
		}
	}
	return fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON state_metrics (state, metric_type, year) WHERE metric_type IN (%s)`,
		snapshotIndex, strings.Join(kinds, ", "),
	)
}

// EnsureSchema creates every table and index that does not exist yet.
// Safe to call on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.db.Dialect) {
		if _, err := s.db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if _, err := s.db.SQL.ExecContext(ctx, snapshotIndexStatement()); err != nil {
		s.logger.WithError(err).WithField("index", snapshotIndex).
			Warn("Snapshot uniqueness not enforced: duplicate rows already exist")
		s.snapshotUnique = false
		return nil
	}
	s.snapshotUnique = true

	return nil
}
