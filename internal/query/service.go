// Package query provides SQL inspection of exported ensemble snapshots.
//
// It uses DuckDB to query the Parquet snapshot files written by the export
// package: per-segment spread across iterations, clipped-segment counts,
// and member outliers. Queries honor context timeouts.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "github.com/marcboeker/go-duckdb"
)

// Service provides query capabilities over exported snapshot files.
type Service struct {
	mu sync.RWMutex

	db  *sql.DB
	dir string

	queriesExecuted atomic.Int64
	rowsReturned    atomic.Int64
	errors          atomic.Int64
}

// Stats holds query statistics.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// SegmentSpread is the ensemble spread of one segment at one iteration.
type SegmentSpread struct {
	Iteration int32
	Segment   string
	Members   int64
	MeanValue float64
	MinValue  float64
	MaxValue  float64
	StdValue  float64
}

// ClippedCount counts the members sitting on a bound for one segment at
// one iteration.
type ClippedCount struct {
	Iteration int32
	Segment   string
	Members   int64
}

// MemberDeviation is one member's mean absolute log-space distance from
// the ensemble mean at one iteration.
type MemberDeviation struct {
	Iteration int32
	Member    int32
	Deviation float64
}

// New creates a query service over the snapshot files in dir.
// memoryLimit is passed to DuckDB when non-empty (e.g. "2GB").
func New(dir, memoryLimit string) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if memoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", memoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{
		db:  db,
		dir: dir,
	}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// pattern returns the glob DuckDB scans for snapshot files.
func (s *Service) pattern() string {
	return filepath.Join(s.dir, "*.parquet")
}

// SegmentSpreads returns per-segment ensemble spread for one iteration,
// or for all iterations when iteration is negative.
func (s *Service) SegmentSpreads(ctx context.Context, iteration int) ([]SegmentSpread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT
			iteration, segment,
			count(*) AS members,
			avg(value) AS mean_value,
			min(value) AS min_value,
			max(value) AS max_value,
			coalesce(stddev_samp(value), 0) AS std_value
		FROM read_parquet($1)
		WHERE $2 < 0 OR iteration = $2
		GROUP BY iteration, segment
		ORDER BY iteration, segment
	`

	rows, err := s.db.QueryContext(ctx, query, s.pattern(), iteration)
	if err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("query segment spreads: %w", err)
	}
	defer rows.Close()

	var results []SegmentSpread
	for rows.Next() {
		var r SegmentSpread
		if err := rows.Scan(&r.Iteration, &r.Segment, &r.Members,
			&r.MeanValue, &r.MinValue, &r.MaxValue, &r.StdValue); err != nil {
			s.errors.Add(1)
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	s.queriesExecuted.Add(1)
	s.rowsReturned.Add(int64(len(results)))
	return results, nil
}

// ClippedSegments returns, per iteration and segment, how many members
// sit on a physical bound. Segments with no clipped members are omitted.
func (s *Service) ClippedSegments(ctx context.Context) ([]ClippedCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT iteration, segment, count(*) AS members
		FROM read_parquet($1)
		WHERE at_bound
		GROUP BY iteration, segment
		ORDER BY iteration, segment
	`

	rows, err := s.db.QueryContext(ctx, query, s.pattern())
	if err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("query clipped segments: %w", err)
	}
	defer rows.Close()

	var results []ClippedCount
	for rows.Next() {
		var r ClippedCount
		if err := rows.Scan(&r.Iteration, &r.Segment, &r.Members); err != nil {
			s.errors.Add(1)
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	s.queriesExecuted.Add(1)
	s.rowsReturned.Add(int64(len(results)))
	return results, nil
}

// MemberOutliers returns the limit members furthest from the ensemble
// mean in log space, per iteration.
func (s *Service) MemberOutliers(ctx context.Context, limit int) ([]MemberDeviation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	query := `
		WITH segment_means AS (
			SELECT iteration, segment, avg(log_value) AS seg_mean
			FROM read_parquet($1)
			GROUP BY iteration, segment
		)
		SELECT r.iteration, r.member,
			avg(abs(r.log_value - m.seg_mean)) AS deviation
		FROM read_parquet($1) r
		JOIN segment_means m
			ON r.iteration = m.iteration AND r.segment = m.segment
		GROUP BY r.iteration, r.member
		ORDER BY deviation DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, s.pattern(), limit)
	if err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("query member outliers: %w", err)
	}
	defer rows.Close()

	var results []MemberDeviation
	for rows.Next() {
		var r MemberDeviation
		if err := rows.Scan(&r.Iteration, &r.Member, &r.Deviation); err != nil {
			s.errors.Add(1)
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		s.errors.Add(1)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	s.queriesExecuted.Add(1)
	s.rowsReturned.Add(int64(len(results)))
	return results, nil
}

// Stats returns query statistics.
func (s *Service) Stats() Stats {
	return Stats{
		QueriesExecuted: s.queriesExecuted.Load(),
		RowsReturned:    s.rowsReturned.Load(),
		Errors:          s.errors.Load(),
	}
}
