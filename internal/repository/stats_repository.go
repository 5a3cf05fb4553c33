package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestStats is the aggregated submission summary for one test.
type TestStats struct {
	TestID          int64     `json:"test_id"`
	SubmissionCount int       `json:"submission_count"`
	AverageScore    *float64  `json:"average_score"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatsRepository maintains the test_stats rollup table.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// GetByTest retrieves the stats row for a test.
func (r *StatsRepository) GetByTest(ctx context.Context, testID int64) (*TestStats, error) {
	s := &TestStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT test_id, submission_count, average_score, updated_at
		 FROM test_stats WHERE test_id = $1`, testID,
	).Scan(&s.TestID, &s.SubmissionCount, &s.AverageScore, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RefreshForTests recomputes and upserts stats rows for the given tests in
// one round-trip. Used by the stats worker to drain its batch.
func (r *StatsRepository) RefreshForTests(ctx context.Context, testIDs []int64) error {
	if len(testIDs) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO test_stats (test_id, submission_count, average_score, updated_at)
		 SELECT s.test_id, COUNT(*), AVG(s.score), NOW()
		 FROM submissions s
		 WHERE s.test_id = ANY($1)
		 GROUP BY s.test_id
		 ON CONFLICT (test_id) DO UPDATE
		 SET submission_count = EXCLUDED.submission_count,
		     average_score = EXCLUDED.average_score,
		     updated_at = EXCLUDED.updated_at`,
		testIDs)
	return err
}
