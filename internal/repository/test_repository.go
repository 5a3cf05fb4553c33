package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcqhub/mcqhub-backend/internal/model"
)

// TestRepository handles test data access. Questions are stored as a jsonb
// array in authoring order; that order must survive round-trips because
// submission answers are keyed by question index.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test by its ID.
func (r *TestRepository) GetByID(ctx context.Context, id int64) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_name, teacher_id, questions, max_marks, created_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.TestName, &t.TeacherID, &t.Questions, &t.MaxMarks, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListPaginated retrieves tests ordered by newest first, with a single
// count+fetch pair so page boundaries come from one consistent total.
func (r *TestRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Test, int, error) {
	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_name, teacher_id, questions, max_marks, created_at
		 FROM tests
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.TestName, &t.TeacherID, &t.Questions, &t.MaxMarks, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (test_name, teacher_id, questions, max_marks)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		t.TestName, t.TeacherID, t.Questions, t.MaxMarks,
	).Scan(&t.ID, &t.CreatedAt)
}
