package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcqhub/mcqhub-backend/internal/model"
)

// ErrDuplicateSubmission signals that a (test, student) pair already has a
// submission. The UNIQUE constraint on submissions(test_id, student_id) is
// the authoritative source of this error, so concurrent duplicate requests
// cannot both succeed.
var ErrDuplicateSubmission = errors.New("student has already submitted this test")

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// GetByTestAndStudent retrieves the submission for a (test, student) pair.
func (r *SubmissionRepository) GetByTestAndStudent(ctx context.Context, testID int64, studentID int) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, answers, score, created_at
		 FROM submissions
		 WHERE test_id = $1 AND student_id = $2`, testID, studentID,
	).Scan(&s.ID, &s.TestID, &s.StudentID, &s.Answers, &s.Score, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new submission. A unique-constraint violation on the
// (test_id, student_id) pair is translated to ErrDuplicateSubmission.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (test_id, student_id, answers, score)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.TestID, s.StudentID, s.Answers, s.Score,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSubmission
		}
		return err
	}
	return nil
}

// ListByTest retrieves all submissions for a test, newest first.
func (r *SubmissionRepository) ListByTest(ctx context.Context, testID int64) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, student_id, answers, score, created_at
		 FROM submissions
		 WHERE test_id = $1
		 ORDER BY created_at DESC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.TestID, &s.StudentID, &s.Answers, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}
