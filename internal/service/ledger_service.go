package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mcqhub/mcqhub-backend/internal/config"
	"github.com/mcqhub/mcqhub-backend/internal/model"
	"github.com/mcqhub/mcqhub-backend/internal/repository"
	"github.com/mcqhub/mcqhub-backend/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ledger domain errors.
var (
	ErrAlreadySubmitted = errors.New("student has already submitted this test")
	ErrNotTestAuthor    = errors.New("not the author of this test")
)

// SubmissionStore is the datastore collaborator for submissions.
type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
	GetByTestAndStudent(ctx context.Context, testID int64, studentID int) (*model.Submission, error)
	ListByTest(ctx context.Context, testID int64) ([]model.Submission, error)
}

// StatsStore is the datastore collaborator for the test_stats rollup.
type StatsStore interface {
	GetByTest(ctx context.Context, testID int64) (*repository.TestStats, error)
}

// SubmissionEvent is published on the test's Redis channel when a
// submission is accepted, and queued for the stats worker.
type SubmissionEvent struct {
	TestID      int64     `json:"test_id"`
	StudentID   int       `json:"student_id"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LedgerService owns exam submission: validation, the one-submission-per-
// (test, student) invariant, and server-side scoring.
type LedgerService struct {
	tests       TestStore
	submissions SubmissionStore
	stats       StatsStore
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerService. A nil Redis client disables
// the stats queue and the live submission feed; submissions still persist.
func NewLedgerService(tests TestStore, submissions SubmissionStore, stats StatsStore, rdb *redis.Client, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		tests:       tests,
		submissions: submissions,
		stats:       stats,
		rdb:         rdb,
		log:         log.With().Str("component", "ledger_service").Logger(),
	}
}

// Submit records a student's one-time submission for a test and returns it
// with the server-computed score. The duplicate lookup before the insert is
// only a fast path for a clean error; the UNIQUE(test_id, student_id)
// constraint is what actually guarantees at-most-one submission, including
// against concurrent duplicates.
func (s *LedgerService) Submit(ctx context.Context, studentID int, testID int64, answers map[int]string) (*model.Submission, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}

	if _, err := s.submissions.GetByTestAndStudent(ctx, testID, studentID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	submission := &model.Submission{
		TestID:    testID,
		StudentID: studentID,
		Answers:   answers,
		Score:     scoring.Score(test.Questions, test.MaxMarks, answers),
	}

	if err := s.submissions.Create(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}

	s.publishEvent(ctx, submission)

	s.log.Info().
		Int64("test_id", testID).
		Int("student_id", studentID).
		Int("score", submission.Score).
		Msg("Submission accepted")
	return submission, nil
}

// ListByTest returns a test's submissions to its authoring teacher.
func (s *LedgerService) ListByTest(ctx context.Context, teacherID int, testID int64) ([]model.Submission, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	if test.TeacherID != teacherID {
		return nil, ErrNotTestAuthor
	}

	submissions, err := s.submissions.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if submissions == nil {
		submissions = []model.Submission{}
	}
	return submissions, nil
}

// StatsByTest returns the rollup stats for a test to its authoring teacher.
// A test with no submissions yet has an empty rollup, not an error.
func (s *LedgerService) StatsByTest(ctx context.Context, teacherID int, testID int64) (*repository.TestStats, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	if test.TeacherID != teacherID {
		return nil, ErrNotTestAuthor
	}

	stats, err := s.stats.GetByTest(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &repository.TestStats{TestID: testID}, nil
		}
		return nil, err
	}
	return stats, nil
}

// publishEvent queues the submission for the stats worker and fans it out to
// live monitors. Both are best-effort: a Redis failure never unwinds an
// already-persisted submission.
func (s *LedgerService) publishEvent(ctx context.Context, submission *model.Submission) {
	if s.rdb == nil {
		return
	}

	event := SubmissionEvent{
		TestID:      submission.TestID,
		StudentID:   submission.StudentID,
		Score:       submission.Score,
		SubmittedAt: submission.CreatedAt,
	}
	raw, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal submission event")
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.RefreshStatsQueue, raw)
	pipe.Publish(ctx, config.CacheKey.SubmissionChannel(submission.TestID), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Int64("test_id", submission.TestID).Msg("Failed to publish submission event")
	}
}
