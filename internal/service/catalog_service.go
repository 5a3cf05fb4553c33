package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mcqhub/mcqhub-backend/internal/config"
	"github.com/mcqhub/mcqhub-backend/internal/model"
	"github.com/mcqhub/mcqhub-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrTestNotFound signals that a referenced test does not exist.
var ErrTestNotFound = errors.New("test not found")

// ValidationError carries a machine-readable map of field violations for
// checks that go beyond request-shape binding.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// TestStore is the datastore collaborator for tests.
type TestStore interface {
	Create(ctx context.Context, t *model.Test) error
	GetByID(ctx context.Context, id int64) (*model.Test, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]model.Test, int, error)
}

// CatalogService owns test authoring and listing.
type CatalogService struct {
	tests TestStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewCatalogService creates a new CatalogService. A nil Redis client
// disables payload caching; reads then always hit PostgreSQL.
func NewCatalogService(tests TestStore, rdb *redis.Client, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		tests: tests,
		rdb:   rdb,
		log:   log.With().Str("component", "catalog_service").Logger(),
	}
}

// CreateTest validates and persists a new test owned by teacherID.
// Beyond the request-shape constraints enforced at binding time, every
// question's four options must be distinct and its correct answer must be
// one of them; the answer key is rejected here rather than trusted to the
// authoring client.
func (s *CatalogService) CreateTest(ctx context.Context, teacherID int, req *model.CreateTestRequest) (*model.Test, error) {
	questions := make([]model.Question, len(req.Questions))
	fields := make(map[string]string)

	for i, q := range req.Questions {
		seen := make(map[string]struct{}, model.OptionsPerQuestion)
		answerMatches := false

		for _, opt := range q.Options {
			if _, dup := seen[opt]; dup {
				fields[fmt.Sprintf("questions[%d].options", i)] = "options must be distinct"
			}
			seen[opt] = struct{}{}
			if opt == q.CorrectAnswer {
				answerMatches = true
			}
		}
		if !answerMatches {
			fields[fmt.Sprintf("questions[%d].correct_answer", i)] = "correct_answer must equal one of the options"
		}

		questions[i] = model.Question{
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	test := &model.Test{
		TestName:  req.TestName,
		TeacherID: teacherID,
		Questions: questions,
		MaxMarks:  req.MaxMarks,
	}

	if err := s.tests.Create(ctx, test); err != nil {
		return nil, err
	}

	if err := s.warmPayloadCache(ctx, test); err != nil {
		s.log.Warn().Err(err).Int64("test_id", test.ID).Msg("Failed to warm payload cache")
	}

	s.log.Info().
		Int64("test_id", test.ID).
		Int("teacher_id", teacherID).
		Int("questions", len(questions)).
		Msg("Test created")
	return test, nil
}

// ListTests retrieves tests newest-first with offset pagination. The
// descending creation-time order is part of the listing contract: it decides
// which tests appear on early pages as the catalog grows.
func (s *CatalogService) ListTests(ctx context.Context, page, limit int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	offset := (page - 1) * limit

	tests, total, err := s.tests.ListPaginated(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if tests == nil {
		tests = []model.Test{}
	}

	totalPages := (total + limit - 1) / limit

	pagination := &response.Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return tests, pagination, nil
}

// GetByID retrieves a full test including its answer key.
func (s *CatalogService) GetByID(ctx context.Context, id int64) (*model.Test, error) {
	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	return test, nil
}

// GetPayload retrieves the student-facing view of a test (no answer key),
// served from the Redis cache when possible.
func (s *CatalogService) GetPayload(ctx context.Context, id int64) (*model.TestPayload, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(id)).Bytes()
		if err == nil {
			var payload model.TestPayload
			if err := json.Unmarshal(data, &payload); err == nil {
				return &payload, nil
			}
			s.log.Warn().Int64("test_id", id).Msg("Corrupt cached payload, falling back to PostgreSQL")
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Int64("test_id", id).Msg("Payload cache read failed")
		}
	}

	test, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.warmPayloadCache(ctx, test); err != nil {
		s.log.Warn().Err(err).Int64("test_id", id).Msg("Failed to warm payload cache")
	}

	return test.ForStudent(), nil
}

// warmPayloadCache stores the answer-key-free payload in Redis.
func (s *CatalogService) warmPayloadCache(ctx context.Context, test *model.Test) error {
	if s.rdb == nil {
		return nil
	}

	payloadJSON, err := json.Marshal(test.ForStudent())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.TestPayloadKey(test.ID), payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}
	return nil
}
