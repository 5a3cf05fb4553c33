package service

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mcqhub/mcqhub-backend/internal/model"
	"github.com/mcqhub/mcqhub-backend/internal/repository"
)

// In-memory datastore fakes. They mirror the repository contracts: absent
// rows surface as pgx.ErrNoRows and duplicate inserts surface as the
// repository sentinel errors, exactly as the pgx-backed implementations do.

var fakeEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeTestStore struct {
	nextID int64
	tests  []*model.Test
}

func (f *fakeTestStore) Create(_ context.Context, t *model.Test) error {
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = fakeEpoch.Add(time.Duration(f.nextID) * time.Second)
	stored := *t
	f.tests = append(f.tests, &stored)
	return nil
}

func (f *fakeTestStore) GetByID(_ context.Context, id int64) (*model.Test, error) {
	for _, t := range f.tests {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTestStore) ListPaginated(_ context.Context, limit, offset int) ([]model.Test, int, error) {
	ordered := make([]*model.Test, len(f.tests))
	copy(ordered, f.tests)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	total := len(ordered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]model.Test, 0, end-offset)
	for _, t := range ordered[offset:end] {
		page = append(page, *t)
	}
	return page, total, nil
}

type submissionKey struct {
	testID    int64
	studentID int
}

type fakeSubmissionStore struct {
	nextID int64
	subs   map[submissionKey]*model.Submission

	// createErr, when set, is returned by Create without storing anything.
	// Used to simulate a concurrent duplicate losing the insert race.
	createErr error
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: make(map[submissionKey]*model.Submission)}
}

func (f *fakeSubmissionStore) Create(_ context.Context, s *model.Submission) error {
	if f.createErr != nil {
		return f.createErr
	}

	key := submissionKey{testID: s.TestID, studentID: s.StudentID}
	if _, exists := f.subs[key]; exists {
		return repository.ErrDuplicateSubmission
	}

	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = fakeEpoch.Add(time.Duration(f.nextID) * time.Second)
	stored := *s
	f.subs[key] = &stored
	return nil
}

func (f *fakeSubmissionStore) GetByTestAndStudent(_ context.Context, testID int64, studentID int) (*model.Submission, error) {
	if s, ok := f.subs[submissionKey{testID: testID, studentID: studentID}]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) ListByTest(_ context.Context, testID int64) ([]model.Submission, error) {
	var out []model.Submission
	for key, s := range f.subs {
		if key.testID == testID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type fakeStatsStore struct {
	stats map[int64]*repository.TestStats
}

func newFakeStatsStore() *fakeStatsStore {
	return &fakeStatsStore{stats: make(map[int64]*repository.TestStats)}
}

func (f *fakeStatsStore) GetByTest(_ context.Context, testID int64) (*repository.TestStats, error) {
	if s, ok := f.stats[testID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeUserStore struct {
	nextID int
	users  []*model.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = fakeEpoch
	stored := *u
	f.users = append(f.users, &stored)
	return nil
}
