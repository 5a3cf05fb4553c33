package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcqhub/mcqhub-backend/internal/config"
	"github.com/mcqhub/mcqhub-backend/internal/handler"
	"github.com/mcqhub/mcqhub-backend/internal/model"
	"github.com/mcqhub/mcqhub-backend/internal/repository"
	"github.com/mcqhub/mcqhub-backend/internal/service"
	"github.com/mcqhub/mcqhub-backend/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

// ─── in-memory stores ──────────────────────────────────────────────────

type memUserStore struct {
	nextID int
	users  map[string]*model.User
}

func (s *memUserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memUserStore) Create(_ context.Context, u *model.User) error {
	if _, ok := s.users[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	stored := *u
	s.users[u.Email] = &stored
	return nil
}

type memTestStore struct {
	nextID int64
	tests  map[int64]*model.Test
}

func (s *memTestStore) Create(_ context.Context, t *model.Test) error {
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = time.Now()
	stored := *t
	s.tests[t.ID] = &stored
	return nil
}

func (s *memTestStore) GetByID(_ context.Context, id int64) (*model.Test, error) {
	if t, ok := s.tests[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memTestStore) ListPaginated(_ context.Context, limit, offset int) ([]model.Test, int, error) {
	all := make([]model.Test, 0, len(s.tests))
	for _, t := range s.tests {
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []model.Test{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

type memSubmissionStore struct {
	nextID int64
	byKey  map[string]*model.Submission
}

func (s *memSubmissionStore) key(testID int64, studentID int) string {
	return fmt.Sprintf("%d:%d", testID, studentID)
}

func (s *memSubmissionStore) Create(_ context.Context, sub *model.Submission) error {
	k := s.key(sub.TestID, sub.StudentID)
	if _, ok := s.byKey[k]; ok {
		return repository.ErrDuplicateSubmission
	}
	s.nextID++
	sub.ID = s.nextID
	sub.CreatedAt = time.Now()
	stored := *sub
	s.byKey[k] = &stored
	return nil
}

func (s *memSubmissionStore) GetByTestAndStudent(_ context.Context, testID int64, studentID int) (*model.Submission, error) {
	if sub, ok := s.byKey[s.key(testID, studentID)]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memSubmissionStore) ListByTest(_ context.Context, testID int64) ([]model.Submission, error) {
	out := []model.Submission{}
	for _, sub := range s.byKey {
		if sub.TestID == testID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memStatsStore struct{}

func (memStatsStore) GetByTest(_ context.Context, _ int64) (*repository.TestStats, error) {
	return nil, pgx.ErrNoRows
}

// ─── harness ───────────────────────────────────────────────────────────

type harness struct {
	engine *gin.Engine
	auth   *service.AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		GinMode:    gin.TestMode,
		JWTSecret:  "router-test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}

	users := &memUserStore{users: make(map[string]*model.User)}
	tests := &memTestStore{tests: make(map[int64]*model.Test)}
	subs := &memSubmissionStore{byKey: make(map[string]*model.Submission)}

	log := zerolog.Nop()
	authService := service.NewAuthService(cfg, users)
	catalogService := service.NewCatalogService(tests, nil, log)
	ledgerService := service.NewLedgerService(tests, subs, memStatsStore{}, nil, log)

	handlers := &Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Test:       handler.NewTestHandler(catalogService, ledgerService),
		Submission: handler.NewSubmissionHandler(ledgerService),
		Monitor:    handler.NewMonitorHandler(nil, catalogService, log, nil),
	}

	return &harness{
		engine: SetupRouter(authService, handlers, cfg),
		auth:   authService,
	}
}

func (h *harness) token(t *testing.T, name string, role model.Role) string {
	t.Helper()
	user, err := h.auth.Register(context.Background(), &model.RegisterRequest{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "secret123",
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	token, err := h.auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("token %s: %v", name, err)
	}
	return token
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  map[string]json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
	Pagination *struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		TotalItems int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) *envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return &env
}

func validTestBody() map[string]interface{} {
	return map[string]interface{}{
		"test_name": "Capitals",
		"max_marks": 10,
		"questions": []map[string]interface{}{
			{
				"question_text":  "Capital of France?",
				"options":        []string{"Paris", "Lyon", "Nice", "Lille"},
				"correct_answer": "Paris",
			},
			{
				"question_text":  "Capital of Japan?",
				"options":        []string{"Osaka", "Tokyo", "Kyoto", "Nara"},
				"correct_answer": "Tokyo",
			},
		},
	}
}

// ─── tests ─────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decode(t, rec)
	if env.Metadata.RequestID == "" {
		t.Fatalf("expected a request id in metadata")
	}
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/teacher/tests", "", validTestBody())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decode(t, rec); env.Error == nil || env.Error.Code != "TOKEN_REQUIRED" {
		t.Fatalf("expected TOKEN_REQUIRED, got %s", rec.Body.String())
	}
}

func TestRoleGates(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)
	student := h.token(t, "Student1", model.RoleStudent)

	rec := h.do(t, http.MethodPost, "/api/v1/teacher/tests", student, validTestBody())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student on teacher route, got %d", rec.Code)
	}
	if env := decode(t, rec); env.Error == nil || env.Error.Code != "TEACHER_ACCESS_ONLY" {
		t.Fatalf("expected TEACHER_ACCESS_ONLY, got %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/api/v1/student/submissions", teacher,
		map[string]interface{}{"test_id": 1, "answers": map[string]string{"0": "Paris"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for teacher on student route, got %d", rec.Code)
	}
	if env := decode(t, rec); env.Error == nil || env.Error.Code != "STUDENT_ACCESS_ONLY" {
		t.Fatalf("expected STUDENT_ACCESS_ONLY, got %s", rec.Body.String())
	}
}

func TestCreateTest(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)

	rec := h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher, validTestBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decode(t, rec)
	var created model.Test
	if err := json.Unmarshal(env.Data["test"], &created); err != nil {
		t.Fatalf("decode created test: %v", err)
	}
	if created.ID == 0 || created.TestName != "Capitals" {
		t.Fatalf("unexpected created test: %+v", created)
	}
}

func TestCreateTest_BadAnswerKey(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)

	body := validTestBody()
	body["questions"].([]map[string]interface{})[1]["correct_answer"] = "London"

	rec := h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", rec.Body.String())
	}
	if _, ok := env.Error.Fields["questions[1].correct_answer"]; !ok {
		t.Fatalf("expected a field violation for questions[1].correct_answer, got %v", env.Error.Fields)
	}
}

func TestCreateTest_MalformedBody(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)

	rec := h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher,
		map[string]interface{}{"test_name": "No questions", "max_marks": 10})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListTests_PaginationEnvelope(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)
	student := h.token(t, "Student1", model.RoleStudent)

	for i := 0; i < 12; i++ {
		body := validTestBody()
		body["test_name"] = fmt.Sprintf("Test %d", i)
		if rec := h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed test %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := h.do(t, http.MethodGet, "/api/v1/tests?page=2&limit=5", student, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decode(t, rec)
	if env.Pagination == nil {
		t.Fatalf("expected a pagination block: %s", rec.Body.String())
	}
	if env.Pagination.Page != 2 || env.Pagination.Limit != 5 ||
		env.Pagination.TotalItems != 12 || env.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", env.Pagination)
	}

	// Listings never carry the answer key.
	if strings.Contains(string(env.Data["tests"]), "correct_answer") {
		t.Fatalf("answer key leaked in listing: %s", env.Data["tests"])
	}
}

func TestGetTestPayload_StripsAnswers(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)
	student := h.token(t, "Student1", model.RoleStudent)

	created := decode(t, h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher, validTestBody()))
	var test model.Test
	if err := json.Unmarshal(created.Data["test"], &test); err != nil {
		t.Fatalf("decode created test: %v", err)
	}

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/student/tests/%d", test.ID), student, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "correct_answer") {
		t.Fatalf("answer key leaked in payload: %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, "/api/v1/student/tests/999", student, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown test, got %d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, "/api/v1/student/tests/abc", student, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestSubmitExamFlow(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)
	student := h.token(t, "Student1", model.RoleStudent)

	created := decode(t, h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher, validTestBody()))
	var test model.Test
	if err := json.Unmarshal(created.Data["test"], &test); err != nil {
		t.Fatalf("decode created test: %v", err)
	}

	// One of two correct; a claimed score of 10 must be ignored.
	body := map[string]interface{}{
		"test_id": test.ID,
		"answers": map[string]string{"0": "Paris", "1": "Osaka"},
		"score":   10,
	}
	rec := h.do(t, http.MethodPost, "/api/v1/student/submissions", student, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	var sub model.Submission
	if err := json.Unmarshal(env.Data["submission"], &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.Score != 5 {
		t.Fatalf("expected server-computed score 5, got %d", sub.Score)
	}

	// Second attempt conflicts.
	rec = h.do(t, http.MethodPost, "/api/v1/student/submissions", student, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decode(t, rec); env.Error == nil || env.Error.Code != "ALREADY_SUBMITTED" {
		t.Fatalf("expected ALREADY_SUBMITTED, got %s", rec.Body.String())
	}

	// Unknown test 404s.
	rec = h.do(t, http.MethodPost, "/api/v1/student/submissions", student,
		map[string]interface{}{"test_id": 999, "answers": map[string]string{"0": "Paris"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	// The author sees the submission; another teacher does not.
	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/teacher/tests/%d/submissions", test.ID), teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var subs []model.Submission
	if err := json.Unmarshal(decode(t, rec).Data["submissions"], &subs); err != nil {
		t.Fatalf("decode submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].Score != 5 {
		t.Fatalf("unexpected submissions: %+v", subs)
	}

	other := h.token(t, "Teacher2", model.RoleTeacher)
	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/teacher/tests/%d/submissions", test.ID), other, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decode(t, rec); env.Error == nil || env.Error.Code != "NOT_TEST_AUTHOR" {
		t.Fatalf("expected NOT_TEST_AUTHOR, got %s", rec.Body.String())
	}
}

func TestStatsEndpoint_EmptyRollup(t *testing.T) {
	h := newHarness(t)
	teacher := h.token(t, "Teacher1", model.RoleTeacher)

	created := decode(t, h.do(t, http.MethodPost, "/api/v1/teacher/tests", teacher, validTestBody()))
	var test model.Test
	if err := json.Unmarshal(created.Data["test"], &test); err != nil {
		t.Fatalf("decode created test: %v", err)
	}

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/teacher/tests/%d/stats", test.ID), teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var stats repository.TestStats
	if err := json.Unmarshal(decode(t, rec).Data["stats"], &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TestID != test.ID || stats.SubmissionCount != 0 || stats.AverageScore != nil {
		t.Fatalf("expected empty rollup, got %+v", stats)
	}
}

func TestLoginFlowOverHTTP(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"name": "Ada", "email": "ada@example.com", "password": "secret123", "role": "Teacher",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email": "ada@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	var token string
	if err := json.Unmarshal(env.Data["token"], &token); err != nil || token == "" {
		t.Fatalf("expected a token, got %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Fatalf("expected account in response: %s", rec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email": "ada@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}
