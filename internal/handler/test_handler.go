package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mcqhub/mcqhub-backend/internal/middleware"
	"github.com/mcqhub/mcqhub-backend/internal/model"
	"github.com/mcqhub/mcqhub-backend/internal/response"
	"github.com/mcqhub/mcqhub-backend/internal/service"
	"github.com/mcqhub/mcqhub-backend/internal/validator"
)

// TestHandler handles test authoring and catalog endpoints.
type TestHandler struct {
	catalogService *service.CatalogService
	ledgerService  *service.LedgerService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(catalogService *service.CatalogService, ledgerService *service.LedgerService) *TestHandler {
	return &TestHandler{
		catalogService: catalogService,
		ledgerService:  ledgerService,
	}
}

// CreateTest godoc
// POST /api/v1/teacher/tests
// Creates a new test owned by the authenticated teacher.
func (h *TestHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.catalogService.CreateTest(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// ListTests godoc
// GET /api/v1/tests
// Lists tests newest-first with pagination. Question answer keys are
// stripped: listing is open to students about to take a test.
func (h *TestHandler) ListTests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	tests, pagination, err := h.catalogService.ListTests(c.Request.Context(), page, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	items := make([]*model.TestPayload, len(tests))
	for i := range tests {
		items[i] = tests[i].ForStudent()
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": items}, pagination)
}

// GetTestPayload godoc
// GET /api/v1/student/tests/:test_id
// Returns a single test without its answer key, for taking the exam.
func (h *TestHandler) GetTestPayload(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Param("test_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.catalogService.GetPayload(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": payload})
}
