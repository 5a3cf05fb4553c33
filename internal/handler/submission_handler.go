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

// SubmissionHandler handles exam submission and result endpoints.
type SubmissionHandler struct {
	ledgerService *service.LedgerService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(ledgerService *service.LedgerService) *SubmissionHandler {
	return &SubmissionHandler{ledgerService: ledgerService}
}

// SubmitExam godoc
// POST /api/v1/student/submissions
// Records the authenticated student's one-time submission for a test.
// The score field of the request, if present, is ignored.
func (h *SubmissionHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	submission, err := h.ledgerService.Submit(c.Request.Context(), claims.UserID, req.TestID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"submission": submission})
}

// ListSubmissions godoc
// GET /api/v1/teacher/tests/:test_id/submissions
// Lists a test's submissions for its authoring teacher.
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := strconv.ParseInt(c.Param("test_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	submissions, err := h.ledgerService.ListByTest(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		case errors.Is(err, service.ErrNotTestAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": submissions})
}

// GetTestStats godoc
// GET /api/v1/teacher/tests/:test_id/stats
// Returns the rollup stats for a test to its authoring teacher.
func (h *SubmissionHandler) GetTestStats(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := strconv.ParseInt(c.Param("test_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.ledgerService.StatsByTest(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		case errors.Is(err, service.ErrNotTestAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
