package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/momentum-lms-api/internal/service"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
	"github.com/noah-isme/momentum-lms-api/pkg/response"
)

// PerformanceHandler serves graded-work summaries and leaderboards.
type PerformanceHandler struct {
	service *service.PerformanceService
}

// NewPerformanceHandler creates a new handler.
func NewPerformanceHandler(svc *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{service: svc}
}

// Stats godoc
// @Summary Graded-work summary for a student
// @Description Students always get their own summary; staff may pass student_id
// @Tags Performance
// @Produce json
// @Param student_id query string false "Student ID, defaults to the caller"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /performance/stats [get]
func (h *PerformanceHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), claims, c.Query("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Results godoc
// @Summary Raw graded rows for a student
// @Tags Performance
// @Produce json
// @Param student_id query string false "Student ID, defaults to the caller"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /performance/results [get]
func (h *PerformanceHandler) Results(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	results, err := h.service.Results(c.Request.Context(), claims, c.Query("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Leaderboard godoc
// @Summary Ranked graded submissions for an assignment
// @Description Top entries plus the caller's own rank when placed
// @Tags Performance
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /performance/leaderboard/{assignmentId} [get]
func (h *PerformanceHandler) Leaderboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	board, err := h.service.Leaderboard(c.Request.Context(), claims, c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}
