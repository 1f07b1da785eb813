package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/service"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
	"github.com/noah-isme/momentum-lms-api/pkg/response"
)

// DoubtHandler wires HTTP endpoints to the doubt service.
type DoubtHandler struct {
	service *service.DoubtService
}

// NewDoubtHandler creates a new handler.
func NewDoubtHandler(svc *service.DoubtService) *DoubtHandler {
	return &DoubtHandler{service: svc}
}

// Create godoc
// @Summary Raise a doubt about an assignment or resource
// @Tags Doubts
// @Accept json
// @Produce json
// @Param payload body dto.CreateDoubtRequest true "Doubt payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /doubts [post]
func (h *DoubtHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateDoubtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid doubt payload"))
		return
	}

	d, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

// My godoc
// @Summary List the caller's own doubts
// @Tags Doubts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doubts/my [get]
func (h *DoubtHandler) My(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doubts, err := h.service.ListForStudent(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doubts, nil)
}

// Assigned godoc
// @Summary List doubts routed to the calling teacher, unanswered first
// @Tags Doubts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doubts/assigned [get]
func (h *DoubtHandler) Assigned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doubts, err := h.service.ListForTeacher(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doubts, nil)
}

// Reply godoc
// @Summary Answer a doubt
// @Tags Doubts
// @Accept json
// @Produce json
// @Param id path string true "Doubt ID"
// @Param payload body dto.AnswerDoubtRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /doubts/{id}/reply [post]
func (h *DoubtHandler) Reply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AnswerDoubtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}

	d, err := h.service.Answer(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, d, nil)
}
