package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	"github.com/noah-isme/momentum-lms-api/internal/service"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
	"github.com/noah-isme/momentum-lms-api/pkg/response"
)

// LeadHandler serves the public intake forms and the admin lead pipeline.
type LeadHandler struct {
	service *service.LeadService
}

// NewLeadHandler creates a new handler.
func NewLeadHandler(svc *service.LeadService) *LeadHandler {
	return &LeadHandler{service: svc}
}

// Contact godoc
// @Summary Submit the public contact form
// @Description Open endpoint, no authentication required
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body dto.ContactLeadRequest true "Contact payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leads/contact [post]
func (h *LeadHandler) Contact(c *gin.Context) {
	var req dto.ContactLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}

	lead, err := h.service.CreateContact(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lead)
}

// Enroll godoc
// @Summary Submit the public enrollment form
// @Description Open endpoint, no authentication required
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body dto.EnrollmentLeadRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leads/enroll [post]
func (h *LeadHandler) Enroll(c *gin.Context) {
	var req dto.EnrollmentLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	lead, err := h.service.CreateEnrollment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lead)
}

// List godoc
// @Summary List leads
// @Tags Leads
// @Produce json
// @Param status query string false "Status filter"
// @Param source query string false "Source filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	var status *models.LeadStatus
	if raw := c.Query("status"); raw != "" {
		s := models.LeadStatus(raw)
		if !s.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown lead status"))
			return
		}
		status = &s
	}

	var source *models.LeadSource
	if raw := c.Query("source"); raw != "" {
		s := models.LeadSource(raw)
		source = &s
	}

	leads, err := h.service.List(c.Request.Context(), status, source)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leads, nil)
}

// UpdateStatus godoc
// @Summary Move a lead through the pipeline
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param payload body dto.UpdateLeadStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/leads/{id}/status [put]
func (h *LeadHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lead, nil)
}

// Delete godoc
// @Summary Delete a lead
// @Tags Leads
// @Param id path string true "Lead ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/leads/{id} [delete]
func (h *LeadHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
