package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type leadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	List(ctx context.Context, status *models.LeadStatus, source *models.LeadSource) ([]models.Lead, error)
	UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error
	Delete(ctx context.Context, id string) error
}

type leadNotifier interface {
	NotifyLeadCreated(ctx context.Context, lead *models.Lead) error
}

// LeadService implements the public lead intake and the admin follow-up
// pipeline. Intake endpoints require no authentication.
type LeadService struct {
	repo      leadRepository
	notifier  leadNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeadService constructs a LeadService instance.
func NewLeadService(repo leadRepository, notifier leadNotifier, validate *validator.Validate, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &LeadService{repo: repo, notifier: notifier, validator: validate, logger: logger}
	svc.validator.RegisterValidation("lead_status", func(fl validator.FieldLevel) bool {
		return models.LeadStatus(fl.Field().String()).Valid()
	})
	return svc
}

// CreateContact files a contact-us lead. The program defaults to a general
// inquiry since the form carries none.
func (s *LeadService) CreateContact(ctx context.Context, req dto.ContactLeadRequest) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	lead := &models.Lead{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Program: "General Inquiry",
		Message: req.Message,
		Source:  models.LeadSourceContact,
		Status:  models.LeadStatusInterested,
	}
	return s.create(ctx, lead)
}

// CreateEnrollment files an enrollment lead.
func (s *LeadService) CreateEnrollment(ctx context.Context, req dto.EnrollmentLeadRequest) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	lead := &models.Lead{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		StudentClass: req.StudentClass,
		Program:      req.Program,
		Message:      req.Message,
		Source:       models.LeadSourceEnrollment,
		Status:       models.LeadStatusInterested,
	}
	return s.create(ctx, lead)
}

// List returns leads filtered by optional status and source.
func (s *LeadService) List(ctx context.Context, status *models.LeadStatus, source *models.LeadSource) ([]models.Lead, error) {
	leads, err := s.repo.List(ctx, status, source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leads")
	}
	return leads, nil
}

// UpdateStatus moves a lead along the follow-up pipeline.
func (s *LeadService) UpdateStatus(ctx context.Context, id string, req dto.UpdateLeadStatusRequest) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}

	status := models.LeadStatus(req.Status)
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lead status")
	}
	lead.Status = status
	return lead, nil
}

// Delete removes a lead.
func (s *LeadService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lead")
	}
	return nil
}

func (s *LeadService) create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lead")
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyLeadCreated(ctx, lead); err != nil {
			s.logger.Warn("lead fan-out failed", zap.String("lead_id", lead.ID), zap.Error(err))
		}
	}
	return lead, nil
}
