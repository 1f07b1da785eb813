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

// isOwnerOrAdmin is the single ownership predicate used across content
// mutations.
func isOwnerOrAdmin(claims *models.JWTClaims, ownerID string) bool {
	if claims == nil {
		return false
	}
	return claims.Role == models.RoleAdmin || claims.UserID == ownerID
}

type resourceRepository interface {
	Create(ctx context.Context, res *models.Resource) error
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error)
	Update(ctx context.Context, res *models.Resource) error
	Delete(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

type resourceUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type resourceNotifier interface {
	NotifyResourcePublished(ctx context.Context, r *models.Resource) error
}

// ResourceService implements study resource use cases.
type ResourceService struct {
	repo      resourceRepository
	users     resourceUserRepository
	evaluator *AccessEvaluator
	notifier  resourceNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService constructs a ResourceService instance.
func NewResourceService(repo resourceRepository, users resourceUserRepository, evaluator *AccessEvaluator, notifier resourceNotifier, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if evaluator == nil {
		evaluator = NewAccessEvaluator(MatchAll)
	}
	svc := &ResourceService{repo: repo, users: users, evaluator: evaluator, notifier: notifier, validator: validate, logger: logger}
	svc.validator.RegisterValidation("resource_type", func(fl validator.FieldLevel) bool {
		switch models.ResourceType(fl.Field().String()) {
		case models.ResourceTypePQ, models.ResourceTypeNotes, models.ResourceTypeAssignment, models.ResourceTypeImportant:
			return true
		default:
			return false
		}
	})
	return svc
}

// Create stores a resource owned by the caller. Publishing at creation time
// fires the audience fan-out.
func (s *ResourceService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}

	res := &models.Resource{
		Title:        req.Title,
		Description:  req.Description,
		Type:         models.ResourceType(req.Type),
		Subject:      req.Subject,
		TargetClass:  req.TargetClass,
		Exam:         req.Exam,
		FileURL:      req.FileURL,
		UploadedByID: claims.UserID,
		IsPublished:  req.IsPublished,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}

	if res.IsPublished {
		s.fanOut(ctx, res)
	}

	res.UploaderName = claims.FullName
	return res, nil
}

// List returns the resources visible to the caller. Students see published
// items passing the tag policy, teachers see their own uploads, admins see
// everything.
func (s *ResourceService) List(ctx context.Context, claims *models.JWTClaims, filter models.ResourceFilter) ([]models.Resource, error) {
	switch claims.Role {
	case models.RoleStudent:
		filter.OnlyPublished = true
	case models.RoleTeacher:
		filter.UploadedByID = claims.UserID
	}

	resources, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}

	if claims.Role != models.RoleStudent {
		return resources, nil
	}

	student, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Resource, 0, len(resources))
	for i := range resources {
		if s.evaluator.CanView(student, &resources[i]) {
			visible = append(visible, resources[i])
		}
	}
	return visible, nil
}

// Get returns one resource, enforcing the access policy for students. A
// student fetch counts as a view.
func (s *ResourceService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Resource, error) {
	res, err := s.findVisible(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	if claims.Role == models.RoleStudent {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			s.logger.Warn("failed to increment resource views", zap.String("resource_id", id), zap.Error(err))
		}
	}
	return res, nil
}

// Download validates visibility, bumps the counter and returns the file URL.
func (s *ResourceService) Download(ctx context.Context, claims *models.JWTClaims, id string) (string, error) {
	res, err := s.findVisible(ctx, claims, id)
	if err != nil {
		return "", err
	}
	if res.FileURL == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "resource has no file attached")
	}
	if err := s.repo.IncrementDownloads(ctx, id); err != nil {
		s.logger.Warn("failed to increment resource downloads", zap.String("resource_id", id), zap.Error(err))
	}
	return res.FileURL, nil
}

// TrackView bumps the view counter for a visible resource without
// returning it, for clients that render from an already-fetched list.
func (s *ResourceService) TrackView(ctx context.Context, claims *models.JWTClaims, id string) error {
	if _, err := s.findVisible(ctx, claims, id); err != nil {
		return err
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track view")
	}
	return nil
}

// Update edits a resource. Only the uploader or an admin may mutate it; a
// false-to-true publish transition fires the fan-out exactly once.
func (s *ResourceService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	if !isOwnerOrAdmin(claims, res.UploadedByID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin may edit this resource")
	}

	wasPublished := res.IsPublished
	applyResourceUpdate(res, req)

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource")
	}

	if !wasPublished && res.IsPublished {
		s.fanOut(ctx, res)
	}
	return res, nil
}

// Delete removes a resource. Only the uploader or an admin may delete it.
func (s *ResourceService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	if !isOwnerOrAdmin(claims, res.UploadedByID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin may delete this resource")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	return nil
}

func (s *ResourceService) findVisible(ctx context.Context, claims *models.JWTClaims, id string) (*models.Resource, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	if claims.Role == models.RoleStudent {
		student, err := s.loadUser(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		if !s.evaluator.CanView(student, res) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
	}
	return res, nil
}

func (s *ResourceService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *ResourceService) fanOut(ctx context.Context, res *models.Resource) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyResourcePublished(ctx, res); err != nil {
		s.logger.Warn("resource publish fan-out failed", zap.String("resource_id", res.ID), zap.Error(err))
	}
}

func applyResourceUpdate(res *models.Resource, req dto.UpdateResourceRequest) {
	if req.Title != nil {
		res.Title = *req.Title
	}
	if req.Description != nil {
		res.Description = *req.Description
	}
	if req.Type != nil {
		res.Type = models.ResourceType(*req.Type)
	}
	if req.Subject != nil {
		res.Subject = *req.Subject
	}
	if req.TargetClass != nil {
		res.TargetClass = *req.TargetClass
	}
	if req.Exam != nil {
		res.Exam = *req.Exam
	}
	if req.FileURL != nil {
		res.FileURL = *req.FileURL
	}
	if req.IsPublished != nil {
		res.IsPublished = *req.IsPublished
	}
}
