package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type doubtRepository interface {
	Create(ctx context.Context, d *models.Doubt) error
	FindByID(ctx context.Context, id string) (*models.Doubt, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Doubt, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Doubt, error)
	Answer(ctx context.Context, id, answer string, answeredAt time.Time) error
}

type doubtAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type doubtResourceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Resource, error)
}

type doubtNotifier interface {
	NotifyDoubtCreated(ctx context.Context, d *models.Doubt) error
	NotifyDoubtAnswered(ctx context.Context, d *models.Doubt) error
}

// DoubtService implements the question thread workflow. A doubt always
// references an assignment or resource; the owning teacher, subject and
// display title are resolved from that context at creation time.
type DoubtService struct {
	repo        doubtRepository
	assignments doubtAssignmentRepository
	resources   doubtResourceRepository
	users       resourceUserRepository
	evaluator   *AccessEvaluator
	notifier    doubtNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDoubtService constructs a DoubtService instance.
func NewDoubtService(repo doubtRepository, assignments doubtAssignmentRepository, resources doubtResourceRepository, users resourceUserRepository, evaluator *AccessEvaluator, notifier doubtNotifier, validate *validator.Validate, logger *zap.Logger) *DoubtService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if evaluator == nil {
		evaluator = NewAccessEvaluator(MatchAll)
	}
	svc := &DoubtService{
		repo:        repo,
		assignments: assignments,
		resources:   resources,
		users:       users,
		evaluator:   evaluator,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
	svc.validator.RegisterValidation("doubt_context", func(fl validator.FieldLevel) bool {
		return models.DoubtContextType(fl.Field().String()).Valid()
	})
	return svc
}

// Create files a student's question against the referenced content. The
// student must be able to see the content they are asking about.
func (s *DoubtService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateDoubtRequest) (*models.Doubt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doubt payload")
	}

	student, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	d := &models.Doubt{
		StudentID:   claims.UserID,
		ContextType: models.DoubtContextType(req.ContextType),
		ContextID:   req.ContextID,
		Question:    req.Question,
	}

	switch d.ContextType {
	case models.DoubtContextAssignment:
		a, err := s.assignments.FindByID(ctx, req.ContextID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
		}
		if !s.evaluator.CanView(student, a) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		d.TeacherID = a.TeacherID
		d.Subject = a.Subject
		d.ContextTitle = a.Title
	case models.DoubtContextResource:
		r, err := s.resources.FindByID(ctx, req.ContextID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
		}
		if !s.evaluator.CanView(student, r) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		d.TeacherID = r.UploadedByID
		d.Subject = r.Subject
		d.ContextTitle = r.Title
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown doubt context type")
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doubt")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyDoubtCreated(ctx, d); err != nil {
			s.logger.Warn("doubt fan-out failed", zap.String("doubt_id", d.ID), zap.Error(err))
		}
	}

	d.StudentName = claims.FullName
	return d, nil
}

// ListForStudent returns the caller's own doubts.
func (s *DoubtService) ListForStudent(ctx context.Context, claims *models.JWTClaims) ([]models.Doubt, error) {
	doubts, err := s.repo.ListByStudent(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doubts")
	}
	return doubts, nil
}

// ListForTeacher returns doubts addressed to the calling teacher.
func (s *DoubtService) ListForTeacher(ctx context.Context, claims *models.JWTClaims) ([]models.Doubt, error) {
	doubts, err := s.repo.ListByTeacher(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doubts")
	}
	return doubts, nil
}

// Answer records the teacher's reply and alerts the asking student. Only
// the addressed teacher or an admin may answer.
func (s *DoubtService) Answer(ctx context.Context, claims *models.JWTClaims, id string, req dto.AnswerDoubtRequest) (*models.Doubt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid answer payload")
	}

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doubt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doubt")
	}

	if !isOwnerOrAdmin(claims, d.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the addressed teacher or an admin may answer")
	}

	answeredAt := time.Now().UTC()
	if err := s.repo.Answer(ctx, id, req.Answer, answeredAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to answer doubt")
	}

	d.Answer = &req.Answer
	d.AnsweredAt = &answeredAt

	if s.notifier != nil {
		if err := s.notifier.NotifyDoubtAnswered(ctx, d); err != nil {
			s.logger.Warn("doubt answer notification failed", zap.String("doubt_id", d.ID), zap.Error(err))
		}
	}
	return d, nil
}
