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

type assignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error)
	ListPublished(ctx context.Context) ([]models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type submissionRepository interface {
	Upsert(ctx context.Context, s *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	ListViewsByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionView, error)
	Grade(ctx context.Context, id, grade, feedback string) error
	Delete(ctx context.Context, id string) error
}

type assignmentNotifier interface {
	NotifyAssignmentPublished(ctx context.Context, a *models.Assignment) error
	NotifySubmissionReceived(ctx context.Context, a *models.Assignment, studentName string) error
}

// AssignmentService implements the assignment and submission workflow.
type AssignmentService struct {
	repo        assignmentRepository
	submissions submissionRepository
	users       resourceUserRepository
	evaluator   *AccessEvaluator
	notifier    assignmentNotifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo assignmentRepository, submissions submissionRepository, users resourceUserRepository, evaluator *AccessEvaluator, notifier assignmentNotifier, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if evaluator == nil {
		evaluator = NewAccessEvaluator(MatchAll)
	}
	return &AssignmentService{
		repo:        repo,
		submissions: submissions,
		users:       users,
		evaluator:   evaluator,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create stores an assignment owned by the calling teacher. Publishing at
// creation fires the audience fan-out.
func (s *AssignmentService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be YYYY-MM-DD")
	}

	a := &models.Assignment{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		TargetClass: req.TargetClass,
		TargetExam:  req.TargetExam,
		Difficulty:  req.Difficulty,
		DueDate:     dueDate,
		FileURL:     req.FileURL,
		TeacherID:   claims.UserID,
		IsPublished: req.IsPublished,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	if a.IsPublished {
		s.fanOut(ctx, a)
	}

	a.TeacherName = claims.FullName
	return a, nil
}

// ListForTeacher returns the teacher's own assignments.
func (s *AssignmentService) ListForTeacher(ctx context.Context, claims *models.JWTClaims) ([]models.Assignment, error) {
	teacherID := claims.UserID
	assignments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// ListForStudent returns published assignments passing the tag policy,
// decorated with the student's submission state. Pending and Missing are
// derived here, never stored.
func (s *AssignmentService) ListForStudent(ctx context.Context, claims *models.JWTClaims) ([]models.StudentAssignmentView, error) {
	student, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.ListPublished(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	submissions, err := s.submissions.ListByStudent(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	byAssignment := make(map[string]*models.Submission, len(submissions))
	for i := range submissions {
		byAssignment[submissions[i].AssignmentID] = &submissions[i]
	}

	now := s.now()
	views := make([]models.StudentAssignmentView, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		if !s.evaluator.CanView(student, a) {
			continue
		}
		views = append(views, buildStudentView(a, byAssignment[a.ID], now))
	}
	return views, nil
}

// Get returns one assignment, enforcing visibility for students.
func (s *AssignmentService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Assignment, error) {
	a, err := s.findAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleStudent {
		student, err := s.loadUser(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		if !s.evaluator.CanView(student, a) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
	}
	return a, nil
}

// Update edits an assignment. Only the author or an admin may mutate it; a
// false-to-true publish transition fires the fan-out exactly once.
func (s *AssignmentService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	a, err := s.findAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isOwnerOrAdmin(claims, a.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin may edit this assignment")
	}

	wasPublished := a.IsPublished
	if err := applyAssignmentUpdate(a, req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be YYYY-MM-DD")
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	if !wasPublished && a.IsPublished {
		s.fanOut(ctx, a)
	}
	return a, nil
}

// Delete removes an assignment. Only the author or an admin may delete it.
func (s *AssignmentService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	a, err := s.findAssignment(ctx, id)
	if err != nil {
		return err
	}
	if !isOwnerOrAdmin(claims, a.TeacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin may delete this assignment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// Submit stores the student's answer. Resubmission overwrites the earlier
// row and resets any grade. Submissions after the due date are marked Late.
func (s *AssignmentService) Submit(ctx context.Context, claims *models.JWTClaims, assignmentID string, req dto.SubmitAssignmentRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	a, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	student, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !s.evaluator.CanView(student, a) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	if existing, err := s.submissions.FindByAssignmentAndStudent(ctx, assignmentID, claims.UserID); err == nil && existing.IsGraded() {
		return nil, appErrors.Clone(appErrors.ErrGradedConflict, "Cannot resubmit: Assignment has already been graded")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	now := s.now()
	sub := &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    claims.UserID,
		FileURL:      req.FileURL,
		Status:       submissionStatusAt(a.DueDate, now),
		SubmittedAt:  now,
	}

	if err := s.submissions.Upsert(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifySubmissionReceived(ctx, a, claims.FullName); err != nil {
			s.logger.Warn("submission notification failed", zap.String("assignment_id", a.ID), zap.Error(err))
		}
	}
	return sub, nil
}

// Revoke withdraws the student's submission. Graded submissions are
// terminal and cannot be revoked.
func (s *AssignmentService) Revoke(ctx context.Context, claims *models.JWTClaims, assignmentID string) error {
	sub, err := s.submissions.FindByAssignmentAndStudent(ctx, assignmentID, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no submission to revoke")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	if sub.IsGraded() {
		return appErrors.Clone(appErrors.ErrGradedConflict, "Cannot revoke submission: Assignment has already been graded")
	}

	if err := s.submissions.Delete(ctx, sub.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke submission")
	}
	return nil
}

// ListSubmissions returns the submissions for an assignment the caller owns.
func (s *AssignmentService) ListSubmissions(ctx context.Context, claims *models.JWTClaims, assignmentID string) ([]models.SubmissionView, error) {
	a, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !isOwnerOrAdmin(claims, a.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin may review submissions")
	}

	views, err := s.submissions.ListViewsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return views, nil
}

// GradeSubmission records a grade and feedback and moves the submission to
// its terminal state.
func (s *AssignmentService) GradeSubmission(ctx context.Context, claims *models.JWTClaims, submissionID string, req dto.GradeSubmissionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	sub, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	a, err := s.findAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return err
	}
	if !isOwnerOrAdmin(claims, a.TeacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin may grade submissions")
	}

	if err := s.submissions.Grade(ctx, submissionID, req.Grade, req.Feedback); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	return nil
}

func (s *AssignmentService) findAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return a, nil
}

func (s *AssignmentService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *AssignmentService) fanOut(ctx context.Context, a *models.Assignment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAssignmentPublished(ctx, a); err != nil {
		s.logger.Warn("assignment publish fan-out failed", zap.String("assignment_id", a.ID), zap.Error(err))
	}
}

// submissionStatusAt returns Late when the submission day is strictly after
// the due day, Submitted otherwise. Comparison is by calendar date, not
// instant, so a same-day submission is never Late.
func submissionStatusAt(due *time.Time, now time.Time) string {
	if due == nil {
		return models.SubmissionStatusSubmitted
	}
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if nowDay.After(dueDay) {
		return models.SubmissionStatusLate
	}
	return models.SubmissionStatusSubmitted
}

func buildStudentView(a *models.Assignment, sub *models.Submission, now time.Time) models.StudentAssignmentView {
	view := models.StudentAssignmentView{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Subject:         a.Subject,
		Teacher:         a.TeacherName,
		Difficulty:      a.Difficulty,
		QuestionFileURL: a.FileURL,
	}
	if a.DueDate != nil {
		view.DueDate = a.DueDate.Format("2006-01-02")
	}

	switch {
	case sub != nil:
		view.Status = sub.Status
		view.SubmissionFileURL = &sub.FileURL
		view.Score = sub.Grade
	case a.DueDate != nil && now.After(endOfDay(*a.DueDate)):
		view.Status = models.SubmissionStatusMissing
	default:
		view.Status = models.SubmissionStatusPending
	}
	return view
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func applyAssignmentUpdate(a *models.Assignment, req dto.UpdateAssignmentRequest) error {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Subject != nil {
		a.Subject = *req.Subject
	}
	if req.TargetClass != nil {
		a.TargetClass = *req.TargetClass
	}
	if req.TargetExam != nil {
		a.TargetExam = *req.TargetExam
	}
	if req.Difficulty != nil {
		a.Difficulty = *req.Difficulty
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return err
		}
		a.DueDate = due
	}
	if req.FileURL != nil {
		a.FileURL = *req.FileURL
	}
	if req.IsPublished != nil {
		a.IsPublished = *req.IsPublished
	}
	return nil
}
