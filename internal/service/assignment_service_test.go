package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type mockAssignmentRepo struct {
	items map[string]*models.Assignment
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{items: make(map[string]*models.Assignment)}
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	clone := *a
	m.items[a.ID] = &clone
	return nil
}

func (m *mockAssignmentRepo) FindByID(_ context.Context, id string) (*models.Assignment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (m *mockAssignmentRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range m.items {
		if a.TeacherID == teacherID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListPublished(_ context.Context) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range m.items {
		if a.IsPublished {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *models.Assignment) error {
	if _, ok := m.items[a.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *a
	m.items[a.ID] = &clone
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type mockSubmissionRepo struct {
	items map[string]*models.Submission
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{items: make(map[string]*models.Submission)}
}

func (m *mockSubmissionRepo) Upsert(_ context.Context, s *models.Submission) error {
	for _, existing := range m.items {
		if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
			s.ID = existing.ID
			clone := *s
			m.items[s.ID] = &clone
			return nil
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	clone := *s
	m.items[s.ID] = &clone
	return nil
}

func (m *mockSubmissionRepo) FindByID(_ context.Context, id string) (*models.Submission, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (m *mockSubmissionRepo) FindByAssignmentAndStudent(_ context.Context, assignmentID, studentID string) (*models.Submission, error) {
	for _, s := range m.items {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByStudent(_ context.Context, studentID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range m.items {
		if s.StudentID == studentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) ListViewsByAssignment(_ context.Context, assignmentID string) ([]models.SubmissionView, error) {
	var out []models.SubmissionView
	for _, s := range m.items {
		if s.AssignmentID == assignmentID {
			out = append(out, models.SubmissionView{
				ID:          s.ID,
				SubmittedAt: s.SubmittedAt,
				FileURL:     s.FileURL,
				Status:      s.Status,
				Grade:       s.Grade,
				Feedback:    s.Feedback,
			})
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) Grade(_ context.Context, id, grade, feedback string) error {
	s, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Grade = &grade
	s.Feedback = &feedback
	s.Status = models.SubmissionStatusGraded
	return nil
}

func (m *mockSubmissionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type mockUserReader struct {
	items map[string]*models.User
}

func newMockUserReader(users ...*models.User) *mockUserReader {
	m := &mockUserReader{items: make(map[string]*models.User)}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *mockUserReader) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

type countingAssignmentNotifier struct {
	published   int
	submissions int
}

func (n *countingAssignmentNotifier) NotifyAssignmentPublished(context.Context, *models.Assignment) error {
	n.published++
	return nil
}

func (n *countingAssignmentNotifier) NotifySubmissionReceived(context.Context, *models.Assignment, string) error {
	n.submissions++
	return nil
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher, FullName: "Priya Nair"}
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent, FullName: "Arjun Mehta"}
}

func taggedStudent(id string, tags ...string) *models.User {
	return &models.User{ID: id, Role: models.RoleStudent, FullName: "Arjun Mehta", Active: true, AccessTags: tags}
}

func newAssignmentServiceForTest(repo *mockAssignmentRepo, subs *mockSubmissionRepo, users *mockUserReader, notifier assignmentNotifier) *AssignmentService {
	return NewAssignmentService(repo, subs, users, NewAccessEvaluator(MatchAll), notifier, validator.New(), zap.NewNop())
}

func TestAssignmentServiceCreatePublishedFansOut(t *testing.T) {
	repo := newMockAssignmentRepo()
	notifier := &countingAssignmentNotifier{}
	svc := newAssignmentServiceForTest(repo, newMockSubmissionRepo(), newMockUserReader(), notifier)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		TargetExam:  "JEE",
		DueDate:     "2026-09-15",
		IsPublished: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", a.TeacherID)
	assert.Equal(t, "Priya Nair", a.TeacherName)
	require.NotNil(t, a.DueDate)
	assert.Equal(t, 1, notifier.published)
}

func TestAssignmentServiceCreateDraftDoesNotFanOut(t *testing.T) {
	notifier := &countingAssignmentNotifier{}
	svc := newAssignmentServiceForTest(newMockAssignmentRepo(), newMockSubmissionRepo(), newMockUserReader(), notifier)

	_, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Draft Set",
		Subject:     "Physics",
		TargetClass: "11",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, notifier.published)
}

func TestAssignmentServiceCreateRejectsMissingTitle(t *testing.T) {
	svc := newAssignmentServiceForTest(newMockAssignmentRepo(), newMockSubmissionRepo(), newMockUserReader(), nil)

	_, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Subject:     "Physics",
		TargetClass: "11",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAssignmentServiceUpdatePublishFiresOnce(t *testing.T) {
	repo := newMockAssignmentRepo()
	notifier := &countingAssignmentNotifier{}
	svc := newAssignmentServiceForTest(repo, newMockSubmissionRepo(), newMockUserReader(), notifier)

	claims := teacherClaims()
	a, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Organic Chemistry Worksheet",
		Subject:     "Chemistry",
		TargetClass: "12",
	})
	require.NoError(t, err)
	require.Equal(t, 0, notifier.published)

	published := true
	_, err = svc.Update(context.Background(), claims, a.ID, dto.UpdateAssignmentRequest{IsPublished: &published})
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.published)

	// Re-saving an already published assignment must not notify again.
	title := "Organic Chemistry Worksheet v2"
	_, err = svc.Update(context.Background(), claims, a.ID, dto.UpdateAssignmentRequest{Title: &title, IsPublished: &published})
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.published)
}

func TestAssignmentServiceUpdateRejectsForeignTeacher(t *testing.T) {
	repo := newMockAssignmentRepo()
	svc := newAssignmentServiceForTest(repo, newMockSubmissionRepo(), newMockUserReader(), nil)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Trigonometry Drill",
		Subject:     "Maths",
		TargetClass: "11",
	})
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}
	title := "Hijacked"
	_, err = svc.Update(context.Background(), other, a.ID, dto.UpdateAssignmentRequest{Title: &title})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = svc.Update(context.Background(), admin, a.ID, dto.UpdateAssignmentRequest{Title: &title})
	require.NoError(t, err)
}

func TestAssignmentServiceSubmitSameDayIsNotLate(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics", "JEE")
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), nil)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		TargetExam:  "JEE",
		DueDate:     "2026-09-15",
		IsPublished: true,
	})
	require.NoError(t, err)

	// Late in the evening on the due day itself.
	svc.now = func() time.Time {
		return time.Date(2026, 9, 15, 23, 30, 0, 0, time.UTC)
	}
	sub, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/answers.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)
}

func TestAssignmentServiceSubmitAfterDueDayIsLate(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics", "JEE")
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), nil)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		TargetExam:  "JEE",
		DueDate:     "2026-09-15",
		IsPublished: true,
	})
	require.NoError(t, err)

	svc.now = func() time.Time {
		return time.Date(2026, 9, 16, 0, 5, 0, 0, time.UTC)
	}
	sub, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/answers.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusLate, sub.Status)
}

func TestAssignmentServiceSubmitNoDueDateIsSubmitted(t *testing.T) {
	repo := newMockAssignmentRepo()
	student := taggedStudent("student-1", "11", "Physics")
	svc := newAssignmentServiceForTest(repo, newMockSubmissionRepo(), newMockUserReader(student), nil)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Open Practice",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)

	sub, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/answers.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)
}

func TestAssignmentServiceSubmitUnpublishedNotFound(t *testing.T) {
	repo := newMockAssignmentRepo()
	student := taggedStudent("student-1", "11", "Physics")
	svc := newAssignmentServiceForTest(repo, newMockSubmissionRepo(), newMockUserReader(student), nil)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Hidden Draft",
		Subject:     "Physics",
		TargetClass: "11",
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/answers.pdf",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAssignmentServiceSubmitTagMismatchNotFound(t *testing.T) {
	repo := newMockAssignmentRepo()
	student := taggedStudent("student-1", "12", "Biology")
	svc := newAssignmentServiceForTest(repo, newMockSubmissionRepo(), newMockUserReader(student), nil)

	a, err := svc.Create(context.Background(), teacherClaims(), dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/answers.pdf",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAssignmentServiceResubmitOverwritesAndBlocksAfterGrading(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics")
	notifier := &countingAssignmentNotifier{}
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), notifier)

	claims := teacherClaims()
	a, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)

	first, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/v1.pdf",
	})
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/v2.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, notifier.submissions)

	err = svc.GradeSubmission(context.Background(), claims, second.ID, dto.GradeSubmissionRequest{Grade: "42/50", Feedback: "Good work"})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/v3.pdf",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrGradedConflict.Code, appErr.Code)
	assert.Equal(t, "Cannot resubmit: Assignment has already been graded", appErr.Message)
}

func TestAssignmentServiceRevoke(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics")
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), nil)

	claims := teacherClaims()
	a, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)

	err = svc.Revoke(context.Background(), studentClaims("student-1"), a.ID)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	sub, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/v1.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), studentClaims("student-1"), a.ID))
	_, err = subs.FindByID(context.Background(), sub.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssignmentServiceRevokeGradedIsTerminal(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics")
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), nil)

	claims := teacherClaims()
	a, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)

	sub, err := svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/v1.pdf",
	})
	require.NoError(t, err)
	require.NoError(t, svc.GradeSubmission(context.Background(), claims, sub.ID, dto.GradeSubmissionRequest{Grade: "48/50"}))

	err = svc.Revoke(context.Background(), studentClaims("student-1"), a.ID)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrGradedConflict.Code, appErr.Code)
	assert.Equal(t, "Cannot revoke submission: Assignment has already been graded", appErr.Message)
}

func TestAssignmentServiceListForStudentDerivesStatus(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics", "Maths")
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), nil)

	claims := teacherClaims()
	open, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Open Set",
		Subject:     "Physics",
		TargetClass: "11",
		DueDate:     "2026-10-01",
		IsPublished: true,
	})
	require.NoError(t, err)
	overdue, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Overdue Set",
		Subject:     "Maths",
		TargetClass: "11",
		DueDate:     "2026-08-01",
		IsPublished: true,
	})
	require.NoError(t, err)
	submitted, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Submitted Set",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)
	// Out of the student's tags; must never appear.
	_, err = svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Other Cohort",
		Subject:     "Physics",
		TargetClass: "12",
		IsPublished: true,
	})
	require.NoError(t, err)

	svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	_, err = svc.Submit(context.Background(), studentClaims("student-1"), submitted.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/done.pdf",
	})
	require.NoError(t, err)

	views, err := svc.ListForStudent(context.Background(), studentClaims("student-1"))
	require.NoError(t, err)
	require.Len(t, views, 3)

	byID := make(map[string]models.StudentAssignmentView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.Equal(t, models.SubmissionStatusPending, byID[open.ID].Status)
	assert.Equal(t, models.SubmissionStatusMissing, byID[overdue.ID].Status)
	assert.Equal(t, models.SubmissionStatusSubmitted, byID[submitted.ID].Status)
	require.NotNil(t, byID[submitted.ID].SubmissionFileURL)
	assert.Equal(t, "https://files.example.com/done.pdf", *byID[submitted.ID].SubmissionFileURL)
}

func TestAssignmentServiceListSubmissionsOwnerOnly(t *testing.T) {
	repo := newMockAssignmentRepo()
	subs := newMockSubmissionRepo()
	student := taggedStudent("student-1", "11", "Physics")
	svc := newAssignmentServiceForTest(repo, subs, newMockUserReader(student), nil)

	claims := teacherClaims()
	a, err := svc.Create(context.Background(), claims, dto.CreateAssignmentRequest{
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		IsPublished: true,
	})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), studentClaims("student-1"), a.ID, dto.SubmitAssignmentRequest{
		FileURL: "https://files.example.com/v1.pdf",
	})
	require.NoError(t, err)

	views, err := svc.ListSubmissions(context.Background(), claims, a.ID)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	other := &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}
	_, err = svc.ListSubmissions(context.Background(), other, a.ID)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSubmissionStatusAt(t *testing.T) {
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, models.SubmissionStatusSubmitted, submissionStatusAt(nil, time.Now()))
	assert.Equal(t, models.SubmissionStatusSubmitted, submissionStatusAt(&due, time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.SubmissionStatusSubmitted, submissionStatusAt(&due, time.Date(2026, 9, 15, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, models.SubmissionStatusLate, submissionStatusAt(&due, time.Date(2026, 9, 16, 0, 0, 1, 0, time.UTC)))
}
