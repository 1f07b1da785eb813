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

type mockDoubtRepo struct {
	items map[string]*models.Doubt
}

func newMockDoubtRepo() *mockDoubtRepo {
	return &mockDoubtRepo{items: make(map[string]*models.Doubt)}
}

func (m *mockDoubtRepo) Create(_ context.Context, d *models.Doubt) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	clone := *d
	m.items[d.ID] = &clone
	return nil
}

func (m *mockDoubtRepo) FindByID(_ context.Context, id string) (*models.Doubt, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *d
	return &clone, nil
}

func (m *mockDoubtRepo) ListByStudent(_ context.Context, studentID string) ([]models.Doubt, error) {
	var out []models.Doubt
	for _, d := range m.items {
		if d.StudentID == studentID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDoubtRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.Doubt, error) {
	var out []models.Doubt
	for _, d := range m.items {
		if d.TeacherID == teacherID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDoubtRepo) Answer(_ context.Context, id, answer string, answeredAt time.Time) error {
	d, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Answer = &answer
	d.AnsweredAt = &answeredAt
	return nil
}

type countingDoubtNotifier struct {
	created  int
	answered int
}

func (n *countingDoubtNotifier) NotifyDoubtCreated(context.Context, *models.Doubt) error {
	n.created++
	return nil
}

func (n *countingDoubtNotifier) NotifyDoubtAnswered(context.Context, *models.Doubt) error {
	n.answered++
	return nil
}

func newDoubtServiceForTest(repo *mockDoubtRepo, assignments *mockAssignmentRepo, resources *mockResourceRepo, users *mockUserReader, notifier doubtNotifier) *DoubtService {
	return NewDoubtService(repo, assignments, resources, users, NewAccessEvaluator(MatchAll), notifier, validator.New(), zap.NewNop())
}

func TestDoubtServiceCreateAgainstAssignment(t *testing.T) {
	assignments := newMockAssignmentRepo()
	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		TargetExam:  "JEE",
		TeacherID:   "teacher-1",
		IsPublished: true,
	}
	require.NoError(t, assignments.Create(context.Background(), assignment))

	student := taggedStudent("student-1", "11", "Physics", "JEE")
	notifier := &countingDoubtNotifier{}
	svc := newDoubtServiceForTest(newMockDoubtRepo(), assignments, newMockResourceRepo(), newMockUserReader(student), notifier)

	d, err := svc.Create(context.Background(), studentClaims("student-1"), dto.CreateDoubtRequest{
		ContextType: "ASSIGNMENT",
		ContextID:   assignment.ID,
		Question:    "How do I resolve the vectors in question 3?",
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", d.TeacherID)
	assert.Equal(t, "Physics", d.Subject)
	assert.Equal(t, "Kinematics Problem Set", d.ContextTitle)
	assert.Equal(t, "Arjun Mehta", d.StudentName)
	assert.Equal(t, 1, notifier.created)
}

func TestDoubtServiceCreateAgainstResource(t *testing.T) {
	resources := newMockResourceRepo()
	resource := &models.Resource{
		ID:           uuid.NewString(),
		Title:        "Mechanics Notes",
		Type:         models.ResourceTypeNotes,
		Subject:      "Physics",
		TargetClass:  11,
		Exam:         "JEE",
		UploadedByID: "teacher-1",
		IsPublished:  true,
	}
	require.NoError(t, resources.Create(context.Background(), resource))

	student := taggedStudent("student-1", "11", "Physics", "JEE")
	svc := newDoubtServiceForTest(newMockDoubtRepo(), newMockAssignmentRepo(), resources, newMockUserReader(student), nil)

	d, err := svc.Create(context.Background(), studentClaims("student-1"), dto.CreateDoubtRequest{
		ContextType: "RESOURCE",
		ContextID:   resource.ID,
		Question:    "Is the derivation on page 4 examinable?",
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", d.TeacherID)
	assert.Equal(t, "Mechanics Notes", d.ContextTitle)
}

func TestDoubtServiceCreateRejectsInvisibleContext(t *testing.T) {
	assignments := newMockAssignmentRepo()
	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		Title:       "Other Cohort Set",
		Subject:     "Physics",
		TargetClass: "12",
		TeacherID:   "teacher-1",
		IsPublished: true,
	}
	require.NoError(t, assignments.Create(context.Background(), assignment))

	student := taggedStudent("student-1", "11", "Physics")
	svc := newDoubtServiceForTest(newMockDoubtRepo(), assignments, newMockResourceRepo(), newMockUserReader(student), nil)

	_, err := svc.Create(context.Background(), studentClaims("student-1"), dto.CreateDoubtRequest{
		ContextType: "ASSIGNMENT",
		ContextID:   assignment.ID,
		Question:    "May I see this?",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDoubtServiceCreateRejectsUnknownContextType(t *testing.T) {
	student := taggedStudent("student-1", "11")
	svc := newDoubtServiceForTest(newMockDoubtRepo(), newMockAssignmentRepo(), newMockResourceRepo(), newMockUserReader(student), nil)

	_, err := svc.Create(context.Background(), studentClaims("student-1"), dto.CreateDoubtRequest{
		ContextType: "LECTURE",
		ContextID:   uuid.NewString(),
		Question:    "What is this about?",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDoubtServiceAnswerOwnership(t *testing.T) {
	repo := newMockDoubtRepo()
	assignments := newMockAssignmentRepo()
	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		TeacherID:   "teacher-1",
		IsPublished: true,
	}
	require.NoError(t, assignments.Create(context.Background(), assignment))

	student := taggedStudent("student-1", "11", "Physics")
	notifier := &countingDoubtNotifier{}
	svc := newDoubtServiceForTest(repo, assignments, newMockResourceRepo(), newMockUserReader(student), notifier)

	d, err := svc.Create(context.Background(), studentClaims("student-1"), dto.CreateDoubtRequest{
		ContextType: "ASSIGNMENT",
		ContextID:   assignment.ID,
		Question:    "How do I resolve the vectors?",
	})
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher}
	_, err = svc.Answer(context.Background(), other, d.ID, dto.AnswerDoubtRequest{Answer: "Not my doubt"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	answered, err := svc.Answer(context.Background(), teacherClaims(), d.ID, dto.AnswerDoubtRequest{Answer: "Split into components first."})
	require.NoError(t, err)
	require.NotNil(t, answered.Answer)
	assert.Equal(t, "Split into components first.", *answered.Answer)
	assert.NotNil(t, answered.AnsweredAt)
	assert.True(t, answered.Answered())
	assert.Equal(t, 1, notifier.answered)
}

func TestDoubtServiceAnswerUnknownDoubt(t *testing.T) {
	svc := newDoubtServiceForTest(newMockDoubtRepo(), newMockAssignmentRepo(), newMockResourceRepo(), newMockUserReader(), nil)

	_, err := svc.Answer(context.Background(), teacherClaims(), uuid.NewString(), dto.AnswerDoubtRequest{Answer: "Hello?"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDoubtServiceLists(t *testing.T) {
	repo := newMockDoubtRepo()
	assignments := newMockAssignmentRepo()
	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		Title:       "Kinematics Problem Set",
		Subject:     "Physics",
		TargetClass: "11",
		TeacherID:   "teacher-1",
		IsPublished: true,
	}
	require.NoError(t, assignments.Create(context.Background(), assignment))

	student := taggedStudent("student-1", "11", "Physics")
	svc := newDoubtServiceForTest(repo, assignments, newMockResourceRepo(), newMockUserReader(student), nil)

	_, err := svc.Create(context.Background(), studentClaims("student-1"), dto.CreateDoubtRequest{
		ContextType: "ASSIGNMENT",
		ContextID:   assignment.ID,
		Question:    "Question one",
	})
	require.NoError(t, err)

	mine, err := svc.ListForStudent(context.Background(), studentClaims("student-1"))
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	assigned, err := svc.ListForTeacher(context.Background(), teacherClaims())
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	empty, err := svc.ListForTeacher(context.Background(), &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
