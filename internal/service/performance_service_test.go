package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type mockPerformanceRepo struct {
	results   map[string][]models.GradedResult
	standings map[string][]models.GradedStanding
}

func newMockPerformanceRepo() *mockPerformanceRepo {
	return &mockPerformanceRepo{
		results:   make(map[string][]models.GradedResult),
		standings: make(map[string][]models.GradedStanding),
	}
}

func (m *mockPerformanceRepo) ListGradedResults(_ context.Context, studentID string) ([]models.GradedResult, error) {
	return m.results[studentID], nil
}

func (m *mockPerformanceRepo) ListGradedStandings(_ context.Context, assignmentID string) ([]models.GradedStanding, error) {
	return m.standings[assignmentID], nil
}

func newPerformanceServiceForTest(subs *mockPerformanceRepo, assignments *mockAssignmentRepo, users *mockUserReader) *PerformanceService {
	return NewPerformanceService(subs, assignments, users, zap.NewNop())
}

func TestGradePercentage(t *testing.T) {
	assert.Equal(t, 84.0, GradePercentage("42/50"))
	assert.Equal(t, 100.0, GradePercentage("50/50"))
	assert.Equal(t, 75.0, GradePercentage(" 15 / 20 "))
	assert.Equal(t, 0.0, GradePercentage("A+"))
	assert.Equal(t, 0.0, GradePercentage(""))
	assert.Equal(t, 0.0, GradePercentage("42/0"))
	assert.Equal(t, 0.0, GradePercentage("42/-5"))
	assert.Equal(t, 0.0, GradePercentage("x/50"))
}

func TestPerformanceSummaryAggregates(t *testing.T) {
	subs := newMockPerformanceRepo()
	now := time.Now().UTC()
	subs.results["student-1"] = []models.GradedResult{
		{AssignmentID: "a1", AssignmentTitle: "Set 1", Subject: "Physics", Grade: "40/50", SubmittedAt: now},
		{AssignmentID: "a2", AssignmentTitle: "Set 2", Subject: "Physics", Grade: "30/50", SubmittedAt: now},
		{AssignmentID: "a3", AssignmentTitle: "Set 3", Subject: "Maths", Grade: "45/50", SubmittedAt: now},
		{AssignmentID: "a4", AssignmentTitle: "Set 4", Subject: "Maths", Grade: "bad", SubmittedAt: now},
	}
	users := newMockUserReader(taggedStudent("student-1", "11"))
	svc := newPerformanceServiceForTest(subs, newMockAssignmentRepo(), users)

	summary, err := svc.Summary(context.Background(), studentClaims("student-1"), "")
	require.NoError(t, err)
	assert.Equal(t, "student-1", summary.StudentID)
	assert.Equal(t, 4, summary.Graded)
	// (80 + 60 + 90 + 0) / 4
	assert.Equal(t, 57.5, summary.OverallAverage)
	require.Len(t, summary.Subjects, 2)
	assert.Equal(t, models.SubjectPerformance{Subject: "Physics", Average: 70, Graded: 2}, summary.Subjects[0])
	assert.Equal(t, models.SubjectPerformance{Subject: "Maths", Average: 45, Graded: 2}, summary.Subjects[1])
}

func TestPerformanceSummaryEmpty(t *testing.T) {
	users := newMockUserReader(taggedStudent("student-1", "11"))
	svc := newPerformanceServiceForTest(newMockPerformanceRepo(), newMockAssignmentRepo(), users)

	summary, err := svc.Summary(context.Background(), studentClaims("student-1"), "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Graded)
	assert.Equal(t, 0.0, summary.OverallAverage)
	assert.Empty(t, summary.Subjects)
}

func TestPerformanceSummaryStudentSelfOnly(t *testing.T) {
	users := newMockUserReader(taggedStudent("student-1", "11"), taggedStudent("student-2", "11"))
	svc := newPerformanceServiceForTest(newMockPerformanceRepo(), newMockAssignmentRepo(), users)

	_, err := svc.Summary(context.Background(), studentClaims("student-1"), "student-2")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	teacher := teacherClaims()
	_, err = svc.Summary(context.Background(), teacher, "student-2")
	require.NoError(t, err)
}

func TestPerformanceSummaryTargetMustBeStudent(t *testing.T) {
	users := newMockUserReader(&models.User{ID: "teacher-1", Role: models.RoleTeacher, FullName: "Priya Nair"})
	svc := newPerformanceServiceForTest(newMockPerformanceRepo(), newMockAssignmentRepo(), users)

	_, err := svc.Summary(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, "teacher-1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPerformanceResultsSelfOnly(t *testing.T) {
	subs := newMockPerformanceRepo()
	subs.results["student-1"] = []models.GradedResult{
		{AssignmentID: "a1", Subject: "Physics", Grade: "40/50"},
	}
	svc := newPerformanceServiceForTest(subs, newMockAssignmentRepo(), newMockUserReader())

	results, err := svc.Results(context.Background(), studentClaims("student-1"), "")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.Results(context.Background(), studentClaims("student-1"), "student-2")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestLeaderboardRanksAndTruncates(t *testing.T) {
	repo := newMockAssignmentRepo()
	assignment := &models.Assignment{ID: "a1", Title: "Kinematics Problem Set", TeacherID: "teacher-1", IsPublished: true}
	require.NoError(t, repo.Create(context.Background(), assignment))

	subs := newMockPerformanceRepo()
	standings := make([]models.GradedStanding, 0, 7)
	for i := 0; i < 7; i++ {
		standings = append(standings, models.GradedStanding{
			StudentID:   fmt.Sprintf("student-%d", i+1),
			StudentName: fmt.Sprintf("Student %d", i+1),
			Grade:       fmt.Sprintf("%d/50", 50-i*5),
		})
	}
	subs.standings["a1"] = standings

	svc := newPerformanceServiceForTest(subs, repo, newMockUserReader())

	// Caller placed seventh: Self survives the top-5 truncation.
	board, err := svc.Leaderboard(context.Background(), studentClaims("student-7"), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Kinematics Problem Set", board.AssignmentTitle)
	assert.Equal(t, 7, board.Graded)
	require.Len(t, board.Entries, 5)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, "student-1", board.Entries[0].StudentID)
	assert.Equal(t, 100.0, board.Entries[0].Percentage)
	assert.Equal(t, 5, board.Entries[4].Rank)
	require.NotNil(t, board.Self)
	assert.Equal(t, 7, board.Self.Rank)
	assert.Equal(t, 40.0, board.Self.Percentage)
}

func TestLeaderboardSelfAbsentWhenUngraded(t *testing.T) {
	repo := newMockAssignmentRepo()
	require.NoError(t, repo.Create(context.Background(), &models.Assignment{ID: "a1", Title: "Set", TeacherID: "teacher-1", IsPublished: true}))
	subs := newMockPerformanceRepo()
	subs.standings["a1"] = []models.GradedStanding{
		{StudentID: "student-1", StudentName: "Student 1", Grade: "40/50"},
	}
	svc := newPerformanceServiceForTest(subs, repo, newMockUserReader())

	board, err := svc.Leaderboard(context.Background(), studentClaims("student-9"), "a1")
	require.NoError(t, err)
	assert.Nil(t, board.Self)
	assert.Len(t, board.Entries, 1)
}

func TestLeaderboardHidesUnpublishedFromStudents(t *testing.T) {
	repo := newMockAssignmentRepo()
	require.NoError(t, repo.Create(context.Background(), &models.Assignment{ID: "a1", Title: "Draft", TeacherID: "teacher-1"}))
	svc := newPerformanceServiceForTest(newMockPerformanceRepo(), repo, newMockUserReader())

	_, err := svc.Leaderboard(context.Background(), studentClaims("student-1"), "a1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	// The owning teacher still sees the draft's board.
	board, err := svc.Leaderboard(context.Background(), teacherClaims(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, board.Graded)
}

func TestLeaderboardUnknownAssignment(t *testing.T) {
	svc := newPerformanceServiceForTest(newMockPerformanceRepo(), newMockAssignmentRepo(), newMockUserReader())

	_, err := svc.Leaderboard(context.Background(), teacherClaims(), "missing")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
