package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type performanceRepository interface {
	ListGradedResults(ctx context.Context, studentID string) ([]models.GradedResult, error)
	ListGradedStandings(ctx context.Context, assignmentID string) ([]models.GradedStanding, error)
}

type performanceAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

// PerformanceService aggregates graded submissions into per-subject and
// overall percentages. Grades are stored as "obtained/max" strings; rows
// that fail to parse score zero rather than poisoning the aggregate.
type PerformanceService struct {
	submissions performanceRepository
	assignments performanceAssignmentReader
	users       resourceUserRepository
	logger      *zap.Logger
}

// NewPerformanceService constructs a PerformanceService instance.
func NewPerformanceService(submissions performanceRepository, assignments performanceAssignmentReader, users resourceUserRepository, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{submissions: submissions, assignments: assignments, users: users, logger: logger}
}

// Summary returns the performance aggregate for a student. Students may
// only see their own; teachers and admins may see anyone.
func (s *PerformanceService) Summary(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.PerformanceSummary, error) {
	if studentID == "" {
		studentID = claims.UserID
	}
	if claims.Role == models.RoleStudent && studentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own performance")
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	results, err := s.submissions.ListGradedResults(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded results")
	}

	summary := &models.PerformanceSummary{
		StudentID:   student.ID,
		StudentName: student.FullName,
		Graded:      len(results),
		Results:     results,
		Subjects:    []models.SubjectPerformance{},
	}

	type bucket struct {
		sum   float64
		count int
	}
	var overall bucket
	subjects := make(map[string]*bucket)
	order := make([]string, 0)

	for _, res := range results {
		pct := GradePercentage(res.Grade)
		overall.sum += pct
		overall.count++
		b, ok := subjects[res.Subject]
		if !ok {
			b = &bucket{}
			subjects[res.Subject] = b
			order = append(order, res.Subject)
		}
		b.sum += pct
		b.count++
	}

	if overall.count > 0 {
		summary.OverallAverage = round2(overall.sum / float64(overall.count))
	}
	for _, subject := range order {
		b := subjects[subject]
		summary.Subjects = append(summary.Subjects, models.SubjectPerformance{
			Subject: subject,
			Average: round2(b.sum / float64(b.count)),
			Graded:  b.count,
		})
	}
	return summary, nil
}

// Results returns the raw graded rows for a student, newest grading first.
// The same ownership rule as Summary applies.
func (s *PerformanceService) Results(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.GradedResult, error) {
	if studentID == "" {
		studentID = claims.UserID
	}
	if claims.Role == models.RoleStudent && studentID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own results")
	}

	results, err := s.submissions.ListGradedResults(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded results")
	}
	return results, nil
}

// Leaderboard ranks graded submissions for one assignment, best percentage
// first. The response carries the top entries plus the caller's own rank
// when they are placed anywhere in the ranking.
func (s *PerformanceService) Leaderboard(ctx context.Context, claims *models.JWTClaims, assignmentID string) (*models.Leaderboard, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if claims.Role == models.RoleStudent && !assignment.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	standings, err := s.submissions.ListGradedStandings(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load standings")
	}

	entries := make([]models.LeaderboardEntry, 0, len(standings))
	for _, st := range standings {
		entries = append(entries, models.LeaderboardEntry{
			StudentID:   st.StudentID,
			StudentName: st.StudentName,
			Percentage:  round2(GradePercentage(st.Grade)),
			Grade:       st.Grade,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percentage > entries[j].Percentage
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	board := &models.Leaderboard{
		AssignmentID:    assignment.ID,
		AssignmentTitle: assignment.Title,
		Graded:          len(entries),
	}
	for _, e := range entries {
		if e.StudentID == claims.UserID {
			self := e
			board.Self = &self
			break
		}
	}
	if len(entries) > leaderboardTopSize {
		entries = entries[:leaderboardTopSize]
	}
	board.Entries = entries
	return board, nil
}

const leaderboardTopSize = 5

// GradePercentage parses an "obtained/max" grade string into a percentage.
// Anything unparseable, including a zero maximum, yields 0.
func GradePercentage(grade string) float64 {
	parts := strings.SplitN(grade, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	obtained, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || max <= 0 {
		return 0
	}
	return obtained / max * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
