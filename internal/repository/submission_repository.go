package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/momentum-lms-api/internal/models"
)

// SubmissionRepository provides database access for assignment submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Upsert stores a submission, overwriting any earlier one for the same
// (assignment, student) pair. Resubmission resets grade and feedback.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *models.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, assignment_id, student_id, file_url, status, grade, feedback, submitted_at)
VALUES (:id, :assignment_id, :student_id, :file_url, :status, :grade, :feedback, :submitted_at)
ON CONFLICT (assignment_id, student_id) DO UPDATE SET
file_url = EXCLUDED.file_url, status = EXCLUDED.status, grade = NULL, feedback = NULL, submitted_at = EXCLUDED.submitted_at`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, status, grade, feedback, submitted_at
FROM submissions WHERE id = $1 LIMIT 1`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &s, nil
}

// FindByAssignmentAndStudent returns the student's submission for an
// assignment, or sql.ErrNoRows when none exists.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, status, grade, feedback, submitted_at
FROM submissions WHERE assignment_id = $1 AND student_id = $2 LIMIT 1`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &s, nil
}

// ListByAssignment returns all submissions for an assignment, newest first.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, status, grade, feedback, submitted_at
FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at DESC`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions by assignment: %w", err)
	}
	return subs, nil
}

// ListViewsByAssignment returns submissions joined with student identity
// for teacher review, newest first.
func (r *SubmissionRepository) ListViewsByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionView, error) {
	const query = `SELECT s.id, u.full_name AS student_name, u.email AS student_email, s.submitted_at, s.file_url, s.status, s.grade, s.feedback
FROM submissions s JOIN users u ON u.id = s.student_id
WHERE s.assignment_id = $1 ORDER BY s.submitted_at DESC`
	var views []models.SubmissionView
	if err := r.db.SelectContext(ctx, &views, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submission views: %w", err)
	}
	return views, nil
}

// ListGradedStandings returns graded submissions with student identity for
// one assignment, the raw input for a leaderboard.
func (r *SubmissionRepository) ListGradedStandings(ctx context.Context, assignmentID string) ([]models.GradedStanding, error) {
	const query = `SELECT s.student_id, u.full_name AS student_name, COALESCE(s.grade, '') AS grade
FROM submissions s JOIN users u ON u.id = s.student_id
WHERE s.assignment_id = $1 AND s.status = 'Graded' AND s.grade IS NOT NULL`
	var standings []models.GradedStanding
	if err := r.db.SelectContext(ctx, &standings, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list graded standings: %w", err)
	}
	return standings, nil
}

// ListByStudent returns all submissions a student has made.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, status, grade, feedback, submitted_at
FROM submissions WHERE student_id = $1 ORDER BY submitted_at DESC`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, studentID); err != nil {
		return nil, fmt.Errorf("list submissions by student: %w", err)
	}
	return subs, nil
}

// ListGradedByStudent returns graded submissions with a non-null grade,
// used for performance aggregation.
func (r *SubmissionRepository) ListGradedByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, status, grade, feedback, submitted_at
FROM submissions WHERE student_id = $1 AND status = 'Graded' AND grade IS NOT NULL ORDER BY submitted_at`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, studentID); err != nil {
		return nil, fmt.Errorf("list graded submissions: %w", err)
	}
	return subs, nil
}

// ListGradedResults returns graded submissions joined with their
// assignments for performance aggregation, oldest first.
func (r *SubmissionRepository) ListGradedResults(ctx context.Context, studentID string) ([]models.GradedResult, error) {
	const query = `SELECT s.assignment_id, a.title AS assignment_title, a.subject, s.grade, s.submitted_at
FROM submissions s JOIN assignments a ON a.id = s.assignment_id
WHERE s.student_id = $1 AND s.status = 'Graded' AND s.grade IS NOT NULL ORDER BY s.submitted_at`
	var results []models.GradedResult
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list graded results: %w", err)
	}
	return results, nil
}

// Grade records a grade and feedback and moves the submission to its
// terminal Graded status.
func (r *SubmissionRepository) Grade(ctx context.Context, id, grade, feedback string) error {
	const query = `UPDATE submissions SET status = 'Graded', grade = $2, feedback = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, feedback); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

// Delete removes a submission row.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM submissions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}
