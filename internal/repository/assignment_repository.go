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

const assignmentColumns = `a.id, a.title, a.description, a.subject, a.target_class, a.target_exam, a.difficulty,
a.due_date, a.file_url, a.teacher_id, u.full_name AS teacher_name, a.is_published, a.created_at`

// AssignmentRepository provides database access for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new instance of AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (id, title, description, subject, target_class, target_exam, difficulty,
due_date, file_url, teacher_id, is_published, created_at)
VALUES (:id, :title, :description, :subject, :target_class, :target_exam, :difficulty,
:due_date, :file_url, :teacher_id, :is_published, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByID returns an assignment with the teacher name resolved.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a
LEFT JOIN users u ON u.id = a.teacher_id WHERE a.id = $1 LIMIT 1`, assignmentColumns)
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &a, nil
}

// ListByTeacher returns assignments authored by a teacher, newest first.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a
LEFT JOIN users u ON u.id = a.teacher_id WHERE a.teacher_id = $1 ORDER BY a.created_at DESC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments by teacher: %w", err)
	}
	return assignments, nil
}

// ListPublished returns all published assignments, newest first. The
// per-student access policy is applied in the service layer.
func (r *AssignmentRepository) ListPublished(ctx context.Context) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments a
LEFT JOIN users u ON u.id = a.teacher_id WHERE a.is_published = TRUE ORDER BY a.created_at DESC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list published assignments: %w", err)
	}
	return assignments, nil
}

// Update updates mutable fields of an assignment.
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	const query = `UPDATE assignments SET title = :title, description = :description, subject = :subject,
target_class = :target_class, target_exam = :target_exam, difficulty = :difficulty, due_date = :due_date,
file_url = :file_url, is_published = :is_published WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment and its submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
