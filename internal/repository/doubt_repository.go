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

const doubtColumns = `d.id, d.student_id, s.full_name AS student_name, d.teacher_id, t.full_name AS teacher_name,
d.context_type, d.context_id, d.context_title, d.subject, d.question, d.answer, d.created_at, d.answered_at`

// DoubtRepository provides database access for doubt threads.
type DoubtRepository struct {
	db *sqlx.DB
}

// NewDoubtRepository creates a new instance of DoubtRepository.
func NewDoubtRepository(db *sqlx.DB) *DoubtRepository {
	return &DoubtRepository{db: db}
}

// Create inserts a new doubt.
func (r *DoubtRepository) Create(ctx context.Context, d *models.Doubt) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO doubts (id, student_id, teacher_id, context_type, context_id, context_title, subject, question, created_at)
VALUES (:id, :student_id, :teacher_id, :context_type, :context_id, :context_title, :subject, :question, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create doubt: %w", err)
	}
	return nil
}

// FindByID returns a doubt with participant names resolved.
func (r *DoubtRepository) FindByID(ctx context.Context, id string) (*models.Doubt, error) {
	query := fmt.Sprintf(`SELECT %s FROM doubts d
LEFT JOIN users s ON s.id = d.student_id
LEFT JOIN users t ON t.id = d.teacher_id
WHERE d.id = $1 LIMIT 1`, doubtColumns)
	var d models.Doubt
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find doubt by id: %w", err)
	}
	return &d, nil
}

// ListByStudent returns a student's doubts, newest first.
func (r *DoubtRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Doubt, error) {
	query := fmt.Sprintf(`SELECT %s FROM doubts d
LEFT JOIN users s ON s.id = d.student_id
LEFT JOIN users t ON t.id = d.teacher_id
WHERE d.student_id = $1 ORDER BY d.created_at DESC`, doubtColumns)
	var doubts []models.Doubt
	if err := r.db.SelectContext(ctx, &doubts, query, studentID); err != nil {
		return nil, fmt.Errorf("list doubts by student: %w", err)
	}
	return doubts, nil
}

// ListByTeacher returns doubts addressed to a teacher, unanswered first
// then newest first.
func (r *DoubtRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Doubt, error) {
	query := fmt.Sprintf(`SELECT %s FROM doubts d
LEFT JOIN users s ON s.id = d.student_id
LEFT JOIN users t ON t.id = d.teacher_id
WHERE d.teacher_id = $1 ORDER BY (d.answer IS NULL) DESC, d.created_at DESC`, doubtColumns)
	var doubts []models.Doubt
	if err := r.db.SelectContext(ctx, &doubts, query, teacherID); err != nil {
		return nil, fmt.Errorf("list doubts by teacher: %w", err)
	}
	return doubts, nil
}

// Answer records the teacher's reply.
func (r *DoubtRepository) Answer(ctx context.Context, id, answer string, answeredAt time.Time) error {
	const query = `UPDATE doubts SET answer = $2, answered_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, answer, answeredAt); err != nil {
		return fmt.Errorf("answer doubt: %w", err)
	}
	return nil
}
