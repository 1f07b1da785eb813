package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/momentum-lms-api/internal/models"
)

const leadColumns = `id, name, email, phone, student_class, program, message, source, status, created_at`

// LeadRepository provides database access for inbound leads.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository creates a new instance of LeadRepository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a new lead.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO leads (id, name, email, phone, student_class, program, message, source, status, created_at)
VALUES (:id, :name, :email, :phone, :student_class, :program, :message, :source, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// FindByID returns a lead by identifier.
func (r *LeadRepository) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1 LIMIT 1`, leadColumns)
	var lead models.Lead
	if err := r.db.GetContext(ctx, &lead, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lead by id: %w", err)
	}
	return &lead, nil
}

// List returns leads, optionally filtered by status and source, newest
// first.
func (r *LeadRepository) List(ctx context.Context, status *models.LeadStatus, source *models.LeadSource) ([]models.Lead, error) {
	var conditions []string
	var args []interface{}

	if status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *status)
	}
	if source != nil {
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, *source)
	}

	query := fmt.Sprintf(`SELECT %s FROM leads`, leadColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var leads []models.Lead
	if err := r.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

// ListAll returns every lead for export.
func (r *LeadRepository) ListAll(ctx context.Context) ([]models.Lead, error) {
	return r.List(ctx, nil, nil)
}

// UpdateStatus moves a lead along the follow-up pipeline.
func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error {
	const query = `UPDATE leads SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	return nil
}

// Delete removes a lead.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM leads WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return nil
}
