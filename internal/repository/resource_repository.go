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

const resourceColumns = `r.id, r.title, r.description, r.type, r.subject, r.target_class, r.exam, r.file_url,
r.uploaded_by_id, u.full_name AS uploader_name, r.downloads, r.views, r.rating, r.is_published, r.created_at, r.updated_at`

// ResourceRepository provides database access for study resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new instance of ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create inserts a new resource.
func (r *ResourceRepository) Create(ctx context.Context, res *models.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO resources (id, title, description, type, subject, target_class, exam, file_url,
uploaded_by_id, downloads, views, rating, is_published, created_at)
VALUES (:id, :title, :description, :type, :subject, :target_class, :exam, :file_url,
:uploaded_by_id, :downloads, :views, :rating, :is_published, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// FindByID returns a resource with its uploader name resolved.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources r
LEFT JOIN users u ON u.id = r.uploaded_by_id WHERE r.id = $1 LIMIT 1`, resourceColumns)
	var res models.Resource
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	return &res, nil
}

// List returns resources matching the filter, newest first.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("r.type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("r.subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.TargetClass != nil {
		conditions = append(conditions, fmt.Sprintf("r.target_class = $%d", len(args)+1))
		args = append(args, *filter.TargetClass)
	}
	if filter.UploadedByID != "" {
		conditions = append(conditions, fmt.Sprintf("r.uploaded_by_id = $%d", len(args)+1))
		args = append(args, filter.UploadedByID)
	}
	if filter.OnlyPublished {
		conditions = append(conditions, "r.is_published = TRUE")
	}

	query := fmt.Sprintf(`SELECT %s FROM resources r LEFT JOIN users u ON u.id = r.uploaded_by_id`, resourceColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.created_at DESC"

	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// Update updates mutable fields of a resource.
func (r *ResourceRepository) Update(ctx context.Context, res *models.Resource) error {
	now := time.Now().UTC()
	res.UpdatedAt = &now
	const query = `UPDATE resources SET title = :title, description = :description, type = :type, subject = :subject,
target_class = :target_class, exam = :exam, file_url = :file_url, is_published = :is_published,
updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return nil
}

// Delete removes a resource permanently.
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM resources WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// IncrementDownloads bumps the download counter.
func (r *ResourceRepository) IncrementDownloads(ctx context.Context, id string) error {
	const query = `UPDATE resources SET downloads = downloads + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter.
func (r *ResourceRepository) IncrementViews(ctx context.Context, id string) error {
	const query = `UPDATE resources SET views = views + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}
