package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/momentum-lms-api/internal/models"
)

// AnalyticsRepository runs the aggregate queries behind the admin dashboard.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountUsersByRole returns the number of active users with the given role.
func (r *AnalyticsRepository) CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1 AND active = TRUE`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// ResourceTotals returns the resource count and cumulative downloads.
func (r *AnalyticsRepository) ResourceTotals(ctx context.Context) (resources, downloads int64, err error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(downloads), 0) FROM resources`
	row := r.db.QueryRowContext(ctx, query)
	if err := row.Scan(&resources, &downloads); err != nil {
		return 0, 0, fmt.Errorf("resource totals: %w", err)
	}
	return resources, downloads, nil
}

// ProgramDistribution returns active student counts grouped by program.
func (r *AnalyticsRepository) ProgramDistribution(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT COALESCE(NULLIF(program, ''), 'Unassigned'), COUNT(*)
FROM users WHERE role = 'student' AND active = TRUE GROUP BY 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("program distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[string]int64)
	for rows.Next() {
		var program string
		var count int64
		if err := rows.Scan(&program, &count); err != nil {
			return nil, fmt.Errorf("scan program distribution: %w", err)
		}
		dist[program] = count
	}
	return dist, rows.Err()
}

// RegistrationTrends returns student registrations per month over the last
// six months, keyed by YYYY-MM.
func (r *AnalyticsRepository) RegistrationTrends(ctx context.Context) (map[string]int64, error) {
	const query = `SELECT TO_CHAR(created_at, 'YYYY-MM'), COUNT(*)
FROM users WHERE role = 'student' AND created_at >= NOW() - INTERVAL '6 months' GROUP BY 1 ORDER BY 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("registration trends: %w", err)
	}
	defer rows.Close()

	trends := make(map[string]int64)
	for rows.Next() {
		var month string
		var count int64
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("scan registration trends: %w", err)
		}
		trends[month] = count
	}
	return trends, rows.Err()
}

// TopResources returns the most-downloaded resources.
func (r *AnalyticsRepository) TopResources(ctx context.Context, limit int) ([]models.ResourceStat, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT title, type, downloads FROM resources ORDER BY downloads DESC, title LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top resources: %w", err)
	}
	defer rows.Close()

	var stats []models.ResourceStat
	for rows.Next() {
		var s models.ResourceStat
		if err := rows.Scan(&s.Title, &s.Type, &s.Downloads); err != nil {
			return nil, fmt.Errorf("scan top resources: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
