package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/models"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	CountUsersByRole(ctx context.Context, role models.UserRole) (int64, error)
	ResourceTotals(ctx context.Context) (resources, downloads int64, err error)
	ProgramDistribution(ctx context.Context) (map[string]int64, error)
	RegistrationTrends(ctx context.Context) (map[string]int64, error)
	TopResources(ctx context.Context, limit int) ([]models.ResourceStat, error)
}

const dashboardCacheKey = "analytics:dashboard"

// AnalyticsService serves the admin dashboard aggregates with cache
// integration. The dashboard is read-heavy and tolerant of short staleness,
// so results are served cache-aside with a configurable TTL.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Dashboard returns the admin dashboard counters. The boolean indicates
// whether data originated from cache.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get dashboard cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	stats, err := s.buildDashboard(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_dashboard", time.Since(start))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.ttl); err != nil && s.logger != nil {
			s.logger.Warn("cache dashboard", zap.Error(err))
		}
	}
	return stats, false, nil
}

// Invalidate drops the cached dashboard after a mutation that changes the
// counters.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil && s.logger != nil {
		s.logger.Warn("invalidate dashboard cache", zap.Error(err))
	}
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) buildDashboard(ctx context.Context) (*models.DashboardStats, error) {
	students, err := s.repo.CountUsersByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	teachers, err := s.repo.CountUsersByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("count teachers: %w", err)
	}
	resources, downloads, err := s.repo.ResourceTotals(ctx)
	if err != nil {
		return nil, err
	}
	programs, err := s.repo.ProgramDistribution(ctx)
	if err != nil {
		return nil, err
	}
	trends, err := s.repo.RegistrationTrends(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopResources(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalStudents:       students,
		TotalTeachers:       teachers,
		TotalResources:      resources,
		TotalDownloads:      downloads,
		ProgramDistribution: programs,
		RegistrationTrends:  trends,
		TopResources:        top,
	}, nil
}
