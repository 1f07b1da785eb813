package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
	"github.com/noah-isme/momentum-lms-api/pkg/export"
	"github.com/noah-isme/momentum-lms-api/pkg/jobs"
	"github.com/noah-isme/momentum-lms-api/pkg/storage"
)

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	ListByCreator(ctx context.Context, createdBy string) ([]models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
}

type exportLeadSource interface {
	ListAll(ctx context.Context) ([]models.Lead, error)
}

type exportPerformanceSource interface {
	FindByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type exportGradeSource interface {
	ListGradedResults(ctx context.Context, studentID string) ([]models.GradedResult, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportService runs admin exports asynchronously. A queued job renders the
// dataset to CSV or PDF, stores the file and records a signed download URL
// on the job row.
type ExportService struct {
	repo        exportJobRepository
	leads       exportLeadSource
	users       exportPerformanceSource
	submissions exportGradeSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ExportConfig

	queue *jobs.Queue
}

// NewExportService constructs an ExportService. The worker queue is created
// here and must be started by the caller.
func NewExportService(repo exportJobRepository, leads exportLeadSource, users exportPerformanceSource, submissions exportGradeSource, fileStore fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger, queueCfg jobs.QueueConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	s := &ExportService{
		repo:        repo,
		leads:       leads,
		users:       users,
		submissions: submissions,
		storage:     fileStore,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		signer:      signer,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("exports", s.handleJob, queueCfg)
	return s
}

// Queue exposes the export queue so the caller can start and stop it.
func (s *ExportService) Queue() *jobs.Queue {
	return s.queue
}

// Enqueue records a queued export job and schedules its generation.
func (s *ExportService) Enqueue(ctx context.Context, claims *models.JWTClaims, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Type:      models.ExportType(req.Type),
		Format:    models.ExportFormat(req.Format),
		Status:    models.ExportStatusQueued,
		CreatedBy: claims.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type), Payload: job.ID}); err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "queue unavailable", now); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule export")
	}
	return job, nil
}

// Get returns an export job visible to the caller.
func (s *ExportService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.ExportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if !isOwnerOrAdmin(claims, job.CreatedBy) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// List returns the caller's export jobs, newest first.
func (s *ExportService) List(ctx context.Context, claims *models.JWTClaims) ([]models.ExportJob, error) {
	exportJobs, err := s.repo.ListByCreator(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	return exportJobs, nil
}

// Open validates a signed download token and returns a handle to the file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return file, relPath, nil
}

// StartCleanup launches the periodic removal of expired export files. It
// returns once ctx is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

func (s *ExportService) handleJob(ctx context.Context, qj jobs.Job) error {
	jobID, ok := qj.Payload.(string)
	if !ok {
		s.logger.Warn("unexpected export job payload", zap.String("job_id", qj.ID))
		return nil
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}

	if err := s.repo.MarkProcessing(ctx, job.ID); err != nil {
		s.logger.Warn("failed to mark export processing", zap.String("job_id", job.ID), zap.Error(err))
	}

	url, err := s.generate(ctx, job)
	now := time.Now().UTC()
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error(), now); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkFinished(ctx, job.ID, url, now); err != nil {
		return fmt.Errorf("mark export finished %s: %w", job.ID, err)
	}
	return nil
}

func (s *ExportService) generate(ctx context.Context, job *models.ExportJob) (string, error) {
	var (
		dataset export.Dataset
		title   string
		err     error
	)
	switch job.Type {
	case models.ExportTypeLeads:
		dataset, title, err = s.buildLeadsDataset(ctx)
	case models.ExportTypePerformance:
		dataset, title, err = s.buildPerformanceDataset(ctx)
	default:
		err = fmt.Errorf("unsupported export type %s", job.Type)
	}
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s.%s", job.Type, time.Now().UTC().Format("20060102_150405"), job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", err
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return "", err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download?token=%s", prefix, token), nil
}

func (s *ExportService) buildLeadsDataset(ctx context.Context) (export.Dataset, string, error) {
	leads, err := s.leads.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(leads))
	for _, lead := range leads {
		rows = append(rows, map[string]string{
			"Name":       lead.Name,
			"Email":      lead.Email,
			"Phone":      lead.Phone,
			"Class":      lead.StudentClass,
			"Program":    lead.Program,
			"Source":     string(lead.Source),
			"Status":     string(lead.Status),
			"Created At": lead.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Phone", "Class", "Program", "Source", "Status", "Created At"},
		Rows:    rows,
	}
	return dataset, "Leads Report", nil
}

func (s *ExportService) buildPerformanceDataset(ctx context.Context) (export.Dataset, string, error) {
	students, err := s.users.FindByRole(ctx, models.RoleStudent)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(students))
	for i := range students {
		student := &students[i]
		results, err := s.submissions.ListGradedResults(ctx, student.ID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		var sum float64
		for _, res := range results {
			sum += GradePercentage(res.Grade)
		}
		average := 0.0
		if len(results) > 0 {
			average = sum / float64(len(results))
		}
		rows = append(rows, map[string]string{
			"Student":     student.FullName,
			"Email":       student.Email,
			"Class":       student.StudentClass,
			"Program":     student.Program,
			"Graded":      fmt.Sprintf("%d", len(results)),
			"Average (%)": fmt.Sprintf("%.2f", average),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Class", "Program", "Graded", "Average (%)"},
		Rows:    rows,
	}
	return dataset, "Student Performance Report", nil
}
