package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
	"github.com/noah-isme/momentum-lms-api/pkg/jobs"
	"github.com/noah-isme/momentum-lms-api/pkg/push"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	SaveSubscription(ctx context.Context, s *models.PushSubscription) error
	SubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

type audienceRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	FindStudentsByTags(ctx context.Context, tags []string) ([]models.User, error)
	FindTeachersBySubject(ctx context.Context, subject string) ([]models.User, error)
}

type pushSender interface {
	Send(ctx context.Context, ep push.Endpoint, payload push.Payload) error
}

// pushJob is the queue payload for one best-effort push delivery.
type pushJob struct {
	UserID  string
	Payload push.Payload
}

// NotificationService persists per-recipient notification rows and fans out
// best-effort push deliveries through the background queue. Push failures
// are logged and swallowed; the persisted row is the source of truth.
type NotificationService struct {
	repo      notificationRepository
	users     audienceRepository
	evaluator *AccessEvaluator
	pusher    pushSender
	pushTitle string
	logger    *zap.Logger

	queue *jobs.Queue
}

// NewNotificationService constructs a NotificationService. The worker queue
// is created here and must be started by the caller.
func NewNotificationService(repo notificationRepository, users audienceRepository, evaluator *AccessEvaluator, pusher pushSender, pushTitle string, logger *zap.Logger, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if evaluator == nil {
		evaluator = NewAccessEvaluator(MatchAll)
	}
	if pushTitle == "" {
		pushTitle = "Momentum Academy"
	}
	s := &NotificationService{
		repo:      repo,
		users:     users,
		evaluator: evaluator,
		pusher:    pusher,
		pushTitle: pushTitle,
		logger:    logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("push-delivery", s.handlePushJob, queueCfg)
	return s
}

// Queue exposes the push delivery queue so the caller can start and stop it.
func (s *NotificationService) Queue() *jobs.Queue {
	return s.queue
}

// Notify persists one notification and schedules push delivery to every
// endpoint the recipient registered.
func (s *NotificationService) Notify(ctx context.Context, recipientID, message, redirectURL string) error {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Message:     message,
		RedirectURL: redirectURL,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist notification")
	}

	if s.pusher == nil {
		return nil
	}
	job := jobs.Job{
		ID:   n.ID,
		Type: "push",
		Payload: pushJob{
			UserID:  recipientID,
			Payload: push.Payload{Title: s.pushTitle, Body: message, URL: redirectURL},
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue push delivery", zap.String("recipient_id", recipientID), zap.Error(err))
	}
	return nil
}

// NotifyAssignmentPublished fans out to every student whose access tags
// match the assignment under the configured tag policy.
func (s *NotificationService) NotifyAssignmentPublished(ctx context.Context, a *models.Assignment) error {
	students, err := s.users.FindStudentsByTags(ctx, a.ContentTags())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve assignment audience")
	}
	message := "New Assignment: " + a.Title
	for i := range students {
		student := &students[i]
		if !s.evaluator.MatchTags(student.AccessTags, a.ContentTags()) {
			continue
		}
		if err := s.Notify(ctx, student.ID, message, "/student/assignments"); err != nil {
			s.logger.Warn("assignment fan-out delivery failed", zap.String("student_id", student.ID), zap.Error(err))
		}
	}
	return nil
}

// NotifyResourcePublished fans out to students matching the resource's
// class and exam dimensions.
func (s *NotificationService) NotifyResourcePublished(ctx context.Context, r *models.Resource) error {
	students, err := s.users.FindStudentsByTags(ctx, r.AudienceTags())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve resource audience")
	}
	message := fmt.Sprintf("New %s available: %s", r.Type, r.Title)
	for i := range students {
		student := &students[i]
		if !s.evaluator.MatchTags(student.AccessTags, r.AudienceTags()) {
			continue
		}
		if err := s.Notify(ctx, student.ID, message, "/student/resources"); err != nil {
			s.logger.Warn("resource fan-out delivery failed", zap.String("student_id", student.ID), zap.Error(err))
		}
	}
	return nil
}

// NotifyDoubtCreated alerts every teacher whose access tags include the
// doubt's subject.
func (s *NotificationService) NotifyDoubtCreated(ctx context.Context, d *models.Doubt) error {
	teachers, err := s.users.FindTeachersBySubject(ctx, d.Subject)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve doubt audience")
	}
	message := "New Doubt in " + d.Subject
	for i := range teachers {
		if err := s.Notify(ctx, teachers[i].ID, message, "/teacher/doubts"); err != nil {
			s.logger.Warn("doubt fan-out delivery failed", zap.String("teacher_id", teachers[i].ID), zap.Error(err))
		}
	}
	return nil
}

// NotifyDoubtAnswered tells the asking student their question has a reply.
func (s *NotificationService) NotifyDoubtAnswered(ctx context.Context, d *models.Doubt) error {
	message := "Your doubt in " + d.Subject + " has been answered"
	return s.Notify(ctx, d.StudentID, message, "/student/doubts")
}

// NotifySubmissionReceived tells the owning teacher a student submitted.
func (s *NotificationService) NotifySubmissionReceived(ctx context.Context, a *models.Assignment, studentName string) error {
	message := fmt.Sprintf("%s submitted %s", studentName, a.Title)
	return s.Notify(ctx, a.TeacherID, message, "/teacher/assignments/"+a.ID)
}

// NotifyLeadCreated alerts every admin of a new inbound lead.
func (s *NotificationService) NotifyLeadCreated(ctx context.Context, lead *models.Lead) error {
	admins, err := s.users.FindByRole(ctx, models.RoleAdmin)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve admin audience")
	}
	message := "New lead from " + lead.Name
	for i := range admins {
		if err := s.Notify(ctx, admins[i].ID, message, "/admin/leads"); err != nil {
			s.logger.Warn("lead fan-out delivery failed", zap.String("admin_id", admins[i].ID), zap.Error(err))
		}
	}
	return nil
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string) ([]models.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the recipient's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead flips one of the recipient's notifications to read.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if err := s.repo.MarkRead(ctx, id, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	if err := s.repo.MarkAllRead(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// Subscribe registers a push endpoint for the user.
func (s *NotificationService) Subscribe(ctx context.Context, userID, endpoint, p256dh, auth string) error {
	if endpoint == "" {
		return appErrors.Clone(appErrors.ErrValidation, "endpoint is required")
	}
	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	}
	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save push subscription")
	}
	return nil
}

// Unsubscribe removes a push endpoint.
func (s *NotificationService) Unsubscribe(ctx context.Context, endpoint string) error {
	if err := s.repo.DeleteSubscription(ctx, endpoint); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete push subscription")
	}
	return nil
}

// handlePushJob delivers one queued payload to every endpoint the recipient
// registered. Delivery errors never fail the job; a dead endpoint is pruned.
func (s *NotificationService) handlePushJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(pushJob)
	if !ok {
		s.logger.Warn("unexpected push job payload", zap.String("job_id", job.ID))
		return nil
	}

	subs, err := s.repo.SubscriptionsByUser(ctx, payload.UserID)
	if err != nil {
		s.logger.Warn("failed to load push subscriptions", zap.String("user_id", payload.UserID), zap.Error(err))
		return nil
	}

	for _, sub := range subs {
		ep := push.Endpoint{URL: sub.Endpoint, P256DH: sub.P256DH, Auth: sub.Auth}
		if err := s.pusher.Send(ctx, ep, payload.Payload); err != nil {
			s.logger.Warn("push delivery failed",
				zap.String("user_id", payload.UserID),
				zap.String("endpoint", sub.Endpoint),
				zap.Error(err))
		}
	}
	return nil
}
