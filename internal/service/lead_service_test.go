package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type mockLeadRepo struct {
	items map[string]*models.Lead
}

func newMockLeadRepo() *mockLeadRepo {
	return &mockLeadRepo{items: make(map[string]*models.Lead)}
}

func (m *mockLeadRepo) Create(_ context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	clone := *lead
	m.items[lead.ID] = &clone
	return nil
}

func (m *mockLeadRepo) FindByID(_ context.Context, id string) (*models.Lead, error) {
	lead, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *lead
	return &clone, nil
}

func (m *mockLeadRepo) List(_ context.Context, status *models.LeadStatus, source *models.LeadSource) ([]models.Lead, error) {
	var out []models.Lead
	for _, lead := range m.items {
		if status != nil && lead.Status != *status {
			continue
		}
		if source != nil && lead.Source != *source {
			continue
		}
		out = append(out, *lead)
	}
	return out, nil
}

func (m *mockLeadRepo) UpdateStatus(_ context.Context, id string, status models.LeadStatus) error {
	lead, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	lead.Status = status
	return nil
}

func (m *mockLeadRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type countingLeadNotifier struct {
	created int
}

func (n *countingLeadNotifier) NotifyLeadCreated(context.Context, *models.Lead) error {
	n.created++
	return nil
}

func TestLeadServiceCreateContactDefaults(t *testing.T) {
	repo := newMockLeadRepo()
	notifier := &countingLeadNotifier{}
	svc := NewLeadService(repo, notifier, validator.New(), zap.NewNop())

	lead, err := svc.CreateContact(context.Background(), dto.ContactLeadRequest{
		Name:    "Ravi Kumar",
		Email:   "ravi@example.com",
		Phone:   "9876543210",
		Message: "Tell me about JEE batches",
	})
	require.NoError(t, err)
	assert.Equal(t, "General Inquiry", lead.Program)
	assert.Equal(t, models.LeadSourceContact, lead.Source)
	assert.Equal(t, models.LeadStatusInterested, lead.Status)
	assert.Equal(t, 1, notifier.created)
}

func TestLeadServiceCreateContactRejectsBadEmail(t *testing.T) {
	svc := NewLeadService(newMockLeadRepo(), nil, validator.New(), zap.NewNop())

	_, err := svc.CreateContact(context.Background(), dto.ContactLeadRequest{
		Name:  "Ravi Kumar",
		Email: "not-an-email",
		Phone: "9876543210",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLeadServiceCreateEnrollment(t *testing.T) {
	repo := newMockLeadRepo()
	svc := NewLeadService(repo, nil, validator.New(), zap.NewNop())

	lead, err := svc.CreateEnrollment(context.Background(), dto.EnrollmentLeadRequest{
		Name:         "Sneha Patel",
		Email:        "sneha@example.com",
		Phone:        "9876501234",
		StudentClass: "11",
		Program:      "JEE Advanced",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadSourceEnrollment, lead.Source)
	assert.Equal(t, models.LeadStatusInterested, lead.Status)
	assert.Equal(t, "JEE Advanced", lead.Program)
	assert.Equal(t, "11", lead.StudentClass)
}

func TestLeadServiceListFilters(t *testing.T) {
	repo := newMockLeadRepo()
	svc := NewLeadService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.CreateContact(context.Background(), dto.ContactLeadRequest{
		Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "9876543210",
	})
	require.NoError(t, err)
	enrolled, err := svc.CreateEnrollment(context.Background(), dto.EnrollmentLeadRequest{
		Name: "Sneha Patel", Email: "sneha@example.com", Phone: "9876501234", StudentClass: "11", Program: "JEE",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), enrolled.ID, dto.UpdateLeadStatusRequest{Status: "CONTACTED"})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	contacted := models.LeadStatusContacted
	filtered, err := svc.List(context.Background(), &contacted, nil)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, enrolled.ID, filtered[0].ID)

	source := models.LeadSourceContact
	bySource, err := svc.List(context.Background(), nil, &source)
	require.NoError(t, err)
	assert.Len(t, bySource, 1)
}

func TestLeadServiceUpdateStatus(t *testing.T) {
	repo := newMockLeadRepo()
	svc := NewLeadService(repo, nil, validator.New(), zap.NewNop())

	lead, err := svc.CreateContact(context.Background(), dto.ContactLeadRequest{
		Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "9876543210",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), lead.ID, dto.UpdateLeadStatusRequest{Status: "ENROLLED"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusEnrolled, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), lead.ID, dto.UpdateLeadStatusRequest{Status: "LOST"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.UpdateStatus(context.Background(), "missing", dto.UpdateLeadStatusRequest{Status: "CONTACTED"})
	require.Error(t, err)
	appErr, ok = err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestLeadServiceDelete(t *testing.T) {
	repo := newMockLeadRepo()
	svc := NewLeadService(repo, nil, validator.New(), zap.NewNop())

	lead, err := svc.CreateContact(context.Background(), dto.ContactLeadRequest{
		Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "9876543210",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), lead.ID))

	err = svc.Delete(context.Background(), lead.ID)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
