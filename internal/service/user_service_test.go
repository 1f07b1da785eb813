package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/dto"
	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type mockUserRepo struct {
	items      map[string]*models.User
	emailIndex map[string]string
	audits     []models.AuditLog
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{
		items:      make(map[string]*models.User),
		emailIndex: make(map[string]string),
	}
	for _, u := range users {
		clone := *u
		m.items[u.ID] = &clone
		m.emailIndex[strings.ToLower(u.Email)] = u.ID
	}
	return m
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.items {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	id, ok := m.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *m.items[id]
	return &clone, nil
}

func (m *mockUserRepo) FindByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range m.items {
		if u.Role == role && u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	clone := *user
	m.items[user.ID] = &clone
	m.emailIndex[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := m.items[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	m.items[user.ID] = &clone
	return nil
}

func (m *mockUserRepo) UpdateAccessTags(_ context.Context, id string, tags []string) error {
	u, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.AccessTags = tags
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	u, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = false
	return nil
}

func (m *mockUserRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func newUserServiceForTest(repo *mockUserRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserServiceForTest(repo)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:        "Arjun@Example.com",
		FullName:     "Arjun Mehta",
		Role:         "student",
		Password:     "secret123",
		AccessTags:   []string{"11", "Physics", "JEE"},
		StudentClass: "11",
		Program:      "JEE",
	}, "admin-1", models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "arjun@example.com", user.Email)
	assert.True(t, user.Active)
	assert.Equal(t, []string{"11", "Physics", "JEE"}, []string(user.AccessTags))
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.audits[0].Action)
	assert.Equal(t, "10.0.0.1", repo.audits[0].IPAddress)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserServiceForTest(repo)

	req := CreateUserRequest{
		Email:    "arjun@example.com",
		FullName: "Arjun Mehta",
		Role:     "student",
		Password: "secret123",
	}
	_, err := svc.Create(context.Background(), req, "admin-1", models.LoginRequest{})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	svc := newUserServiceForTest(newMockUserRepo())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "arjun@example.com",
		FullName: "Arjun Mehta",
		Role:     "principal",
		Password: "secret123",
	}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUserServiceDirectory(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "s1", Email: "s1@example.com", Role: models.RoleStudent, Active: true},
		&models.User{ID: "s2", Email: "s2@example.com", Role: models.RoleStudent, Active: false},
		&models.User{ID: "t1", Email: "t1@example.com", Role: models.RoleTeacher, Active: true},
	)
	svc := newUserServiceForTest(repo)

	students, err := svc.Directory(context.Background(), models.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 1)

	teachers, err := svc.Directory(context.Background(), models.RoleTeacher)
	require.NoError(t, err)
	assert.Len(t, teachers, 1)
}

func TestUserServiceListPaginationDefaults(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "s1", Email: "s1@example.com", Role: models.RoleStudent, Active: true},
	)
	svc := newUserServiceForTest(repo)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceUpdateAccessTags(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "s1", Email: "s1@example.com", Role: models.RoleStudent, Active: true, AccessTags: []string{"11"}},
	)
	svc := newUserServiceForTest(repo)

	user, err := svc.UpdateAccessTags(context.Background(), "s1", dto.UpdateAccessTagsRequest{
		AccessTags: []string{"12", "Physics", "JEE"},
	}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "Physics", "JEE"}, []string(user.AccessTags))
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.audits[0].Action)

	_, err = svc.UpdateAccessTags(context.Background(), "missing", dto.UpdateAccessTagsRequest{
		AccessTags: []string{"12"},
	}, "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "s1", Email: "s1@example.com", FullName: "Arjun Mehta", Role: models.RoleStudent, Active: true},
	)
	svc := newUserServiceForTest(repo)

	name := "Arjun M."
	phone := "9876543210"
	user, err := svc.UpdateProfile(context.Background(), "s1", dto.UpdateProfileRequest{
		FullName: &name,
		Phone:    &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Arjun M.", user.FullName)
	assert.Equal(t, "9876543210", user.Phone)
}

func TestUserServiceAdminUpdate(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "s1", Email: "s1@example.com", Role: models.RoleStudent, Active: true},
	)
	svc := newUserServiceForTest(repo)

	inactive := false
	tags := []string{"11", "NEET"}
	user, err := svc.Update(context.Background(), "s1", dto.AdminUpdateUserRequest{
		Active:     &inactive,
		AccessTags: &tags,
	}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.Equal(t, []string{"11", "NEET"}, []string(user.AccessTags))
	require.Len(t, repo.audits, 1)
	assert.NotEmpty(t, repo.audits[0].OldValues)
	assert.NotEmpty(t, repo.audits[0].NewValues)
}

func TestUserServiceDeleteDeactivates(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "s1", Email: "s1@example.com", Role: models.RoleStudent, Active: true},
	)
	svc := newUserServiceForTest(repo)

	require.NoError(t, svc.Delete(context.Background(), "s1", "admin-1", models.LoginRequest{}))
	assert.False(t, repo.items["s1"].Active)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.audits[0].Action)

	err := svc.Delete(context.Background(), "missing", "admin-1", models.LoginRequest{})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
