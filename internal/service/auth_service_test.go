package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/momentum-lms-api/internal/models"
	appErrors "github.com/noah-isme/momentum-lms-api/pkg/errors"
)

type mockAuthRepo struct {
	users      map[string]*models.User
	emailIndex map[string]string
	tokens     map[string]*models.RefreshToken
	audits     []models.AuditLog
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:      make(map[string]*models.User),
		emailIndex: make(map[string]string),
		tokens:     make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthRepo) Create(_ context.Context, user *models.User) error {
	clone := *user
	m.users[user.ID] = &clone
	m.emailIndex[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	id, ok := m.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *m.users[id]
	return &clone, nil
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *mockAuthRepo) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	clone := *token
	m.tokens[token.Token] = &clone
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAuthRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func newAuthServiceForTest(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "momentum-lms",
	})
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	req := models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
}

func TestAuthServiceRegisterRejectsUnknownRole(t *testing.T) {
	svc := newAuthServiceForTest(newMockAuthRepo())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "superuser",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "arjun@example.com",
		Password: "wrong-password",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)
	repo.users[resp.User.ID].Active = false

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Arjun Mehta", claims.FullName)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)

	// A token signed with a different secret must be rejected.
	other := NewAuthService(newMockAuthRepo(), validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "other-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), resp.User.ID, models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.ChangePassword(context.Background(), resp.User.ID, models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	}))

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "arjun@example.com",
		Password: "newsecret",
	})
	require.NoError(t, err)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthServiceForTest(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "arjun@example.com",
		Password: "secret123",
		FullName: "Arjun Mehta",
		Role:     "student",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), resp.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Logout(context.Background(), resp.RefreshToken, resp.User.ID, models.LoginRequest{}))

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.Error(t, err)
}
