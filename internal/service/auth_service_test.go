package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
)

type mockAdminRepo struct {
	admins map[int64]*models.Admin
	nextID int64
}

func (m *mockAdminRepo) Count(ctx context.Context) (int, error) {
	return len(m.admins), nil
}

func (m *mockAdminRepo) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	for _, a := range m.admins {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) FindByID(ctx context.Context, id int64) (*models.Admin, error) {
	if a, ok := m.admins[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	if m.admins == nil {
		m.admins = make(map[int64]*models.Admin)
	}
	m.nextID++
	admin.ID = m.nextID
	stored := *admin
	m.admins[admin.ID] = &stored
	return nil
}

func (m *mockAdminRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if a, ok := m.admins[id]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAdminRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

type mockTeacherAuthRepo struct {
	teachers map[int64]*models.Teacher
}

func (m *mockTeacherAuthRepo) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	for _, te := range m.teachers {
		if te.Email == email {
			copied := *te
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherAuthRepo) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	if te, ok := m.teachers[id]; ok {
		copied := *te
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherAuthRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if te, ok := m.teachers[id]; ok {
		te.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockTeacherAuthRepo) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	for id, te := range m.teachers {
		if id == excludeID {
			continue
		}
		if te.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type mockTokenRepo struct {
	tokens map[string]*models.RefreshToken
}

func (m *mockTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]*models.RefreshToken)
	}
	stored := *token
	m.tokens[token.Token] = &stored
	return nil
}

func (m *mockTokenRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTokenRepo) Revoke(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockTokenRepo) RevokeAllForPrincipal(ctx context.Context, principalID int64, role models.Role) error {
	now := time.Now().UTC()
	for _, t := range m.tokens {
		if t.PrincipalID == principalID && t.Role == role {
			t.Revoked = true
			t.RevokedAt = &now
		}
	}
	return nil
}

func hashPassword(t *testing.T, raw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func authServiceFixture(t *testing.T) (*AuthService, *mockAdminRepo, *mockTeacherAuthRepo, *mockTokenRepo) {
	t.Helper()
	admins := &mockAdminRepo{admins: map[int64]*models.Admin{
		1: {ID: 1, Name: "Root", Email: "root@example.com", PasswordHash: hashPassword(t, "admin-pass")},
	}, nextID: 1}
	teachers := &mockTeacherAuthRepo{teachers: map[int64]*models.Teacher{
		2: {ID: 2, Name: "Teach", Email: "teach@example.com", PasswordHash: hashPassword(t, "teach-pass"), AdminID: 1},
	}}
	tokens := &mockTokenRepo{}
	svc := NewAuthService(admins, teachers, tokens, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "test",
	})
	return svc, admins, teachers, tokens
}

func TestAuthLoginAdmin(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "Root@Example.com", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
}

func TestAuthLoginTeacher(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "teach@example.com", Password: "teach-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, res.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterAdminClosedAfterFirst(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	_, err := svc.RegisterAdmin(context.Background(), models.RegisterAdminRequest{
		Name: "Second", Email: "second@example.com", Password: "secret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterFirstAdmin(t *testing.T) {
	svc, admins, _, _ := authServiceFixture(t)
	admins.admins = map[int64]*models.Admin{}

	admin, err := svc.RegisterAdmin(context.Background(), models.RegisterAdminRequest{
		Name: "Root", Email: "ROOT@Example.com", Password: "secret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", admin.Email)
	assert.NotEqual(t, "secret-pass", admin.PasswordHash)
}

func TestAuthTokenRoundTrip(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "admin-pass"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	principal, ok := claims.Principal()
	require.True(t, ok)
	assert.EqualValues(t, 1, principal.ID)
	assert.Equal(t, models.RoleAdmin, principal.Role)
}

func TestAuthValidateTokenExpired(t *testing.T) {
	admins := &mockAdminRepo{admins: map[int64]*models.Admin{
		1: {ID: 1, Name: "Root", Email: "root@example.com", PasswordHash: hashPassword(t, "admin-pass")},
	}, nextID: 1}
	svc := NewAuthService(admins, &mockTeacherAuthRepo{}, &mockTokenRepo{}, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  -time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "test",
	})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "admin-pass"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenGarbage(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotates(t *testing.T) {
	svc, _, _, tokens := authServiceFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "admin-pass"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, rotated.RefreshToken)

	// The used token is revoked and cannot be replayed.
	assert.True(t, tokens.tokens[res.RefreshToken].Revoked)
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutForeignTokenForbidden(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "admin-pass"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), models.Principal{ID: 2, Role: models.RoleTeacher}, res.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthChangePassword(t *testing.T) {
	svc, _, teachers, tokens := authServiceFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "teach@example.com", Password: "teach-pass"})
	require.NoError(t, err)

	principal := models.Principal{ID: 2, Role: models.RoleTeacher}
	err = svc.ChangePassword(context.Background(), principal, models.ChangePasswordRequest{
		CurrentPassword: "teach-pass", NewPassword: "fresh-pass",
	})
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(teachers.teachers[2].PasswordHash), []byte("fresh-pass")))
	assert.True(t, tokens.tokens[res.RefreshToken].Revoked)
}

func TestAuthChangePasswordWrongCurrent(t *testing.T) {
	svc, _, _, _ := authServiceFixture(t)

	err := svc.ChangePassword(context.Background(), models.Principal{ID: 1, Role: models.RoleAdmin}, models.ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "fresh-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
