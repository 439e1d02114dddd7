package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	refreshTokenErr     error
	createRefreshErr    error
	revokeRefreshErr    error
	staleRead           bool
	revokeUserTokensErr error
	updatePasswordErr   error
	createErr           error
	created             []*models.User
	lastLoginUpdated    bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if m.refreshTokenErr != nil {
		return nil, m.refreshTokenErr
	}
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if m.staleRead {
		snapshot := *rt
		snapshot.Revoked = false
		snapshot.RevokedAt = nil
		return &snapshot, nil
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id && !token.Revoked {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, user)
	return nil
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, entry *models.AuditLog) {
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour * 24,
		Issuer:             "campus-portal",
		BcryptCost:         bcrypt.MinCost,
	}
}

func hashPassword(t *testing.T, raw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceSignup(t *testing.T) {
	repo := &mockAuthRepo{}
	audit := &recordingAudit{}
	svc := NewAuthService(repo, audit, nil, validator.New(), zap.NewNop(), testAuthConfig())

	info, err := svc.Signup(context.Background(), models.SignupRequest{Email: " Ada@Example.com ", Password: "secret1", FullName: "Ada Lovelace", Role: "faculty"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, info.Role)
	assert.Equal(t, "ada@example.com", info.Email)
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("secret1")))
	assert.Equal(t, []string{models.AuditActionSignup}, audit.actions())
}

func TestAuthServiceSignupDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{createErr: repository.ErrDuplicate}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "ada@example.com", Password: "secret1", FullName: "Ada", Role: "student"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSignupRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "ada@example.com", Password: "secret1", FullName: "Ada", Role: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true, Role: models.RoleStudent}}
	audit := &recordingAudit{}
	svc := NewAuthService(repo, audit, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)
	assert.NotEmpty(t, repo.refreshTokens)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.actions())
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: false}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceFacultySignupRefreshesDirectory(t *testing.T) {
	users := newUserFixture()
	store := newMemoryCache()
	cache := NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	directory := NewUserService(users, cache, nil, nil, validator.New(), zap.NewNop())
	svc := NewAuthService(&mockAuthRepo{}, nil, directory, validator.New(), zap.NewNop(), testAuthConfig())
	ctx := context.Background()

	_, hit, err := directory.Faculty(ctx, "")
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = svc.Signup(ctx, models.SignupRequest{Email: "kid@example.com", Password: "secret1", FullName: "New Student", Role: "student"})
	require.NoError(t, err)
	_, hit, err = directory.Faculty(ctx, "")
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = svc.Signup(ctx, models.SignupRequest{Email: "prof@example.com", Password: "secret1", FullName: "New Professor", Role: "faculty"})
	require.NoError(t, err)
	assert.Empty(t, store.keys())

	_, hit, err = directory.Faculty(ctx, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, users.listCalls)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	user := &models.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash", Active: true, Role: models.RoleFaculty}
	repo.userByEmail = user
	repo.userByID = user
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[token.Token] = token

	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshTokenSingleUse(t *testing.T) {
	user := &models.User{ID: "u1", Email: "user@example.com", Active: true, Role: models.RoleStudent}
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"old": {ID: "rt1", UserID: user.ID, Token: "old", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.NoError(t, err)

	// A concurrent refresh that read the row before it was revoked.
	repo.staleRead = true
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.refreshTokens, 2)
}

func TestAuthServiceRefreshTokenFailsWhenRevokeFails(t *testing.T) {
	user := &models.User{ID: "u1", Email: "user@example.com", Active: true, Role: models.RoleStudent}
	repo := &mockAuthRepo{userByID: user, revokeRefreshErr: errors.New("connection reset"), refreshTokens: map[string]*models.RefreshToken{
		"old": {ID: "rt1", UserID: user.ID, Token: "old", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	for i := 0; i < 2; i++ {
		_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	}
	assert.Len(t, repo.refreshTokens, 1)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"old": {ID: "rt1", UserID: "u1", Token: "old", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"tok": {ID: "rt1", UserID: "owner", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), "tok", "someone-else", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.refreshTokens["tok"].Revoked)

	require.NoError(t, svc.Logout(context.Background(), "tok", "owner", models.RequestMeta{}))
	assert.True(t, repo.refreshTokens["tok"].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash := hashPassword(t, "old")
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", PasswordHash: oldHash, Active: true}}
	audit := &recordingAudit{}
	svc := NewAuthService(repo, audit, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"}, models.RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, repo.userByEmail.PasswordHash)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "10.0.0.1", audit.entries[0].IPAddress)
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())
	user := &models.User{ID: "u1", Email: "user@example.com", FullName: "User", Role: models.RoleFaculty}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsFaculty())

	other := NewAuthService(&mockAuthRepo{}, nil, nil, validator.New(), zap.NewNop(), AuthConfig{AccessTokenSecret: "different", AccessTokenExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}
