package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "user@example.com", "hash", "User", string(models.RoleFaculty), true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, active, last_login, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("User@Example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "User@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesByIDsUsesSingleQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	ada := "6f1c2c1e-8d0a-4f4e-9a57-3d2f1b0c9e11"
	other := "0b7d5a9e-2c4f-4e8b-b1a3-5f6e7d8c9a22"
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "role"}).
		AddRow(ada, "Ada", "ada@example.com", "STUDENT")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, role FROM users WHERE id = ANY($1)")).
		WithArgs(pq.Array([]string{ada, other})).
		WillReturnRows(rows)

	profiles, err := repo.ProfilesByIDs(context.Background(), []string{ada, "not-a-uuid", other})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Ada", profiles[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesByIDsEmptySkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	profiles, err := repo.ProfilesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)

	profiles, err = repo.ProfilesByIDs(context.Background(), []string{"s1", ""})
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDMalformedIDIsNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs("nope").
		WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfilesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "role"}).
		AddRow("f1", "Grace Hopper", "grace@example.com", "FACULTY")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, role FROM users WHERE active = TRUE AND role = $1 AND (LOWER(full_name) LIKE $2 OR LOWER(email) LIKE $2) ORDER BY full_name ASC")).
		WithArgs(models.RoleFaculty, "%grace%").
		WillReturnRows(rows)

	profiles, err := repo.ListProfiles(context.Background(), models.ProfileFilter{Role: models.RoleFaculty, Search: " Grace "})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "dup@example.com", Role: models.RoleStudent, Active: true})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFullNameMissingUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET full_name = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("u1", "New Name", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateFullName(context.Background(), "u1", "New Name", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshTokenConsumesOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	query := regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE")
	mock.ExpectExec(query).WithArgs("rt1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("rt1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "rt1", time.Now()))
	assert.ErrorIs(t, repo.RevokeRefreshToken(context.Background(), "rt1", time.Now()), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
