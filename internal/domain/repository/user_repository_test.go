package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"notekeeper/internal/common"
	"notekeeper/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userCols = []string{"id", "username", "email", "password", "role", "otp_enabled", "otp_verified", "otp_base32", "otp_auth_url", "created_at"}

func TestUserCreate_AssignsRoleFromInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT INTO users \(username, email, password, role\).*CASE WHEN EXISTS \(SELECT 1 FROM users\).*RETURNING id, role, created_at`).
		WithArgs("alice", "alice@example.com", "hash", model.RoleUser, model.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "created_at"}).AddRow(int64(1), "admin", created))

	u := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, created, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &model.User{Username: "a", Email: "a@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestUserFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	secret := "JBSWY3DPEHPK3PXP"
	mock.ExpectQuery(`SELECT id, username, email, password, role, otp_enabled, otp_verified, otp_base32, otp_auth_url, created_at FROM users WHERE email = \$1`).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(2), "bob", "bob@example.com", "hash", "user", true, false, secret, nil, time.Now()))

	u, err := repo.FindByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.ID)
	assert.True(t, u.OTPEnabled)
	require.NotNil(t, u.OTPBase32)
	assert.Equal(t, secret, *u.OTPBase32)
	assert.Nil(t, u.OTPAuthURL)
}

func TestUserFindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`FROM users ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "alice", "alice@example.com", "h1", "admin", false, false, nil, nil, time.Now()).
			AddRow(int64(2), "bob", "bob@example.com", "h2", "user", false, false, nil, nil, time.Now()))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Role)
	assert.Equal(t, "bob", users[1].Username)
}

func TestUserSetOTP(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	secret, url := "SECRET", "otpauth://totp/x"
	mock.ExpectQuery(`(?s)UPDATE users SET otp_enabled = \$1, otp_verified = \$2, otp_base32 = \$3, otp_auth_url = \$4.*WHERE id = \$5 RETURNING`).
		WithArgs(true, true, &secret, &url, int64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(3), "c", "c@example.com", "h", "user", true, true, secret, url, time.Now()))

	u, err := repo.SetOTP(context.Background(), 3, model.OTPState{Enabled: true, Verified: true, Base32: &secret, AuthURL: &url})
	require.NoError(t, err)
	assert.True(t, u.OTPVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetOTP_RejectsVerifiedWithoutSecret(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	_, err := repo.SetOTP(context.Background(), 3, model.OTPState{Enabled: true, Verified: true})
	require.ErrorIs(t, err, common.ErrValidation)

	secret := "S"
	_, err = repo.SetOTP(context.Background(), 3, model.OTPState{Enabled: false, Verified: true, Base32: &secret})
	require.ErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserMarkOTPVerified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`(?s)UPDATE users SET otp_verified = TRUE\s+WHERE id = \$1 AND otp_enabled AND otp_base32 = \$2 RETURNING`).
		WithArgs(int64(3), "SECRET").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(3), "c", "c@example.com", "h", "user", true, true, "SECRET", "otpauth://totp/x", time.Now()))

	u, err := repo.MarkOTPVerified(context.Background(), 3, "SECRET")
	require.NoError(t, err)
	assert.True(t, u.OTPVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserMarkOTPVerified_SecretReplaced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`UPDATE users SET otp_verified = TRUE`).
		WithArgs(int64(3), "OLD").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.MarkOTPVerified(context.Background(), 3, "OLD")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(int64(6)).WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Delete(context.Background(), 4))
	require.ErrorIs(t, repo.Delete(context.Background(), 5), common.ErrNotFound)
	err := repo.Delete(context.Background(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserUpdatePassword(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgUserRepository(db)

	mock.ExpectExec(`UPDATE users SET password = \$1 WHERE id = \$2`).
		WithArgs("newhash", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 1, "newhash"))
}
