package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notekeeper/internal/common"
	"notekeeper/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetOTP(ctx context.Context, id int64, state model.OTPState) (*model.User, error)
	MarkOTPVerified(ctx context.Context, id int64, secret string) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

const userColumns = `id, username, email, password, role, otp_enabled, otp_verified, otp_base32, otp_auth_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.OTPEnabled, &u.OTPVerified, &u.OTPBase32, &u.OTPAuthURL, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

// Create inserts user. The role is decided by the same statement: the first
// row in an empty table becomes admin. ID, Role and CreatedAt are filled in.
func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (username, email, password, role)
	          VALUES ($1, $2, $3, CASE WHEN EXISTS (SELECT 1 FROM users) THEN $4 ELSE $5 END)
	          RETURNING id, role, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, model.RoleUser, model.RoleAdmin).
		Scan(&user.ID, &user.Role, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.List: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.List scan: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.List rows: %w", err)
	}
	return users, nil
}

// SetOTP overwrites all two-factor columns at once and returns the updated row.
func (r *pgUserRepository) SetOTP(ctx context.Context, id int64, state model.OTPState) (*model.User, error) {
	if err := validateOTPState(state); err != nil {
		return nil, err
	}
	query := `UPDATE users SET otp_enabled = $1, otp_verified = $2, otp_base32 = $3, otp_auth_url = $4
	          WHERE id = $5 RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, state.Enabled, state.Verified, state.Base32, state.AuthURL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.SetOTP: %w", err)
	}
	return user, nil
}

// MarkOTPVerified flags the secret as verified only if it is still the one
// stored for the user. A secret replaced in the meantime yields ErrNotFound.
func (r *pgUserRepository) MarkOTPVerified(ctx context.Context, id int64, secret string) (*model.User, error) {
	query := `UPDATE users SET otp_verified = TRUE
	          WHERE id = $1 AND otp_enabled AND otp_base32 = $2 RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, secret))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.MarkOTPVerified: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdatePassword: %w", err)
	}
	return requireAffected(res)
}

// Delete removes the user; owned notes go with it through the foreign key.
func (r *pgUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	return requireAffected(res)
}

func validateOTPState(s model.OTPState) error {
	if s.Verified && (!s.Enabled || s.Base32 == nil || *s.Base32 == "") {
		return fmt.Errorf("otp cannot be verified without an enabled secret: %w", common.ErrValidation)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
