package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medconnect/apiserver/types"
)

const userColumns = `id, email, full_name, phone, bio, role,
		admission_year, year_of_study, license_number, specialty,
		password_hash, email_verified, verification_code,
		password_reset_token, password_reset_expires_at,
		avatar_url, avatar_key, created_at, updated_at`

// UserRepository handles persistence for member accounts.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanAccount(row interface{ Scan(...any) error }) (types.Account, error) {
	var account types.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.Phone,
		&account.Bio,
		&account.Role,
		&account.AdmissionYear,
		&account.YearOfStudy,
		&account.LicenseNumber,
		&account.Specialty,
		&account.PasswordHash,
		&account.EmailVerified,
		&account.VerificationCode,
		&account.PasswordResetToken,
		&account.PasswordResetExpiresAt,
		&account.AvatarURL,
		&account.AvatarKey,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.Account, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts an account. A duplicate email yields ErrDuplicate; the
// unique index on the table is the authority, not a prior read.
func (r *UserRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	const query = `
		INSERT INTO users (email, full_name, phone, bio, role,
			admission_year, year_of_study, license_number, specialty,
			password_hash, email_verified, verification_code,
			avatar_url, avatar_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		account.Email,
		account.FullName,
		account.Phone,
		account.Bio,
		account.Role,
		account.AdmissionYear,
		account.YearOfStudy,
		account.LicenseNumber,
		account.Specialty,
		account.PasswordHash,
		account.EmailVerified,
		account.VerificationCode,
		account.AvatarURL,
		account.AvatarKey,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Account{}, ErrDuplicate
		}
		return types.Account{}, err
	}
	return account, nil
}

// UpdateProfile applies a profile update. Only the columns enumerated
// here can change; identity, role, and credential state have their own
// privileged paths. Nil fields keep their current value.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.Account, error) {
	const query = `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
			phone = COALESCE($3, phone),
			bio = COALESCE($4, bio),
			admission_year = COALESCE($5, admission_year),
			year_of_study = COALESCE($6, year_of_study),
			license_number = COALESCE($7, license_number),
			specialty = COALESCE($8, specialty),
			updated_at = $9
		WHERE id = $1
		RETURNING ` + userColumns
	return scanAccount(r.db.QueryRowContext(
		ctx,
		query,
		id,
		update.FullName,
		update.Phone,
		update.Bio,
		update.AdmissionYear,
		update.YearOfStudy,
		update.LicenseNumber,
		update.Specialty,
		time.Now(),
	))
}

// SetPassword stores a new password hash and clears any pending reset.
func (r *UserRepository) SetPassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2,
			password_reset_token = NULL,
			password_reset_expires_at = NULL,
			updated_at = $3
		WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, passwordHash, time.Now())
}

// SetResetToken records a pending password reset with its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_token = $2,
			password_reset_expires_at = $3,
			updated_at = $4
		WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, token, expiresAt, time.Now())
}

// ConsumeResetToken stores the new hash on the account holding an
// unexpired reset token, clearing the token in the same statement.
// Concurrent resets with the same token race to exactly one winner;
// the loser sees ErrNotFound. An expired token also yields ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) error {
	now := time.Now()
	const query = `
		UPDATE users
		SET password_hash = $2,
			password_reset_token = NULL,
			password_reset_expires_at = NULL,
			updated_at = $3
		WHERE password_reset_token = $1
		  AND password_reset_expires_at > $3`
	return r.execExpectingRow(ctx, query, token, passwordHash, now)
}

// SetVerificationCode replaces the pending email verification code.
func (r *UserRepository) SetVerificationCode(ctx context.Context, id int, code string) error {
	const query = `
		UPDATE users
		SET verification_code = $2,
			email_verified = FALSE,
			updated_at = $3
		WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, code, time.Now())
}

// ConsumeVerificationCode marks the account verified if the submitted
// code matches the stored one, clearing the code in the same statement.
func (r *UserRepository) ConsumeVerificationCode(ctx context.Context, email, code string) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE,
			verification_code = NULL,
			updated_at = $3
		WHERE email = $1
		  AND verification_code = $2`
	return r.execExpectingRow(ctx, query, email, code, time.Now())
}

// SetAvatar records the public URL and storage key of the profile picture.
func (r *UserRepository) SetAvatar(ctx context.Context, id int, avatarURL, avatarKey string) error {
	const query = `
		UPDATE users
		SET avatar_url = $2,
			avatar_key = $3,
			updated_at = $4
		WHERE id = $1`
	return r.execExpectingRow(ctx, query, id, avatarURL, avatarKey, time.Now())
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	return r.execExpectingRow(ctx, query, id)
}

func (r *UserRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
