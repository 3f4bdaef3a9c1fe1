package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medconnect/apiserver/types"
)

const adminColumns = `id, full_name, email, role, password_hash, created_at, updated_at`

// AdminRepository handles persistence for administrator accounts.
type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func scanAdmin(row interface{ Scan(...any) error }) (types.Admin, error) {
	var admin types.Admin
	err := row.Scan(
		&admin.ID,
		&admin.FullName,
		&admin.Email,
		&admin.Role,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Admin{}, ErrNotFound
		}
		return types.Admin{}, err
	}
	return admin, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id int) (types.Admin, error) {
	const query = `
		SELECT ` + adminColumns + `
		FROM admins
		WHERE id = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, id))
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (types.Admin, error) {
	const query = `
		SELECT ` + adminColumns + `
		FROM admins
		WHERE email = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts an administrator. A duplicate email yields ErrDuplicate.
func (r *AdminRepository) Create(ctx context.Context, admin types.Admin) (types.Admin, error) {
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const query = `
		INSERT INTO admins (full_name, email, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		admin.FullName,
		admin.Email,
		admin.Role,
		admin.PasswordHash,
		admin.CreatedAt,
		admin.UpdatedAt,
	).Scan(&admin.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Admin{}, ErrDuplicate
		}
		return types.Admin{}, err
	}
	return admin, nil
}

func (r *AdminRepository) List(ctx context.Context) ([]types.Admin, error) {
	const query = `
		SELECT ` + adminColumns + `
		FROM admins
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []types.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

// UpdateFullName is the only self-service mutation an administrator has;
// role and password changes go through their privileged paths.
func (r *AdminRepository) UpdateFullName(ctx context.Context, id int, fullName string) (types.Admin, error) {
	const query = `
		UPDATE admins
		SET full_name = $2,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + adminColumns
	return scanAdmin(r.db.QueryRowContext(ctx, query, id, fullName, time.Now()))
}

// UpdateRole changes an administrator's role. Privileged operation.
func (r *AdminRepository) UpdateRole(ctx context.Context, id int, role string) (types.Admin, error) {
	const query = `
		UPDATE admins
		SET role = $2,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + adminColumns
	return scanAdmin(r.db.QueryRowContext(ctx, query, id, role, time.Now()))
}

func (r *AdminRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM admins WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
