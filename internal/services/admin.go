package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/store"
	"github.com/medconnect/apiserver/types"
)

// Name of the counter backing generated default admin passwords.
const adminPasswordSequence = "adminDefaultPassword"

// AdminRepository defines persistence operations for administrators.
type AdminRepository interface {
	GetByID(ctx context.Context, id int) (types.Admin, error)
	GetByEmail(ctx context.Context, email string) (types.Admin, error)
	Create(ctx context.Context, admin types.Admin) (types.Admin, error)
	List(ctx context.Context) ([]types.Admin, error)
	UpdateFullName(ctx context.Context, id int, fullName string) (types.Admin, error)
	UpdateRole(ctx context.Context, id int, role string) (types.Admin, error)
	Delete(ctx context.Context, id int) error
}

// SequenceRepository mints strictly increasing values for named counters.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// CreateAdminInput is the administrator-creation payload. Password may
// be empty, in which case a default one is generated.
type CreateAdminInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AdminService owns administrator use-cases.
type AdminService struct {
	admins    AdminRepository
	sequences SequenceRepository
	creds     *credentials.Service
}

func NewAdminService(admins AdminRepository, sequences SequenceRepository, creds *credentials.Service) *AdminService {
	return &AdminService{admins: admins, sequences: sequences, creds: creds}
}

// Create registers an administrator. When no password is supplied, a
// default one is derived from the sequence generator so concurrently
// created admins never share a credential; the generated password is
// returned so an operator can hand it over out-of-band. When a password
// is supplied, an access token is returned instead.
func (s *AdminService) Create(ctx context.Context, input CreateAdminInput) (types.Admin, string, string, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := normalizeEmail(input.Email)
	role := strings.TrimSpace(input.Role)

	if fullName == "" || email == "" || role == "" {
		return types.Admin{}, "", "", Validation("fullName, email and role are required")
	}
	if !types.IsAdminRole(role) {
		return types.Admin{}, "", "", Validation(fmt.Sprintf("unknown admin role %q", role))
	}

	password := input.Password
	generated := ""
	if password == "" {
		n, err := s.sequences.Next(ctx, adminPasswordSequence)
		if err != nil {
			return types.Admin{}, "", "", err
		}
		generated = fmt.Sprintf("Password#%d", n)
		password = generated
	}

	hash, err := s.creds.HashPassword(password)
	if err != nil {
		return types.Admin{}, "", "", err
	}

	admin, err := s.admins.Create(ctx, types.Admin{
		FullName:     fullName,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Admin{}, "", "", Conflict("email already exists")
		}
		return types.Admin{}, "", "", err
	}

	if generated != "" {
		return admin, "", generated, nil
	}

	token, err := s.creds.IssueToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return types.Admin{}, "", "", err
	}
	return admin, token, "", nil
}

// Login verifies administrator credentials and returns a signed token.
func (s *AdminService) Login(ctx context.Context, email, password string) (types.Admin, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return types.Admin{}, "", Unauthorized("invalid login credentials")
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Admin{}, "", Unauthorized("invalid login credentials")
		}
		return types.Admin{}, "", err
	}

	if err := s.creds.CheckPassword(admin.PasswordHash, password); err != nil {
		return types.Admin{}, "", Unauthorized("invalid login credentials")
	}

	token, err := s.creds.IssueToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return types.Admin{}, "", err
	}
	return admin, token, nil
}

func (s *AdminService) List(ctx context.Context) ([]types.Admin, error) {
	return s.admins.List(ctx)
}

func (s *AdminService) Profile(ctx context.Context, id int) (types.Admin, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Admin{}, NotFound("admin with id does not exist")
		}
		return types.Admin{}, err
	}
	return admin, nil
}

// UpdateProfile changes the administrator's display name; nothing else
// is self-service editable.
func (s *AdminService) UpdateProfile(ctx context.Context, id int, fullName string) (types.Admin, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return types.Admin{}, Validation("fullName is required")
	}
	admin, err := s.admins.UpdateFullName(ctx, id, fullName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Admin{}, NotFound("admin with id does not exist")
		}
		return types.Admin{}, err
	}
	return admin, nil
}

// UpdateRole changes an administrator's role. Privileged operation.
func (s *AdminService) UpdateRole(ctx context.Context, id int, role string) (types.Admin, error) {
	role = strings.TrimSpace(role)
	if !types.IsAdminRole(role) {
		return types.Admin{}, Validation(fmt.Sprintf("unknown admin role %q", role))
	}
	admin, err := s.admins.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Admin{}, NotFound("admin with id does not exist")
		}
		return types.Admin{}, err
	}
	return admin, nil
}

// Remove deletes an administrator. Privileged operation.
func (s *AdminService) Remove(ctx context.Context, id int) error {
	if err := s.admins.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("admin with id does not exist")
		}
		return err
	}
	return nil
}
