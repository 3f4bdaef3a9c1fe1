package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/store"
	"github.com/medconnect/apiserver/types"
)

// UserRepository defines persistence operations for member accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.Account, error)
	SetPassword(ctx context.Context, id int, passwordHash string) error
	SetResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string) error
	SetVerificationCode(ctx context.Context, id int, code string) error
	ConsumeVerificationCode(ctx context.Context, email, code string) error
	SetAvatar(ctx context.Context, id int, avatarURL, avatarKey string) error
	Delete(ctx context.Context, id int) error
}

// Mailer dispatches account emails to an external delivery worker.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
	SendVerificationCode(ctx context.Context, to, code string) error
}

// AccountService owns registration, login, and profile use-cases.
type AccountService struct {
	users UserRepository
	creds *credentials.Service
	mail  Mailer
}

func NewAccountService(users UserRepository, creds *credentials.Service, mail Mailer) *AccountService {
	return &AccountService{users: users, creds: creds, mail: mail}
}

// Register validates the signup payload, persists the account, and
// returns it with a signed access token. Validation happens strictly
// before hashing or any store write.
func (s *AccountService) Register(ctx context.Context, req types.RegisterRequest) (types.Account, string, error) {
	record, err := normalizeRegistration(req)
	if err != nil {
		return types.Account{}, "", err
	}

	hash, err := s.creds.HashPassword(req.Password)
	if err != nil {
		return types.Account{}, "", err
	}

	code, err := credentials.NewVerificationCode()
	if err != nil {
		return types.Account{}, "", err
	}

	account := record.Account()
	account.PasswordHash = hash
	account.VerificationCode = &code

	account, err = s.users.Create(ctx, account)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Account{}, "", Conflict("email already exists")
		}
		return types.Account{}, "", err
	}

	// Mail dispatch is best effort; the account is already created.
	if err := s.mail.SendVerificationCode(ctx, account.Email, code); err != nil {
		log.Printf("send verification code to %s: %v", account.Email, err)
	}

	token, err := s.creds.IssueToken(account.ID, account.Email, account.Role)
	if err != nil {
		return types.Account{}, "", err
	}
	return account, token, nil
}

// Login verifies credentials and returns the account with a signed
// access token. Unknown email and wrong password are indistinguishable.
func (s *AccountService) Login(ctx context.Context, email, password string) (types.Account, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return types.Account{}, "", Unauthorized("invalid email or password")
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, "", Unauthorized("invalid email or password")
		}
		return types.Account{}, "", err
	}

	if err := s.creds.CheckPassword(account.PasswordHash, password); err != nil {
		return types.Account{}, "", Unauthorized("invalid email or password")
	}

	token, err := s.creds.IssueToken(account.ID, account.Email, account.Role)
	if err != nil {
		return types.Account{}, "", err
	}
	return account, token, nil
}

// Profile fetches the account for the authenticated member.
func (s *AccountService) Profile(ctx context.Context, id int) (types.Account, error) {
	account, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, NotFound("account does not exist")
		}
		return types.Account{}, err
	}
	return account, nil
}

// UpdateProfile applies a self-service profile update. The update type
// enumerates every mutable field; identity, role, and credential state
// cannot be reached from here.
func (s *AccountService) UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.Account, error) {
	account, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, NotFound("account does not exist")
		}
		return types.Account{}, err
	}
	return account, nil
}

// Delete removes an account. Privileged operation.
func (s *AccountService) Delete(ctx context.Context, id int) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("account does not exist")
		}
		return err
	}
	return nil
}

// normalizeRegistration resolves the role and returns a creation record
// holding only the fields that role demands. Missing role-required
// fields fail here, before any hashing or store access.
func normalizeRegistration(req types.RegisterRequest) (types.CreationRecord, error) {
	record := types.CreationRecord{
		Email:    normalizeEmail(req.Email),
		Role:     strings.TrimSpace(req.Role),
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Bio:      strings.TrimSpace(req.Bio),
	}

	if record.Email == "" || req.Password == "" || record.FullName == "" || record.Role == "" {
		return types.CreationRecord{}, Validation("email, password, fullName and role are required")
	}

	switch record.Role {
	case types.RoleStudent:
		if req.AdmissionYear == nil || req.YearOfStudy == nil {
			return types.CreationRecord{}, Validation("admissionYear and yearOfStudy are compulsory for students")
		}
		record.Fields = types.StudentFields{
			AdmissionYear: *req.AdmissionYear,
			YearOfStudy:   *req.YearOfStudy,
		}
	case types.RoleDoctor, types.RoleGlobalNetwork:
		if req.LicenseNumber == nil || req.Specialty == nil {
			return types.CreationRecord{}, Validation("licenseNumber and specialty are compulsory for doctors / global network members")
		}
		record.Fields = types.ClinicianFields{
			LicenseNumber: *req.LicenseNumber,
			Specialty:     *req.Specialty,
		}
	default:
		return types.CreationRecord{}, Validation(fmt.Sprintf("unknown role %q", record.Role))
	}

	return record, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
