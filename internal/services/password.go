package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/store"
)

// PasswordService owns the password and email-verification lifecycle:
// forgot/reset/change password and verify/resend verification code.
// Every password it persists goes through the credential service's hash.
type PasswordService struct {
	users    UserRepository
	creds    *credentials.Service
	mail     Mailer
	resetTTL time.Duration
}

func NewPasswordService(users UserRepository, creds *credentials.Service, mail Mailer, resetTTL time.Duration) *PasswordService {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &PasswordService{users: users, creds: creds, mail: mail, resetTTL: resetTTL}
}

// Forgot starts a password reset. It succeeds regardless of whether the
// email exists so callers cannot enumerate accounts; when it does
// exist, a reset token with an expiry is stored and dispatched by mail.
func (s *PasswordService) Forgot(ctx context.Context, email string) error {
	account, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := credentials.NewResetToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, account.ID, token, expiresAt); err != nil {
		return err
	}

	if err := s.mail.SendPasswordReset(ctx, account.Email, token); err != nil {
		log.Printf("send password reset to %s: %v", account.Email, err)
	}
	return nil
}

// Reset consumes a reset token and stores the new password. The token
// lookup and clear happen in one store operation predicated on the
// expiry, so concurrent resets with the same token get exactly one
// winner.
func (s *PasswordService) Reset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return Validation("confirmPassword does not match newPassword")
	}
	if token == "" || newPassword == "" {
		return Validation("token and newPassword are required")
	}

	hash, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.ConsumeResetToken(ctx, token, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("password reset token is invalid or has expired")
		}
		return err
	}
	return nil
}

// Change replaces the password of an authenticated account after
// verifying the current one.
func (s *PasswordService) Change(ctx context.Context, id int, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return Validation("confirmPassword does not match newPassword")
	}
	if oldPassword == "" || newPassword == "" {
		return Validation("oldPassword and newPassword are required")
	}

	account, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("account does not exist")
		}
		return err
	}

	if err := s.creds.CheckPassword(account.PasswordHash, oldPassword); err != nil {
		return Unauthorized("old password is incorrect")
	}

	hash, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, account.ID, hash)
}

// VerifyEmail marks the account verified if the submitted code matches
// the stored one. Match and clear are a single store operation.
func (s *PasswordService) VerifyEmail(ctx context.Context, email, code string) error {
	if code == "" {
		return Validation("email verification code is invalid")
	}
	if err := s.users.ConsumeVerificationCode(ctx, normalizeEmail(email), code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Validation("email verification code is invalid")
		}
		return err
	}
	return nil
}

// ResendVerifyCode regenerates and dispatches the verification code.
// Like Forgot, it succeeds for unknown emails.
func (s *PasswordService) ResendVerifyCode(ctx context.Context, email string) error {
	account, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if account.EmailVerified {
		return nil
	}

	code, err := credentials.NewVerificationCode()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationCode(ctx, account.ID, code); err != nil {
		return err
	}

	if err := s.mail.SendVerificationCode(ctx, account.Email, code); err != nil {
		log.Printf("send verification code to %s: %v", account.Email, err)
	}
	return nil
}
