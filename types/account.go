package types

import "time"

// Roles an account can register with. The role decides which additional
// fields are required at signup.
const (
	RoleStudent       = "Student"
	RoleDoctor        = "Doctor"
	RoleGlobalNetwork = "GlobalNetwork"
)

// Account represents a registered member of the network.
// It contains identity, role-specific data, credential state, and audit metadata.
type Account struct {
	// ID is the unique identifier of the account.
	ID int `json:"id" db:"id"`

	// Email is the account's unique, lower-cased email address.
	// It is immutable after creation.
	Email string `json:"email" db:"email"`

	// FullName is the member's display name.
	FullName string `json:"fullName" db:"full_name"`

	// Phone is an optional contact number.
	Phone string `json:"phone,omitempty" db:"phone"`

	// Bio is a free-form self description.
	Bio string `json:"bio,omitempty" db:"bio"`

	// Role discriminates the account type (Student, Doctor, GlobalNetwork).
	Role string `json:"role" db:"role"`

	// AdmissionYear and YearOfStudy are set iff Role is Student.
	AdmissionYear *int `json:"admissionYear,omitempty" db:"admission_year"`
	YearOfStudy   *int `json:"yearOfStudy,omitempty" db:"year_of_study"`

	// LicenseNumber and Specialty are set iff Role is Doctor or GlobalNetwork.
	LicenseNumber *string `json:"licenseNumber,omitempty" db:"license_number"`
	Specialty     *string `json:"specialty,omitempty" db:"specialty"`

	// PasswordHash stores the hashed representation of the account's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// EmailVerified reports whether the account confirmed its email address.
	EmailVerified bool `json:"emailVerified" db:"email_verified"`

	// VerificationCode is the pending email-confirmation code, nil once consumed.
	VerificationCode *string `json:"-" db:"verification_code"`

	// PasswordResetToken and PasswordResetExpiresAt track an in-flight
	// password reset. Both are nil outside a reset window.
	PasswordResetToken     *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpiresAt *time.Time `json:"-" db:"password_reset_expires_at"`

	// AvatarURL is the public location of the profile picture, if any.
	AvatarURL string `json:"avatarUrl,omitempty" db:"avatar_url"`

	// AvatarKey is the object-storage key backing AvatarURL.
	AvatarKey string `json:"-" db:"avatar_key"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileUpdate carries the fields a member may change about themselves.
// Anything not listed here (id, email, role, credential and avatar state)
// cannot be touched through a profile update. Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName      *string `json:"fullName"`
	Phone         *string `json:"phone"`
	Bio           *string `json:"bio"`
	AdmissionYear *int    `json:"admissionYear"`
	YearOfStudy   *int    `json:"yearOfStudy"`
	LicenseNumber *string `json:"licenseNumber"`
	Specialty     *string `json:"specialty"`
}
