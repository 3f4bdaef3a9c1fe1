package types

// RegisterRequest is the raw signup payload before role resolution.
// The role-specific fields are optional here; which of them are required
// depends on Role.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Bio      string `json:"bio"`

	AdmissionYear *int    `json:"admissionYear,omitempty"`
	YearOfStudy   *int    `json:"yearOfStudy,omitempty"`
	LicenseNumber *string `json:"licenseNumber,omitempty"`
	Specialty     *string `json:"specialty,omitempty"`
}

// RoleFields is the role-discriminated portion of a creation record.
// Exactly one concrete variant is carried, matching the resolved role,
// so fields belonging to another role can never reach the store.
type RoleFields interface {
	roleFields()
}

// StudentFields are required when registering as a student.
type StudentFields struct {
	AdmissionYear int
	YearOfStudy   int
}

func (StudentFields) roleFields() {}

// ClinicianFields are required when registering as a doctor or a
// global-network member.
type ClinicianFields struct {
	LicenseNumber string
	Specialty     string
}

func (ClinicianFields) roleFields() {}

// CreationRecord is a normalized, validated account-creation input.
// It contains only fields applicable to the resolved role.
type CreationRecord struct {
	Email    string
	Role     string
	FullName string
	Phone    string
	Bio      string
	Fields   RoleFields
}

// Account materializes the record as an Account, without credential state.
func (r CreationRecord) Account() Account {
	account := Account{
		Email:    r.Email,
		Role:     r.Role,
		FullName: r.FullName,
		Phone:    r.Phone,
		Bio:      r.Bio,
	}
	switch f := r.Fields.(type) {
	case StudentFields:
		account.AdmissionYear = &f.AdmissionYear
		account.YearOfStudy = &f.YearOfStudy
	case ClinicianFields:
		account.LicenseNumber = &f.LicenseNumber
		account.Specialty = &f.Specialty
	}
	return account
}
