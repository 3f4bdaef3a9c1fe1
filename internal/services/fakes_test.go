package services

import (
	"context"
	"sync"
	"time"

	"github.com/medconnect/apiserver/internal/store"
	"github.com/medconnect/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository honoring the store's
// uniqueness and predicated-update semantics.
type fakeUserRepo struct {
	mu       sync.Mutex
	nextID   int
	accounts map[int]types.Account
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{accounts: map[int]types.Account{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return types.Account{}, store.ErrDuplicate
		}
	}
	f.nextID++
	account.ID = f.nextID
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	f.accounts[account.ID] = account
	return account, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int, update types.ProfileUpdate) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	if update.FullName != nil {
		account.FullName = *update.FullName
	}
	if update.Phone != nil {
		account.Phone = *update.Phone
	}
	if update.Bio != nil {
		account.Bio = *update.Bio
	}
	if update.AdmissionYear != nil {
		account.AdmissionYear = update.AdmissionYear
	}
	if update.YearOfStudy != nil {
		account.YearOfStudy = update.YearOfStudy
	}
	if update.LicenseNumber != nil {
		account.LicenseNumber = update.LicenseNumber
	}
	if update.Specialty != nil {
		account.Specialty = update.Specialty
	}
	account.UpdatedAt = time.Now()
	f.accounts[id] = account
	return account, nil
}

func (f *fakeUserRepo) SetPassword(_ context.Context, id int, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.PasswordResetToken = nil
	account.PasswordResetExpiresAt = nil
	f.accounts[id] = account
	return nil
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, id int, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	account.PasswordResetToken = &token
	account.PasswordResetExpiresAt = &expiresAt
	f.accounts[id] = account
	return nil
}

func (f *fakeUserRepo) ConsumeResetToken(_ context.Context, token, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for id, account := range f.accounts {
		if account.PasswordResetToken == nil || *account.PasswordResetToken != token {
			continue
		}
		if account.PasswordResetExpiresAt == nil || !account.PasswordResetExpiresAt.After(now) {
			continue
		}
		account.PasswordHash = passwordHash
		account.PasswordResetToken = nil
		account.PasswordResetExpiresAt = nil
		f.accounts[id] = account
		return nil
	}
	return store.ErrNotFound
}

func (f *fakeUserRepo) SetVerificationCode(_ context.Context, id int, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	account.VerificationCode = &code
	account.EmailVerified = false
	f.accounts[id] = account
	return nil
}

func (f *fakeUserRepo) ConsumeVerificationCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, account := range f.accounts {
		if account.Email != email {
			continue
		}
		if account.VerificationCode == nil || *account.VerificationCode != code {
			return store.ErrNotFound
		}
		account.EmailVerified = true
		account.VerificationCode = nil
		f.accounts[id] = account
		return nil
	}
	return store.ErrNotFound
}

func (f *fakeUserRepo) SetAvatar(_ context.Context, id int, avatarURL, avatarKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	account.AvatarURL = avatarURL
	account.AvatarKey = avatarKey
	f.accounts[id] = account
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts)
}

// fakeMailer records dispatched emails.
type fakeMailer struct {
	mu     sync.Mutex
	resets []string
	codes  []string
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, to+":"+token)
	return nil
}

func (f *fakeMailer) SendVerificationCode(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, to+":"+code)
	return nil
}

// fakeAdminRepo is an in-memory AdminRepository.
type fakeAdminRepo struct {
	mu     sync.Mutex
	nextID int
	admins map[int]types.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: map[int]types.Admin{}}
}

func (f *fakeAdminRepo) GetByID(_ context.Context, id int) (types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	admin, ok := f.admins[id]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	return admin, nil
}

func (f *fakeAdminRepo) GetByEmail(_ context.Context, email string) (types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, admin := range f.admins {
		if admin.Email == email {
			return admin, nil
		}
	}
	return types.Admin{}, store.ErrNotFound
}

func (f *fakeAdminRepo) Create(_ context.Context, admin types.Admin) (types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.admins {
		if existing.Email == admin.Email {
			return types.Admin{}, store.ErrDuplicate
		}
	}
	f.nextID++
	admin.ID = f.nextID
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	f.admins[admin.ID] = admin
	return admin, nil
}

func (f *fakeAdminRepo) List(_ context.Context) ([]types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	admins := make([]types.Admin, 0, len(f.admins))
	for _, admin := range f.admins {
		admins = append(admins, admin)
	}
	return admins, nil
}

func (f *fakeAdminRepo) UpdateFullName(_ context.Context, id int, fullName string) (types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	admin, ok := f.admins[id]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	admin.FullName = fullName
	f.admins[id] = admin
	return admin, nil
}

func (f *fakeAdminRepo) UpdateRole(_ context.Context, id int, role string) (types.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	admin, ok := f.admins[id]
	if !ok {
		return types.Admin{}, store.ErrNotFound
	}
	admin.Role = role
	f.admins[id] = admin
	return admin, nil
}

func (f *fakeAdminRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.admins[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.admins, id)
	return nil
}

// fakeSequenceRepo mints values under a lock, mirroring the atomic
// upsert-increment contract of the real repository.
type fakeSequenceRepo struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{values: map[string]int64{}}
}

func (f *fakeSequenceRepo) Next(_ context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name]++
	return f.values[name], nil
}
