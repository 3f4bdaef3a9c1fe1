package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/services"
	"github.com/medconnect/apiserver/internal/store"
	"github.com/medconnect/apiserver/types"
)

// fakeUsers is a minimal in-memory services.UserRepository.
type fakeUsers struct {
	mu       sync.Mutex
	nextID   int
	accounts map[int]types.Account
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{accounts: map[int]types.Account{}}
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return types.Account{}, store.ErrDuplicate
		}
	}
	f.nextID++
	account.ID = f.nextID
	f.accounts[account.ID] = account
	return account, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id int, update types.ProfileUpdate) (types.Account, error) {
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
	f.accounts[id] = account
	return account, nil
}

func (f *fakeUsers) SetPassword(_ context.Context, id int, passwordHash string) error {
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

func (f *fakeUsers) SetResetToken(_ context.Context, id int, token string, expiresAt time.Time) error {
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

func (f *fakeUsers) ConsumeResetToken(_ context.Context, token, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for id, account := range f.accounts {
		if account.PasswordResetToken != nil && *account.PasswordResetToken == token &&
			account.PasswordResetExpiresAt != nil && account.PasswordResetExpiresAt.After(now) {
			account.PasswordHash = passwordHash
			account.PasswordResetToken = nil
			account.PasswordResetExpiresAt = nil
			f.accounts[id] = account
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeUsers) SetVerificationCode(_ context.Context, id int, code string) error {
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

func (f *fakeUsers) ConsumeVerificationCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, account := range f.accounts {
		if account.Email == email && account.VerificationCode != nil && *account.VerificationCode == code {
			account.EmailVerified = true
			account.VerificationCode = nil
			f.accounts[id] = account
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeUsers) SetAvatar(_ context.Context, id int, avatarURL, avatarKey string) error {
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

func (f *fakeUsers) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

type noopMailer struct{}

func (noopMailer) SendPasswordReset(context.Context, string, string) error    { return nil }
func (noopMailer) SendVerificationCode(context.Context, string, string) error { return nil }

func newTestRouter(t *testing.T) (*chi.Mux, *fakeUsers) {
	t.Helper()
	creds, err := credentials.New("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}

	users := newFakeUsers()
	accounts := services.NewAccountService(users, creds, noopMailer{})
	passwords := services.NewPasswordService(users, creds, noopMailer{}, time.Hour)
	avatars := services.NewAvatarService(users, nil)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, NewAuthHandler(accounts, passwords, avatars, creds))
	})
	return router, users
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func registerStudent(t *testing.T, router http.Handler) (string, types.Account) {
	t.Helper()
	rec, resp := doJSON(t, router, http.MethodPost, "/auth/signup", "", map[string]any{
		"email":         "jane@example.com",
		"password":      "hunter22!",
		"role":          types.RoleStudent,
		"fullName":      "Jane Doe",
		"admissionYear": 2021,
		"yearOfStudy":   3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, resp.Message)
	}

	data, _ := json.Marshal(resp.Data)
	var auth AuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	if auth.AccessToken == "" {
		t.Fatal("expected access token in signup response")
	}
	return auth.AccessToken, auth.Account
}

func TestSignupLoginMeFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	token, account := registerStudent(t, router)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "hunter22!",
	})
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("login failed: %d %s", rec.Code, resp.Message)
	}

	rec, resp = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("me failed: %d %s", rec.Code, resp.Message)
	}
	data, _ := json.Marshal(resp.Data)
	var me types.Account
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != account.ID || me.Email != account.Email {
		t.Fatalf("me returned a different account: %+v", me)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestRouter(t)
	registerStudent(t, router)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if resp.Data != nil {
		t.Fatal("expected no data on failed login")
	}
}

func TestSignupMissingStudentFields(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/signup", "", map[string]any{
		"email":    "jane@example.com",
		"password": "hunter22!",
		"role":     types.RoleStudent,
		"fullName": "Jane Doe",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(resp.Message, "admissionYear") || !strings.Contains(resp.Message, "yearOfStudy") {
		t.Fatalf("expected message to name both missing fields, got %q", resp.Message)
	}
}

func TestDuplicateSignupConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	registerStudent(t, router)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/signup", "", map[string]any{
		"email":         "JANE@example.com",
		"password":      "hunter22!",
		"role":          types.RoleStudent,
		"fullName":      "Jane Doe",
		"admissionYear": 2021,
		"yearOfStudy":   3,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, resp.Message)
	}
}

func TestMeRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/auth/me", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

// A profile update smuggling role and password fields must only apply
// the allow-listed ones.
func TestProfileUpdateIgnoresProtectedFields(t *testing.T) {
	router, users := newTestRouter(t)
	token, account := registerStudent(t, router)

	before, _ := users.GetByID(context.Background(), account.ID)

	rec, resp := doJSON(t, router, http.MethodPatch, "/auth/profile", token, map[string]any{
		"role":     "Admin",
		"password": "x",
		"email":    "evil@example.com",
		"fullName": "Y",
	})
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("profile update failed: %d %s", rec.Code, resp.Message)
	}

	after, _ := users.GetByID(context.Background(), account.ID)
	if after.FullName != "Y" {
		t.Fatalf("expected name to change, got %q", after.FullName)
	}
	if after.Role != before.Role {
		t.Fatalf("role escaped the allow-list: %q", after.Role)
	}
	if after.PasswordHash != before.PasswordHash {
		t.Fatal("password escaped the allow-list")
	}
	if after.Email != before.Email {
		t.Fatalf("email escaped the allow-list: %q", after.Email)
	}
}

func TestForgotPasswordIsEnumerationSafe(t *testing.T) {
	router, _ := newTestRouter(t)
	registerStudent(t, router)

	rec, known := doJSON(t, router, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "jane@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec, unknown := doJSON(t, router, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if known.Message != unknown.Message {
		t.Fatalf("forgot password must answer identically: %q vs %q", known.Message, unknown.Message)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	router, users := newTestRouter(t)
	_, account := registerStudent(t, router)

	doJSON(t, router, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "jane@example.com",
	})

	stored, _ := users.GetByID(context.Background(), account.ID)
	if stored.PasswordResetToken == nil {
		t.Fatal("expected a reset token to be stored")
	}

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token":           *stored.PasswordResetToken,
		"newPassword":     "newpass1!",
		"confirmPassword": "different",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on mismatch, got %d (%s)", rec.Code, resp.Message)
	}

	rec, resp = doJSON(t, router, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token":           *stored.PasswordResetToken,
		"newPassword":     "newpass1!",
		"confirmPassword": "newpass1!",
	})
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("reset failed: %d %s", rec.Code, resp.Message)
	}

	rec, resp = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "newpass1!",
	})
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("login with new password failed: %d %s", rec.Code, resp.Message)
	}
}
