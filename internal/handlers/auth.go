package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/services"
	"github.com/medconnect/apiserver/types"
)

const maxAvatarBytes = 5 << 20

// AuthHandler provides account registration, login, profile, and
// password lifecycle endpoints.
type AuthHandler struct {
	accounts  *services.AccountService
	passwords *services.PasswordService
	avatars   *services.AvatarService
	creds     *credentials.Service
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(accounts *services.AccountService, passwords *services.PasswordService, avatars *services.AvatarService, creds *credentials.Service) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		passwords: passwords,
		avatars:   avatars,
		creds:     creds,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/signup", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/verify-email", handler.VerifyEmail)
	r.Post("/resend-verify-code", handler.ResendVerifyCode)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/me", handler.Me)
		r.Patch("/profile", handler.UpdateProfile)
		r.Post("/change-password", handler.ChangePassword)
		r.Post("/avatar", handler.UploadAvatar)
		r.Delete("/avatar", handler.RemoveAvatar)
	})
}

// RequireAuth enforces a valid bearer token and injects the verified
// claims into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return RequireAuth(h.creds)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(creds *credentials.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := creds.VerifyToken(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a member account and returns it with an access token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, token, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Registration successful", AuthResponse{
		AccessToken: token,
		Account:     account,
	})
}

// Login verifies credentials and returns the account with a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", AuthResponse{
		AccessToken: token,
		Account:     account,
	})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, err := h.accounts.Profile(r.Context(), claims.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile fetched successfully", account)
}

// UpdateProfile applies a self-service profile update. Fields outside
// the profile allow-list are ignored by decoding into ProfileUpdate.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var update types.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.UpdateProfile(r.Context(), claims.ID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile updated successfully", account)
}

// VerifyEmail confirms an email address with the submitted code.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.passwords.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Email verified successfully", nil)
}

// ResendVerifyCode regenerates and dispatches the verification code.
func (h *AuthHandler) ResendVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.passwords.ResendVerifyCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Verify code resent successfully", nil)
}

// ForgotPassword starts a password reset. The response is identical
// whether or not the email exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.passwords.Forgot(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset token has been sent to your email", nil)
}

// ResetPassword consumes a reset token and stores the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.passwords.Reset(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset successful", nil)
}

// ChangePassword replaces the authenticated account's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.passwords.Change(r.Context(), claims.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

// UploadAvatar stores a profile picture submitted as multipart form data.
func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := h.avatars.Upload(r.Context(), claims.ID, header.Filename, contentType, file, header.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Avatar uploaded successfully", map[string]string{"avatarUrl": url})
}

// RemoveAvatar deletes the stored profile picture.
func (h *AuthHandler) RemoveAvatar(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.avatars.Remove(r.Context(), claims.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Avatar removed successfully", nil)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResponse pairs an account with its freshly issued access token.
type AuthResponse struct {
	AccessToken string        `json:"accessToken"`
	Account     types.Account `json:"account"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
