package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/services"
	"github.com/medconnect/apiserver/types"
)

// AdminHandler provides administrator management endpoints.
type AdminHandler struct {
	admins *services.AdminService
	creds  *credentials.Service
}

// NewAdminHandler constructs an AdminHandler with the provided dependencies.
func NewAdminHandler(admins *services.AdminService, creds *credentials.Service) *AdminHandler {
	return &AdminHandler{admins: admins, creds: creds}
}

// AdminRouter registers admin routes on the given router. Everything
// except login requires an authenticated administrator.
func AdminRouter(r chi.Router, handler *AdminHandler) {
	r.Post("/login", handler.Login)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(handler.creds), RequireAdminRole)
		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/me", handler.Me)
		r.Patch("/me", handler.UpdateProfile)
		r.Patch("/{id}/role", handler.UpdateRole)
		r.Delete("/{id}", handler.Remove)
	})
}

// RequireAdminRole rejects tokens whose role is not an administrator role.
func RequireAdminRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromContext(r.Context())
		if err != nil || !types.IsAdminRole(claims.Role) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Create registers an administrator. Without a supplied password the
// response carries the generated default password; with one it carries
// an access token.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateAdminInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	admin, token, generated, err := h.admins.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if generated != "" {
		writeSuccess(w, http.StatusCreated, "Admin created successfully", CreateAdminResponse{
			Admin:           admin,
			DefaultPassword: generated,
		})
		return
	}
	writeSuccess(w, http.StatusCreated, "Admin created successfully", CreateAdminResponse{
		Admin:       admin,
		AccessToken: token,
	})
}

// Login verifies administrator credentials and returns a token.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	admin, token, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", CreateAdminResponse{
		Admin:       admin,
		AccessToken: token,
	})
}

// List returns all administrators, most recent first.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Admins fetched successfully", admins)
}

// Me returns the authenticated administrator.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	admin, err := h.admins.Profile(r.Context(), claims.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Admin profile fetched successfully", admin)
}

// UpdateProfile changes the authenticated administrator's display name.
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateAdminProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	admin, err := h.admins.UpdateProfile(r.Context(), claims.ID, req.FullName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Admin profile updated successfully", admin)
}

// UpdateRole changes another administrator's role.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin id")
		return
	}

	var req UpdateAdminRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	admin, err := h.admins.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Admin role updated successfully", admin)
}

// Remove deletes an administrator.
func (h *AdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin id")
		return
	}

	if err := h.admins.Remove(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Admin deleted successfully", nil)
}

type UpdateAdminProfileRequest struct {
	FullName string `json:"fullName"`
}

type UpdateAdminRoleRequest struct {
	Role string `json:"role"`
}

// CreateAdminResponse carries the admin plus either an access token or,
// for generated credentials, the default password to hand over.
type CreateAdminResponse struct {
	Admin           types.Admin `json:"admin"`
	AccessToken     string      `json:"accessToken,omitempty"`
	DefaultPassword string      `json:"defaultPassword,omitempty"`
}
