package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medconnect/apiserver/internal/credentials"
	"github.com/medconnect/apiserver/internal/services"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func claimsFromContext(ctx context.Context) (*credentials.Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(*credentials.Claims)
	if !ok || claims == nil {
		return nil, errors.New("missing claims")
	}
	return claims, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// writeServiceError surfaces a service failure as its status category
// and message. Anything untyped stays a generic internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		writeError(w, svcErr.Status, svcErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
