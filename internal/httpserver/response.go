package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	domain "accounts/backend/internal/domain/auth"
)

// Machine-readable error codes clients branch on. TOKEN_EXPIRED in
// particular tells the client a refresh attempt may still succeed.
const (
	codeTokenExpired = "TOKEN_EXPIRED"
	codeInvalidToken = "INVALID_TOKEN"
	codeForbidden    = "FORBIDDEN"
	codeRateLimited  = "RATE_LIMITED"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields []domain.FieldError `json:"errors,omitempty"`
}

// userResponse is the outward shape of a user. The password hash never
// appears here.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeValidationError(w http.ResponseWriter, status int, verr *domain.ValidationError) {
	writeJSON(w, status, errorResponse{Error: "validation failed", Fields: verr.Fields})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
