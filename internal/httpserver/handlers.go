package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	domain "accounts/backend/internal/domain/auth"
	authusecase "accounts/backend/internal/usecase/auth"
)

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))

	limited := func(h http.Handler) http.Handler { return withRateLimit(h, s.limiter) }
	s.router.Handle("/auth/register", limited(http.HandlerFunc(s.handleRegister)))
	s.router.Handle("/auth/login", limited(http.HandlerFunc(s.handleLogin)))
	s.router.Handle("/auth/refresh", limited(http.HandlerFunc(s.handleRefresh)))
	s.router.Handle("/auth/logout", s.optionalAuth(http.HandlerFunc(s.handleLogout)))
	s.router.Handle("/auth/me", s.requireAuth(http.HandlerFunc(s.handleMe)))

	s.router.Handle("/admin/stats", s.requireAuth(s.requireElevated(http.HandlerFunc(s.handleAdminStats))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := s.authService.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrEmailExists) && errors.As(err, &verr):
			writeValidationError(w, http.StatusConflict, verr)
		case errors.As(err, &verr):
			writeValidationError(w, http.StatusBadRequest, verr)
		default:
			s.internalError(w, r, "register failed", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": newUserResponse(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, pair, err := s.authService.Login(r.Context(), domain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidationError(w, http.StatusBadRequest, verr)
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			s.internalError(w, r, "login failed", err)
		}
		return
	}

	s.transport.Deliver(w, pair)
	s.writeAuthResponse(w, http.StatusOK, user, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	token := requestRefreshToken(r)
	if token == "" {
		var payload struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		token = strings.TrimSpace(payload.RefreshToken)
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "refresh token required")
		return
	}

	user, pair, err := s.authService.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			// The session is over: clear whatever credentials the client
			// still holds before reporting why.
			s.transport.Clear(w)
			writeErrorCode(w, http.StatusUnauthorized, "refresh token expired", codeTokenExpired)
		case errors.Is(err, domain.ErrTokenInvalid):
			s.transport.Clear(w)
			writeErrorCode(w, http.StatusUnauthorized, "invalid refresh token", codeInvalidToken)
		case errors.Is(err, domain.ErrUserNotFound):
			s.transport.Clear(w)
			writeError(w, http.StatusUnauthorized, "user not found")
		default:
			s.internalError(w, r, "refresh failed", err)
		}
		return
	}

	s.transport.Deliver(w, pair)
	s.writeAuthResponse(w, http.StatusOK, user, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	// Logout cannot fail: there is no server-side session, so ending one is
	// just discarding the client-held tokens.
	_ = s.authService.Logout()
	s.transport.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	count, err := s.users.Count(r.Context())
	if err != nil {
		s.internalError(w, r, "counting users failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": count})
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, status int, user *domain.User, pair authusecase.TokenPair) {
	resp := authResponse{User: newUserResponse(user)}
	if s.transport.TokensInBody() {
		resp.AccessToken = pair.AccessToken
		resp.RefreshToken = pair.RefreshToken
	}
	writeJSON(w, status, resp)
}

// requireAuth admits only requests carrying a valid access token and attaches
// the resolved user to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := requestAccessToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization token required")
			return
		}

		user, err := s.authService.VerifyAccess(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				writeErrorCode(w, http.StatusUnauthorized, "token expired", codeTokenExpired)
			case errors.Is(err, domain.ErrTokenInvalid):
				writeErrorCode(w, http.StatusUnauthorized, "invalid token", codeInvalidToken)
			case errors.Is(err, domain.ErrUserNotFound):
				writeError(w, http.StatusUnauthorized, "user not found")
			default:
				s.internalError(w, r, "token verification failed", err)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}

// optionalAuth attaches the user when a valid token is present but never
// rejects: an absent, expired or garbled token simply yields an anonymous
// request.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := requestAccessToken(r); token != "" {
			if user, err := s.authService.VerifyAccess(r.Context(), token); err == nil {
				r = r.WithContext(contextWithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireElevated admits only authenticated users whose email is on the
// configured admin allow-list. It must run inside requireAuth.
func (s *Server) requireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if _, admin := s.adminEmails[user.Email]; !admin {
			writeErrorCode(w, http.StatusForbidden, "admin privileges required", codeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.Error(r.Context(), msg, "error", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

type ctxKeyUser struct{}

func contextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, user)
}

func currentUserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser{}).(*domain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
