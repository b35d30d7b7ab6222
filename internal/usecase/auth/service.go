package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	domain "accounts/backend/internal/domain/auth"

	"github.com/google/uuid"
)

const (
	passwordMinLen = 6
	passwordMaxLen = 128
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users   domain.UserRepository
	tokens  TokenManager
	hasher  PasswordHasher
	nowFunc func() time.Time
}

// NewService constructs an auth service.
func NewService(users domain.UserRepository, tokens TokenManager, hasher PasswordHasher) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		nowFunc: time.Now,
	}
}

// NormalizeEmail returns the canonical form used for storage, lookup and
// uniqueness: trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user and returns the persisted entity without a
// password hash. Registration never issues tokens; an explicit login follows.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)

	var fields []domain.FieldError
	if email == "" {
		fields = append(fields, domain.FieldError{Field: "email", Message: "email is required"})
	} else if !emailPattern.MatchString(email) {
		fields = append(fields, domain.FieldError{Field: "email", Message: "email format is invalid"})
	}
	switch {
	case password == "":
		fields = append(fields, domain.FieldError{Field: "password", Message: "password is required"})
	case len(password) < passwordMinLen || len(password) > passwordMaxLen:
		fields = append(fields, domain.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("password must be between %d and %d characters", passwordMinLen, passwordMaxLen),
		})
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields...)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    s.nowFunc().UTC(),
	}

	// Uniqueness is enforced by the store itself, so concurrent registrations
	// of the same email cannot both succeed.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, domain.NewDuplicateEmailError()
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Login validates credentials and returns the user plus a fresh token pair.
// A missing account and a wrong password produce the identical error.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*domain.User, TokenPair, error) {
	email := NormalizeEmail(creds.Email)

	var fields []domain.FieldError
	if email == "" {
		fields = append(fields, domain.FieldError{Field: "email", Message: "email is required"})
	} else if !emailPattern.MatchString(email) {
		fields = append(fields, domain.FieldError{Field: "email", Message: "email format is invalid"})
	}
	if creds.Password == "" {
		fields = append(fields, domain.FieldError{Field: "password", Message: "password is required"})
	}
	if len(fields) > 0 {
		return nil, TokenPair{}, domain.NewValidationError(fields...)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, TokenPair{}, domain.ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}

	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		return nil, TokenPair{}, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, TokenPair{}, err
	}

	return sanitizeUser(user), pair, nil
}

// VerifyAccess validates an access token and returns the current user.
func (s *Service) VerifyAccess(ctx context.Context, token string) (*domain.User, error) {
	return s.verify(ctx, token, KindAccess)
}

// VerifyRefresh validates a refresh token and returns the current user.
func (s *Service) VerifyRefresh(ctx context.Context, token string) (*domain.User, error) {
	return s.verify(ctx, token, KindRefresh)
}

func (s *Service) verify(ctx context.Context, token string, kind TokenKind) (*domain.User, error) {
	claims, err := s.tokens.Verify(token, kind)
	if err != nil {
		return nil, err
	}

	// Re-fetch the subject so deleting an account revokes its outstanding
	// tokens despite the tokens themselves being stateless.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Refresh exchanges a valid refresh token for a brand-new token pair.
// Verification failures propagate unchanged so the transport layer can clear
// stored credentials.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.User, TokenPair, error) {
	user, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, TokenPair{}, err
	}

	return user, pair, nil
}

// Logout is a stateless no-op: tokens are self-contained, so ending a session
// is purely the transport layer discarding them. Always succeeds.
func (s *Service) Logout() error {
	return nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}
