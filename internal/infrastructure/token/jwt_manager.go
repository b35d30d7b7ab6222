package token

import (
	"errors"
	"fmt"
	"time"

	domain "accounts/backend/internal/domain/auth"
	usecase "accounts/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates HS256-signed access and refresh tokens.
// Each kind is signed with its own secret so a refresh token can never be
// presented where an access token is expected, or the other way round.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	issuer        string
	nowFunc       func() time.Time
}

// NewJWTManager constructs a manager with distinct secrets per token kind.
func NewJWTManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		issuer:        issuer,
		nowFunc:       time.Now,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssuePair creates a signed access/refresh token pair for the subject. The
// pair is issued atomically: any signing failure drops both tokens.
func (m *JWTManager) IssuePair(userID, email string) (usecase.TokenPair, error) {
	now := m.nowFunc().UTC()
	accessExp := now.Add(m.accessExpiry)
	refreshExp := now.Add(m.refreshExpiry)

	access, err := m.sign(userID, email, now, accessExp, m.accessSecret)
	if err != nil {
		return usecase.TokenPair{}, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := m.sign(userID, email, now, refreshExp, m.refreshSecret)
	if err != nil {
		return usecase.TokenPair{}, fmt.Errorf("signing refresh token: %w", err)
	}

	return usecase.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *JWTManager) sign(userID, email string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses and validates the token against the secret for the given
// kind. Expiry is checked here, at verification time; an expired-but-genuine
// token reports ErrTokenExpired while every other failure is ErrTokenInvalid.
func (m *JWTManager) Verify(tokenString string, kind usecase.TokenKind) (usecase.Claims, error) {
	secret := m.accessSecret
	if kind == usecase.KindRefresh {
		secret = m.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return usecase.Claims{}, domain.ErrTokenExpired
		}
		return usecase.Claims{}, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return usecase.Claims{}, domain.ErrTokenInvalid
	}
	return usecase.Claims{UserID: claims.UserID, Email: claims.Email}, nil
}
