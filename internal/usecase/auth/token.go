package auth

import "time"

// TokenKind selects which signing secret and lifetime applies to a token.
type TokenKind string

const (
	// KindAccess is the short-lived token presented on API requests.
	KindAccess TokenKind = "access"
	// KindRefresh is the long-lived token exchanged for a new pair.
	KindRefresh TokenKind = "refresh"
)

// TokenPair bundles the two tokens issued on login and refresh. Issuance is
// atomic: callers never observe a pair with only one token populated.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Claims is the identity carried inside a verified token.
type Claims struct {
	UserID string
	Email  string
}

// TokenManager abstracts token issuance and verification.
//
// Verify must distinguish expiry from all other failures: it returns
// domain ErrTokenExpired when the signature checks out but the lifetime has
// passed, and ErrTokenInvalid for anything else.
type TokenManager interface {
	IssuePair(userID, email string) (TokenPair, error)
	Verify(token string, kind TokenKind) (Claims, error)
}

// PasswordHasher abstracts one-way password hashing.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches the stored hash. A malformed
	// hash is a mismatch, never a panic.
	Verify(plaintext, hash string) bool
}
