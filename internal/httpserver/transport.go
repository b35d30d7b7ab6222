package httpserver

import (
	"net/http"
	"strings"

	"accounts/backend/internal/config"
	usecase "accounts/backend/internal/usecase/auth"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// TokenTransport is the policy for carrying tokens between client and
// server. Two policies exist: httpOnly cookies and header/body. Token
// extraction is shared (see requestAccessToken / requestRefreshToken); the
// policy only decides how freshly issued tokens travel back and whether the
// client stores them itself.
type TokenTransport interface {
	// Deliver hands a freshly issued pair to the client.
	Deliver(w http.ResponseWriter, pair usecase.TokenPair)
	// Clear discards any client-held credentials this policy manages.
	// It must not fail the surrounding request.
	Clear(w http.ResponseWriter)
	// TokensInBody reports whether responses should echo tokens in JSON.
	TokensInBody() bool
}

func newTokenTransport(cfg config.Config) TokenTransport {
	if cfg.TokenTransport == config.TransportHeader {
		return &HeaderTransport{}
	}
	return &CookieTransport{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
}

// CookieTransport delivers tokens as httpOnly cookies so browser scripts
// never see them.
type CookieTransport struct {
	Domain string
	Secure bool
}

func (t *CookieTransport) Deliver(w http.ResponseWriter, pair usecase.TokenPair) {
	http.SetCookie(w, t.cookie(accessTokenCookie, pair.AccessToken, pair))
	http.SetCookie(w, t.cookie(refreshTokenCookie, pair.RefreshToken, pair))
}

func (t *CookieTransport) Clear(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   t.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   t.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (t *CookieTransport) TokensInBody() bool { return false }

func (t *CookieTransport) cookie(name, value string, pair usecase.TokenPair) *http.Cookie {
	expires := pair.AccessExpiresAt
	if name == refreshTokenCookie {
		expires = pair.RefreshExpiresAt
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   t.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// HeaderTransport returns tokens in the JSON body and expects the client to
// present the access token as a bearer header and the refresh token in the
// request body. Nothing is stored server-side, so Clear has nothing to do.
type HeaderTransport struct{}

func (t *HeaderTransport) Deliver(http.ResponseWriter, usecase.TokenPair) {}
func (t *HeaderTransport) Clear(http.ResponseWriter)                      {}
func (t *HeaderTransport) TokensInBody() bool                             { return true }

// requestAccessToken extracts the access token from the Authorization header
// or, failing that, the access cookie. Both carriers are always honoured
// regardless of the configured delivery policy.
func requestAccessToken(r *http.Request) string {
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return readCookie(r, accessTokenCookie)
}

// requestRefreshToken extracts the refresh token from the refresh cookie.
// The handler falls back to the request body when the cookie is absent.
func requestRefreshToken(r *http.Request) string {
	return readCookie(r, refreshTokenCookie)
}

func readCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
