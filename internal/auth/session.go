package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, expired claims, malformed payload.
var ErrInvalidToken = errors.New("auth: invalid token")

const (
	// CookieName is the session cookie. Clients never handle the raw JWT.
	CookieName = "token"

	// TokenTTL bounds the signed claims. The cookie may outlive it; the
	// claims are authoritative.
	TokenTTL = 24 * time.Hour

	// CookieMaxAge is the browser-side lifetime of the session cookie.
	CookieMaxAge = 7 * 24 * time.Hour

	issuerName = "invenflow"
)

// Principal identifies the authenticated operator inside a session token.
type Principal struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// Claims is the session JWT payload.
type Claims struct {
	Admin Principal `json:"admin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer builds an Issuer around a secret. An empty secret is a
// configuration error surfaced at startup, not here.
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// NewIssuerWithClock is NewIssuer with an injected time source for tests.
func NewIssuerWithClock(secret []byte, now func() time.Time) *Issuer {
	return &Issuer{secret: secret, now: now}
}

// Issue signs a session token for the principal.
func (i *Issuer) Issue(p Principal) (string, error) {
	now := i.now().UTC()
	claims := Claims{
		Admin: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token and returns its principal.
func (i *Issuer) Verify(token string) (Principal, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(issuerName))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.Admin.ID == "" {
		return Principal{}, ErrInvalidToken
	}
	return claims.Admin, nil
}

// SessionCookie wraps a signed token in the HttpOnly session cookie.
func SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
