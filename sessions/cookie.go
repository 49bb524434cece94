package sessions

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	cookieIssuer  = "lms-quiz-gate"
	cookieKeyInfo = "lms-quiz-gate session cookie v1"
	cookieKeySize = 32
)

// CookieSigner turns a session Token into a tamper-evident cookie value (an
// HS256 JWT whose jti is the token) and back.
type CookieSigner struct {
	key []byte
	now func() time.Time
}

// NewCookieSigner derives the signing key from secret with HKDF-SHA256.
func NewCookieSigner(secret string) (*CookieSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("[sessions NewCookieSigner] empty secret: %w", apperrors.ErrConfiguration)
	}
	key := make([]byte, cookieKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("[sessions NewCookieSigner] derive key: %w", err)
	}
	return &CookieSigner{key: key, now: time.Now}, nil
}

// Sign returns the cookie value for token, valid until expiresAt.
func (c *CookieSigner) Sign(token Token, expiresAt time.Time) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		ID:        string(token),
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[sessions Sign] %w", err)
	}
	return signed, nil
}

// Verify returns the token inside a cookie value. Any tampering, a foreign
// signing method, or an expired cookie yields ErrInvalidCookie.
func (c *CookieSigner) Verify(value string) (Token, error) {
	if value == "" {
		return "", apperrors.ErrInvalidCookie
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			reason = "bad signature"
		}
		return "", fmt.Errorf("%w: %s", apperrors.ErrInvalidCookie, reason)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing session id", apperrors.ErrInvalidCookie)
	}
	return Token(claims.ID), nil
}
