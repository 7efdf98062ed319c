package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates the two token families issued by the service.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrMalformed indicates the token is structurally invalid, carries a bad
// signature, or is expired.
var ErrMalformed = errors.New("token: malformed or expired")

// Claims is the closed claim set carried by every tillgate token.
//
// RefreshID is set on access tokens minted from a refresh session and names
// the jti of that session's refresh token. It is empty on refresh tokens and
// on access tokens minted through the unlinked legacy path.
type Claims struct {
	TokenType Kind   `json:"token_type"`
	RefreshID string `json:"refresh_jti,omitempty"`
	jwt.RegisteredClaims
}

// Encode serializes and signs the claim set with HMAC-SHA256.
func Encode(claims *Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token: empty signing secret")
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies the signature and structural validity of raw, including
// standard expiry handling against now (nil selects time.Now). Issuer, token
// type and revocation are checked one layer up; the codec only guarantees the
// claims were signed with secret and have not expired.
func Decode(raw string, secret []byte, now func() time.Time) (*Claims, error) {
	if raw == "" {
		return nil, ErrMalformed
	}
	var opts []jwt.ParserOption
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrMalformed
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Lifetime reports the remaining validity window of the claims at now,
// clamped to zero.
func Lifetime(claims *Claims, now time.Time) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
