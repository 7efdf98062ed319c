package auth

import "errors"

// Validation failures are distinct so callers can pick a strategy: expired or
// malformed tokens invite a silent refresh, revocations force re-login, and
// the issuer/type/subject family is surfaced to clients as one generic
// invalid-credential response.
var (
	ErrBadIssuer       = errors.New("auth: token issued by another server")
	ErrWrongType       = errors.New("auth: unexpected token type")
	ErrMissingSubject  = errors.New("auth: token subject missing")
	ErrTokenRevoked    = errors.New("auth: token revoked")
	ErrSessionRevoked  = errors.New("auth: session revoked")
	ErrSessionNotFound = errors.New("auth: session not found")
)
