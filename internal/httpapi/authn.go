package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tillgate.dev/internal/auth"
	"tillgate.dev/internal/obs"
	"tillgate.dev/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.auth.Validate(r.Context(), raw, token.KindAccess)
		if err != nil {
			a.writeAuthError(w, r, err)
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeAuthError maps a validation failure to the wire. The issuer, type and
// subject checks all surface as one generic invalid-token response so the
// client cannot probe which check failed; revocations stay distinct so the
// client can show "signed out on another device" instead of a login error.
func (a *API) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenRevoked):
		obs.ValidationFailure("token_revoked")
		writeErrorCode(w, r, http.StatusUnauthorized, "token_revoked", "token has been revoked")
	case errors.Is(err, auth.ErrSessionRevoked):
		obs.ValidationFailure("session_revoked")
		writeErrorCode(w, r, http.StatusUnauthorized, "session_revoked", "session has been revoked")
	case errors.Is(err, auth.ErrSessionNotFound):
		// A refresh against a removed session is treated as revoked.
		obs.ValidationFailure("session_not_found")
		writeErrorCode(w, r, http.StatusUnauthorized, "session_revoked", "session has been revoked")
	case errors.Is(err, token.ErrMalformed):
		obs.ValidationFailure("malformed")
		writeErrorCode(w, r, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
	case errors.Is(err, auth.ErrBadIssuer),
		errors.Is(err, auth.ErrWrongType),
		errors.Is(err, auth.ErrMissingSubject):
		obs.ValidationFailure("claims")
		writeErrorCode(w, r, http.StatusUnauthorized, "invalid_token", "invalid token")
	default:
		writeError(w, r, http.StatusInternalServerError, "authentication error")
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
