package auth

import (
	"context"

	"tillgate.dev/internal/token"
)

type claimsContextKey struct{}

// ContextWithClaims attaches validated access token claims to the context.
func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts previously attached access token claims.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// PrincipalFromContext returns the authenticated principal id, if any.
func PrincipalFromContext(ctx context.Context) (int64, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	id, err := subjectID(claims)
	if err != nil {
		return 0, false
	}
	return id, true
}
