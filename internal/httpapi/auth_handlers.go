package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tillgate.dev/internal/audit"
	"tillgate.dev/internal/auth"
	"tillgate.dev/internal/directory"
	"tillgate.dev/internal/obs"
)

// sessionCookie carries the refresh jti for browser clients so a new login
// from the same browser replaces its previous session instead of piling up
// one session per page load.
const sessionCookie = "tillgate_session"

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	// Platform is the explicit hint sent by native clients:
	// "ios", "android", "electron" or "web". Browsers omit it.
	Platform string `json:"platform"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "login and password are required")
		return
	}

	principal, err := a.dir.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication failed")
		return
	}

	// Routine hygiene for browsers: a cookie from a prior login means that
	// session is being replaced, so drop it before issuing the new pair.
	// The blacklisting variant is deliberately not used here.
	if isWebClient(req.Platform) {
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			_, _ = a.auth.RevokeSession(r.Context(), principal.ID, c.Value)
		}
	}

	pair, err := a.auth.IssueTokenPair(r.Context(), principal.ID, auth.Client{
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
		PlatformHint: req.Platform,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	obs.TokenIssued("access")
	obs.TokenIssued("refresh")

	if isWebClient(req.Platform) {
		a.setSessionCookie(w, pair.RefreshJTI)
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"principal_id": principal.ID,
		"login":        principal.Login,
		"platform":     req.Platform,
	})

	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := a.auth.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeAuthError(w, r, err)
		return
	}
	obs.TokenIssued("access")

	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"session_jti": pair.RefreshJTI,
	})

	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	principalID, err := auth.PrincipalID(claims)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	revoked := false
	if claims.RefreshID != "" {
		revoked, err = a.auth.RevokeSessionWithBlacklist(r.Context(), principalID, claims.RefreshID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "logout failed")
			return
		}
		if revoked {
			obs.SessionRevoked("single_blacklist", 1)
		}
	}

	a.clearSessionCookie(w)

	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"session_jti": claims.RefreshID,
		"revoked":     revoked,
	})

	writeJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
}

func (a *API) setSessionCookie(w http.ResponseWriter, jti string) {
	if jti == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    jti,
		Path:     "/v1/auth",
		Expires:  time.Now().Add(a.auth.RefreshTTL()),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func isWebClient(platform string) bool {
	return platform == "" || platform == "web"
}
