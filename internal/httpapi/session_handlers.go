package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tillgate.dev/internal/audit"
	"tillgate.dev/internal/auth"
	"tillgate.dev/internal/device"
	"tillgate.dev/internal/obs"
	"tillgate.dev/internal/session"
)

// sessionEntry is the listing payload rendered by admin and self-service UI.
type sessionEntry struct {
	JTI        string      `json:"jti"`
	Created    time.Time   `json:"created"`
	LastActive time.Time   `json:"last_active"`
	Expires    time.Time   `json:"expires"`
	IPAddress  string      `json:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty"`
	DeviceInfo device.Info `json:"device_info"`
}

func sessionEntries(records []session.Record) []sessionEntry {
	entries := make([]sessionEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, sessionEntry{
			JTI:        rec.JTI,
			Created:    rec.CreatedAt,
			LastActive: rec.LastActiveAt,
			Expires:    rec.ExpiresAt,
			IPAddress:  rec.ClientIP,
			UserAgent:  rec.UserAgent,
			DeviceInfo: rec.Device,
		})
	}
	return entries
}

// principalFromRequest pulls the authenticated principal set by withAuth.
func principalFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return id, true
}

// handleOwnSessions serves the caller's own session collection:
// GET lists, DELETE signs out everywhere.
func (a *API) handleOwnSessions(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listSessions(w, r, principalID)
	case http.MethodDelete:
		a.revokeAllSessions(w, r, principalID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleOwnSessionResource serves /v1/auth/sessions/{jti} and the
// "others" pseudo-resource (sign out everywhere else).
func (a *API) handleOwnSessionResource(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/auth/sessions/"), "/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	if rest == "others" {
		claims, _ := auth.ClaimsFromContext(r.Context())
		if claims == nil || claims.RefreshID == "" {
			writeError(w, r, http.StatusBadRequest, "current token is not linked to a session")
			return
		}
		a.revokeOtherSessions(w, r, principalID, claims.RefreshID)
		return
	}

	a.revokeSession(w, r, principalID, rest)
}

// handlePrincipalScoped serves /v1/principals/{id}/sessions for managers.
func (a *API) handlePrincipalScoped(w http.ResponseWriter, r *http.Request) {
	actorID, ok := principalFromRequest(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/principals/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[1] != "sessions" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	targetID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	allowed, err := a.auth.CanManageSessions(r.Context(), actorID, targetID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "capability check failed")
		return
	}
	if !allowed {
		writeError(w, r, http.StatusForbidden, "not allowed to manage these sessions")
		return
	}

	switch len(parts) {
	case 2:
		switch r.Method {
		case http.MethodGet:
			a.listSessions(w, r, targetID)
		case http.MethodDelete:
			a.revokeAllSessions(w, r, targetID)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case 3:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.revokeSession(w, r, targetID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listSessions(w http.ResponseWriter, r *http.Request, principalID int64) {
	records, err := a.auth.ListSessions(r.Context(), principalID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessionEntries(records),
	})
}

func (a *API) revokeSession(w http.ResponseWriter, r *http.Request, principalID int64, jti string) {
	revoked, err := a.auth.RevokeSessionWithBlacklist(r.Context(), principalID, jti)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session revocation failed")
		return
	}
	if !revoked {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	obs.SessionRevoked("single_blacklist", 1)
	_ = audit.LogEvent(r.Context(), "auth.session.revoked", map[string]any{
		"principal_id": principalID,
		"session_jti":  jti,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) revokeAllSessions(w http.ResponseWriter, r *http.Request, principalID int64) {
	records, err := a.auth.ListSessions(r.Context(), principalID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session revocation failed")
		return
	}
	if err := a.auth.RevokeAllSessions(r.Context(), principalID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session revocation failed")
		return
	}
	obs.SessionRevoked("all", len(records))
	_ = audit.LogEvent(r.Context(), "auth.session.revoked_all", map[string]any{
		"principal_id": principalID,
		"count":        len(records),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) revokeOtherSessions(w http.ResponseWriter, r *http.Request, principalID int64, keep string) {
	records, err := a.auth.ListSessions(r.Context(), principalID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session revocation failed")
		return
	}
	if err := a.auth.RevokeAllSessionsExcept(r.Context(), principalID, keep); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session revocation failed")
		return
	}
	dropped := 0
	for _, rec := range records {
		if rec.JTI != keep {
			dropped++
		}
	}
	obs.SessionRevoked("all_except", dropped)
	_ = audit.LogEvent(r.Context(), "auth.session.revoked_others", map[string]any{
		"principal_id": principalID,
		"kept_jti":     keep,
		"count":        dropped,
	})
	w.WriteHeader(http.StatusNoContent)
}
