package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tillgate.dev/internal/blacklist"
	"tillgate.dev/internal/device"
	"tillgate.dev/internal/directory"
	"tillgate.dev/internal/keyring"
	"tillgate.dev/internal/session"
	"tillgate.dev/internal/token"
)

const (
	defaultIssuer     = "tillgate"
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Service orchestrates token issuance, validation, refresh and revocation.
// It is constructed once at process start with its dependencies and passed
// to request handlers; there is no ambient global state.
type Service struct {
	keys     *keyring.Keyring
	sessions session.Store
	revoked  blacklist.Blacklist
	dir      directory.Directory

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	locks *principalLocks
}

// Option configures Service behavior.
type Option func(*Service)

// WithIssuer overrides the issuer identity embedded in and required of every
// token. Two servers sharing a secret store but carrying different issuers
// reject each other's tokens.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the orchestrator with its four leaf dependencies plus the
// external principal directory.
func NewService(keys *keyring.Keyring, sessions session.Store, revoked blacklist.Blacklist, dir directory.Directory, opts ...Option) *Service {
	s := &Service{
		keys:       keys,
		sessions:   sessions,
		revoked:    revoked,
		dir:        dir,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
		locks:      newPrincipalLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL reports the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// TokenPair is the wire payload handed to clients after a credential
// exchange. RefreshToken is empty on the refresh path, which reuses the
// presented refresh token for the life of the session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresAt    int64  `json:"expires_at"`

	// RefreshJTI identifies the session the pair belongs to. Server-side
	// only; the web layer uses it for its continuity cookie.
	RefreshJTI string `json:"-"`
}

// IssueAccessToken mints an access token for the principal. refreshJTI links
// the token to its refresh session; an empty value is the legacy unlinked
// path kept for callers that predate session tracking. ttl <= 0 selects the
// configured default.
func (s *Service) IssueAccessToken(ctx context.Context, principalID int64, refreshJTI string, ttl time.Duration) (string, time.Time, error) {
	secret, err := s.keys.GetOrCreate(ctx, token.KindAccess)
	if err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	claims := &token.Claims{
		TokenType: token.KindAccess,
		RefreshID: refreshJTI,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := token.Encode(claims, secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken mints a refresh token and records its session. The
// session captures the caller's address, raw user agent and the derived
// device fingerprint.
func (s *Service) IssueRefreshToken(ctx context.Context, principalID int64, client Client) (string, *token.Claims, error) {
	secret, err := s.keys.GetOrCreate(ctx, token.KindRefresh)
	if err != nil {
		return "", nil, err
	}
	now := s.now().UTC()
	claims := &token.Claims{
		TokenType: token.KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := token.Encode(claims, secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign refresh token: %w", err)
	}

	rec := session.Record{
		JTI:          claims.ID,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    claims.ExpiresAt.Time,
		ClientIP:     NormalizeIP(client.IP),
		UserAgent:    client.UserAgent,
		Device:       device.Parse(client.UserAgent, client.PlatformHint),
	}
	unlock := s.locks.lock(principalID)
	defer unlock()
	if err := s.sessions.Add(ctx, principalID, rec); err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssueTokenPair issues the refresh token first, then an access token linked
// to its session. A refresh issuance failure aborts the pair: no access
// token is ever minted without its session on this path.
func (s *Service) IssueTokenPair(ctx context.Context, principalID int64, client Client) (*TokenPair, error) {
	refresh, refreshClaims, err := s.IssueRefreshToken(ctx, principalID, client)
	if err != nil {
		return nil, err
	}
	access, expiresAt, err := s.IssueAccessToken(ctx, principalID, refreshClaims.ID, 0)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt.Unix(),
		RefreshJTI:   refreshClaims.ID,
	}, nil
}

// Validate decodes and fully checks a presented token of the expected kind:
// signature and expiry via the codec, then issuer, type and subject, then
// (access tokens only) the revocation blacklist. A blacklisted refresh jti
// invalidates every access token ever minted under that session, including
// ones the revocation never saw.
func (s *Service) Validate(ctx context.Context, raw string, kind token.Kind) (*token.Claims, error) {
	secret, err := s.keys.GetOrCreate(ctx, kind)
	if err != nil {
		return nil, err
	}
	claims, err := token.Decode(raw, secret, s.now)
	if err != nil {
		return nil, err
	}
	if claims.Issuer != s.issuer {
		return nil, ErrBadIssuer
	}
	if claims.TokenType != kind {
		return nil, ErrWrongType
	}
	if _, err := subjectID(claims); err != nil {
		return nil, err
	}
	if kind == token.KindAccess {
		if s.revoked.Contains(claims.ID) {
			return nil, ErrTokenRevoked
		}
		if claims.RefreshID != "" && s.revoked.Contains(claims.RefreshID) {
			return nil, ErrSessionRevoked
		}
	}
	return claims, nil
}

// RefreshAccessToken exchanges a valid refresh token for a fresh access
// token bound to the same session. The session must still exist in the
// store: a removed session predating blacklist coverage is treated as
// revoked. The refresh token itself is never rotated here.
func (s *Service) RefreshAccessToken(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	claims, err := s.Validate(ctx, rawRefresh, token.KindRefresh)
	if err != nil {
		return nil, err
	}
	principalID, err := subjectID(claims)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(principalID)
	defer unlock()

	records, err := s.sessions.List(ctx, principalID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, rec := range records {
		if rec.JTI == claims.ID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	if err := s.sessions.Touch(ctx, principalID, claims.ID, s.now().UTC()); err != nil {
		return nil, err
	}

	access, expiresAt, err := s.IssueAccessToken(ctx, principalID, claims.ID, 0)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Unix(),
		RefreshJTI:  claims.ID,
	}, nil
}

// ListSessions returns the principal's live sessions, most recently active
// first.
func (s *Service) ListSessions(ctx context.Context, principalID int64) ([]session.Record, error) {
	return s.sessions.List(ctx, principalID)
}

// RevokeSession removes one session. Already-issued access tokens for the
// session stay valid until their own expiry; only future refreshes are
// blocked. Use RevokeSessionWithBlacklist for instant invalidation.
func (s *Service) RevokeSession(ctx context.Context, principalID int64, jti string) (bool, error) {
	unlock := s.locks.lock(principalID)
	defer unlock()
	return s.sessions.Remove(ctx, principalID, jti)
}

// RevokeSessionWithBlacklist removes the session and blacklists its jti for
// one access TTL, instantly invalidating every outstanding access token
// linked to it.
func (s *Service) RevokeSessionWithBlacklist(ctx context.Context, principalID int64, jti string) (bool, error) {
	unlock := s.locks.lock(principalID)
	defer unlock()
	removed, err := s.sessions.Remove(ctx, principalID, jti)
	if err != nil || !removed {
		return removed, err
	}
	s.revoked.Put(jti, s.accessTTL)
	return true, nil
}

// RevokeAllSessions blacklists every session of the principal and clears the
// collection.
func (s *Service) RevokeAllSessions(ctx context.Context, principalID int64) error {
	unlock := s.locks.lock(principalID)
	defer unlock()
	records, err := s.sessions.List(ctx, principalID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		s.revoked.Put(rec.JTI, s.accessTTL)
	}
	_, err = s.sessions.RemoveAll(ctx, principalID)
	return err
}

// RevokeAllSessionsExcept blacklists and removes every session other than
// keep. Used for "sign out everywhere else".
func (s *Service) RevokeAllSessionsExcept(ctx context.Context, principalID int64, keep string) error {
	unlock := s.locks.lock(principalID)
	defer unlock()
	records, err := s.sessions.List(ctx, principalID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.JTI == keep {
			continue
		}
		s.revoked.Put(rec.JTI, s.accessTTL)
	}
	return s.sessions.RemoveAllExcept(ctx, principalID, keep)
}

// CanManageSessions reports whether actor may inspect and revoke target's
// sessions: self-service always, otherwise a shop-management capability.
func (s *Service) CanManageSessions(ctx context.Context, actorID, targetID int64) (bool, error) {
	if actorID == targetID {
		return true, nil
	}
	if s.dir == nil {
		return false, nil
	}
	ok, err := s.dir.HasCapability(ctx, actorID, directory.CapabilityManageSessions)
	if err != nil || ok {
		return ok, err
	}
	return s.dir.HasCapability(ctx, actorID, directory.CapabilityManageShop)
}

// subjectID parses the numeric principal id out of the subject claim.
func subjectID(claims *token.Claims) (int64, error) {
	if claims.Subject == "" {
		return 0, ErrMissingSubject
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrMissingSubject
	}
	return id, nil
}

// PrincipalID exposes the parsed subject for handler code.
func PrincipalID(claims *token.Claims) (int64, error) {
	return subjectID(claims)
}
