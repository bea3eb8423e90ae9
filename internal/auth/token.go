// Package auth issues and validates the HS256 bearer tokens the API accepts
// and verifies user credentials against bcrypt hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/webbase/adminapi/internal/user"
)

// Token defaults.
const (
	DefaultIssuer   = "WebBaseApiIssuer"
	DefaultAudience = "WebBaseApiAudience"
	DefaultTTL      = 7 * 24 * time.Hour
	MinSecretLength = 32
)

// ErrUnauthorized is matched by every token validation failure.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when a valid principal lacks the required role.
var ErrForbidden = errors.New("forbidden")

// Reason explains why a token was rejected. It is logged, never shown to
// the caller.
type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonIssuer    Reason = "issuer"
	ReasonAudience  Reason = "audience"
	ReasonExpired   Reason = "expired"
	ReasonUnknown   Reason = "unknown_user"
)

// InvalidTokenError is returned by Validate and Refresh.
type InvalidTokenError struct {
	Reason Reason
	Err    error
}

func (e *InvalidTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid token (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid token (%s)", e.Reason)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

// Is makes every InvalidTokenError match ErrUnauthorized.
func (e *InvalidTokenError) Is(target error) bool { return target == ErrUnauthorized }

// Claims is the signed token payload. TokenID repeats the registered jti.
type Claims struct {
	UserID  int64  `json:"userId"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

// RoleLookup reads a user's current role code.
type RoleLookup interface {
	CurrentRoleCode(ctx context.Context, userID int64) (string, error)
}

// TokenConfig is fixed at startup.
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

// TokenService issues, validates and refreshes HS256 bearer tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	roles    RoleLookup
}

// NewTokenService validates cfg and returns a TokenService. Empty issuer,
// audience and TTL fall back to the defaults.
func NewTokenService(cfg TokenConfig, roles RoleLookup) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenService{
		secret:   secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		roles:    roles,
	}, nil
}

// Issue signs a new token for seed with a fresh jti. Callers must have
// verified the user's credentials first.
func (s *TokenService) Issue(seed Seed) (*Token, error) {
	if seed.UserID <= 0 {
		return nil, errors.New("issuing token: user id is required")
	}

	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	claims := Claims{
		UserID:  seed.UserID,
		Name:    seed.Name,
		Role:    seed.RoleCode,
		TokenID: jti,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(seed.UserID, 10),
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &Token{Value: signed, TokenID: jti, ExpiresAt: expiresAt}, nil
}

// Validate verifies signature, algorithm, issuer, audience and expiry with
// zero clock skew.
func (s *TokenService) Validate(raw string) (*Principal, error) {
	if raw == "" {
		return nil, &InvalidTokenError{Reason: ReasonMalformed, Err: errors.New("token is empty")}
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, &InvalidTokenError{Reason: reasonFor(err), Err: err}
	}

	if claims.UserID <= 0 || claims.ID == "" || claims.TokenID != claims.ID {
		return nil, &InvalidTokenError{Reason: ReasonMalformed, Err: errors.New("claim set is incomplete")}
	}

	return &Principal{
		UserID:    claims.UserID,
		Name:      claims.Name,
		RoleCode:  claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ReasonIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ReasonAudience
	default:
		return ReasonMalformed
	}
}

// Refresh issues a new token for an already validated principal. The role
// is re-read from the store; the previous token is not revoked and stays
// valid until it expires.
func (s *TokenService) Refresh(ctx context.Context, p *Principal) (*Token, error) {
	if p == nil {
		return nil, &InvalidTokenError{Reason: ReasonMalformed, Err: errors.New("no principal")}
	}

	role, err := s.roles.CurrentRoleCode(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, &InvalidTokenError{Reason: ReasonUnknown, Err: err}
		}
		return nil, fmt.Errorf("reading current role: %w", err)
	}

	return s.Issue(Seed{UserID: p.UserID, Name: p.Name, RoleCode: role})
}

// Authorize validates raw and, when requiredRole is set, requires an exact
// role match. Invalid tokens yield ErrUnauthorized; a role mismatch yields
// ErrForbidden together with the principal.
func (s *TokenService) Authorize(raw, requiredRole string) (*Principal, error) {
	p, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}
	if err := CheckRole(p, requiredRole); err != nil {
		return p, err
	}
	return p, nil
}

// CheckRole compares the principal's role claim against requiredRole. An
// empty requiredRole only requires a principal.
func CheckRole(p *Principal, requiredRole string) error {
	if p == nil {
		return ErrUnauthorized
	}
	if requiredRole != "" && p.RoleCode != requiredRole {
		return ErrForbidden
	}
	return nil
}
