package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/isolation"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

var (
	ErrTokenExpired            = serrors.Unauthenticated("TOKEN_EXPIRED", "access token expired")
	ErrTokenInvalid            = serrors.Unauthenticated("TOKEN_INVALID", "access token invalid")
	ErrTokenMalformedSignature = serrors.Unauthenticated("TOKEN_MALFORMED_SIGNATURE", "access token signature is malformed")

	ErrRefreshNotFound = serrors.Unauthenticated("REFRESH_NOT_FOUND", "refresh token not found")
	ErrRefreshExpired  = serrors.Unauthenticated("REFRESH_EXPIRED", "refresh token expired")
	ErrRefreshMismatch = serrors.Unauthenticated("REFRESH_MISMATCH", "refresh token is no longer valid")
)

type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now is overridden in tests.
	Now func() time.Time
}

// Claims are the access token payload. Ids are kept as strings so that a
// validated token reproduces exactly what was signed.
type Claims struct {
	UserID   string `json:"uid"`
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	BranchID string `json:"bid,omitempty"`
	jwt.RegisteredClaims
}

// Tenancy converts the claims into the tenant context of a request.
func (c *Claims) Tenancy() (tenancy.Context, error) {
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil || tenantID == uuid.Nil {
		return tenancy.Anonymous, ErrTokenInvalid
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil || userID == uuid.Nil {
		return tenancy.Anonymous, ErrTokenInvalid
	}
	role, ok := tenancy.ParseRole(c.Role)
	if !ok {
		return tenancy.Anonymous, ErrTokenInvalid
	}
	tc := tenancy.Context{TenantID: tenantID, UserID: userID, Role: role}
	if c.BranchID != "" {
		if tc.BranchID, err = uuid.Parse(c.BranchID); err != nil {
			return tenancy.Anonymous, ErrTokenInvalid
		}
	}
	return tc, nil
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	Claims           *Claims
}

type TokenService struct {
	cfg       TokenConfig
	users     user.Repository
	publisher eventbus.EventBus
	parser    *jwt.Parser
}

func NewTokenService(cfg TokenConfig, users user.Repository, publisher eventbus.EventBus) *TokenService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenService{
		cfg:       cfg,
		users:     users,
		publisher: publisher,
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (s *TokenService) now() time.Time {
	return s.cfg.Now().UTC()
}

// Issue mints a token pair for u and stores the refresh digest in the user's
// single refresh slot, replacing whatever was there.
func (s *TokenService) Issue(ctx context.Context, u user.User) (*TokenPair, error) {
	ctx, err := scopeToUser(ctx, u)
	if err != nil {
		return nil, err
	}
	pair, secret, err := s.mint(u)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, u.ID(), secret); err != nil {
		return nil, errors.Wrap(err, "store refresh token")
	}
	return pair, nil
}

// Validate verifies signature, issuer and expiry of an access token.
func (s *TokenService) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if !errors.As(err, &vErr) {
			return nil, ErrTokenInvalid.Wrap(err)
		}
		switch {
		case vErr.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorMalformed) != 0:
			return nil, ErrTokenMalformedSignature.Wrap(err)
		case vErr.Errors&jwt.ValidationErrorExpired != 0:
			return nil, ErrTokenExpired.Wrap(err)
		default:
			return nil, ErrTokenInvalid.Wrap(err)
		}
	}
	if !claims.VerifyIssuer(s.cfg.Issuer, true) || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Resolve turns a bearer token into a tenant context. Any failure yields
// Anonymous.
func (s *TokenService) Resolve(raw string) (tenancy.Context, error) {
	claims, err := s.Validate(raw)
	if err != nil {
		return tenancy.Anonymous, err
	}
	return claims.Tenancy()
}

// Refresh exchanges a refresh token for a new pair. The stored digest is
// swapped with a compare-and-swap so that of two concurrent calls presenting
// the same token exactly one wins.
func (s *TokenService) Refresh(ctx context.Context, raw string) (*TokenPair, user.User, error) {
	tok, ok := parseOpaqueToken(raw)
	if !ok {
		return nil, nil, ErrRefreshNotFound
	}
	ctx = tenancy.WithContext(ctx, tenancy.System(tok.TenantID))

	u, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrRefreshNotFound
		}
		return nil, nil, err
	}
	if !u.CanLogin() {
		return nil, nil, ErrRefreshNotFound
	}
	stored, err := s.users.GetRefreshToken(ctx, u.ID())
	if err != nil {
		return nil, nil, err
	}
	if stored == nil {
		return nil, nil, ErrRefreshNotFound
	}
	if !tok.Matches(stored.Digest) {
		return nil, nil, ErrRefreshMismatch
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, nil, ErrRefreshExpired
	}

	pair, next, err := s.mint(u)
	if err != nil {
		return nil, nil, err
	}
	swapped, err := s.users.RotateRefreshToken(ctx, u.ID(), stored.Digest, next)
	if err != nil {
		return nil, nil, errors.Wrap(err, "rotate refresh token")
	}
	if !swapped {
		return nil, nil, ErrRefreshMismatch
	}
	s.publisher.Publish(&user.RefreshRotatedEvent{UserID: u.ID(), TenantID: u.TenantID(), At: s.now()})
	return pair, u, nil
}

// Revoke clears the refresh slot of a user in the current tenant.
func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.users.SetRefreshToken(ctx, userID, nil)
}

// NewInvite creates a single-use invite token for u and stores its digest.
func (s *TokenService) NewInvite(ctx context.Context, u user.User, ttl time.Duration) (string, time.Time, error) {
	tok, err := newOpaqueToken(u.TenantID(), u.ID())
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().Add(ttl).Truncate(time.Second)
	if err := s.users.SetInvite(ctx, u.ID(), &user.Secret{Digest: tok.Digest(), ExpiresAt: expiresAt}); err != nil {
		return "", time.Time{}, errors.Wrap(err, "store invite")
	}
	return tok.Raw, expiresAt, nil
}

func (s *TokenService) mint(u user.User) (*TokenPair, *user.Secret, error) {
	now := time.Unix(s.now().Unix(), 0)
	expiresAt := now.Add(s.cfg.AccessTTL)
	claims := &Claims{
		UserID:   u.ID().String(),
		TenantID: u.TenantID().String(),
		Role:     string(u.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   u.ID().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if u.BranchID() != uuid.Nil {
		claims.BranchID = u.BranchID().String()
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sign access token")
	}

	tok, err := newOpaqueToken(u.TenantID(), u.ID())
	if err != nil {
		return nil, nil, err
	}
	refreshExpiresAt := now.Add(s.cfg.RefreshTTL).UTC()
	pair := &TokenPair{
		AccessToken:      access,
		RefreshToken:     tok.Raw,
		ExpiresAt:        expiresAt.UTC(),
		RefreshExpiresAt: refreshExpiresAt,
		Claims:           claims,
	}
	return pair, &user.Secret{Digest: tok.Digest(), ExpiresAt: refreshExpiresAt}, nil
}

// scopeToUser makes sure writes for u happen inside u's tenant. Anonymous
// contexts are narrowed to that tenant; a context for another tenant is
// rejected.
func scopeToUser(ctx context.Context, u user.User) (context.Context, error) {
	tc := tenancy.Use(ctx)
	if tc.IsAnonymous() {
		return tenancy.WithContext(ctx, tenancy.System(u.TenantID())), nil
	}
	if tc.TenantID != u.TenantID() {
		return nil, isolation.ErrTenantMismatch
	}
	return ctx, nil
}
