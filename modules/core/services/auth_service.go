package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/slug"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/validation"
)

var (
	// ErrInvalidCredentials is the only answer a failed login ever gets.
	ErrInvalidCredentials = serrors.Unauthenticated("INVALID_CREDENTIALS", "invalid credentials")
	ErrAccountNotFound    = serrors.NotFound("ACCOUNT_NOT_FOUND", "no account for this identity in the organization")
	ErrIdentityMismatch   = serrors.Conflict("FEDERATED_IDENTITY_MISMATCH", "account is linked to a different identity")
	ErrInviteInvalid      = serrors.Unauthenticated("INVITE_INVALID", "invite is invalid")
	ErrInviteExpired      = serrors.Unauthenticated("INVITE_EXPIRED", "invite has expired")
)

var ErrInvalidOrgName = serrors.Validation(
	"INVALID_ORGANIZATION_NAME",
	"organization name must contain letters or digits",
).WithField("organizationName", "slug")

type AuthService struct {
	tenants     tenant.Repository
	users       user.Repository
	credentials *CredentialService
	tokens      *TokenService
	broker      IdentityBroker
	publisher   eventbus.EventBus
}

func NewAuthService(
	tenants tenant.Repository,
	users user.Repository,
	credentials *CredentialService,
	tokens *TokenService,
	broker IdentityBroker,
	publisher eventbus.EventBus,
) *AuthService {
	return &AuthService{
		tenants:     tenants,
		users:       users,
		credentials: credentials,
		tokens:      tokens,
		broker:      broker,
		publisher:   publisher,
	}
}

type registration struct {
	org          OrganizationDTO
	email        string
	firstName    string
	lastName     string
	passwordHash string
	federatedID  string
}

// Register creates a tenant and its first SuperAdmin and signs the admin in.
// Nothing is persisted unless every step succeeds.
func (s *AuthService) Register(ctx context.Context, dto *RegisterDTO) (_ *AuthResult, err error) {
	defer func() { recordAuth("register", err) }()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if err := ValidatePassword(dto.Password); err != nil {
		return nil, err
	}
	hash, err := s.credentials.Hash(dto.Password)
	if err != nil {
		return nil, err
	}
	first, last := splitName(dto.AdminName)
	result, err := s.registerTx(ctx, registration{
		org: OrganizationDTO{
			Name:     dto.OrganizationName,
			Country:  dto.Country,
			Currency: dto.Currency,
			Language: dto.Language,
		},
		email:        dto.Email,
		firstName:    first,
		lastName:     last,
		passwordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	s.publishRegistered(result, user.LoginPassword)
	return result, nil
}

func (s *AuthService) registerTx(ctx context.Context, reg registration) (*AuthResult, error) {
	var result *AuthResult
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		result, err = s.register(txCtx, reg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AuthService) register(ctx context.Context, reg registration) (*AuthResult, error) {
	orgSlug := slug.Make(reg.org.Name)
	if orgSlug == "" {
		return nil, ErrInvalidOrgName
	}
	t := tenant.New(reg.org.Name, orgSlug,
		tenant.WithProfile(reg.org.Country, normalizeCurrency(reg.org.Currency), reg.org.Language),
	)
	ctx = tenancy.WithContext(ctx, tenancy.System(t.ID()))

	exists, err := s.tenants.SlugExists(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, tenant.ErrSlugTaken
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailExists(ctx, reg.email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, user.ErrEmailTaken
	}
	admin := user.New(reg.email, reg.firstName, reg.lastName, tenancy.RoleSuperAdmin,
		user.WithTenantID(t.ID()),
		user.WithPasswordHash(reg.passwordHash),
		user.WithFederatedID(reg.federatedID),
	)
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, err
	}
	pair, err := s.tokens.Issue(ctx, admin)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: pair, User: admin, Tenant: t, IsNewUser: true}, nil
}

func (s *AuthService) publishRegistered(result *AuthResult, method user.LoginMethod) {
	s.publisher.Publish(&tenant.RegisteredEvent{
		Tenant:  result.Tenant,
		AdminID: result.User.ID(),
		At:      result.Tenant.CreatedAt(),
	})
	s.publisher.Publish(user.NewLoggedInEvent(result.User, method))
}

// Login verifies a password. Unknown emails, wrong passwords, a slug naming
// another organization and accounts that may not log in all fail the same way.
func (s *AuthService) Login(ctx context.Context, dto *LoginDTO) (_ *AuthResult, err error) {
	defer func() { recordAuth("password", err) }()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	u, err := s.users.FindLoginCandidate(ctx, dto.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		s.credentials.Verify(dto.Password, "")
		return nil, ErrInvalidCredentials
	}
	if dto.TenantSlug != "" {
		t, err := s.tenants.GetBySlug(ctx, slug.Normalize(dto.TenantSlug))
		if err != nil && !errors.Is(err, tenant.ErrNotFound) {
			return nil, err
		}
		if t == nil || t.ID() != u.TenantID() {
			s.credentials.Verify(dto.Password, "")
			return nil, ErrInvalidCredentials
		}
	}
	if !s.credentials.Verify(dto.Password, u.PasswordHash()) || !u.CanLogin() {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(ctx, u, user.LoginPassword)
}

// signIn issues tokens for u inside u's tenant and records the login.
func (s *AuthService) signIn(ctx context.Context, u user.User, method user.LoginMethod) (*AuthResult, error) {
	ctx = tenancy.WithContext(ctx, tenancy.System(u.TenantID()))
	var result *AuthResult
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		t, err := s.tenants.GetByID(txCtx, u.TenantID())
		if err != nil {
			if errors.Is(err, tenant.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if !t.IsActive() {
			return ErrInvalidCredentials
		}
		pair, err := s.tokens.Issue(txCtx, u)
		if err != nil {
			return err
		}
		if err := s.users.UpdateLastLogin(txCtx, u.ID(), s.tokens.now()); err != nil {
			return err
		}
		result = &AuthResult{Tokens: pair, User: u, Tenant: t}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(user.NewLoggedInEvent(u, method))
	return result, nil
}

func (s *AuthService) Refresh(ctx context.Context, dto *RefreshDTO) (_ *AuthResult, err error) {
	defer func() { recordAuth("refresh", err) }()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	pair, u, err := s.tokens.Refresh(ctx, dto.RefreshToken)
	if err != nil {
		return nil, err
	}
	t, err := s.tenants.GetByID(tenancy.WithContext(ctx, tenancy.System(u.TenantID())), u.TenantID())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: pair, User: u, Tenant: t}, nil
}

// FederatedLogin signs in with a provider-verified identity. Only the
// provider's claims are trusted; organization fields are used solely to
// create a new organization.
func (s *AuthService) FederatedLogin(ctx context.Context, dto *FederatedLoginDTO) (_ *AuthResult, err error) {
	defer func() { recordAuth("federated", err) }()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if s.broker == nil {
		return nil, ErrFederationDisabled
	}
	var identity *FederatedIdentity
	if dto.Credential != "" {
		identity, err = s.broker.VerifyCredential(ctx, dto.Credential)
	} else {
		identity, err = s.broker.ExchangeCode(ctx, dto.Code)
	}
	if err != nil {
		return nil, err
	}

	existing, err := s.findFederatedAccount(ctx, identity)
	if err != nil {
		return nil, err
	}

	if !dto.IsNewOrganization {
		if dto.TenantSlug == "" {
			return nil, serrors.Validation(validation.ErrCodeInvalidInput, "request is invalid").
				WithField("tenantSlug", "required")
		}
		t, err := s.tenants.GetBySlug(ctx, slug.Normalize(dto.TenantSlug))
		if err != nil {
			if errors.Is(err, tenant.ErrNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}
		if existing == nil || existing.TenantID() != t.ID() {
			return nil, ErrAccountNotFound
		}
		return s.linkAndSignIn(ctx, existing, identity)
	}

	if existing != nil {
		return s.linkAndSignIn(ctx, existing, identity)
	}
	if dto.Organization == nil {
		return nil, serrors.Validation(validation.ErrCodeInvalidInput, "request is invalid").
			WithField("organization", "required")
	}
	first, last := identity.FirstName, identity.LastName
	if first == "" {
		first, _, _ = strings.Cut(identity.Email, "@")
	}
	result, err := s.registerTx(ctx, registration{
		org:         *dto.Organization,
		email:       identity.Email,
		firstName:   first,
		lastName:    last,
		federatedID: identity.Subject,
	})
	if err != nil {
		return nil, err
	}
	s.publishRegistered(result, user.LoginFederated)
	return result, nil
}

// findFederatedAccount looks the identity up by provider subject first and by
// verified email second. It returns nil when there is no account.
func (s *AuthService) findFederatedAccount(ctx context.Context, identity *FederatedIdentity) (user.User, error) {
	u, err := s.users.FindByFederatedID(ctx, identity.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}
	u, err = s.users.FindLoginCandidate(ctx, identity.Email)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, user.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// linkAndSignIn binds the provider subject to u the first time and activates
// invited accounts. An account already linked to another subject is refused.
func (s *AuthService) linkAndSignIn(ctx context.Context, u user.User, identity *FederatedIdentity) (*AuthResult, error) {
	if u.FederatedID() != "" && u.FederatedID() != identity.Subject {
		return nil, ErrIdentityMismatch
	}
	if u.Status() == user.StatusSuspended {
		return nil, ErrInvalidCredentials
	}
	if u.FederatedID() == "" || u.Status() == user.StatusInvited {
		linked := u.SetFederatedID(identity.Subject).SetStatus(user.StatusActive)
		scoped := tenancy.WithContext(ctx, tenancy.System(u.TenantID()))
		err := composables.InTx(scoped, func(txCtx context.Context) error {
			if err := s.users.Update(txCtx, linked); err != nil {
				return err
			}
			if u.Status() == user.StatusInvited {
				return s.users.SetInvite(txCtx, u.ID(), nil)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		u = linked
	}
	return s.signIn(ctx, u, user.LoginFederated)
}

// WhoAmI hydrates the caller from the store. It reads trust established by
// token validation and grants nothing new.
func (s *AuthService) WhoAmI(ctx context.Context) (*Session, error) {
	tc := tenancy.Use(ctx)
	if !tc.IsUser() {
		return nil, authz.ErrUnauthenticated
	}
	u, err := s.users.GetByID(ctx, tc.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, authz.ErrUnauthenticated
		}
		return nil, err
	}
	t, err := s.tenants.GetByID(ctx, tc.TenantID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tenant: t}, nil
}

// Logout revokes the caller's refresh token. Access tokens stay valid until
// they expire.
func (s *AuthService) Logout(ctx context.Context) error {
	tc := tenancy.Use(ctx)
	if !tc.IsUser() {
		return authz.ErrUnauthenticated
	}
	return s.tokens.Revoke(ctx, tc.UserID)
}

// AcceptInvite activates an invited account with a password and signs it in.
func (s *AuthService) AcceptInvite(ctx context.Context, dto *AcceptInviteDTO) (_ *AuthResult, err error) {
	defer func() { recordAuth("invite", err) }()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if err := ValidatePassword(dto.Password); err != nil {
		return nil, err
	}
	tok, ok := parseOpaqueToken(dto.Token)
	if !ok {
		return nil, ErrInviteInvalid
	}
	hash, err := s.credentials.Hash(dto.Password)
	if err != nil {
		return nil, err
	}
	ctx = tenancy.WithContext(ctx, tenancy.System(tok.TenantID))

	var activated user.User
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		u, err := s.users.GetByID(txCtx, tok.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrInviteInvalid
			}
			return err
		}
		if u.Status() != user.StatusInvited {
			return ErrInviteInvalid
		}
		stored, err := s.users.GetInvite(txCtx, u.ID())
		if err != nil {
			return err
		}
		if stored == nil || !tok.Matches(stored.Digest) {
			return ErrInviteInvalid
		}
		if !s.tokens.now().Before(stored.ExpiresAt) {
			return ErrInviteExpired
		}
		u = u.SetPasswordHash(hash).SetStatus(user.StatusActive)
		if dto.FirstName != "" || dto.LastName != "" {
			u = u.SetName(dto.FirstName, dto.LastName)
		}
		if err := s.users.Update(txCtx, u); err != nil {
			return err
		}
		if err := s.users.SetInvite(txCtx, u.ID(), nil); err != nil {
			return err
		}
		activated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, activated, user.LoginInvite)
}
