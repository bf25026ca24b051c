package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coreos/go-oidc"
	"github.com/go-faster/errors"
	"golang.org/x/oauth2"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

var (
	ErrFederationDisabled  = serrors.External("FEDERATION_NOT_CONFIGURED", "identity provider is not configured", false, nil)
	ErrProviderUnavailable = serrors.External("PROVIDER_UNAVAILABLE", "identity provider is unavailable", true, nil)
	ErrProviderResponse    = serrors.External("PROVIDER_BAD_RESPONSE", "identity provider returned an unusable response", false, nil)
	ErrFederatedCredential = serrors.Unauthenticated("FEDERATED_CREDENTIAL_INVALID", "identity provider credential is invalid")
	ErrEmailNotVerified    = serrors.Unauthenticated("EMAIL_NOT_VERIFIED", "identity provider has not verified this email")
)

// FederatedIdentity is what a provider vouches for. Nothing else from the
// client is trusted.
type FederatedIdentity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

type IdentityBroker interface {
	// VerifyCredential checks an ID token the client already holds.
	VerifyCredential(ctx context.Context, rawIDToken string) (*FederatedIdentity, error)
	// ExchangeCode trades an authorization code for provider tokens.
	ExchangeCode(ctx context.Context, code string) (*FederatedIdentity, error)
}

type FederationConfig struct {
	IssuerURL       string
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	ExchangeTimeout time.Duration
	ExchangeRetries uint64
	InitialBackoff  time.Duration
	HTTPClient      *http.Client
}

func (c FederationConfig) Enabled() bool {
	return c.IssuerURL != "" && c.ClientID != ""
}

// OIDCBroker talks to an OpenID Connect provider. Discovery happens on first
// use and is cached; a failed discovery is retried on the next call.
type OIDCBroker struct {
	cfg FederationConfig

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
}

func NewOIDCBroker(cfg FederationConfig) *OIDCBroker {
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = 5 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.ExchangeTimeout}
	}
	return &OIDCBroker{cfg: cfg}
}

// clientContext carries the broker's http client into go-oidc and oauth2.
func (b *OIDCBroker) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, b.cfg.HTTPClient)
}

func (b *OIDCBroker) discover() (*oidc.IDTokenVerifier, *oauth2.Config, error) {
	if !b.cfg.Enabled() {
		return nil, nil, ErrFederationDisabled
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.verifier != nil {
		return b.verifier, b.oauth, nil
	}

	// The remote key set keeps the context it was created with, so the cached
	// provider is built on a context that outlives this request. The http
	// client timeout bounds discovery instead.
	provider, err := oidc.NewProvider(b.clientContext(context.Background()), b.cfg.IssuerURL)
	if err != nil {
		return nil, nil, ErrProviderUnavailable.Wrap(err)
	}
	b.verifier = provider.Verifier(&oidc.Config{ClientID: b.cfg.ClientID})
	b.oauth = &oauth2.Config{
		ClientID:     b.cfg.ClientID,
		ClientSecret: b.cfg.ClientSecret,
		RedirectURL:  b.cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	return b.verifier, b.oauth, nil
}

func (b *OIDCBroker) VerifyCredential(ctx context.Context, rawIDToken string) (*FederatedIdentity, error) {
	verifier, _, err := b.discover()
	if err != nil {
		return nil, err
	}
	return b.verify(ctx, verifier, rawIDToken)
}

func (b *OIDCBroker) verify(ctx context.Context, verifier *oidc.IDTokenVerifier, raw string) (*FederatedIdentity, error) {
	idToken, err := verifier.Verify(b.clientContext(ctx), raw)
	if err != nil {
		return nil, ErrFederatedCredential.Wrap(err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrFederatedCredential.Wrap(err)
	}
	if claims.Email == "" || idToken.Subject == "" {
		return nil, ErrFederatedCredential.WithMessage("identity provider credential carries no email")
	}
	if !claims.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return &FederatedIdentity{
		Subject:   idToken.Subject,
		Email:     user.NormalizeEmail(claims.Email),
		FirstName: strings.TrimSpace(claims.GivenName),
		LastName:  strings.TrimSpace(claims.FamilyName),
	}, nil
}

// ExchangeCode performs the server-to-server code exchange. Each attempt has
// its own timeout; transport failures and 5xx answers are retried with
// exponential backoff, 4xx answers are final.
func (b *OIDCBroker) ExchangeCode(ctx context.Context, code string) (*FederatedIdentity, error) {
	verifier, conf, err := b.discover()
	if err != nil {
		return nil, err
	}
	logger := composables.UseLogger(ctx)

	var token *oauth2.Token
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(b.clientContext(ctx), b.cfg.ExchangeTimeout)
		defer cancel()
		t, err := conf.Exchange(attemptCtx, code)
		if err == nil {
			token = t
			return nil
		}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil && rErr.Response.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(ErrFederatedCredential.Wrap(err))
		}
		logger.WithError(err).WithField("attempt", attempt).Warn("federated code exchange failed")
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.cfg.InitialBackoff
	policy.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, b.cfg.ExchangeRetries), ctx)); err != nil {
		if serrors.IsKind(err, serrors.KindUnauthenticated) {
			return nil, err
		}
		return nil, ErrProviderUnavailable.Wrap(err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, ErrProviderResponse.WithMessage("identity provider returned no id_token")
	}
	return b.verify(ctx, verifier, raw)
}
