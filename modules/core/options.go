package core

import (
	"github.com/go-faster/errors"
	"github.com/ulule/limiter/v3"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/middleware"
)

// OptionsFromConfig builds the module options the server runs with.
func OptionsFromConfig(conf *configuration.Configuration) (*ModuleOptions, error) {
	mode := authz.ParseMode(conf.Authz.Mode)
	flags := authz.StaticMode(mode)
	if conf.Authz.FlagConfigPath != "" {
		flags = authz.NewFileFlagProvider(conf.Authz.FlagConfigPath, mode)
	}

	opts := &ModuleOptions{
		Tokens: services.TokenConfig{
			Secret:     []byte(conf.Auth.JWTSecret),
			Issuer:     conf.Auth.Issuer,
			AccessTTL:  conf.Auth.AccessTokenTTL,
			RefreshTTL: conf.Auth.RefreshTokenTTL,
		},
		PasswordCost: conf.Auth.PasswordCost,
		InviteTTL:    conf.Auth.InviteTTL,
		Authz: authz.Config{
			PolicyPath:   conf.Authz.PolicyPath,
			FlagProvider: flags,
			Logger:       conf.Logger(),
		},
		Concurrency:        conf.Provisioning.Concurrency,
		RevealInviteTokens: !conf.IsProduction(),
	}

	if conf.Federation.Enabled() {
		opts.Broker = services.NewOIDCBroker(services.FederationConfig{
			IssuerURL:       conf.Federation.IssuerURL,
			ClientID:        conf.Federation.ClientID,
			ClientSecret:    conf.Federation.ClientSecret,
			RedirectURL:     conf.Federation.RedirectURL,
			ExchangeTimeout: conf.Federation.ExchangeTimeout,
			ExchangeRetries: conf.Federation.ExchangeRetries,
			InitialBackoff:  conf.Federation.InitialBackoff,
		})
	}
	if conf.Prometheus.Enabled {
		opts.MetricsPath = conf.Prometheus.Path
	}

	if conf.RateLimit.Enabled {
		store, err := rateLimitStore(conf)
		if err != nil {
			return nil, err
		}
		if opts.LoginLimit, err = middleware.RateLimit(store, "login", conf.RateLimit.LoginRate); err != nil {
			return nil, err
		}
		if opts.PublicLimit, err = middleware.RateLimit(store, "public", conf.RateLimit.PublicRate); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// rateLimitStore falls back to memory when redis is unreachable at startup.
func rateLimitStore(conf *configuration.Configuration) (limiter.Store, error) {
	if conf.RateLimit.Storage != "redis" {
		return middleware.NewMemoryStore(), nil
	}
	store, err := middleware.NewRedisStore(conf.RateLimit.RedisURL)
	if err != nil {
		if conf.IsProduction() {
			return nil, errors.Wrap(err, "rate limit store")
		}
		conf.Logger().WithError(err).Warn("redis rate limit store unavailable, using memory")
		return middleware.NewMemoryStore(), nil
	}
	return store, nil
}
