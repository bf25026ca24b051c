package core

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence/schema"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/permissions"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/controllers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/metrics"
)

type ModuleOptions struct {
	Tokens       services.TokenConfig
	PasswordCost int
	InviteTTL    time.Duration
	// Broker is nil when federated sign in is not configured.
	Broker      services.IdentityBroker
	Authz       authz.Config
	Concurrency int
	LoginLimit  mux.MiddlewareFunc
	PublicLimit mux.MiddlewareFunc
	// MetricsPath mounts the Prometheus handler when not empty.
	MetricsPath string
	// RevealInviteTokens logs raw invite tokens at debug. Development only.
	RevealInviteTokens bool
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{
		options: opts,
	}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(schema.Migrations)

	tenantRepo := persistence.NewTenantRepository()
	userRepo := persistence.NewUserRepository()
	branchRepo := persistence.NewBranchRepository()

	authzCfg := m.options.Authz
	if authzCfg.Policy == "" && authzCfg.PolicyPath == "" {
		authzCfg.Policy = permissions.Policy
	}
	if authzCfg.Logger == nil {
		authzCfg.Logger = app.Logger()
	}
	authzService, err := authz.NewService(authzCfg)
	if err != nil {
		return err
	}

	credentialService := services.NewCredentialService(m.options.PasswordCost)
	tokenService := services.NewTokenService(m.options.Tokens, userRepo, app.EventPublisher())
	tenantService := services.NewTenantService(tenantRepo)
	authService := services.NewAuthService(
		tenantRepo,
		userRepo,
		credentialService,
		tokenService,
		m.options.Broker,
		app.EventPublisher(),
	)
	branchService := services.NewBranchService(branchRepo, userRepo, authzService)
	userService := services.NewUserService(
		userRepo,
		branchRepo,
		tokenService,
		authzService,
		app.EventPublisher(),
		m.options.InviteTTL,
	)
	provisioningService := services.NewProvisioningService(
		tenantRepo,
		authService,
		branchService,
		userService,
		authzService,
		app.EventPublisher(),
		m.options.Concurrency,
	)
	app.RegisterServices(
		authzService,
		credentialService,
		tokenService,
		tenantService,
		authService,
		branchService,
		userService,
		provisioningService,
	)

	m.registerHandlers(app)

	app.RegisterControllers(
		controllers.NewHealthController(app),
		controllers.NewAuthController(app, m.options.LoginLimit),
		controllers.NewTenantController(app, m.options.PublicLimit),
		controllers.NewOnboardingController(app),
		controllers.NewBranchController(app),
		controllers.NewUsersController(app),
	)
	if m.options.MetricsPath != "" {
		app.RegisterControllers(metrics.NewPrometheusController(m.options.MetricsPath))
	}
	return nil
}

// registerHandlers logs lifecycle events. Invite delivery is out of scope
// here, so the invite handler is where a mailer would plug in.
func (m *Module) registerHandlers(app application.Application) {
	logger := app.Logger()
	reveal := m.options.RevealInviteTokens
	bus := app.EventPublisher()

	bus.Subscribe(func(e *user.InvitedEvent) {
		entry := logger.WithFields(logrus.Fields{
			"tenant-id":  e.User.TenantID(),
			"user-id":    e.User.ID(),
			"invited-by": e.InvitedBy,
			"expires-at": e.ExpiresAt,
		})
		if reveal {
			entry = entry.WithField("invite-token", e.Token)
			entry.Debug("invite issued")
			return
		}
		entry.Info("invite issued")
	})
	bus.Subscribe(func(e *tenant.RegisteredEvent) {
		logger.WithFields(logrus.Fields{
			"tenant-id": e.Tenant.ID(),
			"slug":      e.Tenant.Slug(),
			"admin-id":  e.AdminID,
		}).Info("organization registered")
	})
	bus.Subscribe(func(e *tenant.OnboardedEvent) {
		logger.WithFields(logrus.Fields{
			"tenant-id": e.Tenant.ID(),
			"branches":  e.Branches,
			"invites":   e.Invites,
			"failures":  e.Failures,
			"actor-id":  e.ActorID,
		}).Info("organization onboarded")
	})
	bus.Subscribe(func(e *user.LoggedInEvent) {
		logger.WithFields(logrus.Fields{
			"tenant-id": e.User.TenantID(),
			"user-id":   e.User.ID(),
			"method":    e.Method,
		}).Debug("user signed in")
	})
}

func (m *Module) Name() string {
	return "core"
}
