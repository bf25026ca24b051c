package configuration

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/logging"
)

const (
	Production  = "production"
	Development = "development"

	devJWTSecret = "dev-only-insecure-jwt-secret-change-me"
)

var singleton = sync.OnceValue(func() *Configuration {
	c, err := Load([]string{".env", ".env.local"})
	if err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type DatabaseOptions struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	Path            string        `env:"DB_PATH" envDefault:"./data/pharmacy.db"`
	Name            string        `env:"DB_NAME" envDefault:"pharmacy"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the connection string for the configured driver.
func (d *DatabaseOptions) DSN() string {
	if d.isSQLite() {
		return "file:" + d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

func (d *DatabaseOptions) isSQLite() bool {
	return strings.HasPrefix(strings.ToLower(d.Driver), "sqlite")
}

type AuthOptions struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	Issuer          string        `env:"JWT_ISSUER" envDefault:"thuraya-pharmacy"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	InviteTTL       time.Duration `env:"INVITE_TTL" envDefault:"168h"`
	PasswordCost    int           `env:"PASSWORD_HASH_COST" envDefault:"10"`
}

type FederationOptions struct {
	IssuerURL       string        `env:"OIDC_ISSUER_URL"`
	ClientID        string        `env:"OIDC_CLIENT_ID"`
	ClientSecret    string        `env:"OIDC_CLIENT_SECRET"`
	RedirectURL     string        `env:"OIDC_REDIRECT_URL"`
	ExchangeTimeout time.Duration `env:"FEDERATION_EXCHANGE_TIMEOUT" envDefault:"5s"`
	ExchangeRetries uint64        `env:"FEDERATION_EXCHANGE_RETRIES" envDefault:"3"`
	InitialBackoff  time.Duration `env:"FEDERATION_INITIAL_BACKOFF" envDefault:"200ms"`
}

func (f *FederationOptions) Enabled() bool {
	return f.IssuerURL != "" && f.ClientID != ""
}

type RateLimitOptions struct {
	Enabled    bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	PublicRate string `env:"RATE_LIMIT_PUBLIC" envDefault:"60-M"`
	LoginRate  string `env:"RATE_LIMIT_LOGIN" envDefault:"10-M"`
	Storage    string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL   string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type AuthzOptions struct {
	PolicyPath     string `env:"AUTHZ_POLICY_PATH"`
	FlagConfigPath string `env:"AUTHZ_FLAG_CONFIG"`
	Mode           string `env:"AUTHZ_MODE" envDefault:"enforce"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"thuraya-pharmacy"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type ProvisioningOptions struct {
	Concurrency int `env:"PROVISIONING_CONCURRENCY" envDefault:"4"`
}

type Configuration struct {
	Database      DatabaseOptions
	Auth          AuthOptions
	Federation    FederationOptions
	RateLimit     RateLimitOptions
	Authz         AuthzOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Provisioning  ProvisioningOptions

	ServerPort       int      `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string   `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string   `env:"-"`
	CORSOrigins      []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel         string   `env:"LOG_LEVEL" envDefault:"info"`
	// Empty LOG_PATH logs to stdout only.
	LogPath string `env:"LOG_PATH"`
	// Looked up on every request; a random uuid is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile io.Closer
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func (c *Configuration) IsProduction() bool {
	return c.GoAppEnvironment == Production
}

func Use() *Configuration {
	return singleton()
}

// Load reads the given env files (missing ones are skipped), parses the
// process environment and validates the result.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	n, err := LoadEnv(envFiles)
	if err != nil {
		return nil, err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.LogPath == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	} else {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return nil, err
		}
		c.logFile = f
		c.logger = logger
	}

	if c.IsProduction() {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return c, nil
}

func (c *Configuration) validate() error {
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "pgx", "sqlite3", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER=%q (expected postgres|sqlite3)", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("token TTLs must satisfy 0 < ACCESS_TOKEN_TTL < REFRESH_TOKEN_TTL")
	}
	if c.Provisioning.Concurrency < 1 {
		c.Provisioning.Concurrency = 1
	}
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}
