package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Broker       BrokerConfig
	Cache        CacheConfig
	Email        EmailConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	JWT          JWTConfig
}

// Load reads the process environment once, applies the selected deployment
// profile and fails fast on anything the profile requires but did not get.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	profile, err := ParseProfile(cfg.App.Env)
	if err != nil {
		return nil, err
	}
	cfg.App.Env = string(profile)

	if profile == ProfileDev {
		cfg.applyDevDefaults()
	}

	if err := cfg.validate(profile); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", profile, err)
	}
	return &cfg, nil
}

// JWTConfig verifies the access tokens issued by the account service. An
// empty secret leaves every request anonymous.
type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"5"`
}

// Enabled reports whether tokens can be verified.
func (j JWTConfig) Enabled() bool {
	return j.Secret != ""
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8000"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	SecretKey    string   `envconfig:"STOREFRONT_SECRET_KEY"`
	AllowedHosts []string `envconfig:"STOREFRONT_ALLOWED_HOSTS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, string(ProfileDev))
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, string(ProfileProd))
}

// Debug mirrors the profile: only dev runs with debug behaviour.
func (a AppConfig) Debug() bool {
	return a.IsDev()
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BrokerConfig describes the task queue. It lives on Redis, and when no
// dedicated URL is set it shares the cache connection.
type BrokerConfig struct {
	URL         string        `envconfig:"STOREFRONT_BROKER_URL"`
	Queue       string        `envconfig:"STOREFRONT_BROKER_QUEUE" default:"tasks"`
	Concurrency int           `envconfig:"STOREFRONT_BROKER_CONCURRENCY" default:"4"`
	PollTimeout time.Duration `envconfig:"STOREFRONT_BROKER_POLL_TIMEOUT" default:"5s"`
	MaxAttempts int           `envconfig:"STOREFRONT_BROKER_MAX_ATTEMPTS" default:"3"`
	MetricsPort string        `envconfig:"STOREFRONT_WORKER_METRICS_PORT" default:"9091"`
}

type CacheConfig struct {
	TTL time.Duration `envconfig:"STOREFRONT_CACHE_TTL" default:"10m"`
}

type EmailConfig struct {
	Host     string `envconfig:"STOREFRONT_EMAIL_HOST"`
	Port     int    `envconfig:"STOREFRONT_EMAIL_PORT" default:"587"`
	User     string `envconfig:"STOREFRONT_EMAIL_HOST_USER"`
	Password string `envconfig:"STOREFRONT_EMAIL_HOST_PASSWORD"`
	From     string `envconfig:"STOREFRONT_EMAIL_FROM" default:"no-reply@storefront.local"`
}

// Enabled reports whether an SMTP host was configured.
func (e EmailConfig) Enabled() bool {
	return strings.TrimSpace(e.Host) != ""
}

// Addr returns host:port for the SMTP dialer.
func (e EmailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

type FeatureFlagsConfig struct {
	AutoMigrate          bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	MigrateAllowDataLoss bool `envconfig:"STOREFRONT_MIGRATE_ALLOW_DATA_LOSS" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS"`
}

func (c *Config) applyDevDefaults() {
	if c.App.SecretKey == "" {
		c.App.SecretKey = devSecretKey
	}
	if len(c.App.AllowedHosts) == 0 {
		c.App.AllowedHosts = []string{"localhost", "127.0.0.1"}
	}
	if c.DB.DSN == "" && c.DB.LegacyHost == "" {
		if c.DB.IsSQLite() {
			c.DB.DSN = devSQLiteDSN
		} else {
			c.DB.DSN = devPostgresDSN
		}
	}
	if c.Redis.URL == "" && c.Redis.Address == "" {
		c.Redis.URL = devCacheURL
	}
	if c.Broker.URL == "" {
		c.Broker.URL = devBrokerURL
	}
	if c.Email.Host == "" {
		c.Email.Host = "localhost"
		c.Email.Port = 2525
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
}

func (c *Config) validate(profile Profile) error {
	var errs error

	if strings.TrimSpace(c.App.Port) == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	switch strings.ToLower(c.DB.Driver) {
	case DriverPostgres, DriverSQLite:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DriverPostgres, DriverSQLite, c.DB.Driver))
	}

	if profile.ProductionLike() {
		if c.App.SecretKey == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvSecretKey))
		}
		if c.Redis.URL == "" && c.Redis.Address == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", EnvRedisURL))
		}
		if c.DB.IsSQLite() {
			errs = multierr.Append(errs, fmt.Errorf("%s=%s is not allowed in %s", EnvDBDriver, DriverSQLite, profile))
		}
	}

	if !c.DB.IsSQLite() {
		errs = multierr.Append(errs, c.DB.ensureDSN())
	} else if c.DB.DSN == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required for sqlite", EnvDBDSN))
	}

	if c.Broker.URL == "" {
		c.Broker.URL = c.Redis.URL
	}
	if c.Broker.URL == "" && c.Redis.Address == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s or %s is required", EnvBrokerURL, EnvRedisURL))
	}
	if c.JWT.Enabled() && c.JWT.ExpirationMinutes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTExpiration))
	}
	if c.Broker.Concurrency <= 0 {
		errs = multierr.Append(errs, errors.New("broker concurrency must be positive"))
	}

	return errs
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
