package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	Access       AccessConfig
	Decision     DecisionConfig
	Whitelist    WhitelistConfig
	Portfolio    PortfolioConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"PERKGATE_APP_ENV" required:"true"`
	Port          string `envconfig:"PERKGATE_APP_PORT" required:"true"`
	PrimaryDomain string `envconfig:"PERKGATE_APP_PRIMARY_DOMAIN" required:"true"`
	LogLevel      string `envconfig:"PERKGATE_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"PERKGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PERKGATE_DB_DSN"`
	Driver string `envconfig:"PERKGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PERKGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"PERKGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PERKGATE_DB_USER"`
	LegacyPassword string `envconfig:"PERKGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PERKGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PERKGATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PERKGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PERKGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PERKGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PERKGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PERKGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PERKGATE_REDIS_ADDR"`
	Password     string        `envconfig:"PERKGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PERKGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PERKGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PERKGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PERKGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PERKGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PERKGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig points at the external identity authority.
type IdentityConfig struct {
	BaseURL       string        `envconfig:"PERKGATE_IDENTITY_BASE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"PERKGATE_IDENTITY_TIMEOUT" default:"5s"`
	SessionCookie string        `envconfig:"PERKGATE_IDENTITY_SESSION_COOKIE" default:"pg_session"`
}

// AccessConfig controls admin gating and the resolution rule chain.
type AccessConfig struct {
	AdminEmails  []string `envconfig:"PERKGATE_ACCESS_ADMIN_EMAILS"`
	AdminDomains []string `envconfig:"PERKGATE_ACCESS_ADMIN_DOMAINS"`

	// ImplicitAdminWhenUnconfigured treats every authenticated user as admin
	// when both allow-lists are empty. Off by default: an empty allow-list
	// must mean "nobody", not "everybody".
	ImplicitAdminWhenUnconfigured bool `envconfig:"PERKGATE_ACCESS_IMPLICIT_ADMIN_WHEN_UNCONFIGURED" default:"false"`
}

// DecisionConfig signs and scopes the client-held decision token.
type DecisionConfig struct {
	Secret     string        `envconfig:"PERKGATE_DECISION_SECRET" required:"true"`
	Issuer     string        `envconfig:"PERKGATE_DECISION_ISSUER" default:"perkgate"`
	CookieName string        `envconfig:"PERKGATE_DECISION_COOKIE" default:"pg_access"`
	TTL        time.Duration `envconfig:"PERKGATE_DECISION_TTL" default:"24h"`
	Secure     bool          `envconfig:"PERKGATE_DECISION_COOKIE_SECURE" default:"true"`
}

type WhitelistConfig struct {
	TTL      time.Duration `envconfig:"PERKGATE_WHITELIST_TTL" default:"5m"`
	PageSize int           `envconfig:"PERKGATE_WHITELIST_PAGE_SIZE" default:"200"`
	Timeout  time.Duration `envconfig:"PERKGATE_WHITELIST_TIMEOUT" default:"5s"`
}

type PortfolioConfig struct {
	BaseURL string        `envconfig:"PERKGATE_PORTFOLIO_BASE_URL"`
	Token   string        `envconfig:"PERKGATE_PORTFOLIO_TOKEN"`
	Timeout time.Duration `envconfig:"PERKGATE_PORTFOLIO_TIMEOUT" default:"5s"`
	Limit   int           `envconfig:"PERKGATE_PORTFOLIO_LIMIT" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PERKGATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PERKGATE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PERKGATE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PERKGATE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PERKGATE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"PERKGATE_PUBSUB_EVENTS_TOPIC" default:"pg-portal-events"`
	EventsSubscription string `envconfig:"PERKGATE_PUBSUB_EVENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PERKGATE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PERKGATE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PERKGATE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
