package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Audit         AuditConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
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
	Env          string `envconfig:"ASSETDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ASSETDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASSETDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASSETDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ASSETDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ASSETDESK_DB_DSN"`
	Driver string `envconfig:"ASSETDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ASSETDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ASSETDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASSETDESK_DB_USER"`
	LegacyPassword string `envconfig:"ASSETDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASSETDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASSETDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASSETDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSETDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSETDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSETDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSETDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASSETDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ASSETDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSETDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSETDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSETDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSETDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSETDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSETDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ASSETDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ASSETDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ASSETDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ASSETDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ASSETDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ASSETDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ASSETDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ASSETDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ASSETDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"ASSETDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASSETDESK_AUTO_MIGRATE" default:"false"`
}

type AuditConfig struct {
	RecentLimit int `envconfig:"ASSETDESK_AUDIT_RECENT_LIMIT" default:"500"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ASSETDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ASSETDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASSETDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"ASSETDESK_PUBSUB_EVENTS_TOPIC" default:"ad-resource-events"`
	EventsSubscription string `envconfig:"ASSETDESK_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
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
