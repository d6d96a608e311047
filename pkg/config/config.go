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
	Cart          CartConfig
	Checkout      CheckoutConfig
	Inventory     InventoryConfig
	Cron          CronConfig
	CORS          CORSConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PETFINDER_APP_ENV" required:"true"`
	Port         string `envconfig:"PETFINDER_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"PETFINDER_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"PETFINDER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PETFINDER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PETFINDER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PublicPetURL builds the public profile link encoded into pet tags.
func (a AppConfig) PublicPetURL(qrID string) string {
	return strings.TrimRight(a.BaseURL, "/") + "/p/" + url.PathEscape(qrID)
}

type ServiceConfig struct {
	Kind string `envconfig:"PETFINDER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PETFINDER_DB_DSN"`
	Driver string `envconfig:"PETFINDER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PETFINDER_DB_HOST"`
	LegacyPort     int    `envconfig:"PETFINDER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PETFINDER_DB_USER"`
	LegacyPassword string `envconfig:"PETFINDER_DB_PASSWORD"`
	LegacyName     string `envconfig:"PETFINDER_DB_NAME"`
	LegacySSLMode  string `envconfig:"PETFINDER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PETFINDER_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PETFINDER_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PETFINDER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PETFINDER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PETFINDER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PETFINDER_REDIS_ADDR"`
	Password     string        `envconfig:"PETFINDER_REDIS_PASSWORD"`
	DB           int           `envconfig:"PETFINDER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PETFINDER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PETFINDER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PETFINDER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PETFINDER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PETFINDER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PETFINDER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PETFINDER_JWT_ISSUER" default:"petfinder"`
	ExpirationMinutes      int    `envconfig:"PETFINDER_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int    `envconfig:"PETFINDER_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PETFINDER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PETFINDER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PETFINDER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PETFINDER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PETFINDER_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PETFINDER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PETFINDER_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PETFINDER_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PETFINDER_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PETFINDER_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PETFINDER_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PETFINDER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PETFINDER_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	CookieName   string        `envconfig:"PETFINDER_CART_COOKIE_NAME" default:"pf_cart"`
	CookieTTL    time.Duration `envconfig:"PETFINDER_CART_COOKIE_TTL" default:"720h"`
	CookieSecure bool          `envconfig:"PETFINDER_CART_COOKIE_SECURE" default:"false"`
}

type CheckoutConfig struct {
	OrderNumberAttempts int           `envconfig:"PETFINDER_CHECKOUT_ORDER_NUMBER_ATTEMPTS" default:"5"`
	PendingOrderTTL     time.Duration `envconfig:"PETFINDER_CHECKOUT_PENDING_ORDER_TTL" default:"72h"`
	IdempotencyTTL      time.Duration `envconfig:"PETFINDER_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	CaptureSecret       string        `envconfig:"PETFINDER_CHECKOUT_CAPTURE_SECRET"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"PETFINDER_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"PETFINDER_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"PETFINDER_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention time.Duration `envconfig:"PETFINDER_CRON_OUTBOX_RETENTION" default:"720h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PETFINDER_CORS_ALLOWED_ORIGINS" default:"*"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PETFINDER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"PETFINDER_PUBSUB_ORDERS_TOPIC" default:"petfinder-order-events"`
	CatalogTopic string `envconfig:"PETFINDER_PUBSUB_CATALOG_TOPIC" default:"petfinder-catalog-events"`
	PetsTopic    string `envconfig:"PETFINDER_PUBSUB_PETS_TOPIC" default:"petfinder-pet-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PETFINDER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PETFINDER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PETFINDER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ensureDSN fills DSN from the legacy parts. The sqlite flag forces the
// sqlite driver and supplies a local file when no DSN is given.
func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = "sqlite"
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	}
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
