package config

const (
	EnvPrefix = "PETFINDER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSQLiteDSN = "file:petfinder.db?_busy_timeout=5000&_foreign_keys=on"

	EnvAppEnv                 = "PETFINDER_APP_ENV"
	EnvPort                   = "PETFINDER_APP_PORT"
	EnvBaseURL                = "PETFINDER_APP_BASE_URL"
	EnvDBDSN                  = "PETFINDER_DB_DSN"
	EnvDBHost                 = "PETFINDER_DB_HOST"
	EnvDBUser                 = "PETFINDER_DB_USER"
	EnvDBName                 = "PETFINDER_DB_NAME"
	EnvDBPassword             = "PETFINDER_DB_PASSWORD"
	EnvRedisURL               = "PETFINDER_REDIS_URL"
	EnvJWTSecret              = "PETFINDER_JWT_SECRET"
	EnvJWTIssuer              = "PETFINDER_JWT_ISSUER"
	EnvJWTExpMins             = "PETFINDER_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PETFINDER_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "PETFINDER_USE_SQLITE"
	EnvCORSAllowedOrigins     = "PETFINDER_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
