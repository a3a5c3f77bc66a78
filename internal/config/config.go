package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	TablePrefix string
	CORSOrigins string

	// Persistence
	StorageBackend   string // "postgres", "redis" or "memory"
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	WriteBehindDelay time.Duration

	// Media
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	PreviewURLTTL  time.Duration

	// Editor
	AutosaveDelay   time.Duration
	SettingsFile    string
	DefaultLanguage string

	// Optional bearer-token auth; disabled when empty
	AuthJWKSURL string

	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		TablePrefix: getTablePrefix(env),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		StorageBackend:   getEnv("STORAGE_BACKEND", getDefaultBackend(env)),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		WriteBehindDelay: getEnvDuration("WRITE_BEHIND_DELAY", DefaultWriteBehindDelay),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "gift-media"),
		MinIOUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		PreviewURLTTL:  getEnvDuration("PREVIEW_URL_TTL", DefaultPreviewURLTTL),

		AutosaveDelay:   getEnvDuration("AUTOSAVE_DELAY", DefaultAutosaveDelay),
		SettingsFile:    getEnv("SETTINGS_FILE", "data/settings.yaml"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),

		AuthJWKSURL: getEnv("AUTH_JWKS_URL", ""),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
	}
}

// getDefaultBackend keeps local development free of external services
func getDefaultBackend(env string) string {
	if env == "prod" {
		return "postgres"
	}
	return "memory"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go duration strings ("3s", "500ms")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
