package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreBadger = "badger"
	TokenStoreRedis  = "redis"
)

type Config struct {
	Env     string
	Port    int
	Release string

	API        APIConfig
	TokenStore TokenStoreConfig
	Redis      RedisConfig
	Routes     RoutesConfig
	Uploads    UploadsConfig
	Admissions AdmissionsConfig
	Slips      SlipsConfig
	CORS       CORSConfig
	Log        LogConfig
	Sentry     SentryConfig
}

// APIConfig points the console at the external REST backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// TokenStoreConfig selects where the admin bearer token is persisted.
type TokenStoreConfig struct {
	Backend    string
	Path       string
	StorageKey string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RoutesConfig describes the admin area of the console.
type RoutesConfig struct {
	AdminPrefix string
	LoginPath   string
}

// UploadsConfig tunes the gallery upload batch.
type UploadsConfig struct {
	PruneDelay       time.Duration
	MaxFileSizeBytes int64
}

// AdmissionsConfig holds defaults applied to submitted applications.
type AdmissionsConfig struct {
	SchoolName         string
	DefaultNationality string
	WizardIdle         time.Duration
}

// SlipsConfig controls confirmation slip storage and download links.
type SlipsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type SentryConfig struct {
	DSN string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.Release = v.GetString("RELEASE")

	cfg.API = APIConfig{
		BaseURL: strings.TrimSpace(v.GetString("API_BASE_URL")),
		Timeout: parseDuration(v.GetString("API_TIMEOUT"), 15*time.Second),
	}

	cfg.TokenStore = TokenStoreConfig{
		Backend:    strings.ToLower(strings.TrimSpace(v.GetString("TOKEN_STORE"))),
		Path:       v.GetString("TOKEN_STORE_PATH"),
		StorageKey: v.GetString("TOKEN_STORAGE_KEY"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Routes = RoutesConfig{
		AdminPrefix: "/" + strings.Trim(v.GetString("ADMIN_PATH_PREFIX"), "/"),
		LoginPath:   v.GetString("LOGIN_PATH"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		PruneDelay:       parseDuration(v.GetString("UPLOAD_PRUNE_DELAY"), 3*time.Second),
		MaxFileSizeBytes: maxUpload,
	}

	cfg.Admissions = AdmissionsConfig{
		SchoolName:         v.GetString("SCHOOL_NAME"),
		DefaultNationality: v.GetString("DEFAULT_NATIONALITY"),
		WizardIdle:         parseDuration(v.GetString("WIZARD_IDLE_TIMEOUT"), 2*time.Hour),
	}

	cfg.Slips = SlipsConfig{
		StorageDir:      v.GetString("SLIPS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("SLIPS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("SLIPS_SIGNED_URL_TTL"), 24*time.Hour),
		Retention:       parseDuration(v.GetString("SLIPS_RETENTION"), 30*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sentry = SentryConfig{DSN: v.GetString("SENTRY_DSN")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("RELEASE", "dev")

	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", "15s")

	v.SetDefault("TOKEN_STORE", TokenStoreBadger)
	v.SetDefault("TOKEN_STORE_PATH", "./data/session")
	v.SetDefault("TOKEN_STORAGE_KEY", "adminToken")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ADMIN_PATH_PREFIX", "/admin")
	v.SetDefault("LOGIN_PATH", "/admin/login")

	v.SetDefault("UPLOAD_PRUNE_DELAY", "3s")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)

	v.SetDefault("SCHOOL_NAME", "Westgate Schools")
	v.SetDefault("DEFAULT_NATIONALITY", "Kenya")
	v.SetDefault("WIZARD_IDLE_TIMEOUT", "2h")

	v.SetDefault("SLIPS_STORAGE_DIR", "./slips")
	v.SetDefault("SLIPS_SIGNED_URL_SECRET", "dev_slips_secret")
	v.SetDefault("SLIPS_SIGNED_URL_TTL", "24h")
	v.SetDefault("SLIPS_RETENTION", "720h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SENTRY_DSN", "")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
