package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Backend modes select the collaborator adapter.
const (
	BackendModeHTTP   = "http"
	BackendModeMemory = "memory"
)

// Session store kinds.
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend  BackendConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Session  SessionConfig
	Matches  MatchesConfig
	Groups   GroupsConfig
	CORS     CORSConfig
	Log      LogConfig
	Docs     DocsConfig
	MockAuth MockAuthConfig
}

// BackendConfig points the gateway at the authoritative ClassMatch backend.
type BackendConfig struct {
	Mode    string
	BaseURL string
	Timeout time.Duration
	Seed    bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs catalog caching.
type CacheConfig struct {
	Enabled    bool
	CatalogTTL time.Duration
}

// SessionConfig controls where sessions live and for how long.
type SessionConfig struct {
	Store string
	TTL   time.Duration
}

// MatchesConfig tunes the match listing.
type MatchesConfig struct {
	Limit int
}

// GroupsConfig holds group creation defaults.
type GroupsConfig struct {
	DefaultMaxMembers int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DocsConfig toggles the swagger UI.
type DocsConfig struct {
	Enabled bool
}

// MockAuthConfig signs the tokens issued by the in-memory backend.
type MockAuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
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
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		Mode:    strings.ToLower(v.GetString("BACKEND_MODE")),
		BaseURL: strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		Seed:    v.GetBool("ENABLE_SEED"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		CatalogTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Session = SessionConfig{
		Store: strings.ToLower(v.GetString("SESSION_STORE")),
		TTL:   parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
	}

	limit := v.GetInt("MATCH_LIMIT")
	if limit <= 0 {
		limit = 50
	}
	cfg.Matches = MatchesConfig{Limit: limit}

	maxMembers := v.GetInt("GROUP_DEFAULT_MAX_MEMBERS")
	if maxMembers < 2 {
		maxMembers = 5
	}
	cfg.Groups = GroupsConfig{DefaultMaxMembers: maxMembers}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	cfg.MockAuth = MockAuthConfig{
		TokenSecret: v.GetString("MOCK_TOKEN_SECRET"),
		TokenTTL:    parseDuration(v.GetString("MOCK_TOKEN_TTL"), 24*time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_MODE", BackendModeMemory)
	v.SetDefault("BACKEND_BASE_URL", "http://127.0.0.1:5000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("ENABLE_SEED", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CATALOG_CACHE_TTL", "10m")

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_TTL", "24h")

	v.SetDefault("MATCH_LIMIT", 50)
	v.SetDefault("GROUP_DEFAULT_MAX_MEMBERS", 5)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_DOCS", true)

	v.SetDefault("MOCK_TOKEN_SECRET", "dev_mock_secret")
	v.SetDefault("MOCK_TOKEN_TTL", "24h")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
