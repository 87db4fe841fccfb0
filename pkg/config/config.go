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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Metrics      MetricsConfig
	Certificates CertificatesConfig
	Artifacts    ArtifactsConfig
	Maintenance  MaintenanceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to validate tokens minted by the identity provider.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// CertificatesConfig governs issuance, verification and rendering.
type CertificatesConfig struct {
	NumberPrefix   string
	VerifyBaseURL  string
	PublicBaseURL  string
	Validity       time.Duration
	VerifyCacheTTL time.Duration
	StatsCacheTTL  time.Duration
	AssetTimeout   time.Duration
}

// ArtifactsConfig configures rendered PDF storage and signed download links.
type ArtifactsConfig struct {
	StorageDir       string
	LinkBaseURL      string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	TTL              time.Duration
	PrerenderWorkers int
	PrerenderRetries int
}

// MaintenanceConfig schedules the periodic expiry and cleanup sweep.
type MaintenanceConfig struct {
	Enabled  bool
	Schedule string
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

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Certificates = CertificatesConfig{
		NumberPrefix:   strings.ToUpper(strings.TrimSpace(v.GetString("CERTIFICATE_NUMBER_PREFIX"))),
		VerifyBaseURL:  strings.TrimRight(v.GetString("CERTIFICATE_VERIFY_BASE_URL"), "/"),
		PublicBaseURL:  strings.TrimRight(v.GetString("CERTIFICATE_PUBLIC_BASE_URL"), "/"),
		Validity:       parseDuration(v.GetString("CERTIFICATE_VALIDITY"), 0),
		VerifyCacheTTL: parseDuration(v.GetString("VERIFY_CACHE_TTL"), 5*time.Minute),
		StatsCacheTTL:  parseDuration(v.GetString("STATS_CACHE_TTL"), time.Minute),
		AssetTimeout:   parseDuration(v.GetString("ASSET_FETCH_TIMEOUT"), 5*time.Second),
	}

	cfg.Artifacts = ArtifactsConfig{
		StorageDir:       v.GetString("CERTIFICATE_STORAGE_DIR"),
		LinkBaseURL:      strings.TrimRight(v.GetString("CERTIFICATE_LINK_BASE_URL"), "/"),
		SignedURLSecret:  v.GetString("CERTIFICATE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("CERTIFICATE_SIGNED_URL_TTL"), 30*time.Minute),
		TTL:              parseDuration(v.GetString("CERTIFICATE_ARTIFACT_TTL"), 7*24*time.Hour),
		PrerenderWorkers: v.GetInt("PRERENDER_WORKERS"),
		PrerenderRetries: v.GetInt("PRERENDER_RETRIES"),
	}

	cfg.Maintenance = MaintenanceConfig{
		Enabled:  v.GetBool("ENABLE_MAINTENANCE"),
		Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edu_certificates")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("CERTIFICATE_NUMBER_PREFIX", "CERT")
	v.SetDefault("CERTIFICATE_VERIFY_BASE_URL", "http://localhost:8080/verify")
	v.SetDefault("CERTIFICATE_PUBLIC_BASE_URL", "http://localhost:8080/certificates")
	v.SetDefault("CERTIFICATE_VALIDITY", "0")
	v.SetDefault("VERIFY_CACHE_TTL", "5m")
	v.SetDefault("STATS_CACHE_TTL", "1m")
	v.SetDefault("ASSET_FETCH_TIMEOUT", "5s")

	v.SetDefault("CERTIFICATE_STORAGE_DIR", "./certificates")
	v.SetDefault("CERTIFICATE_LINK_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("CERTIFICATE_SIGNED_URL_SECRET", "dev_certificates_secret")
	v.SetDefault("CERTIFICATE_SIGNED_URL_TTL", "30m")
	v.SetDefault("CERTIFICATE_ARTIFACT_TTL", "168h")
	v.SetDefault("PRERENDER_WORKERS", 2)
	v.SetDefault("PRERENDER_RETRIES", 3)

	v.SetDefault("ENABLE_MAINTENANCE", true)
	v.SetDefault("MAINTENANCE_SCHEDULE", "@every 1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if raw == "0" {
		return 0
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

// viper reports a missing explicit config file as a plain fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such file")
}
