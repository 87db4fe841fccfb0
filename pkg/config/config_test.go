package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "CERT", cfg.Certificates.NumberPrefix)
	assert.Equal(t, time.Duration(0), cfg.Certificates.Validity)
	assert.Equal(t, 5*time.Minute, cfg.Certificates.VerifyCacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Artifacts.SignedURLTTL)
	assert.Equal(t, "@every 1h", cfg.Maintenance.Schedule)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CERTIFICATE_NUMBER_PREFIX", " agro ")
	v.Set("CERTIFICATE_VERIFY_BASE_URL", "https://academy.example.com/verify/")
	v.Set("CERTIFICATE_VALIDITY", "8760h")
	v.Set("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg := fromViper(v)

	assert.Equal(t, "AGRO", cfg.Certificates.NumberPrefix)
	assert.Equal(t, "https://academy.example.com/verify", cfg.Certificates.VerifyBaseURL)
	assert.Equal(t, 8760*time.Hour, cfg.Certificates.Validity)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
