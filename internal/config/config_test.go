package config_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitchpath/hitchpath/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, []string{"https://hitchpath.com", "http://localhost:5173"}, cfg.App.AllowedOrigins)
	assert.Equal(t, "open-mistral-nemo", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.PubSub.Enabled())
}

func TestLoad_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LLM_TIMEOUT", "15s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 6543, cfg.DB.Database().Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
}

func TestAppConfig_NewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			app := config.AppConfig{Env: config.EnvProduction, LogLevel: tt.level}
			assert.Equal(t, tt.want, app.NewLogger("test", "dev").GetLevel())
		})
	}
}
