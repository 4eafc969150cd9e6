package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_IDS", "100, 200")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "data/bot.db", cfg.SQLitePath)
	assert.Equal(t, []int64{100, 200}, cfg.AdminIDs)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, "aibot", cfg.MetricsNamespace)
	assert.Equal(t, "ru", cfg.DefaultLanguage)
	assert.False(t, cfg.RedisTLS)
	assert.Equal(t, "0 */6 * * *", cfg.PendingReminderCron)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_IDS", "1")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://bot@localhost/bot")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TLS", "yes")
	t.Setenv("REDIS_KEY_PREFIX", "staging")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("STATS_DIGEST_CRON", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.StatsDigestCron)
	assert.Equal(t, "staging", cfg.RedisPrefix)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no admins", map[string]string{"ADMIN_IDS": ""}, "ADMIN_IDS"},
		{"bad admin id", map[string]string{"ADMIN_IDS": "1,x"}, "ADMIN_IDS"},
		{"postgres without url", map[string]string{"ADMIN_IDS": "1", "DATABASE_DRIVER": "postgres", "DATABASE_URL": ""}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"ADMIN_IDS": "1", "DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"bad duration", map[string]string{"ADMIN_IDS": "1", "SESSION_TTL": "soon"}, "SESSION_TTL"},
		{"bad redis db", map[string]string{"ADMIN_IDS": "1", "REDIS_DB": "one"}, "REDIS_DB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
