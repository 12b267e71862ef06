package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/tutor_matching/internal/config"
)

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	keys := []string{
		"DB_DSN", "ENV", "LOG_LEVEL", "MEETING_HOST", "MEETING_ROOM_PREFIX", "REDIS_ADDR", "REDIS_PASSWORD",
		"LOCK_TTL", "SENDGRID_API_KEY", "MAIL_FROM", "APP_NAME", "TELEGRAM_TOKEN",
	}
	for _, k := range keys {
		t.Setenv(k, values[k])
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"DB_DSN": "postgres://localhost/tutoring"})

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/tutoring", cfg.DBDSN)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "meet.jit.si", cfg.MeetingHost)
	assert.Equal(t, "tutoring", cfg.MeetingRoomPrefix)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, "Tutoring", cfg.AppName)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoad_RequiresDSN(t *testing.T) {
	setEnv(t, nil)

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_MailFromRequiredWithSendGrid(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_DSN":           "postgres://localhost/tutoring",
		"SENDGRID_API_KEY": "SG.key",
	})

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MailFrom")

	setEnv(t, map[string]string{
		"DB_DSN":           "postgres://localhost/tutoring",
		"SENDGRID_API_KEY": "SG.key",
		"MAIL_FROM":        "noreply@example.com",
		"REDIS_ADDR":       "localhost:6379",
		"LOCK_TTL":         "5s",
		"ENV":              "production",
		"LOG_LEVEL":        "warn",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"lock ttl":     {"LOCK_TTL": "soon"},
		"negative ttl": {"LOCK_TTL": "-1s"},
		"env":          {"ENV": "staging"},
		"redis addr":   {"REDIS_ADDR": "no-port"},
		"meeting host": {"MEETING_HOST": "not a host"},
		"log level":    {"LOG_LEVEL": "loud"},
	}

	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			values := map[string]string{"DB_DSN": "postgres://localhost/tutoring"}
			for k, v := range override {
				values[k] = v
			}
			setEnv(t, values)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadOffline_DoesNotNeedDSN(t *testing.T) {
	setEnv(t, map[string]string{"MEETING_HOST": "meet.example.org"})

	cfg, err := config.LoadOffline()
	require.NoError(t, err)
	assert.Empty(t, cfg.DBDSN)
	assert.Equal(t, "meet.example.org", cfg.MeetingHost)
}
