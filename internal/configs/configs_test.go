package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, PresenceBackendRedis, cfg.PresenceBackend)
	assert.Equal(t, 8, cfg.VideoChatMaxSize)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Empty(t, cfg.ModeratorIDs)
	assert.False(t, cfg.CatalogFromS3())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("VIDEO_CHAT_MAX_SIZE", "4")
	t.Setenv("PRESENCE_BACKEND", PresenceBackendMemory)
	t.Setenv("MODERATOR_IDS", "u1,u2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 4, cfg.VideoChatMaxSize)
	assert.Equal(t, PresenceBackendMemory, cfg.PresenceBackend)
	assert.Equal(t, []string{"u1", "u2"}, cfg.ModeratorIDs)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"privileged port", map[string]string{"PORT": "80"}},
		{"zero capacity", map[string]string{"VIDEO_CHAT_MAX_SIZE": "0"}},
		{"unknown backend", map[string]string{"PRESENCE_BACKEND": "etcd"}},
		{"bucket without key", map[string]string{"ROOMS_S3_BUCKET": "rooms"}},
		{"s3 without endpoint", map[string]string{"ROOMS_S3_BUCKET": "rooms", "ROOMS_S3_KEY": "rooms.json"}},
		{"production without secret", map[string]string{"ENVIRONMENT": "production", "DATABASE_URL": "postgres://x"}},
		{"memory presence in production", map[string]string{
			"ENVIRONMENT": "production", "JWT_SECRET": "s", "DATABASE_URL": "postgres://x", "PRESENCE_BACKEND": PresenceBackendMemory,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "development")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
