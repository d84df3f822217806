package configs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "LOG_LEVEL", "ALLOWED_ORIGINS",
		"SEND_QUEUE_SIZE", "MAX_FRAME_BYTES", "TIME_LAYOUT", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.True(t, cfg.IsDevelopment())
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, ":5000", cfg.Addr())
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.AllowedOrigins)
	require.Equal(t, DefaultSendQueueSize, cfg.SendQueueSize)
	require.Zero(t, cfg.MaxFrameBytes)
	require.Equal(t, "15:04", cfg.TimeLayout)
	require.Empty(t, cfg.DatabaseDSN)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "6100")
	t.Setenv("ALLOWED_ORIGINS", " https://chat.example.com , ,http://localhost:3000")
	t.Setenv("SEND_QUEUE_SIZE", "32")
	t.Setenv("MAX_FRAME_BYTES", "1048576")
	t.Setenv("DATABASE_URL", "postgres://relay@localhost/relay")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.False(t, cfg.IsDevelopment())
	require.Equal(t, 6100, cfg.Port)
	require.Equal(t, []string{"https://chat.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	require.Equal(t, 32, cfg.SendQueueSize)
	require.Equal(t, int64(1<<20), cfg.MaxFrameBytes)
	require.Equal(t, "postgres://relay@localhost/relay", cfg.DatabaseDSN)
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"non numeric port":   {"PORT", "five"},
		"privileged port":    {"PORT", "80"},
		"empty queue":        {"SEND_QUEUE_SIZE", "0"},
		"negative frame cap": {"MAX_FRAME_BYTES", "-1"},
		"layout w/o time":    {"TIME_LAYOUT", "hello"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
