package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "header", cfg.Identity.Mode)
	assert.Equal(t, "chat", cfg.Chat.Channel)
	assert.Equal(t, 5*time.Minute, cfg.Chat.ParticipantTTL)
	assert.Equal(t, 256, cfg.Chat.PubSubBufferSize)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Empty(t, cfg.DevParticipants)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("PARTICIPANT_COUNT_TTL", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEV_PARTICIPANTS", "alice:Alice, bob")

	cfg, err := Load([]string{noEnvFile(t), "--log-level=debug"})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Chat.ParticipantTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []DevParticipant{{ID: "alice", Username: "Alice"}, {ID: "bob", Username: "bob"}}, cfg.DevParticipants)

	cfg, err = Load([]string{noEnvFile(t), "--port=8123"})
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port, "flag wins over env")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CHAT_CHANNEL=lobby\nSEND_BURST=9\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CHAT_CHANNEL")
		os.Unsetenv("SEND_BURST")
	})

	cfg, err := Load([]string{"--env-file=" + path})
	require.NoError(t, err)
	assert.Equal(t, "lobby", cfg.Chat.Channel)
	assert.Equal(t, 9, cfg.RateLimit.SendBurst)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":      {"DATABASE_DRIVER": "mysql"},
		"postgres needs url":  {"DATABASE_DRIVER": "postgres"},
		"token needs secret":  {"IDENTITY_MODE": "token"},
		"unknown identity":    {"IDENTITY_MODE": "cookie"},
		"bad ttl":             {"PARTICIPANT_COUNT_TTL": "-1s"},
		"bad dev participant": {"DEV_PARTICIPANTS": ":nameless"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load([]string{noEnvFile(t)})
			assert.Error(t, err)
		})
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := Load([]string{"--help"})
	assert.ErrorIs(t, err, pflag.ErrHelp)
}
