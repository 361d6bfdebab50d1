// redwell-labs/rto-dispatch-service/config/config_test.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg *Config) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadSuccess(t *testing.T) {
	path := writeConfig(t, &Config{
		Discord: DiscordConfig{Token: "test-token", LogChannelID: "123"},
		Voice:   VoiceConfig{ChannelID: "456", BotCallsign: "2D-00"},
		Redis:   &RedisConfig{Addr: "localhost:6379"},
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-token", cfg.Discord.Token)
	assert.Equal(t, "123", cfg.Discord.LogChannelID)
	assert.Equal(t, "456", cfg.Voice.ChannelID)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, &Config{Discord: DiscordConfig{Token: "test-token"}})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Discord.CommandPrefix)
	assert.Equal(t, 3, cfg.Voice.ChunkSeconds)
	assert.Equal(t, 16, cfg.Voice.QueueSize)
	assert.Equal(t, "phonetic", cfg.Callsign.Strategy)
	assert.Equal(t, 5, cfg.Callsign.PrefixLen)
	assert.Nil(t, cfg.Redis)
}

func TestLoadEnvOverridesToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	path := writeConfig(t, &Config{Discord: DiscordConfig{Token: "file-token"}})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	path := writeConfig(t, &Config{})

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing discord token")
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{ not valid json }"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not decode config file")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not open config file")
}
