// redwell-labs/rto-dispatch-service/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config reflects the structure of the config.json file.
type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Voice    VoiceConfig    `json:"voice"`
	Callsign CallsignConfig `json:"callsign"`
	Codes    CodesConfig    `json:"codes"`
	Redis    *RedisConfig   `json:"redis,omitempty"`
}

// DiscordConfig holds the bot connection and command settings.
type DiscordConfig struct {
	Token         string `json:"token"`
	CommandPrefix string `json:"command_prefix"`
	LogChannelID  string `json:"log_channel_id"`
}

// VoiceConfig holds the dispatch channel and pipeline settings.
type VoiceConfig struct {
	GuildID         string `json:"guild_id"`
	ChannelID       string `json:"channel_id"`
	BotCallsign     string `json:"bot_callsign"`
	VoiceName       string `json:"voice_name"`
	ChunkSeconds    int    `json:"chunk_seconds"`
	QueueSize       int    `json:"queue_size"`
	AudioTTLMinutes int    `json:"audio_ttl_minutes"`
}

// CallsignConfig selects how unit callsigns are derived.
type CallsignConfig struct {
	Strategy  string `json:"strategy"` // "prefix" or "phonetic"
	PrefixLen int    `json:"prefix_len"`
}

// CodesConfig points at the 10-code table file.
type CodesConfig struct {
	File string `json:"file"`
}

// RedisConfig holds the optional persistence connection.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Load reads the config file and applies environment overrides. A .env
// file in the working directory is honored first, matching the original
// deployment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file at %s: %w", path, err)
	}
	defer file.Close()

	config := defaults()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("could not decode config file: %w", err)
	}
	applyEnv(config)

	if config.Discord.Token == "" {
		return nil, fmt.Errorf("missing discord token (set discord.token or DISCORD_TOKEN)")
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Discord: DiscordConfig{CommandPrefix: "!"},
		Voice: VoiceConfig{
			BotCallsign:     "2D-00",
			VoiceName:       "en-US-Standard-D",
			ChunkSeconds:    3,
			QueueSize:       16,
			AudioTTLMinutes: 1,
		},
		Callsign: CallsignConfig{Strategy: "phonetic", PrefixLen: 5},
		Codes:    CodesConfig{File: "codes.txt"},
	}
}

func applyEnv(config *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		config.Discord.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		if config.Redis == nil {
			config.Redis = &RedisConfig{}
		}
		config.Redis.Addr = v
	}
}
