package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"time"
)

const (
	DefaultDataDir        = "/Common/Data"
	DefaultPollInterval   = 10 * time.Second
	DefaultSendRate       = 5.0
	DefaultSendBurst      = 5
	DefaultTranslateModel = "gemini-2.0-flash"
	DefaultTranslateURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"

	reminderSubdir = "Reminders"
)

var ErrMissingToken = errors.New("discord token is not set")

// Config is the top-level configuration
type Config struct {
	LogLevel  slog.Level      `mapstructure:"logLevel"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Translate TranslateConfig `mapstructure:"translate"`
}

type DiscordConfig struct {
	Token         string `mapstructure:"token"`
	ApplicationID string `mapstructure:"applicationId"`
	// GuildID limits command registration to one guild. Empty registers
	// global commands.
	GuildID   string  `mapstructure:"guildId"`
	SendRate  float64 `mapstructure:"sendRate"`
	SendBurst int     `mapstructure:"sendBurst"`
}

type RemindersConfig struct {
	DataDir      string        `mapstructure:"dataDir"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

type TranslateConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"baseUrl"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		Discord: DiscordConfig{
			SendRate:  DefaultSendRate,
			SendBurst: DefaultSendBurst,
		},
		Reminders: RemindersConfig{
			DataDir:      DefaultDataDir,
			PollInterval: DefaultPollInterval,
		},
		Translate: TranslateConfig{
			Model:   DefaultTranslateModel,
			BaseURL: DefaultTranslateURL,
		},
	}
}

// ReminderDir is the directory holding one JSON file per reminder owner.
func (c *Config) ReminderDir() string {
	return filepath.Join(c.Reminders.DataDir, reminderSubdir)
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}
	if c.Reminders.PollInterval <= 0 {
		return errors.New("reminders.pollInterval must be positive")
	}
	if c.Discord.SendRate <= 0 || c.Discord.SendBurst <= 0 {
		return errors.New("discord.sendRate and discord.sendBurst must be positive")
	}
	return nil
}
