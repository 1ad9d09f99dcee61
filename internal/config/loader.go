package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/coopco/remindbot/internal/logging"
)

// EnvPrefix prefixes the automatic environment overrides, for example
// REMINDBOT_REMINDERS_POLLINTERVAL.
const EnvPrefix = "REMINDBOT"

// envAliases are environment names accepted on top of the prefixed ones.
// Earlier names win.
var envAliases = map[string][]string{
	"discord.token":     {"REMINDBOT_DISCORD_TOKEN", "TOKEN"},
	"reminders.dataDir": {"REMINDBOT_REMINDERS_DATADIR", "DATA_DIR"},
	"translate.apiKey":  {"REMINDBOT_TRANSLATE_APIKEY", "GEMINI_API_KEY"},
	"translate.model":   {"REMINDBOT_TRANSLATE_MODEL", "GEMINI_MODEL"},
}

// Load loads config from path, or from defaults and the environment alone
// when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return load(newViper())
	}
	return LoadFromFile(path)
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads JSON config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("json")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("logLevel", d.LogLevel.String())
	v.SetDefault("discord.token", d.Discord.Token)
	v.SetDefault("discord.applicationId", d.Discord.ApplicationID)
	v.SetDefault("discord.guildId", d.Discord.GuildID)
	v.SetDefault("discord.sendRate", d.Discord.SendRate)
	v.SetDefault("discord.sendBurst", d.Discord.SendBurst)
	v.SetDefault("reminders.dataDir", d.Reminders.DataDir)
	v.SetDefault("reminders.pollInterval", d.Reminders.PollInterval)
	v.SetDefault("translate.apiKey", d.Translate.APIKey)
	v.SetDefault("translate.model", d.Translate.Model)
	v.SetDefault("translate.baseUrl", d.Translate.BaseURL)

	for key, names := range envAliases {
		// BindEnv only fails without a key.
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		StringToLevelHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// StringToLevelHookFunc decodes level names such as "DEBUG" into slog.Level.
func StringToLevelHookFunc() mapstructure.DecodeHookFuncType {
	levelType := reflect.TypeOf(slog.Level(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != levelType {
			return data, nil
		}
		return logging.ParseLevel(data.(string))
	}
}
