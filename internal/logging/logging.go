package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	robfigcron "github.com/robfig/cron/v3"
)

// LoggerNameKey is the attribute naming the component a logger belongs to.
const LoggerNameKey = "logger"

// ParseLevel parses DEBUG, INFO, WARN or ERROR (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New returns a tint-backed logger writing to w.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	}))
}

var discordgoLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogInformational: slog.LevelInfo,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogError:         slog.LevelError,
}

// DiscordgoLogger adapts logger to the signature of discordgo.Logger.
func DiscordgoLogger(logger *slog.Logger) func(msgL, caller int, format string, a ...any) {
	logger = logger.With(LoggerNameKey, "discordgo")
	return func(msgL, _ int, format string, a ...any) {
		level, ok := discordgoLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		logger.Log(context.Background(), level, strings.ReplaceAll(fmt.Sprintf(format, a...), "\n", ""))
	}
}

type cronLogger struct {
	logger *slog.Logger
}

// CronLogger adapts logger to robfig/cron. Scheduler chatter goes to debug.
func CronLogger(logger *slog.Logger) robfigcron.Logger {
	return cronLogger{logger: logger}
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{tint.Err(err)}, keysAndValues...)...)
}
