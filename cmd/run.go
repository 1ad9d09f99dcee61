package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/coopco/remindbot/internal/config"
	"github.com/coopco/remindbot/internal/discord"
	"github.com/coopco/remindbot/internal/logging"
	"github.com/coopco/remindbot/internal/poller"
	"github.com/coopco/remindbot/internal/providers"
	"github.com/coopco/remindbot/internal/reminder"
	"github.com/coopco/remindbot/internal/translate"
)

// startupTimeout bounds the wait for the first gateway Ready event.
const startupTimeout = 2 * time.Minute

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Connects to Discord and starts the reminder poller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), cfg)
	},
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	store := reminder.NewFileStore(cfg.ReminderDir(), time.Now)
	if err := store.Init(); err != nil {
		return err
	}
	logger.Info("run: reminder store ready", "dir", cfg.ReminderDir())

	session, err := discord.NewSession(cfg.Discord.Token, logger)
	if err != nil {
		return err
	}

	provider := providers.NewOpenAICompatProvider(cfg.Translate.APIKey, cfg.Translate.BaseURL, cfg.Translate.Model)
	translator := translate.New(provider,
		translate.WithLogger(logger),
		translate.WithHTTPClient(session.Client),
	)
	if cfg.Translate.APIKey == "" {
		logger.Warn("run: translate.apiKey not set, translations will fail")
	}

	bot := discord.New(session, discord.Config{
		ApplicationID: cfg.Discord.ApplicationID,
		GuildID:       cfg.Discord.GuildID,
		Reminders:     reminder.NewService(store),
		Translator:    translator,
		Logger:        logger,
	})
	notifier := discord.NewNotifier(session, rate.NewLimiter(rate.Limit(cfg.Discord.SendRate), cfg.Discord.SendBurst))
	poll := poller.New(poller.Config{
		Store:    store,
		Notifier: notifier,
		Interval: cfg.Reminders.PollInterval,
		Logger:   logger,
	})

	if err := bot.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := bot.Close(); err != nil {
			logger.Error("run: failed to close discord session", tint.Err(err))
		}
	}()

	return serve(ctx, bot.Ready(), poll, logger)
}

// serve starts the poller once the gateway is ready and blocks until ctx is
// cancelled and the in-flight scan has finished.
func serve(ctx context.Context, ready <-chan struct{}, poll *poller.Service, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-ready:
		case <-gctx.Done():
			return nil
		case <-time.After(startupTimeout):
			return fmt.Errorf("run: no ready event from discord within %s", startupTimeout)
		}
		poll.Start(gctx)
		<-gctx.Done()
		<-poll.Stop().Done()
		logger.Info("run: poller stopped")
		return nil
	})
	return g.Wait()
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(runCmd)
}
