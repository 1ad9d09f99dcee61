// Package discord is the bot's gateway: it registers the slash commands,
// routes interactions to handlers, and delivers reminder notifications.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/coopco/remindbot/internal/logging"
	"github.com/coopco/remindbot/internal/reminder"
	"github.com/coopco/remindbot/internal/translate"
)

// handlerTimeout bounds one interaction. Deferred interaction tokens stay
// valid for 15 minutes.
const handlerTimeout = time.Minute

// ReminderService is the reminder core as seen by the command handlers.
type ReminderService interface {
	Create(ctx context.Context, req reminder.CreateRequest) error
	Delete(ctx context.Context, ownerID, name string) error
	List(ctx context.Context, ownerID string) ([]reminder.Reminder, error)
}

type Translator interface {
	Translate(ctx context.Context, text string, att *translate.Attachment, lang translate.Lang) string
}

type Config struct {
	ApplicationID string
	// GuildID scopes command registration; empty registers globally.
	GuildID    string
	Reminders  ReminderService
	Translator Translator
	Logger     *slog.Logger
}

type commandHandler func(ctx context.Context, i *discordgo.InteractionCreate) error

type Bot struct {
	session   Session
	cfg       Config
	logger    *slog.Logger
	handlers  map[string]commandHandler
	removeFns []func()
	ctx       context.Context
	register  sync.Once
	ready     chan struct{}
	readyOnce sync.Once
}

func New(session Session, cfg Config) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		session: session,
		cfg:     cfg,
		logger:  logger.With(logging.LoggerNameKey, "discord"),
		ctx:     context.Background(),
		ready:   make(chan struct{}),
	}
	b.handlers = map[string]commandHandler{
		cmdReminderSet:    b.handleReminderSet,
		cmdReminderDelete: b.handleReminderDelete,
		cmdReminderList:   b.handleReminderList,
		cmdPing:           b.handlePing,
		cmdXLinkConvert:   b.handleXLinkConvert,
		cmdSlowmode:       b.handleSlowmode,
	}
	for name, lang := range translateCommands {
		b.handlers[name] = b.translateHandler(lang)
	}
	return b
}

// Open installs the event handlers and connects. Interactions are handled
// with contexts derived from ctx.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.removeFns = append(b.removeFns,
		b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			b.onReady(r)
		}),
		b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			b.onInteraction(i)
		}),
	)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open websocket: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	for _, remove := range b.removeFns {
		remove()
	}
	b.removeFns = nil
	return b.session.Close()
}

// Ready is closed after the first Ready event.
func (b *Bot) Ready() <-chan struct{} {
	return b.ready
}

func (b *Bot) onReady(r *discordgo.Ready) {
	if r.User != nil {
		b.logger.Info("discord: logged in", "user", r.User.String())
	}
	b.register.Do(func() {
		appID := b.cfg.ApplicationID
		if appID == "" && r.Application != nil {
			appID = r.Application.ID
		}
		if appID == "" && r.User != nil {
			appID = r.User.ID
		}
		if err := b.registerCommands(appID); err != nil {
			b.logger.Error("discord: failed to register commands", tint.Err(err))
		}
	})
	b.readyOnce.Do(func() { close(b.ready) })
}

// registerCommands sends the bot's commands to the discord bulk overwrite
// endpoint
func (b *Bot) registerCommands(appID string) error {
	if appID == "" {
		return errors.New("application id unknown")
	}
	created, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, applicationCommands())
	if err != nil {
		return err
	}
	b.logger.Info("discord: commands registered", "count", len(created), "guild", b.cfg.GuildID)
	return nil
}

func (b *Bot) onInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	handler, ok := b.handlers[name]
	if !ok {
		b.logger.Warn("discord: unknown command", "command", name)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()

	log := b.logger.With("command", name, "interaction_id", i.ID)
	if u := interactionUser(i); u != nil {
		log = log.With("user_id", u.ID)
	}
	log.Debug("discord: handling command")
	if err := handler(ctx, i); err != nil {
		log.Error("discord: command failed", tint.Err(err))
	}
}

// interactionUser returns the invoking user. Guild interactions carry it on
// the member, DMs on the interaction itself.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	u := i.User
	if u == nil && i.Member != nil {
		u = i.Member.User
	}
	return u
}

func (b *Bot) reply(i *discordgo.InteractionCreate, content string) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// deferReply acknowledges i so the response can follow via editReply.
func (b *Bot) deferReply(i *discordgo.InteractionCreate) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (b *Bot) editReply(ctx context.Context, i *discordgo.InteractionCreate, edit *discordgo.WebhookEdit) error {
	_, err := b.session.InteractionResponseEdit(i.Interaction, edit, discordgo.WithContext(ctx))
	return err
}
