package discord

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/coopco/remindbot/internal/logging"
)

// Session is the part of *discordgo.Session the bot uses, so handlers can
// be exercised against a fake.
type Session interface {
	// Open creates a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	// AddHandler adds a discord gateway event handler
	AddHandler(handler any) func()

	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error

	InteractionResponseEdit(
		interaction *discordgo.Interaction,
		newresp *discordgo.WebhookEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	ChannelEdit(
		channelID string,
		data *discordgo.ChannelEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	// HeartbeatLatency is the round trip of the last gateway heartbeat.
	HeartbeatLatency() time.Duration
}

var _ Session = (*discordgo.Session)(nil)

// NewSession creates a bot session and routes discordgo's own logging into
// logger.
func NewSession(token string, logger *slog.Logger) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsAllWithoutPrivileged
	s.LogLevel = discordgo.LogInformational
	discordgo.Logger = logging.DiscordgoLogger(logger)
	return s, nil
}
