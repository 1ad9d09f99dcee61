package discord

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/coopco/remindbot/internal/reminder"
	"github.com/coopco/remindbot/internal/translate"
)

const (
	xLinkPrefix  = "https://x.com/"
	fxLinkPrefix = "https://fxtwitter.com/"

	translationFooter  = "Gemini"
	translationIconURL = "https://storage.googleapis.com/gweb-uniblog-publish-prod/original_images/logo_hires_EsXLFa1.gif"
	translationColor   = 0x37ff77
)

var errNoUser = errors.New("interaction has no user")

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func commandOptions(i *discordgo.InteractionCreate) options {
	opts := options{}
	for _, o := range i.ApplicationCommandData().Options {
		opts[o.Name] = o
	}
	return opts
}

func (o options) string(name string) (string, bool) {
	opt, ok := o[name]
	if !ok {
		return "", false
	}
	s, ok := opt.Value.(string)
	return s, ok
}

func (o options) int(name string) (int64, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	f, ok := opt.Value.(float64)
	return int64(f), ok
}

// createRequest maps reminder_set options onto a CreateRequest. A days
// value selects a per-day cadence; otherwise weekday is used.
func createRequest(i *discordgo.InteractionCreate) (reminder.CreateRequest, error) {
	u := interactionUser(i)
	if u == nil {
		return reminder.CreateRequest{}, errNoUser
	}
	opts := commandOptions(i)
	req := reminder.CreateRequest{OwnerID: u.ID}
	req.Name, _ = opts.string("name")
	req.Text, _ = opts.string("text")
	req.DestinationID, _ = opts.string("channel")
	req.TimeOfDay, _ = opts.string("time")

	if days, ok := opts.int("days"); ok {
		req.PerDay = true
		n := uint32(0)
		if days > 0 && days <= math.MaxUint32 {
			n = uint32(days)
		}
		req.IntervalDays = &n
	} else if name, ok := opts.string("weekday"); ok {
		w, err := reminder.ParseWeekday(name)
		if err != nil {
			return req, err
		}
		req.Weekday = &w
	}
	return req, nil
}

func (b *Bot) handleReminderSet(ctx context.Context, i *discordgo.InteractionCreate) error {
	req, err := createRequest(i)
	if deferErr := b.deferReply(i); deferErr != nil {
		return deferErr
	}
	if err == nil {
		err = b.cfg.Reminders.Create(ctx, req)
	}

	content := "Reminder created successfully."
	if err != nil {
		content = fmt.Sprintf("Failed to create reminder: %v", err)
	} else {
		b.logger.Info("discord: reminder created", "owner", req.OwnerID, "name", req.Name)
	}
	return b.editReply(ctx, i, &discordgo.WebhookEdit{Content: &content})
}

func (b *Bot) handleReminderDelete(ctx context.Context, i *discordgo.InteractionCreate) error {
	u := interactionUser(i)
	if u == nil {
		return errNoUser
	}
	name, _ := commandOptions(i).string("name")

	content := "Reminder deleted successfully."
	if err := b.cfg.Reminders.Delete(ctx, u.ID, name); err != nil {
		content = fmt.Sprintf("Failed to delete reminder: %v", err)
	}
	return b.reply(i, content)
}

func (b *Bot) handleReminderList(ctx context.Context, i *discordgo.InteractionCreate) error {
	u := interactionUser(i)
	if u == nil {
		return errNoUser
	}

	var content string
	list, err := b.cfg.Reminders.List(ctx, u.ID)
	switch {
	case err != nil:
		content = fmt.Sprintf("Failed to list reminders: %v", err)
	case len(list) == 0:
		content = "You have no reminders."
	default:
		content = formatReminders(list)
	}
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func formatReminders(list []reminder.Reminder) string {
	var sb strings.Builder
	for _, r := range list {
		fmt.Fprintf(&sb, "**%s** (%s at %s) next: <t:%d:f> in <#%s>\n",
			r.Name, r.Cadence, r.TimeOfDay, r.NextFireAt.Unix(), r.DestinationID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handlePing(_ context.Context, i *discordgo.InteractionCreate) error {
	latency := b.session.HeartbeatLatency().Round(time.Millisecond)
	return b.reply(i, fmt.Sprintf("Pong! %dms", latency.Milliseconds()))
}

func convertXLink(url string) string {
	return strings.ReplaceAll(url, xLinkPrefix, fxLinkPrefix)
}

func (b *Bot) handleXLinkConvert(_ context.Context, i *discordgo.InteractionCreate) error {
	url, _ := commandOptions(i).string("url")
	return b.reply(i, convertXLink(url))
}

func (b *Bot) handleSlowmode(ctx context.Context, i *discordgo.InteractionCreate) error {
	seconds, _ := commandOptions(i).int("seconds")
	if seconds < 0 || seconds > maxSlowmode {
		return b.reply(i, fmt.Sprintf("Slowmode must be between 0 and %d seconds", maxSlowmode))
	}
	n := int(seconds)
	_, err := b.session.ChannelEdit(i.ChannelID, &discordgo.ChannelEdit{RateLimitPerUser: &n}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Warn("discord: failed to set slowmode", "guild", i.GuildID, "channel", i.ChannelID, tint.Err(err))
		return b.reply(i, "Failed to set slowmode")
	}
	return b.reply(i, fmt.Sprintf("Slowmode set to %d seconds", seconds))
}

func (b *Bot) translateHandler(lang translate.Lang) commandHandler {
	return func(ctx context.Context, i *discordgo.InteractionCreate) error {
		data := i.ApplicationCommandData()
		var msg *discordgo.Message
		if data.Resolved != nil {
			msg = data.Resolved.Messages[data.TargetID]
		}
		if msg == nil {
			return b.reply(i, "Message not found")
		}
		if err := b.deferReply(i); err != nil {
			return err
		}

		var att *translate.Attachment
		if len(msg.Attachments) > 0 {
			a := msg.Attachments[0]
			att = &translate.Attachment{URL: a.URL, ContentType: a.ContentType}
		}
		text := b.cfg.Translator.Translate(ctx, msg.Content, att, lang)

		embeds := []*discordgo.MessageEmbed{translationEmbed(i.GuildID, i.ChannelID, msg, text)}
		return b.editReply(ctx, i, &discordgo.WebhookEdit{Embeds: &embeds})
	}
}

func translationEmbed(guildID, channelID string, msg *discordgo.Message, text string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: text,
		Color:       translationColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text:    translationFooter,
			IconURL: translationIconURL,
		},
	}
	if msg.Author != nil {
		name := msg.Author.GlobalName
		if name == "" {
			name = msg.Author.Username
		}
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    name,
			IconURL: msg.Author.AvatarURL(""),
			URL:     messageLink(guildID, channelID, msg),
		}
	}
	return embed
}

func messageLink(guildID, channelID string, msg *discordgo.Message) string {
	if msg.ChannelID != "" {
		channelID = msg.ChannelID
	}
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, msg.ID)
}
