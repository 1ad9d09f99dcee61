package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/coopco/remindbot/internal/translate"
)

const (
	cmdReminderSet    = "reminder_set"
	cmdReminderDelete = "reminder_delete"
	cmdReminderList   = "reminder_list"
	cmdPing           = "ping"
	cmdXLinkConvert   = "xlinkconvert"
	cmdSlowmode       = "slowmode"

	cmdTranslateJA = "日本語翻訳"
	cmdTranslateEN = "英語翻訳"
	cmdTranslateCN = "中国語翻訳"
)

// maxSlowmode is Discord's upper bound for rate_limit_per_user.
const maxSlowmode = 21600

var translateCommands = map[string]translate.Lang{
	cmdTranslateJA: translate.Japanese,
	cmdTranslateEN: translate.English,
	cmdTranslateCN: translate.Chinese,
}

var weekdayChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Monday", Value: "Monday"},
	{Name: "Tuesday", Value: "Tuesday"},
	{Name: "Wednesday", Value: "Wednesday"},
	{Name: "Thursday", Value: "Thursday"},
	{Name: "Friday", Value: "Friday"},
	{Name: "Saturday", Value: "Saturday"},
	{Name: "Sunday", Value: "Sunday"},
}

func ptr[T any](v T) *T { return &v }

// applicationCommands is the full command set, registered by bulk overwrite.
func applicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdReminderSet,
			Description: "Set a reminder for a specific time and date.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Name of the reminder",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "Message to post",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to post in",
					Required:    true,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
						discordgo.ChannelTypeGuildNews,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "%H:%M:%S+<TZ> format (example: 12:00:00+09:00)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Repeat every N days",
					MinValue:    ptr(1.0),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "weekday",
					Description: "Repeat weekly on this day",
					Choices:     weekdayChoices,
				},
			},
		},
		{
			Name:        cmdReminderDelete,
			Description: "Delete a reminder",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Name of the reminder",
					Required:    true,
				},
			},
		},
		{
			Name:        cmdReminderList,
			Description: "List your reminders",
		},
		{
			Name:        cmdPing,
			Description: "Show the bot's latency.",
		},
		{
			Name:         cmdXLinkConvert,
			Description:  "Convert an x.com link to fxtwitter.com",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "変換するURL",
					Required:    true,
				},
			},
		},
		{
			Name:                     cmdSlowmode,
			Description:              "Set the slowmode for a channel.",
			DefaultMemberPermissions: ptr(int64(discordgo.PermissionAdministrator)),
			DMPermission:             ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "seconds",
					Description: "Seconds between messages per user",
					Required:    true,
					MinValue:    ptr(0.0),
					MaxValue:    maxSlowmode,
				},
			},
		},
		{Name: cmdTranslateJA, Type: discordgo.MessageApplicationCommand},
		{Name: cmdTranslateEN, Type: discordgo.MessageApplicationCommand},
		{Name: cmdTranslateCN, Type: discordgo.MessageApplicationCommand},
	}
}
