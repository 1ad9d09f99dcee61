package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/coopco/remindbot/internal/reminder"
	"github.com/coopco/remindbot/internal/translate"
)

// mockSession records what the bot sends. Methods not overridden panic
// through the nil embedded interface.
type mockSession struct {
	Session

	mu          sync.Mutex
	opened      bool
	closed      bool
	handlers    []any
	removed     int
	overwritten []*discordgo.ApplicationCommand
	overwriteID string
	guildID     string
	responses   []*discordgo.InteractionResponse
	edits       []*discordgo.WebhookEdit
	sent        map[string][]*discordgo.MessageSend
	channelEdit *discordgo.ChannelEdit
	editErr     error
	sendErr     error
	latency     time.Duration
}

func newMockSession() *mockSession {
	return &mockSession{sent: map[string][]*discordgo.MessageSend{}}
}

func (m *mockSession) Open() error {
	m.opened = true
	return nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

func (m *mockSession) AddHandler(h any) func() {
	m.handlers = append(m.handlers, h)
	return func() { m.removed++ }
}

func (m *mockSession) ApplicationCommandBulkOverwrite(
	appID, guildID string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	m.overwriteID = appID
	m.guildID = guildID
	m.overwritten = commands
	return commands, nil
}

func (m *mockSession) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockSession) InteractionResponseEdit(
	_ *discordgo.Interaction,
	edit *discordgo.WebhookEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.edits = append(m.edits, edit)
	return &discordgo.Message{}, nil
}

func (m *mockSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent[channelID] = append(m.sent[channelID], data)
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func (m *mockSession) ChannelEdit(
	_ string,
	data *discordgo.ChannelEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	if m.editErr != nil {
		return nil, m.editErr
	}
	m.channelEdit = data
	return &discordgo.Channel{}, nil
}

func (m *mockSession) HeartbeatLatency() time.Duration {
	return m.latency
}

// lastContent is the text of the most recent reply or edit.
func (m *mockSession) lastContent() string {
	if len(m.edits) > 0 && m.edits[len(m.edits)-1].Content != nil {
		return *m.edits[len(m.edits)-1].Content
	}
	if len(m.responses) > 0 && m.responses[len(m.responses)-1].Data != nil {
		return m.responses[len(m.responses)-1].Data.Content
	}
	return ""
}

type fakeReminders struct {
	created   []reminder.CreateRequest
	deleted   []string
	list      []reminder.Reminder
	createErr error
	deleteErr error
}

func (f *fakeReminders) Create(_ context.Context, req reminder.CreateRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, req)
	return nil
}

func (f *fakeReminders) Delete(_ context.Context, ownerID, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ownerID+"/"+name)
	return nil
}

func (f *fakeReminders) List(context.Context, string) ([]reminder.Reminder, error) {
	return f.list, nil
}

type fakeTranslator struct {
	text string
	att  *translate.Attachment
	lang translate.Lang
}

func (f *fakeTranslator) Translate(_ context.Context, text string, att *translate.Attachment, lang translate.Lang) string {
	f.text, f.att, f.lang = text, att, lang
	return "translated: " + text
}

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(s *mockSession, r ReminderService, t Translator) *Bot {
	return New(s, Config{
		ApplicationID: "app",
		Reminders:     r,
		Translator:    t,
		Logger:        quietLogger(),
	})
}

func option(name string, typ discordgo.ApplicationCommandOptionType, v any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: v}
}

func command(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "int-1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "1",
		ChannelID: "555",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "42", Username: "alice"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}}
}
