package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Notifier posts reminder text to a channel. Only the reminder's owner may
// be pinged by the message.
type Notifier struct {
	session Session
	limiter *rate.Limiter
}

// NewNotifier paces sends with limiter; nil means unlimited.
func NewNotifier(session Session, limiter *rate.Limiter) *Notifier {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Notifier{session: session, limiter: limiter}
}

func (n *Notifier) Send(ctx context.Context, destinationID, text, mentionOwnerID string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord: send rate limit wait: %w", err)
	}
	_, err := n.session.ChannelMessageSendComplex(destinationID, &discordgo.MessageSend{
		Content: text,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{mentionOwnerID},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: failed to send message: %w", err)
	}
	return nil
}
