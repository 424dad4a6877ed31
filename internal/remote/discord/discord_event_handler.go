package discord

import (
	"context"
	"fmt"

	"github.com/idlekeeper/idlekeeper/internal/event"
	"github.com/idlekeeper/idlekeeper/internal/game"
)

func (b *Bot) Handle(ctx context.Context, e event.Event) error {
	message, ok := b.format(e)
	if !ok {
		return nil
	}
	return b.sendEventMessage(ctx, message)
}

func (b *Bot) format(e event.Event) (string, bool) {
	switch evt := e.(type) {
	case event.SessionStartedEvent:
		return fmt.Sprintf("**[%s]** logged in to %s", evt.Account(), evt.Address), true
	case event.SessionEndedEvent:
		if evt.Reason == game.ReasonSocketClosed {
			return "", false
		}
		return fmt.Sprintf("**[%s]** session ended: %s", evt.Account(), evt.Reason), true
	case event.KickedEvent:
		return fmt.Sprintf("**[%s]** kicked: %s", evt.Account(), evt.Reason), true
	case event.DeathEvent:
		return fmt.Sprintf("**[%s]** died (%d deaths)", evt.Account(), evt.Deaths), true
	case event.ReconnectScheduledEvent:
		return fmt.Sprintf("**[%s]** reconnecting in %s (%s)", evt.Account(), evt.Delay, evt.Reason), true
	case event.ChatEvent:
		if !b.relayChat {
			return "", false
		}
		if evt.Whisper {
			return fmt.Sprintf("*[Whisper]* <%s> %s", evt.Username, evt.Text), true
		}
		return fmt.Sprintf("<%s> %s", evt.Username, evt.Text), true
	}
	return "", false
}

func (b *Bot) sendEventMessage(ctx context.Context, message string) error {
	if b.webhookClient != nil {
		return b.webhookClient.Send(ctx, message)
	}
	if b.discordSession == nil {
		return nil
	}

	_, err := b.discordSession.ChannelMessageSend(b.channelID, message)
	return err
}
