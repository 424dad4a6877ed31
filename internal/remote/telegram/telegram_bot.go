package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/idlekeeper/idlekeeper/internal/event"
	"github.com/idlekeeper/idlekeeper/internal/game"
)

const maxMessageLength = 4000

// Executor runs a console line on behalf of a remote operator.
type Executor interface {
	Execute(ctx context.Context, line string, out io.Writer) error
}

type Bot struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	executor Executor
	logger   *slog.Logger
}

func (b *Bot) Start(ctx context.Context) error {
	offset, err := b.getLatestOffset()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = 5
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.Close()
			for range updates {
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil && update.Message.Chat != nil && update.Message.Chat.ID == b.chatID {
				b.handleMessage(ctx, update.Message.Text)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, text string) {
	line := normalizeCommand(text)
	if line == "" {
		return
	}

	var out bytes.Buffer
	if err := b.executor.Execute(ctx, line, &out); err != nil {
		out.WriteString(err.Error())
	}
	reply := strings.TrimSpace(out.String())
	if reply == "" {
		return
	}
	if len(reply) > maxMessageLength {
		reply = reply[:maxMessageLength]
	}
	if err := b.send(reply); err != nil {
		b.logger.Warn("Could not send Telegram reply", slog.Any("error", err))
	}
}

func (b *Bot) Handle(_ context.Context, e event.Event) error {
	message, ok := format(e)
	if !ok {
		return nil
	}
	return b.send(message)
}

func (b *Bot) send(text string) error {
	_, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text))
	return err
}

// Close stops polling and drops idle HTTP connections.
func (b *Bot) Close() {
	if b == nil || b.bot == nil {
		return
	}
	b.bot.StopReceivingUpdates()
	if c, ok := b.bot.Client.(*http.Client); ok && c != nil {
		if tr, ok := c.Transport.(*http.Transport); ok && tr != nil {
			tr.CloseIdleConnections()
		}
	}
}

func (b *Bot) getLatestOffset() (int, error) {
	upds, err := b.bot.GetUpdates(tgbotapi.NewUpdate(-1))
	if err != nil {
		return 0, err
	}
	offset := 0
	if len(upds) > 0 {
		offset = upds[0].UpdateID + 1
	}
	return offset, nil
}

// normalizeCommand strips the "@botname" suffix Telegram adds to commands in groups.
func normalizeCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || strings.HasPrefix(text, "//") {
		return text
	}
	name, rest, _ := strings.Cut(text, " ")
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}
	return strings.TrimSpace(name + " " + rest)
}

func format(e event.Event) (string, bool) {
	switch evt := e.(type) {
	case event.SessionStartedEvent:
		return fmt.Sprintf("[%s] logged in to %s", evt.Account(), evt.Address), true
	case event.SessionEndedEvent:
		if evt.Reason == game.ReasonSocketClosed {
			return "", false
		}
		return fmt.Sprintf("[%s] session ended: %s", evt.Account(), evt.Reason), true
	case event.KickedEvent:
		return fmt.Sprintf("[%s] kicked: %s", evt.Account(), evt.Reason), true
	case event.DeathEvent:
		return fmt.Sprintf("[%s] died (%d deaths)", evt.Account(), evt.Deaths), true
	case event.ReconnectScheduledEvent:
		return fmt.Sprintf("[%s] reconnecting in %s", evt.Account(), evt.Delay), true
	}
	return "", false
}
