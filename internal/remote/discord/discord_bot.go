package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const maxMessageLength = 1900

// Executor runs a console line on behalf of a remote operator.
type Executor interface {
	Execute(ctx context.Context, line string, out io.Writer) error
}

type Options struct {
	Token      string
	ChannelID  string
	BotAdmins  []string
	RelayChat  bool
	WebhookURL string
}

type Bot struct {
	discordSession *discordgo.Session
	channelID      string
	admins         []string
	relayChat      bool
	executor       Executor
	logger         *slog.Logger
	webhookClient  *webhookClient
}

func NewBot(opts Options, executor Executor, logger *slog.Logger) (*Bot, error) {
	botInstance := &Bot{
		channelID: opts.ChannelID,
		admins:    opts.BotAdmins,
		relayChat: opts.RelayChat,
		executor:  executor,
		logger:    logger,
	}

	if strings.TrimSpace(opts.WebhookURL) != "" {
		botInstance.webhookClient = newWebhookClient(opts.WebhookURL)
	}
	if opts.Token == "" {
		if botInstance.webhookClient == nil {
			return nil, fmt.Errorf("either a bot token or a webhook URL is required")
		}
		return botInstance, nil
	}

	dg, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	botInstance.discordSession = dg

	return botInstance, nil
}

// Start listens for admin commands until ctx is done. Webhook-only bots just wait.
func (b *Bot) Start(ctx context.Context) error {
	if b.discordSession == nil {
		<-ctx.Done()
		return nil
	}

	b.discordSession.AddHandler(b.onMessageCreated)
	// MESSAGE_CONTENT is required to read command text.
	b.discordSession.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	if err := b.discordSession.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	<-ctx.Done()

	return b.discordSession.Close()
}

func (b *Bot) onMessageCreated(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if m.ChannelID != b.channelID || !slices.Contains(b.admins, m.Author.ID) {
		return
	}

	line, ok := commandLine(m.Content)
	if !ok {
		return
	}

	b.logger.Info("Discord command", slog.String("user", m.Author.Username), slog.String("line", line))

	var out bytes.Buffer
	if err := b.executor.Execute(context.Background(), line, &out); err != nil {
		out.WriteString(err.Error())
	}
	reply := strings.TrimSpace(out.String())
	if reply == "" {
		reply = "OK"
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, codeBlock(reply)); err != nil {
		b.logger.Warn("Could not send Discord reply", slog.Any("error", err))
	}
}

// commandLine maps "!cmd args" to the console form "/cmd args".
func commandLine(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if len(content) < 2 || content[0] != '!' || content[1] == '!' || content[1] == ' ' {
		return "", false
	}
	return "/" + content[1:], true
}

func codeBlock(text string) string {
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength] + "\n..."
	}
	return "```\n" + text + "\n```"
}
