package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const discordMessageLimit = 2000

type Discord struct {
	session *discordgo.Session
	handler MessageHandler
}

func NewDiscord(token string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	return &Discord{session: session}, nil
}

func (d *Discord) Name() string {
	return "discord"
}

func (d *Discord) OnMessage(handler MessageHandler) {
	d.handler = handler
}

func (d *Discord) Run(ctx context.Context) error {
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		if d.handler != nil {
			d.handler(ctx, &discordMessage{session: d.session, message: m})
		}
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	slog.Info("Discord integration connected", "user", d.session.State.User.Username)

	<-ctx.Done()
	return d.session.Close()
}

func (d *Discord) SendToChannel(ctx context.Context, channelID, text string, noPreview bool) error {
	for _, chunk := range splitChunks(text, discordMessageLimit) {
		msg := &discordgo.MessageSend{Content: chunk}
		if noPreview {
			msg.Flags = discordgo.MessageFlagsSuppressEmbeds
		}
		if _, err := d.session.ChannelMessageSendComplex(channelID, msg); err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
	}
	return nil
}

type discordMessage struct {
	session *discordgo.Session
	message *discordgo.MessageCreate
}

func (m *discordMessage) Text() string {
	return m.message.Content
}

func (m *discordMessage) ChannelID() string {
	return m.message.ChannelID
}

func (m *discordMessage) SendBack(ctx context.Context, text string, noPreview bool) error {
	for _, chunk := range splitChunks(text, discordMessageLimit) {
		msg := &discordgo.MessageSend{Content: chunk}
		if noPreview {
			msg.Flags = discordgo.MessageFlagsSuppressEmbeds
		}
		if _, err := m.session.ChannelMessageSendComplex(m.message.ChannelID, msg); err != nil {
			return fmt.Errorf("failed to send discord reply: %w", err)
		}
	}
	return nil
}
