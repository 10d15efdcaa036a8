package integration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMessageLimit = 4000

type Telegram struct {
	bot     *tgbotapi.BotAPI
	handler MessageHandler
}

func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) OnMessage(handler MessageHandler) {
	t.handler = handler
}

func (t *Telegram) Run(ctx context.Context) error {
	update := tgbotapi.NewUpdate(0)
	update.Timeout = 30

	updates := t.bot.GetUpdatesChan(update)

	slog.Info("Telegram integration connected", "user", t.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || upd.Message.Text == "" {
				continue
			}
			if t.handler != nil {
				t.handler(ctx, &telegramMessage{bot: t.bot, message: upd.Message})
			}
		}
	}
}

func (t *Telegram) SendToChannel(ctx context.Context, channelID, text string, noPreview bool) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", channelID, err)
	}
	return sendTelegram(t.bot, chatID, text, noPreview)
}

func sendTelegram(bot *tgbotapi.BotAPI, chatID int64, text string, noPreview bool) error {
	for _, chunk := range splitChunks(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = noPreview
		if _, err := bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}
	return nil
}

type telegramMessage struct {
	bot     *tgbotapi.BotAPI
	message *tgbotapi.Message
}

func (m *telegramMessage) Text() string {
	return m.message.Text
}

func (m *telegramMessage) ChannelID() string {
	return strconv.FormatInt(m.message.Chat.ID, 10)
}

func (m *telegramMessage) SendBack(ctx context.Context, text string, noPreview bool) error {
	return sendTelegram(m.bot, m.message.Chat.ID, text, noPreview)
}
