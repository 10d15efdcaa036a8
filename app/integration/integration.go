package integration

import (
	"context"
	"fmt"

	"github.com/mopihu/pyhabot/app/cfg"
)

// IncomingMessage is one chat message received by an integration.
type IncomingMessage interface {
	Text() string
	ChannelID() string
	SendBack(ctx context.Context, text string, noPreview bool) error
}

type MessageHandler func(ctx context.Context, msg IncomingMessage)

// Integration is the capability surface the bot needs from a chat platform:
// an identity, a message stream and a way to post into a channel. One
// concrete implementation is selected at startup.
type Integration interface {
	Name() string
	Run(ctx context.Context) error
	SendToChannel(ctx context.Context, channelID, text string, noPreview bool) error
	OnMessage(handler MessageHandler)
}

// New selects the concrete integration based on the process configuration.
func New(c *cfg.Cfg) (Integration, error) {
	switch c.Integration {
	case "discord":
		return NewDiscord(c.DiscordToken)
	case "telegram":
		return NewTelegram(c.TelegramToken)
	case "terminal":
		return NewTerminal(), nil
	default:
		return nil, fmt.Errorf("unknown integration: %s", c.Integration)
	}
}

// splitChunks cuts a message into rune-safe pieces no longer than size,
// for platforms with a maximum message length.
func splitChunks(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
