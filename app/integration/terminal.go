package integration

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Terminal is a local integration that reads commands from stdin and prints
// replies to stdout. Useful for trying the bot without a chat platform.
type Terminal struct {
	input   io.Reader
	handler MessageHandler
}

func NewTerminal() *Terminal {
	return &Terminal{input: os.Stdin}
}

func (t *Terminal) Name() string {
	return "terminal"
}

func (t *Terminal) OnMessage(handler MessageHandler) {
	t.handler = handler
}

func (t *Terminal) Run(ctx context.Context) error {
	fmt.Println("Started with terminal integration! Type 'exit' to quit.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(t.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.EqualFold(strings.TrimSpace(line), "exit") {
				return nil
			}
			if t.handler != nil {
				t.handler(ctx, &terminalMessage{text: line})
			}
		}
	}
}

func (t *Terminal) SendToChannel(ctx context.Context, channelID, text string, noPreview bool) error {
	fmt.Println(text)
	return nil
}

type terminalMessage struct {
	text string
}

func (m *terminalMessage) Text() string {
	return m.text
}

func (m *terminalMessage) ChannelID() string {
	return "terminal"
}

func (m *terminalMessage) SendBack(ctx context.Context, text string, noPreview bool) error {
	fmt.Println(text)
	return nil
}
