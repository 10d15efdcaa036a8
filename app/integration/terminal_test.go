package integration

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestTerminalDispatchesLines(t *testing.T) {
	term := NewTerminal()
	term.input = strings.NewReader("!help\nexit\n")

	var received []string
	term.OnMessage(func(ctx context.Context, msg IncomingMessage) {
		received = append(received, msg.Text())
	})

	if err := term.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(received) != 1 || received[0] != "!help" {
		t.Errorf("Expected the line before exit to be dispatched, got: %v", received)
	}
}

func TestTerminalStopsOnEOF(t *testing.T) {
	term := NewTerminal()
	term.input = strings.NewReader("!help\n")

	term.OnMessage(func(ctx context.Context, msg IncomingMessage) {})

	done := make(chan error, 1)
	go func() { done <- term.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return when input ends")
	}
}

func TestTerminalStopsOnCancel(t *testing.T) {
	// A pipe that is never written keeps the reader goroutine blocked; only
	// cancellation can end the run.
	pr, pw := io.Pipe()
	defer pw.Close()

	term := NewTerminal()
	term.input = pr

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return promptly on cancellation")
	}
}

func TestTerminalReaderUnblocksOnCancel(t *testing.T) {
	pr, pw := io.Pipe()

	term := NewTerminal()
	term.input = pr

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	// A line written after cancellation must not wedge the writer: the
	// reader goroutine drops pending sends and exits.
	cancel()
	<-done

	written := make(chan struct{})
	go func() {
		pw.Write([]byte("late line\n"))
		pw.Close()
		close(written)
	}()

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("Expected the pending input writer not to block after shutdown")
	}
}
