package bot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Console is a line-based development transport. Input lines look like
// "<chat_id> <text>"; outbound messages are printed to the writer. It keeps
// local runs working without any messenger credentials.
type Console struct {
	events chan Event

	mu  sync.Mutex
	out io.Writer
	in  io.Reader
}

// NewConsole builds a console transport over the given streams.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		events: make(chan Event, 16),
		in:     in,
		out:    out,
	}
}

// Run reads input lines until EOF or cancellation, then closes the event
// channel.
func (c *Console) Run(ctx context.Context) {
	defer close(c.events)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		chatID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			c.printf("!! expected \"<chat_id> <text>\", got %q\n", line)
			continue
		}
		ev := Event{ChatID: chatID, FullName: fmt.Sprintf("console-%d", chatID)}
		if len(parts) == 2 {
			ev.Text = parts[1]
		}
		select {
		case <-ctx.Done():
			return
		case c.events <- ev:
		}
	}
}

// Events implements Transport.
func (c *Console) Events() <-chan Event {
	return c.events
}

// Send implements Transport and the dispatcher sender contract.
func (c *Console) Send(_ context.Context, chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "-> [%d] %s\n", chatID, text)
	return err
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
