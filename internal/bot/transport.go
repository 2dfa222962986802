// Package bot runs the inbound message loop. The chat runtime itself stays
// behind the Transport interface so the conversation logic never depends on
// a concrete messenger SDK.
package bot

import "context"

// Event is one inbound message or button press from the chat runtime.
type Event struct {
	ChatID   int64
	FullName string
	Username string
	Text     string
	PhotoRef string
	Callback string
}

// Transport delivers inbound events and sends outbound text. Send also
// satisfies the dispatcher's sender contract, so the same connection serves
// both replies and notifications.
type Transport interface {
	Events() <-chan Event
	Send(ctx context.Context, chatID int64, text string) error
}
