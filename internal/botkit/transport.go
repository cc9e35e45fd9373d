package botkit

import (
	"context"
	"io"
)

// Transport is the outbound surface of the chat backend. The delivery
// router speaks only this interface, so tests can substitute a fake and
// the standalone path can open connections lazily.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, markdown bool) error
	SendPhoto(ctx context.Context, chatID int64, filename string, photo io.Reader, caption string) error
	SendTyping(ctx context.Context, chatID int64) error

	// Close flushes outstanding work and tears the connection down.
	Close(ctx context.Context) error
}

// Listener is a Transport that also receives inbound events. The daemon
// dispatch loop binds command and catch-all handlers to it and then
// blocks in Listen until the context is cancelled.
type Listener interface {
	Transport

	BindCommand(name string, fn func(ctx context.Context, evt *Event))
	BindDefault(fn func(ctx context.Context, evt *Event))
	Listen(ctx context.Context) error
}

// DialFunc opens a standalone connection for one-shot sends.
type DialFunc func(ctx context.Context) (Transport, error)
