package botkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// msgCannotProcess is the reply for message kinds the application does
// not support.
const msgCannotProcess = "Sorry, I cannot process this kind of message."

// bind attaches every registered command and the catch-all handler to
// the daemon listener. It runs once, at construction; the standalone
// path never binds.
func (b *Bot) bind() {
	for _, cmd := range b.reg.Commands() {
		b.listener.BindCommand(cmd.Name, func(ctx context.Context, evt *Event) {
			b.dispatch(ctx, cmd.Name, cmd.Handler, evt)
		})
	}
	b.listener.BindDefault(b.dispatchDefault)
}

// dispatch runs the authorization gate and one handler for one inbound
// event. Unauthorized events are dropped without a reply so the bot's
// existence is not leaked. Handler failures end only this dispatch.
func (b *Bot) dispatch(ctx context.Context, name string, fn HandlerFunc, evt *Event) {
	log := b.log.With("handler", name, "chat_id", evt.ChatID)

	if !b.gate.Check(evt.ChatID) {
		log.WarnContext(ctx, "dropping event from unauthorized chat", "error", ErrUnauthorized)
		return
	}

	if err := fn(ctx, b, evt); err != nil {
		if errors.Is(err, ErrNotImplemented) {
			if serr := b.Send(ctx, evt, msgCannotProcess); serr != nil {
				log.ErrorContext(ctx, "failed to send unsupported-message reply", "error", serr)
			}
			return
		}
		log.ErrorContext(ctx, "handler failed", "error", err)
	}
}

// dispatchDefault handles every inbound event that matched no command
// binding: voice messages, free text and unknown commands.
func (b *Bot) dispatchDefault(ctx context.Context, evt *Event) {
	switch {
	case evt.Voice:
		b.dispatch(ctx, "voice", b.handleVoice, evt)
	case evt.Text == "":
		// Stickers, photos and other update kinds the framework does
		// not model.
		b.log.DebugContext(ctx, "ignoring event without text", "chat_id", evt.ChatID)
	case strings.HasPrefix(evt.Text, "/"):
		b.log.DebugContext(ctx, "ignoring unknown command", "chat_id", evt.ChatID, "text", evt.Text)
	default:
		b.dispatch(ctx, "text", b.app.HandleText, evt)
	}
}

func (b *Bot) handleVoice(ctx context.Context, _ *Bot, evt *Event) error {
	if vh, ok := b.app.(VoiceHandler); ok {
		return vh.HandleVoice(ctx, b, evt)
	}
	return fmt.Errorf("voice messages: %w", ErrNotImplemented)
}
