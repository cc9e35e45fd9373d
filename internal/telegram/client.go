// Package telegram wraps the go-telegram/bot client behind the botkit
// transport interfaces. It is the only package that knows about the
// Telegram wire API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botkit/internal/botkit"
)

// Client is a live Telegram connection. It implements botkit.Listener
// for daemon bots and botkit.Transport for one-shot sends.
type Client struct {
	bot       *tgbot.Bot
	log       *slog.Logger
	defaultFn func(ctx context.Context, evt *botkit.Event)
}

// New connects to Telegram with the given token. The connection is
// verified up front, so a bad token or unreachable backend fails here
// rather than on the first send.
func New(token string, log *slog.Logger, opts ...tgbot.Option) (*Client, error) {
	c := &Client{log: log.With("component", "telegram")}

	opts = append(opts, tgbot.WithDefaultHandler(c.handleDefault))
	b, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	c.bot = b
	return c, nil
}

// Dialer returns a dial function for standalone bots. Each call opens
// a fresh connection.
func Dialer(token string, log *slog.Logger) botkit.DialFunc {
	return func(ctx context.Context) (botkit.Transport, error) {
		return New(token, log)
	}
}

// SendMessage sends text to a chat, optionally as Markdown.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markdown bool) error {
	params := &tgbot.SendMessageParams{ChatID: chatID, Text: text}
	if markdown {
		params.ParseMode = models.ParseModeMarkdown
	}
	_, err := c.bot.SendMessage(ctx, params)
	return err
}

// SendPhoto uploads a photo to a chat with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, filename string, photo io.Reader, caption string) error {
	_, err := c.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: filename, Data: photo},
		Caption: caption,
	})
	return err
}

// SendTyping shows the "typing…" chat action.
func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	_, err := c.bot.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	return err
}

// Close tears down the connection. Sends go over stateless HTTPS calls
// and long polling only runs inside Listen, so there is nothing to
// flush; dropping the client releases the session.
func (c *Client) Close(ctx context.Context) error {
	c.log.Debug("telegram connection closed")
	return nil
}

// BindCommand routes "/<name>" messages to fn.
func (c *Client) BindCommand(name string, fn func(ctx context.Context, evt *botkit.Event)) {
	c.bot.RegisterHandler(tgbot.HandlerTypeMessageText, name, tgbot.MatchTypeCommandStartOnly,
		func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if evt := eventFrom(update); evt != nil {
				fn(ctx, evt)
			}
		})
}

// BindDefault routes every update that matched no command to fn.
func (c *Client) BindDefault(fn func(ctx context.Context, evt *botkit.Event)) {
	c.defaultFn = fn
}

// Listen long-polls for updates until the context is cancelled.
func (c *Client) Listen(ctx context.Context) error {
	c.log.Info("starting long polling")
	c.bot.Start(ctx)
	c.log.Info("long polling stopped")
	return nil
}

func (c *Client) handleDefault(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if c.defaultFn == nil {
		return
	}
	if evt := eventFrom(update); evt != nil {
		c.defaultFn(ctx, evt)
	}
}

// eventFrom translates a Telegram update into a framework event.
// Updates without a message (edits, callback queries, member changes)
// are outside the framework's model and map to nil.
func eventFrom(update *models.Update) *botkit.Event {
	if update == nil || update.Message == nil {
		return nil
	}
	return &botkit.Event{
		ChatID: update.Message.Chat.ID,
		Text:   update.Message.Text,
		Voice:  update.Message.Voice != nil,
	}
}
