// Echobot echoes back whatever you send it, after pretending to think
// for a moment. It doubles as the smallest possible example of a bot
// built on the framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/botkit/internal/botkit"
	"github.com/edgard/botkit/internal/logger"
	"github.com/edgard/botkit/internal/telegram"
)

const botName = "EchoBot"

// echoApp replies to every message with the message itself.
type echoApp struct {
	mu       sync.Mutex
	thinking string
	wait     time.Duration
}

func newEchoApp() *echoApp {
	return &echoApp{thinking: "Let me just process..", wait: 3 * time.Second}
}

func (a *echoApp) Name() string        { return botName }
func (a *echoApp) Description() string { return "echoes back what you say, after thinking for a bit" }

func (a *echoApp) Commands() []botkit.Command {
	return []botkit.Command{
		{Name: "change", Usage: "<new text>", Doc: "change the thinking text", Handler: a.cmdChange},
	}
}

func (a *echoApp) HandleText(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	a.mu.Lock()
	thinking := a.thinking
	wait := a.wait
	a.mu.Unlock()

	if err := b.Send(ctx, evt, thinking); err != nil {
		return err
	}
	if err := b.Typing(ctx, evt); err != nil {
		b.Logger().Debug("typing indicator failed", "error", err)
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.Send(ctx, evt, fmt.Sprintf("You said: %s", evt.Text))
}

func (a *echoApp) cmdChange(ctx context.Context, b *botkit.Bot, evt *botkit.Event) error {
	text := evt.Args()
	if text == "" {
		return b.Send(ctx, evt, "usage: /change <new text>")
	}
	a.mu.Lock()
	a.thinking = text
	a.mu.Unlock()
	return b.Send(ctx, evt, fmt.Sprintf("Ok I will now set the thinking text to: %s", text))
}

var flagSend string

var rootCmd = &cobra.Command{
	Use:          "echobot",
	Short:        "EchoBot echoes back all the text you send it",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagSend, "send", "", "send a message to the configured chats and exit")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := botkit.DefaultConfigRoot()
	if err != nil {
		return err
	}
	cfg, err := botkit.LoadConfig(root, botName)
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.LogLevel, cfg.LogJSON)
	app := newEchoApp()

	if flagSend != "" {
		b := botkit.NewStandalone(app, cfg, log, telegram.Dialer(cfg.BotToken, log))
		err := b.Push(ctx, flagSend)
		if cerr := b.Close(ctx); err == nil {
			err = cerr
		}
		return err
	}

	client, err := telegram.New(cfg.BotToken, log, tgbot.WithMiddlewares(logger.Middleware(log)))
	if err != nil {
		return err
	}
	return botkit.NewDaemon(app, cfg, log, client).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
