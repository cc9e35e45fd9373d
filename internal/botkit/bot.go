package botkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Application is implemented by each concrete bot. It supplies the
// bot's identity, its commands and its catch-all text handler; the
// framework owns everything else.
type Application interface {
	Name() string
	Description() string

	// Commands returns the application's command table. It is consulted
	// once, at bot construction.
	Commands() []Command

	// HandleText handles free-text messages that matched no command.
	HandleText(ctx context.Context, b *Bot, evt *Event) error
}

// VoiceHandler is implemented by applications that can process voice
// messages. Without it, voice messages get a friendly "cannot process
// this" reply.
type VoiceHandler interface {
	HandleVoice(ctx context.Context, b *Bot, evt *Event) error
}

// StartupHook replaces the default post-startup notification, which
// pushes "<name> is starting up" to the first configured chat.
type StartupHook interface {
	PostStartup(ctx context.Context, b *Bot) error
}

// Mode selects the bot's runtime behavior.
type Mode int

const (
	// ModeDaemon keeps a long-poll listener running and dispatches
	// inbound events until the context is cancelled.
	ModeDaemon Mode = iota
	// ModeStandalone performs one batch of outbound sends and exits;
	// the connection is opened lazily and closed explicitly.
	ModeStandalone
)

// Bot ties an application to a configuration, a command registry, an
// authorization gate and a delivery router.
type Bot struct {
	app      Application
	cfg      *Config
	log      *slog.Logger
	reg      *Registry
	gate     *Gate
	router   *Router
	listener Listener
	mode     Mode
	jobs     []job
}

// NewDaemon builds a bot in daemon mode on an already-open listener
// connection. Command bindings are created once, here; the run loop
// only starts listening.
func NewDaemon(app Application, cfg *Config, log *slog.Logger, lst Listener) *Bot {
	b := newBot(app, cfg, log, ModeDaemon)
	b.listener = lst
	b.router = NewBoundRouter(lst, cfg.Destinations(), b.log)
	b.bind()
	return b
}

// NewStandalone builds a bot in one-shot mode. No listener exists; the
// router dials a connection on the first send and the caller must
// Close when the batch is done.
func NewStandalone(app Application, cfg *Config, log *slog.Logger, dial DialFunc) *Bot {
	b := newBot(app, cfg, log, ModeStandalone)
	b.router = NewStandaloneRouter(dial, cfg.Destinations(), b.log)
	return b
}

func newBot(app Application, cfg *Config, log *slog.Logger, mode Mode) *Bot {
	b := &Bot{
		app:  app,
		cfg:  cfg,
		log:  log.With("bot", app.Name()),
		gate: NewGate(!cfg.Unrestricted, cfg.Destinations()),
		mode: mode,
	}
	b.reg = b.buildRegistry()
	return b
}

// buildRegistry collects the application's commands and auto-registers
// the built-in help command plus its start alias. Chat platforms send
// /start on first contact, so it must always resolve. An application
// that registers its own help keeps it.
func (b *Bot) buildRegistry() *Registry {
	reg := NewRegistry()
	for _, cmd := range b.app.Commands() {
		reg.Add(cmd)
	}
	helpHandler := func(ctx context.Context, b *Bot, evt *Event) error {
		return b.Send(ctx, evt, b.Help())
	}
	for _, name := range []string{"help", "start"} {
		if _, ok := reg.Get(name); !ok {
			reg.Add(Command{Name: name, Doc: "show this help", Handler: helpHandler})
		}
	}
	return reg
}

// Name returns the application name.
func (b *Bot) Name() string { return b.app.Name() }

// Config returns the bot's configuration.
func (b *Bot) Config() *Config { return b.cfg }

// Logger returns the bot's logger.
func (b *Bot) Logger() *slog.Logger { return b.log }

// Registry returns the bot's command registry.
func (b *Bot) Registry() *Registry { return b.reg }

// Help returns the generated help text for this bot.
func (b *Bot) Help() string {
	return b.reg.Help(b.app.Name(), b.app.Description())
}

// Send delivers text as a reply to evt, or as a push to every
// configured chat when evt is nil.
func (b *Bot) Send(ctx context.Context, evt *Event, text string) error {
	return b.router.Send(ctx, evt, nil, Message{Text: text})
}

// SendMarkdown is Send with Markdown formatting enabled.
func (b *Bot) SendMarkdown(ctx context.Context, evt *Event, text string) error {
	return b.router.Send(ctx, evt, nil, Message{Text: text, Markdown: true})
}

// SendPhoto delivers a photo with an optional caption, replying to evt
// or pushing to every configured chat when evt is nil. The photo is
// read fully up front so every destination in a fan-out receives the
// complete body.
func (b *Bot) SendPhoto(ctx context.Context, evt *Event, filename string, photo io.Reader, caption string) error {
	data, err := io.ReadAll(photo)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}
	return b.router.Send(ctx, evt, nil, Message{Text: caption, Photo: data, Filename: filename})
}

// Push sends text to the given chats, or to every configured chat when
// none are named. Chats outside the configured list are rejected.
func (b *Bot) Push(ctx context.Context, text string, chatIDs ...int64) error {
	return b.push(ctx, Message{Text: text}, chatIDs)
}

// PushMarkdown is Push with Markdown formatting enabled.
func (b *Bot) PushMarkdown(ctx context.Context, text string, chatIDs ...int64) error {
	return b.push(ctx, Message{Text: text, Markdown: true}, chatIDs)
}

func (b *Bot) push(ctx context.Context, msg Message, chatIDs []int64) error {
	if len(chatIDs) == 0 {
		return b.router.Send(ctx, nil, nil, msg)
	}
	for _, id := range chatIDs {
		if err := b.router.Send(ctx, nil, &id, msg); err != nil {
			return err
		}
	}
	return nil
}

// Typing shows a typing indicator in the chat of evt.
func (b *Bot) Typing(ctx context.Context, evt *Event) error {
	return b.router.Typing(ctx, evt)
}

// Close flushes and closes the standalone connection. It must be
// called at the end of a one-shot batch; in daemon mode it is a no-op.
func (b *Bot) Close(ctx context.Context) error {
	return b.router.Close(ctx)
}

// Schedule registers a periodic job that runs in daemon mode on the
// given cron expression. Jobs fire outside any handler, so their sends
// are pushed to the configured chats over the daemon's connection.
func (b *Bot) Schedule(name, cronExpr string, fn func(ctx context.Context, b *Bot) error) {
	b.jobs = append(b.jobs, job{name: name, cron: cronExpr, fn: fn})
}

// Run starts the daemon: the long-poll listener, the post-startup
// notification and any scheduled jobs. It blocks until the context is
// cancelled or the listener fails.
func (b *Bot) Run(ctx context.Context) error {
	if b.mode != ModeDaemon {
		return errors.New("Run requires a bot built with NewDaemon")
	}

	b.log.Info("starting bot", "commands", len(b.reg.Commands()), "destinations", len(b.cfg.Destinations()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.listener.Listen(gCtx); err != nil {
			return fmt.Errorf("listener: %w", err)
		}
		if gCtx.Err() == nil {
			return errors.New("listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.postStartup(gCtx); err != nil {
			b.log.Warn("post-startup notification failed", "error", err)
		}
		sched, err := b.startScheduler(gCtx)
		if err != nil {
			return err
		}
		<-gCtx.Done()
		if sched != nil {
			if err := sched.Shutdown(); err != nil {
				b.log.Error("scheduler shutdown failed", "error", err)
			}
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.log.Error("bot stopped with error", "error", err)
		return err
	}
	b.log.Info("bot stopped")
	return nil
}

// postStartup runs the application's startup hook, defaulting to a
// short "is starting up" push to the first configured chat.
func (b *Bot) postStartup(ctx context.Context) error {
	if hook, ok := b.app.(StartupHook); ok {
		return hook.PostStartup(ctx, b)
	}
	dests := b.cfg.Destinations()
	if len(dests) == 0 {
		return ErrNoDestinations
	}
	return b.Push(ctx, fmt.Sprintf("%s is starting up", b.app.Name()), dests[0])
}
