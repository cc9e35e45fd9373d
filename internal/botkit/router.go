package botkit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State is the delivery router's connection lifecycle state.
type State int

const (
	// StateIdle means no connection is open. Standalone routers start
	// here and return here after Close.
	StateIdle State = iota
	// StateConnected means the standalone connection is open.
	StateConnected
	// StateBound means the daemon event loop owns the connection; the
	// router never opens or closes it.
	StateBound
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateBound:
		return "bound"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Message is one outgoing message. When Photo is set the message is
// delivered as a photo upload with Text as its caption. Photo holds
// the full image bytes so a fan-out can hand every destination its own
// reader.
type Message struct {
	Text     string
	Markdown bool
	Photo    []byte
	Filename string
}

// Router routes every outgoing message either as a reply to an inbound
// event or as a push to one or more configured destinations, and owns
// the connection lifecycle for the standalone path.
//
// In daemon mode the router is bound to the live listener connection
// for the process lifetime. In standalone mode it opens a connection
// lazily on the first send and tears it down on Close.
type Router struct {
	mu    sync.Mutex
	state State
	tr    Transport
	dial  DialFunc

	dests   []int64
	allowed map[int64]struct{}
	log     *slog.Logger
}

// NewBoundRouter returns a router fixed to the daemon's already-open
// connection.
func NewBoundRouter(tr Transport, dests []int64, log *slog.Logger) *Router {
	r := newRouter(dests, log)
	r.state = StateBound
	r.tr = tr
	return r
}

// NewStandaloneRouter returns an idle router that opens a connection
// through dial on the first send.
func NewStandaloneRouter(dial DialFunc, dests []int64, log *slog.Logger) *Router {
	r := newRouter(dests, log)
	r.dial = dial
	return r
}

func newRouter(dests []int64, log *slog.Logger) *Router {
	allowed := make(map[int64]struct{}, len(dests))
	for _, id := range dests {
		allowed[id] = struct{}{}
	}
	return &Router{
		state:   StateIdle,
		dests:   dests,
		allowed: allowed,
		log:     log.With("component", "router"),
	}
}

// State returns the current lifecycle state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Send delivers msg. A non-nil evt makes the send a reply to that
// event's chat. Otherwise the message is pushed: to *dest when given,
// or fanned out to every configured destination when dest is nil.
// Push destinations must be in the configured chat list.
func (r *Router) Send(ctx context.Context, evt *Event, dest *int64, msg Message) error {
	if evt != nil {
		return r.deliver(ctx, evt.ChatID, msg)
	}

	targets, err := r.targets(dest)
	if err != nil {
		return err
	}
	for _, chatID := range targets {
		if err := r.deliver(ctx, chatID, msg); err != nil {
			return err
		}
	}
	return nil
}

// Typing signals a typing indicator in the chat of the given event.
func (r *Router) Typing(ctx context.Context, evt *Event) error {
	if evt == nil {
		return nil
	}
	tr, err := r.transport(ctx)
	if err != nil {
		return err
	}
	return tr.SendTyping(ctx, evt.ChatID)
}

// Close flushes and tears down the standalone connection, returning the
// router to idle. It is a no-op when nothing is open or when the daemon
// loop owns the connection.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateConnected {
		return nil
	}
	err := r.tr.Close(ctx)
	r.tr = nil
	r.state = StateIdle
	if err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}
	r.log.Debug("standalone connection closed")
	return nil
}

// targets resolves the push destination list. The configured chat list
// is a safety property for outbound sends too, not just an inbound
// filter.
func (r *Router) targets(dest *int64) ([]int64, error) {
	if dest != nil {
		if _, ok := r.allowed[*dest]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnauthorizedDestination, *dest)
		}
		return []int64{*dest}, nil
	}
	if len(r.dests) == 0 {
		return nil, ErrNoDestinations
	}
	return r.dests, nil
}

func (r *Router) deliver(ctx context.Context, chatID int64, msg Message) error {
	tr, err := r.transport(ctx)
	if err != nil {
		return err
	}
	if msg.Photo != nil {
		err = tr.SendPhoto(ctx, chatID, msg.Filename, bytes.NewReader(msg.Photo), msg.Text)
	} else {
		err = tr.SendMessage(ctx, chatID, msg.Text, msg.Markdown)
	}
	if err != nil {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// transport returns the live transport, opening the standalone
// connection on first use. A second call while connected reuses the
// open connection. A failed open leaves the router idle.
func (r *Router) transport(ctx context.Context) (Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateBound, StateConnected:
		return r.tr, nil
	}

	if r.dial == nil {
		return nil, fmt.Errorf("router has no connection and no dialer")
	}
	tr, err := r.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	r.tr = tr
	r.state = StateConnected
	r.log.Debug("standalone connection opened")
	return tr, nil
}
