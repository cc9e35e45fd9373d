package botkit

import (
	"context"
	"fmt"
	"strings"
)

// HandlerFunc is a command or message handler. The event is the inbound
// message being handled; handlers reply by passing it back into the
// bot's send methods.
type HandlerFunc func(ctx context.Context, b *Bot, evt *Event) error

// Command describes one registered bot command.
type Command struct {
	Name    string      // command word, without the leading slash
	Usage   string      // argument hint shown in help, may be empty
	Doc     string      // one-line description shown in help
	Handler HandlerFunc
}

// Registry is the ordered command table of a single bot instance. Each
// bot builds its own registry at construction time, so two applications
// in one process never see each other's commands. It is populated
// before the dispatch loop starts and read-only afterwards.
type Registry struct {
	order  []string
	byName map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Add registers a command. Re-registering a name replaces the earlier
// entry in place, so a command never appears twice in the help text.
func (r *Registry) Add(cmd Command) {
	if _, ok := r.byName[cmd.Name]; !ok {
		r.order = append(r.order, cmd.Name)
	}
	r.byName[cmd.Name] = cmd
}

// Get looks up a command by name.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.byName[name]
	return cmd, ok
}

// Commands returns all commands in registration order.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Help renders the aggregate help text: the bot's name and description
// followed by one usage line per command.
func (r *Registry) Help(name, description string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s - %s\n", name, description)
	for _, cmd := range r.Commands() {
		sb.WriteString("\n/")
		sb.WriteString(cmd.Name)
		if cmd.Usage != "" {
			sb.WriteString(" ")
			sb.WriteString(cmd.Usage)
		}
		if cmd.Doc != "" {
			sb.WriteString(" - ")
			sb.WriteString(cmd.Doc)
		}
	}
	return sb.String()
}
