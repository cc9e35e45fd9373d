package botkit

import "strings"

// Event is one inbound message. It is passed explicitly through the
// dispatch chain and down into sends: a send carrying a non-nil Event is
// delivered as a reply to that event's chat, a send with a nil Event is
// a proactive push. An Event is only meaningful for the duration of the
// handler invocation it was created for.
type Event struct {
	ChatID int64
	Text   string
	Voice  bool
}

// Args returns the text after the command word, trimmed. It is empty
// when the command was sent without arguments.
func (e *Event) Args() string {
	_, rest, found := strings.Cut(e.Text, " ")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

// Fields returns the argument text split on whitespace.
func (e *Event) Fields() []string {
	return strings.Fields(e.Args())
}
