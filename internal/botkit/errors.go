package botkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes the framework distinguishes.
// Callers match them with errors.Is.
var (
	// ErrConfigNotFound is returned when a bot's config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrUnauthorized marks an inbound event whose origin is not in the
	// configured chat list. Dispatch drops such events silently.
	ErrUnauthorized = errors.New("unauthorized chat")

	// ErrUnauthorizedDestination marks an outbound send to a chat outside
	// the configured chat list.
	ErrUnauthorizedDestination = errors.New("destination not in configured chat list")

	// ErrNoDestinations is returned when a fan-out send is attempted with
	// an empty destination list.
	ErrNoDestinations = errors.New("no destinations configured")

	// ErrNotImplemented marks an optional capability the application does
	// not provide, such as voice message handling.
	ErrNotImplemented = errors.New("not implemented")
)

// MissingKeyError reports a required key absent from a bot's config file.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required config key %q", e.Key)
}

// DeliveryError reports a transport failure while sending to a single
// destination. The framework never retries; the calling handler decides
// what to do with it.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to chat %d failed: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
