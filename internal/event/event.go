// Package event defines the inbound occurrences the conversation engine dispatches on.
package event

import "errors"

// ErrNoSessionID indicates an event that cannot be attributed to a chat.
var ErrNoSessionID = errors.New("event carries no session id")

// Kind discriminates the inbound event types the engine understands.
type Kind string

const (
	// KindCommand is a slash-style bot command, e.g. /start.
	KindCommand Kind = "command"
	// KindCallback is an inline keyboard button press with an opaque payload.
	KindCallback Kind = "callback"
	// KindText is a free-text message.
	KindText Kind = "text"
	// KindLocation is a shared geographic location.
	KindLocation Kind = "location"
	// KindPreCheckout is a pre-payment confirmation query.
	KindPreCheckout Kind = "pre_checkout"
	// KindPayment is a successful payment notice.
	KindPayment Kind = "payment"
)

// Event is one inbound occurrence. Events are transient inputs to a single
// engine invocation and are never persisted.
type Event struct {
	Kind   Kind
	ChatID int64

	// Command carries the full command text for KindCommand.
	Command string
	// Callback carries the opaque button payload for KindCallback;
	// CallbackID identifies the press so it can be acknowledged.
	Callback   string
	CallbackID string
	// Text carries the message body for KindText.
	Text string
	// Lon and Lat carry coordinates for KindLocation.
	Lon float64
	Lat float64
	// PreCheckoutID identifies the query to answer for KindPreCheckout.
	PreCheckoutID string
	// InvoicePayload carries the invoice payload for KindPreCheckout and KindPayment.
	InvoicePayload string
	// TotalAmount carries the paid amount for KindPayment, in minor currency units.
	TotalAmount int
}

// SessionID returns the stable identifier of the conversation this event
// belongs to. Every event kind must resolve to one.
func (e Event) SessionID() (int64, error) {
	if e.ChatID == 0 {
		return 0, ErrNoSessionID
	}
	return e.ChatID, nil
}
