// Package transport abstracts the chat platform the conversation runs on.
package transport

import (
	"context"
	"errors"

	"github.com/ovenlight/pizzeria-bot/internal/keyboard"
)

// ErrMessageGone indicates the UI artifact no longer exists on the platform
// side, e.g. the user already deleted the message. Cleanup races against
// external edits are expected and callers treat this as a no-op outcome.
var ErrMessageGone = errors.New("message no longer exists")

// MessageRef is the handle of one sent message, kept by states for later cleanup.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Zero reports whether the ref was never assigned.
func (r MessageRef) Zero() bool {
	return r.MessageID == 0
}

// LabeledPrice is one line of an invoice.
type LabeledPrice struct {
	Label  string
	Amount int
}

// Transport is the outbound surface of the chat platform.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, kb *keyboard.Inline) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, imageURL, caption string, kb *keyboard.Inline) (MessageRef, error)
	SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []LabeledPrice) (MessageRef, error)
	SendLocation(ctx context.Context, chatID int64, lon, lat float64) error
	// ClearMarkup strips the interactive controls from a previously sent message.
	ClearMarkup(ctx context.Context, ref MessageRef) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorText string) error
}
