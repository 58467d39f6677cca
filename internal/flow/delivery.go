package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/internal/geocode"
)

// DeliveryPrompt asks the user for a delivery address: either a shared
// location or free text resolved through the geocoder.
type DeliveryPrompt struct {
	svc *Services
}

// NewDeliveryPrompt constructs the address prompt.
func NewDeliveryPrompt(svc *Services) *DeliveryPrompt {
	return &DeliveryPrompt{svc: svc}
}

func (d *DeliveryPrompt) Name() string { return "delivery_prompt" }

// Prepare sends the address request. The prompt carries no controls, so no
// handle is recorded for cleanup.
func (d *DeliveryPrompt) Prepare(ctx context.Context, sess *engine.Session) error {
	text, err := d.svc.Renderer.Render("delivery_prompt.tmpl", nil)
	if err != nil {
		return err
	}

	if _, err := d.svc.Transport.SendText(ctx, sess.ChatID, text, nil); err != nil {
		return fmt.Errorf("send delivery prompt: %w", err)
	}

	return nil
}

// HandleInput accepts a location share directly, or geocodes free text. An
// unresolvable address re-prompts without a transition.
func (d *DeliveryPrompt) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	switch ev.Kind {
	case event.KindLocation:
		return engine.To(NewConfirmAddress(d.svc, ev.Lon, ev.Lat)), nil
	case event.KindText:
		lon, lat, err := d.svc.Geocoder.Resolve(ctx, ev.Text)
		if err != nil {
			if errors.Is(err, geocode.ErrNotFound) {
				return engine.Stay(), d.reprompt(ctx, sess)
			}
			return engine.Stay(), fmt.Errorf("resolve address: %w", err)
		}
		return engine.To(NewConfirmAddress(d.svc, lon, lat)), nil
	default:
		return engine.Stay(), nil
	}
}

// Cleanup is a no-op: the prompt has no interactive controls to retire.
func (d *DeliveryPrompt) Cleanup(ctx context.Context, sess *engine.Session) error {
	return nil
}

func (d *DeliveryPrompt) reprompt(ctx context.Context, sess *engine.Session) error {
	text, err := d.svc.Renderer.Render("address_not_found.tmpl", nil)
	if err != nil {
		return err
	}

	if _, err := d.svc.Transport.SendText(ctx, sess.ChatID, text, nil); err != nil {
		return fmt.Errorf("send address re-prompt: %w", err)
	}

	return nil
}
