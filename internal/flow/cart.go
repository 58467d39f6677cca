package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/internal/keyboard"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
)

// Cart shows the current cart contents with per-item removal buttons.
type Cart struct {
	svc *Services

	Msg transport.MessageRef `json:"msg"`
}

// NewCart constructs the cart view.
func NewCart(svc *Services) *Cart {
	return &Cart{svc: svc}
}

func (c *Cart) Name() string { return "cart" }

// Prepare renders the cart contents and sends the cart message.
func (c *Cart) Prepare(ctx context.Context, sess *engine.Session) error {
	items, total, err := c.svc.Commerce.Cart(ctx, cartID(sess.ChatID))
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	buttons := make([]keyboard.Button, 0, len(items))
	lines := make([]map[string]any, 0, len(items))
	for _, item := range items {
		buttons = append(buttons, keyboard.Button{
			Text: fmt.Sprintf("Убрать %q", item.Name),
			Data: item.ID,
		})
		lines = append(lines, map[string]any{
			"Name":     item.Name,
			"Quantity": item.Quantity,
			"Amount":   formatAmount(item.Amount),
		})
	}

	kb := keyboard.NewBuilder().
		Rows(keyboard.Chunk(buttons, 2)).
		Row(
			keyboard.Button{Text: "Оформить заказ", Data: actionOrder},
			keyboard.Button{Text: "Вернуться в меню", Data: actionMenu},
		)

	text, err := c.svc.Renderer.Render("cart.tmpl", map[string]any{
		"Items": lines,
		"Total": formatAmount(total),
	})
	if err != nil {
		return err
	}

	msg, err := c.svc.Transport.SendText(ctx, sess.ChatID, text, kb.Build())
	if err != nil {
		return fmt.Errorf("send cart: %w", err)
	}

	c.Msg = msg
	return nil
}

// HandleInput removes items, starts checkout or returns to the menu. Payloads
// that match no reserved action are taken as cart-item ids.
func (c *Cart) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	if ev.Kind != event.KindCallback {
		return engine.Stay(), nil
	}

	switch ev.Callback {
	case actionOrder:
		answerCallback(ctx, c.svc, ev.CallbackID, "")
		return engine.To(NewDeliveryPrompt(c.svc)), nil
	case actionMenu:
		answerCallback(ctx, c.svc, ev.CallbackID, "")
		return engine.ToInitial(), nil
	default:
		if err := c.svc.Commerce.RemoveFromCart(ctx, cartID(sess.ChatID), ev.Callback); err != nil {
			return engine.Stay(), fmt.Errorf("remove cart item: %w", err)
		}
		answerCallback(ctx, c.svc, ev.CallbackID, "Корзина обновлена")
		// re-enter the cart so the message reflects the removal
		return engine.To(NewCart(c.svc)), nil
	}
}

// Cleanup deletes the cart message.
func (c *Cart) Cleanup(ctx context.Context, sess *engine.Session) error {
	if c.Msg.Zero() {
		return nil
	}

	if err := c.svc.Transport.DeleteMessage(ctx, c.Msg); err != nil && !errors.Is(err, transport.ErrMessageGone) {
		return err
	}
	return nil
}
