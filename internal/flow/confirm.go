package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/internal/keyboard"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
)

// DeliveryQuote is the nearest service point and the fee computed for the
// customer's coordinates. It is filled during Prepare and kept in the
// snapshot so a rehydrated session can still act on the quoted terms.
type DeliveryQuote struct {
	Restaurant commerce.Restaurant `json:"restaurant"`
	DistanceKM float64             `json:"distance_km"`
	Fee        int                 `json:"fee"`
	Offered    bool                `json:"offered"`
}

// ConfirmAddress shows the nearest restaurant and the pickup/delivery options
// for the resolved customer coordinates.
type ConfirmAddress struct {
	svc *Services

	Lon   float64              `json:"lon"`
	Lat   float64              `json:"lat"`
	Quote DeliveryQuote        `json:"quote"`
	Msg   transport.MessageRef `json:"msg"`
}

// NewConfirmAddress constructs the confirmation step for the given customer
// coordinates.
func NewConfirmAddress(svc *Services, lon, lat float64) *ConfirmAddress {
	return &ConfirmAddress{svc: svc, Lon: lon, Lat: lat}
}

func (c *ConfirmAddress) Name() string { return "confirm_address" }

// Prepare finds the nearest registered restaurant, quotes the delivery fee
// for its distance and sends the options keyboard.
func (c *ConfirmAddress) Prepare(ctx context.Context, sess *engine.Session) error {
	restaurants, err := c.svc.Commerce.Restaurants(ctx)
	if err != nil {
		return fmt.Errorf("list restaurants: %w", err)
	}
	if len(restaurants) == 0 {
		return errors.New("no restaurants registered")
	}

	nearest := restaurants[0]
	nearestDist := distanceKM(c.Lon, c.Lat, nearest.Lon, nearest.Lat)
	for _, restaurant := range restaurants[1:] {
		if dist := distanceKM(c.Lon, c.Lat, restaurant.Lon, restaurant.Lat); dist < nearestDist {
			nearest, nearestDist = restaurant, dist
		}
	}

	fee, offered := c.svc.Delivery.Quote(nearestDist)
	c.Quote = DeliveryQuote{
		Restaurant: nearest,
		DistanceKM: nearestDist,
		Fee:        fee,
		Offered:    offered,
	}

	options := []keyboard.Button{{Text: "Самовывоз", Data: actionPickup}}
	if offered {
		options = append(options, keyboard.Button{
			Text: fmt.Sprintf("Заказать доставку ( +%dр. )", fee),
			Data: actionRequestDelivery,
		})
	}

	kb := keyboard.NewBuilder().
		Row(options...).
		Row(
			keyboard.Button{Text: "Изменить адрес доставки", Data: actionChangeAddress},
			keyboard.Button{Text: "Вернуться в меню", Data: actionMenu},
		)

	text, err := c.svc.Renderer.Render("confirm_address.tmpl", map[string]any{
		"Address":    nearest.Address,
		"DistanceKM": fmt.Sprintf("%.1f", nearestDist),
	})
	if err != nil {
		return err
	}

	msg, err := c.svc.Transport.SendText(ctx, sess.ChatID, text, kb.Build())
	if err != nil {
		return fmt.Errorf("send address confirmation: %w", err)
	}

	c.Msg = msg
	return nil
}

// HandleInput moves to the payment step, re-prompts for a new address, or
// returns to the menu.
func (c *ConfirmAddress) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	if ev.Kind != event.KindCallback {
		return engine.Stay(), nil
	}

	answerCallback(ctx, c.svc, ev.CallbackID, "")

	switch ev.Callback {
	case actionMenu:
		return engine.ToInitial(), nil
	case actionChangeAddress:
		return engine.To(NewDeliveryPrompt(c.svc)), nil
	case actionPickup:
		return engine.To(NewPaymentInquiry(c.svc, c.Quote.Restaurant, 0, false, c.Lon, c.Lat)), nil
	case actionRequestDelivery:
		if !c.Quote.Offered {
			return engine.Stay(), nil
		}
		return engine.To(NewPaymentInquiry(c.svc, c.Quote.Restaurant, c.Quote.Fee, true, c.Lon, c.Lat)), nil
	default:
		return engine.Stay(), nil
	}
}

// Cleanup strips the option buttons from the confirmation message.
func (c *ConfirmAddress) Cleanup(ctx context.Context, sess *engine.Session) error {
	if c.Msg.Zero() {
		return nil
	}

	if err := c.svc.Transport.ClearMarkup(ctx, c.Msg); err != nil && !errors.Is(err, transport.ErrMessageGone) {
		return err
	}
	return nil
}
