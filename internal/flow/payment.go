package flow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
)

// PaymentInquiry sends the invoice and finalizes the order once payment
// succeeds. The invoice payload doubles as the order id.
type PaymentInquiry struct {
	svc *Services

	Restaurant  commerce.Restaurant  `json:"restaurant"`
	DeliveryFee int                  `json:"delivery_fee"`
	Delivery    bool                 `json:"delivery"`
	Lon         float64              `json:"lon"`
	Lat         float64              `json:"lat"`
	Payload     string               `json:"payload"`
	Total       int                  `json:"total"`
	Msg         transport.MessageRef `json:"msg"`
}

// NewPaymentInquiry constructs the payment step for the chosen restaurant.
// The delivery fee is zero for pickup orders.
func NewPaymentInquiry(svc *Services, restaurant commerce.Restaurant, deliveryFee int, delivery bool, lon, lat float64) *PaymentInquiry {
	return &PaymentInquiry{
		svc:         svc,
		Restaurant:  restaurant,
		DeliveryFee: deliveryFee,
		Delivery:    delivery,
		Lon:         lon,
		Lat:         lat,
		Payload:     uuid.NewString(),
	}
}

func (p *PaymentInquiry) Name() string { return "payment_inquiry" }

// Prepare sends the invoice for the cart total plus the delivery fee.
func (p *PaymentInquiry) Prepare(ctx context.Context, sess *engine.Session) error {
	items, cartTotal, err := p.svc.Commerce.Cart(ctx, cartID(sess.ChatID))
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	p.Total = cartTotal + p.DeliveryFee*100

	lines := make([]map[string]any, 0, len(items))
	for _, item := range items {
		lines = append(lines, map[string]any{
			"Name":     item.Name,
			"Quantity": item.Quantity,
		})
	}

	description, err := p.svc.Renderer.Render("invoice.tmpl", map[string]any{
		"Items":    lines,
		"Delivery": p.Delivery,
	})
	if err != nil {
		return err
	}

	prices := []transport.LabeledPrice{{Label: "Заказ", Amount: cartTotal}}
	if p.Delivery {
		prices = append(prices, transport.LabeledPrice{Label: "Доставка", Amount: p.DeliveryFee * 100})
	}

	msg, err := p.svc.Transport.SendInvoice(ctx, sess.ChatID, "Оплата заказа", description, p.Payload, prices)
	if err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}

	p.Msg = msg
	return nil
}

// HandleInput answers pre-checkout queries and finalizes paid orders.
func (p *PaymentInquiry) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	switch ev.Kind {
	case event.KindPreCheckout:
		return p.handlePreCheckout(ctx, sess, ev)
	case event.KindPayment:
		return p.handlePayment(ctx, sess, ev)
	default:
		return engine.Stay(), nil
	}
}

// Cleanup is a no-op: the invoice message stays in the chat as the receipt.
func (p *PaymentInquiry) Cleanup(ctx context.Context, sess *engine.Session) error {
	return nil
}

// handlePreCheckout confirms the query when its payload matches the invoice
// this state issued. A mismatch is a business-rule rejection: the payment is
// answered negatively and the session returns to the entry state.
func (p *PaymentInquiry) handlePreCheckout(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	if ev.InvoicePayload == p.Payload {
		if err := p.svc.Transport.AnswerPreCheckout(ctx, ev.PreCheckoutID, true, ""); err != nil {
			return engine.Stay(), fmt.Errorf("confirm pre-checkout: %w", err)
		}
		return engine.Stay(), nil
	}

	if err := p.svc.Transport.AnswerPreCheckout(ctx, ev.PreCheckoutID, false, "Заказ устарел"); err != nil {
		return engine.Stay(), fmt.Errorf("reject pre-checkout: %w", err)
	}

	text, err := p.svc.Renderer.Render("payment_failed.tmpl", nil)
	if err != nil {
		return engine.Stay(), err
	}
	if _, err := p.svc.Transport.SendText(ctx, sess.ChatID, text, nil); err != nil {
		return engine.Stay(), fmt.Errorf("send payment failure notice: %w", err)
	}

	p.svc.logger().Warn("pre-checkout payload mismatch",
		"chat_id", sess.ChatID, "expected", p.Payload, "got", ev.InvoicePayload)

	return engine.ToInitial(), nil
}

// handlePayment finalizes the order: checkout, archive, address record and
// courier notification for deliveries, cart flush, deferred reminder.
func (p *PaymentInquiry) handlePayment(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	cart := cartID(sess.ChatID)

	customerID, err := p.svc.Commerce.GetOrCreateCustomer(ctx, fmt.Sprintf("%d@customers.invalid", sess.ChatID))
	if err != nil {
		return engine.Stay(), fmt.Errorf("resolve customer: %w", err)
	}
	if err := p.svc.Commerce.Checkout(ctx, cart, customerID); err != nil {
		return engine.Stay(), fmt.Errorf("checkout cart: %w", err)
	}

	if err := p.svc.Orders.Record(ctx, OrderRecord{
		ID:          p.Payload,
		ChatID:      sess.ChatID,
		Total:       p.Total,
		DeliveryFee: p.DeliveryFee * 100,
		Delivery:    p.Delivery,
		Lon:         p.Lon,
		Lat:         p.Lat,
	}); err != nil {
		return engine.Stay(), fmt.Errorf("archive order: %w", err)
	}

	if p.Delivery {
		if _, err := p.svc.Commerce.CreateCustomerAddress(ctx, sess.ChatID, p.Lon, p.Lat); err != nil {
			return engine.Stay(), fmt.Errorf("record customer address: %w", err)
		}
		if err := p.notifyCourier(ctx, sess); err != nil {
			return engine.Stay(), err
		}
	}

	if err := p.svc.Commerce.FlushCart(ctx, cart); err != nil {
		return engine.Stay(), fmt.Errorf("flush cart: %w", err)
	}

	if err := p.svc.Reminders.ScheduleReminder(ctx, sess.ChatID); err != nil {
		// the order is already finalized; a lost reminder is not worth
		// failing the whole payment over
		p.svc.logger().Error("failed to schedule order reminder",
			"chat_id", sess.ChatID, "error", err)
	}

	p.svc.logger().Info("order paid",
		"chat_id", sess.ChatID, "order_id", p.Payload,
		"total", p.Total, "delivery", p.Delivery)

	return engine.ToInitial(), nil
}

func (p *PaymentInquiry) notifyCourier(ctx context.Context, sess *engine.Session) error {
	courier := p.Restaurant.CourierChatID
	if courier == 0 {
		p.svc.logger().Warn("restaurant has no courier configured",
			"restaurant", p.Restaurant.Alias)
		return nil
	}

	text, err := p.svc.Renderer.Render("courier_order.tmpl", map[string]any{
		"OrderID": p.Payload,
		"ChatID":  sess.ChatID,
	})
	if err != nil {
		return err
	}

	if _, err := p.svc.Transport.SendText(ctx, courier, text, nil); err != nil {
		return fmt.Errorf("notify courier: %w", err)
	}
	if err := p.svc.Transport.SendLocation(ctx, courier, p.Lon, p.Lat); err != nil {
		return fmt.Errorf("send customer location to courier: %w", err)
	}

	return nil
}
