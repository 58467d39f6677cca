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

// ProductDetail shows one product's photo, description and price.
type ProductDetail struct {
	svc *Services

	ProductID string               `json:"product_id"`
	Msg       transport.MessageRef `json:"msg"`
}

// NewProductDetail constructs the detail view for the given product.
func NewProductDetail(svc *Services, productID string) *ProductDetail {
	return &ProductDetail{svc: svc, ProductID: productID}
}

func (p *ProductDetail) Name() string { return "product_detail" }

// Prepare loads the product and sends its photo with an add-to-cart keyboard.
func (p *ProductDetail) Prepare(ctx context.Context, sess *engine.Session) error {
	product, err := p.svc.Commerce.ProductByID(ctx, p.ProductID)
	if err != nil {
		return fmt.Errorf("load product %s: %w", p.ProductID, err)
	}

	imageURL, err := p.svc.Commerce.ImageURL(ctx, product.MainImageID)
	if err != nil {
		return fmt.Errorf("resolve product image: %w", err)
	}

	caption, err := p.svc.Renderer.Render("product.tmpl", map[string]any{
		"Name":        product.Name,
		"Description": product.Description,
		"Price":       formatAmount(product.PriceAmount),
	})
	if err != nil {
		return err
	}

	kb := keyboard.NewBuilder().Row(
		keyboard.Button{Text: "Добавить в корзину", Data: actionAddToCart},
		keyboard.Button{Text: "Вернуться в меню", Data: actionMenu},
	)

	msg, err := p.svc.Transport.SendPhoto(ctx, sess.ChatID, imageURL, caption, kb.Build())
	if err != nil {
		return fmt.Errorf("send product detail: %w", err)
	}

	p.Msg = msg
	return nil
}

// HandleInput adds the product to the cart or returns to the menu.
func (p *ProductDetail) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	if ev.Kind != event.KindCallback {
		return engine.Stay(), nil
	}

	switch ev.Callback {
	case actionMenu:
		answerCallback(ctx, p.svc, ev.CallbackID, "")
		return engine.ToInitial(), nil
	case actionAddToCart:
		if err := p.svc.Commerce.AddToCart(ctx, cartID(sess.ChatID), p.ProductID, 1); err != nil {
			return engine.Stay(), fmt.Errorf("add product to cart: %w", err)
		}
		answerCallback(ctx, p.svc, ev.CallbackID, "Товар добавлен в корзину")
		return engine.ToInitial(), nil
	default:
		return engine.Stay(), nil
	}
}

// Cleanup strips the interactive controls from the product message; the photo
// itself stays in the chat history.
func (p *ProductDetail) Cleanup(ctx context.Context, sess *engine.Session) error {
	if p.Msg.Zero() {
		return nil
	}

	if err := p.svc.Transport.ClearMarkup(ctx, p.Msg); err != nil && !errors.Is(err, transport.ErrMessageGone) {
		return err
	}
	return nil
}
