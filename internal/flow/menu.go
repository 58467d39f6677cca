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

// menuPageSize is how many product buttons fit on one menu page.
const menuPageSize = 8

// Reserved callback action tokens. Callback data in Menu and Cart that
// matches none of these is interpreted as a product / cart-item selection.
const (
	actionCart            = "cart"
	actionOrder           = "order"
	actionMenu            = "menu"
	actionNextPage        = "next_page"
	actionPrevPage        = "prev_page"
	actionAddToCart       = "add_to_cart"
	actionPickup          = "pick_up"
	actionRequestDelivery = "request_delivery"
	actionChangeAddress   = "change_address"
)

// Menu is the workflow's entry state: the paginated product catalog.
type Menu struct {
	svc *Services

	Page int                  `json:"page"`
	Msg  transport.MessageRef `json:"msg"`
}

// NewMenu constructs a Menu showing the given page.
func NewMenu(svc *Services, page int) *Menu {
	return &Menu{svc: svc, Page: page}
}

func (m *Menu) Name() string { return "menu" }

// Prepare fetches the catalog and cart, then sends the menu message with
// product buttons, pagination controls and the cart/order footer.
func (m *Menu) Prepare(ctx context.Context, sess *engine.Session) error {
	products, err := m.svc.Commerce.Products(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	items, total, err := m.svc.Commerce.Cart(ctx, cartID(sess.ChatID))
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	quantities := make(map[string]int, len(items))
	for _, item := range items {
		quantities[item.ProductID] = item.Quantity
	}

	buttons := make([]keyboard.Button, 0, len(products))
	for _, product := range products {
		label := product.Name
		if qty, ok := quantities[product.ID]; ok {
			label = fmt.Sprintf("%s (x%d)", product.Name, qty)
		}
		buttons = append(buttons, keyboard.Button{Text: label, Data: product.ID})
	}

	// Stale or duplicated pagination callbacks can carry the page out of
	// range; clamp so the state (and its snapshot) stays on a real page.
	if m.Page < 0 {
		m.Page = 0
	}
	if last := lastPage(len(buttons)); m.Page > last {
		m.Page = last
	}

	kb := keyboard.NewBuilder()
	if len(buttons) > menuPageSize {
		var nav []keyboard.Button
		if m.Page > 0 {
			nav = append(nav, keyboard.Button{Text: "< < <", Data: actionPrevPage})
		}
		if len(buttons) > (m.Page+1)*menuPageSize {
			nav = append(nav, keyboard.Button{Text: "> > >", Data: actionNextPage})
		}

		kb.Rows(keyboard.Chunk(pageWindow(buttons, m.Page), 2))
		if len(nav) > 0 {
			kb.Row(nav...)
		}
	} else {
		kb.Rows(keyboard.Chunk(buttons, 1))
	}

	cartLabel := "Корзина (пусто)"
	if len(items) > 0 {
		cartLabel = fmt.Sprintf("Корзина (%s)", formatAmount(total))
	}
	kb.Row(
		keyboard.Button{Text: cartLabel, Data: actionCart},
		keyboard.Button{Text: "Оформить заказ", Data: actionOrder},
	)

	text, err := m.svc.Renderer.Render("menu.tmpl", nil)
	if err != nil {
		return err
	}

	msg, err := m.svc.Transport.SendText(ctx, sess.ChatID, text, kb.Build())
	if err != nil {
		return fmt.Errorf("send menu: %w", err)
	}

	m.Msg = msg
	return nil
}

// HandleInput reacts to button presses only; any payload that is not a
// reserved action token is taken as a product selection.
func (m *Menu) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	if ev.Kind != event.KindCallback {
		return engine.Stay(), nil
	}

	answerCallback(ctx, m.svc, ev.CallbackID, "")

	switch ev.Callback {
	case actionCart:
		return engine.To(NewCart(m.svc)), nil
	case actionOrder:
		return engine.To(NewDeliveryPrompt(m.svc)), nil
	case actionNextPage:
		return engine.To(NewMenu(m.svc, m.Page+1)), nil
	case actionPrevPage:
		if m.Page == 0 {
			return engine.Stay(), nil
		}
		return engine.To(NewMenu(m.svc, m.Page-1)), nil
	default:
		return engine.To(NewProductDetail(m.svc, ev.Callback)), nil
	}
}

// Cleanup deletes the menu message.
func (m *Menu) Cleanup(ctx context.Context, sess *engine.Session) error {
	if m.Msg.Zero() {
		return nil
	}

	if err := m.svc.Transport.DeleteMessage(ctx, m.Msg); err != nil && !errors.Is(err, transport.ErrMessageGone) {
		return err
	}
	return nil
}

// pageWindow slices out the buttons visible on the given page.
func pageWindow(buttons []keyboard.Button, page int) []keyboard.Button {
	if page < 0 {
		page = 0
	}

	start := page * menuPageSize
	if start >= len(buttons) {
		return nil
	}

	end := start + menuPageSize
	if end > len(buttons) {
		end = len(buttons)
	}

	return buttons[start:end]
}

// lastPage is the index of the final menu page for n product buttons.
func lastPage(n int) int {
	if n <= menuPageSize {
		return 0
	}
	return (n - 1) / menuPageSize
}
