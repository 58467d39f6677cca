// Package flow implements the six steps of the ordering workflow as
// conversation engine states, plus their snapshot codec.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
	"github.com/ovenlight/pizzeria-bot/pkg/config"
)

// Commerce is the slice of the commerce backend the workflow consumes.
type Commerce interface {
	Products(ctx context.Context) ([]commerce.Product, error)
	ProductByID(ctx context.Context, id string) (commerce.ProductDetail, error)
	ImageURL(ctx context.Context, fileID string) (string, error)
	Cart(ctx context.Context, cartID string) ([]commerce.CartItem, int, error)
	AddToCart(ctx context.Context, cartID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, cartID, itemID string) error
	FlushCart(ctx context.Context, cartID string) error
	Restaurants(ctx context.Context) ([]commerce.Restaurant, error)
	CreateCustomerAddress(ctx context.Context, chatID int64, lon, lat float64) (string, error)
	GetOrCreateCustomer(ctx context.Context, email string) (string, error)
	Checkout(ctx context.Context, cartID, customerID string) error
}

// Geocoder resolves free-text addresses. "Not found" surfaces as
// geocode.ErrNotFound and is a normal outcome.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (lon, lat float64, err error)
}

// Renderer produces outbound message text from named templates.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// ReminderScheduler emits a one-shot deferred notification request to an
// external scheduler; it never touches session state.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, chatID int64) error
}

// OrderLog archives completed orders.
type OrderLog interface {
	Record(ctx context.Context, order OrderRecord) error
}

// OrderRecord is one completed payment as archived by the OrderLog.
type OrderRecord struct {
	ID          string
	ChatID      int64
	Total       int
	DeliveryFee int
	Delivery    bool
	Lon         float64
	Lat         float64
}

// Services bundles the external collaborators the workflow states call into.
type Services struct {
	Transport transport.Transport
	Commerce  Commerce
	Geocoder  Geocoder
	Renderer  Renderer
	Reminders ReminderScheduler
	Orders    OrderLog
	Delivery  DeliveryPolicy
	Log       *slog.Logger
}

func (s *Services) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// answerCallback acknowledges a button press. Acknowledgement failures never
// block the transition; they are logged and dropped.
func answerCallback(ctx context.Context, svc *Services, callbackID, text string) {
	if err := svc.Transport.AnswerCallback(ctx, callbackID, text); err != nil {
		svc.logger().Warn("failed to answer callback", "error", err)
	}
}

// cartID maps a chat to its cart in the commerce backend.
func cartID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// formatAmount renders a minor-unit amount as currency units.
func formatAmount(minor int) string {
	if minor%100 == 0 {
		return strconv.Itoa(minor / 100)
	}
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// PolicyFromConfig converts delivery configuration into a DeliveryPolicy.
func PolicyFromConfig(cfg config.DeliveryConfig) DeliveryPolicy {
	return DeliveryPolicy{
		FreeRadiusKM: cfg.FreeRadiusKM,
		MidRadiusKM:  cfg.MidRadiusKM,
		MaxRadiusKM:  cfg.MaxRadiusKM,
		MidFee:       cfg.MidFee,
		HighFee:      cfg.HighFee,
	}
}
