package flow

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/keyboard"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SendText(ctx context.Context, chatID int64, text string, kb *keyboard.Inline) (transport.MessageRef, error) {
	args := m.Called(ctx, chatID, text, kb)
	ref, _ := args.Get(0).(transport.MessageRef)
	return ref, args.Error(1)
}

func (m *mockTransport) SendPhoto(ctx context.Context, chatID int64, imageURL, caption string, kb *keyboard.Inline) (transport.MessageRef, error) {
	args := m.Called(ctx, chatID, imageURL, caption, kb)
	ref, _ := args.Get(0).(transport.MessageRef)
	return ref, args.Error(1)
}

func (m *mockTransport) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []transport.LabeledPrice) (transport.MessageRef, error) {
	args := m.Called(ctx, chatID, title, description, payload, prices)
	ref, _ := args.Get(0).(transport.MessageRef)
	return ref, args.Error(1)
}

func (m *mockTransport) SendLocation(ctx context.Context, chatID int64, lon, lat float64) error {
	return m.Called(ctx, chatID, lon, lat).Error(0)
}

func (m *mockTransport) ClearMarkup(ctx context.Context, ref transport.MessageRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockTransport) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockTransport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return m.Called(ctx, callbackID, text).Error(0)
}

func (m *mockTransport) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorText string) error {
	return m.Called(ctx, queryID, ok, errorText).Error(0)
}

type mockCommerce struct {
	mock.Mock
}

func (m *mockCommerce) Products(ctx context.Context) ([]commerce.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]commerce.Product)
	return products, args.Error(1)
}

func (m *mockCommerce) ProductByID(ctx context.Context, id string) (commerce.ProductDetail, error) {
	args := m.Called(ctx, id)
	detail, _ := args.Get(0).(commerce.ProductDetail)
	return detail, args.Error(1)
}

func (m *mockCommerce) ImageURL(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *mockCommerce) Cart(ctx context.Context, cartID string) ([]commerce.CartItem, int, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]commerce.CartItem)
	return items, args.Int(1), args.Error(2)
}

func (m *mockCommerce) AddToCart(ctx context.Context, cartID, productID string, quantity int) error {
	return m.Called(ctx, cartID, productID, quantity).Error(0)
}

func (m *mockCommerce) RemoveFromCart(ctx context.Context, cartID, itemID string) error {
	return m.Called(ctx, cartID, itemID).Error(0)
}

func (m *mockCommerce) FlushCart(ctx context.Context, cartID string) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *mockCommerce) Restaurants(ctx context.Context) ([]commerce.Restaurant, error) {
	args := m.Called(ctx)
	restaurants, _ := args.Get(0).([]commerce.Restaurant)
	return restaurants, args.Error(1)
}

func (m *mockCommerce) CreateCustomerAddress(ctx context.Context, chatID int64, lon, lat float64) (string, error) {
	args := m.Called(ctx, chatID, lon, lat)
	return args.String(0), args.Error(1)
}

func (m *mockCommerce) GetOrCreateCustomer(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockCommerce) Checkout(ctx context.Context, cartID, customerID string) error {
	return m.Called(ctx, cartID, customerID).Error(0)
}

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Resolve(ctx context.Context, address string) (float64, float64, error) {
	args := m.Called(ctx, address)
	lon, _ := args.Get(0).(float64)
	lat, _ := args.Get(1).(float64)
	return lon, lat, args.Error(2)
}

type mockReminders struct {
	mock.Mock
}

func (m *mockReminders) ScheduleReminder(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) Record(ctx context.Context, order OrderRecord) error {
	return m.Called(ctx, order).Error(0)
}

// stubRenderer returns the template name as the rendered text, which is
// enough to assert that the right template was sent.
type stubRenderer struct{}

func (stubRenderer) Render(name string, data any) (string, error) {
	return name, nil
}

type testDeps struct {
	transport *mockTransport
	commerce  *mockCommerce
	geocoder  *mockGeocoder
	reminders *mockReminders
	orders    *mockOrders
}

func newTestServices(t *testing.T) (*Services, *testDeps) {
	t.Helper()

	deps := &testDeps{
		transport: &mockTransport{},
		commerce:  &mockCommerce{},
		geocoder:  &mockGeocoder{},
		reminders: &mockReminders{},
		orders:    &mockOrders{},
	}

	svc := &Services{
		Transport: deps.transport,
		Commerce:  deps.commerce,
		Geocoder:  deps.geocoder,
		Renderer:  stubRenderer{},
		Reminders: deps.reminders,
		Orders:    deps.orders,
		Delivery: DeliveryPolicy{
			FreeRadiusKM: 0.5,
			MidRadiusKM:  5,
			MaxRadiusKM:  20,
			MidFee:       100,
			HighFee:      300,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	return svc, deps
}

func (d *testDeps) assertExpectations(t *testing.T) {
	t.Helper()

	d.transport.AssertExpectations(t)
	d.commerce.AssertExpectations(t)
	d.geocoder.AssertExpectations(t)
	d.reminders.AssertExpectations(t)
	d.orders.AssertExpectations(t)
}

func testSession(chatID int64) *engine.Session {
	return &engine.Session{ChatID: chatID}
}

type transitionResult struct {
	transition engine.Transition
}

func transitionTarget(t *testing.T, transition engine.Transition) engine.State {
	t.Helper()

	if transition.Next() == nil {
		t.Fatalf("expected a concrete transition, got stay=%v reset=%v",
			transition.IsStay(), transition.IsReset())
	}
	return transition.Next()
}

func assertStay(t *testing.T, transition engine.Transition) {
	t.Helper()

	if !transition.IsStay() {
		t.Fatalf("expected stay, got next=%v reset=%v", transition.Next(), transition.IsReset())
	}
}

func assertReset(t *testing.T, transition engine.Transition) {
	t.Helper()

	if !transition.IsReset() {
		t.Fatalf("expected reset, got next=%v stay=%v", transition.Next(), transition.IsStay())
	}
}
