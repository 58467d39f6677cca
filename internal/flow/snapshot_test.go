package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/ovenlight/pizzeria-bot/internal/commerce"
	"github.com/ovenlight/pizzeria-bot/internal/engine"
	"github.com/ovenlight/pizzeria-bot/internal/event"
	"github.com/ovenlight/pizzeria-bot/internal/transport"
)

func TestCodec_RoundTrip(t *testing.T) {
	svc, _ := newTestServices(t)
	codec := NewCodec(svc)

	restaurant := commerce.Restaurant{
		ID: "r1", Address: "ул. Пушкина, 1", Alias: "center",
		Lon: 37.618, Lat: 55.751, CourierChatID: 900,
	}
	msg := transport.MessageRef{ChatID: 5, MessageID: 77}

	testCases := []struct {
		name  string
		state engine.State
		check func(t *testing.T, decoded engine.State)
	}{
		{
			name:  "menu",
			state: &Menu{svc: svc, Page: 3, Msg: msg},
			check: func(t *testing.T, decoded engine.State) {
				menu := decoded.(*Menu)
				if menu.Page != 3 || menu.Msg != msg {
					t.Fatalf("decoded menu = %+v", menu)
				}
			},
		},
		{
			name:  "product detail",
			state: &ProductDetail{svc: svc, ProductID: "pizza-42", Msg: msg},
			check: func(t *testing.T, decoded engine.State) {
				detail := decoded.(*ProductDetail)
				if detail.ProductID != "pizza-42" || detail.Msg != msg {
					t.Fatalf("decoded product detail = %+v", detail)
				}
			},
		},
		{
			name:  "cart",
			state: &Cart{svc: svc, Msg: msg},
			check: func(t *testing.T, decoded engine.State) {
				cart := decoded.(*Cart)
				if cart.Msg != msg {
					t.Fatalf("decoded cart = %+v", cart)
				}
			},
		},
		{
			name:  "delivery prompt",
			state: &DeliveryPrompt{svc: svc},
			check: func(t *testing.T, decoded engine.State) {
				if _, ok := decoded.(*DeliveryPrompt); !ok {
					t.Fatalf("decoded %T, want *DeliveryPrompt", decoded)
				}
			},
		},
		{
			name: "confirm address",
			state: &ConfirmAddress{
				svc: svc, Lon: 37.60, Lat: 55.73,
				Quote: DeliveryQuote{Restaurant: restaurant, DistanceKM: 2.9, Fee: 100, Offered: true},
				Msg:   msg,
			},
			check: func(t *testing.T, decoded engine.State) {
				confirm := decoded.(*ConfirmAddress)
				if confirm.Lon != 37.60 || confirm.Lat != 55.73 {
					t.Fatalf("decoded coordinates = %v, %v", confirm.Lon, confirm.Lat)
				}
				if confirm.Quote.Restaurant != restaurant || confirm.Quote.Fee != 100 || !confirm.Quote.Offered {
					t.Fatalf("decoded quote = %+v", confirm.Quote)
				}
			},
		},
		{
			name: "payment inquiry",
			state: &PaymentInquiry{
				svc: svc, Restaurant: restaurant, DeliveryFee: 100, Delivery: true,
				Lon: 37.60, Lat: 55.73, Payload: "order-uuid", Total: 159900, Msg: msg,
			},
			check: func(t *testing.T, decoded engine.State) {
				payment := decoded.(*PaymentInquiry)
				if payment.Payload != "order-uuid" || payment.Total != 159900 {
					t.Fatalf("decoded payment = %+v", payment)
				}
				if !payment.Delivery || payment.DeliveryFee != 100 {
					t.Fatalf("decoded delivery terms = %+v", payment)
				}
				if payment.Restaurant.CourierChatID != 900 {
					t.Fatalf("decoded restaurant = %+v", payment.Restaurant)
				}
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			data, err := codec.Encode(tc.state)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			decoded, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if decoded.Name() != tc.state.Name() {
				t.Fatalf("decoded name = %q, want %q", decoded.Name(), tc.state.Name())
			}
			tc.check(t, decoded)
		})
	}
}

// A decoded state must be bound to live services, otherwise the first
// HandleInput after rehydration would panic.
func TestCodec_DecodeRebindsServices(t *testing.T) {
	svc, deps := newTestServices(t)
	codec := NewCodec(svc)

	data, err := codec.Encode(&Menu{svc: nil, Page: 0})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	deps.transport.On("AnswerCallback", mock.Anything, "cb-1", "").Return(nil).Once()

	ev := event.Event{Kind: event.KindCallback, ChatID: 1, Callback: actionCart, CallbackID: "cb-1"}
	if _, err := decoded.HandleInput(context.Background(), testSession(1), ev); err != nil {
		t.Fatalf("handle input after decode: %v", err)
	}

	deps.assertExpectations(t)
}

func TestCodec_DecodeErrors(t *testing.T) {
	svc, _ := newTestServices(t)
	codec := NewCodec(svc)

	testCases := []struct {
		name     string
		snapshot string
		wantErr  string
	}{
		{
			name:     "unknown discriminant",
			snapshot: `{"v":1,"state":"warehouse","data":{}}`,
			wantErr:  "unknown state discriminant",
		},
		{
			name:     "unsupported version",
			snapshot: `{"v":2,"state":"menu","data":{}}`,
			wantErr:  "unsupported snapshot version",
		},
		{
			name:     "not json",
			snapshot: `pickle!`,
			wantErr:  "decode snapshot envelope",
		},
		{
			name:     "malformed state data",
			snapshot: `{"v":1,"state":"menu","data":{"page":"three"}}`,
			wantErr:  "decode menu state",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tc.snapshot))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestCodec_EncodeRejectsForeignStates(t *testing.T) {
	svc, _ := newTestServices(t)
	codec := NewCodec(svc)

	if _, err := codec.Encode(foreignState{}); err == nil {
		t.Fatal("expected an error for a state outside the workflow")
	}
}

type foreignState struct{}

func (foreignState) Name() string { return "foreign" }
func (foreignState) Prepare(ctx context.Context, sess *engine.Session) error {
	return nil
}
func (foreignState) HandleInput(ctx context.Context, sess *engine.Session, ev event.Event) (engine.Transition, error) {
	return engine.Stay(), nil
}
func (foreignState) Cleanup(ctx context.Context, sess *engine.Session) error {
	return nil
}
