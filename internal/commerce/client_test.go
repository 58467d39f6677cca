package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ovenlight/pizzeria-bot/pkg/config"
)

// commerceStub serves the token endpoint plus one scripted API route.
type commerceStub struct {
	t          *testing.T
	tokenCalls atomic.Int32
	route      string
	handler    http.HandlerFunc
}

func (s *commerceStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/oauth/access_token" {
		s.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
		return
	}

	if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
		s.t.Errorf("Authorization = %q, want bearer token", auth)
	}

	if r.URL.Path != s.route {
		http.NotFound(w, r)
		return
	}
	s.handler(w, r)
}

func newTestClient(t *testing.T, stub *commerceStub) *Client {
	t.Helper()

	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(config.CommerceConfig{
		BaseURL:  srv.URL,
		ClientID: "client-1",
	}, log)
}

func TestClient_Products(t *testing.T) {
	stub := &commerceStub{
		t:     t,
		route: "/v2/products",
		handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":"p1","name":"Пепперони"},{"id":"p2","name":"Маргарита"}]}`))
		},
	}
	client := newTestClient(t, stub)

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(products) != 2 || products[0].ID != "p1" || products[1].Name != "Маргарита" {
		t.Fatalf("products = %+v", products)
	}
}

func TestClient_TokenIsCached(t *testing.T) {
	stub := &commerceStub{
		t:     t,
		route: "/v2/products",
		handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		},
	}
	client := newTestClient(t, stub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.Products(ctx); err != nil {
			t.Fatalf("products: %v", err)
		}
	}

	if calls := stub.tokenCalls.Load(); calls != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", calls)
	}
}

func TestClient_ProductByID(t *testing.T) {
	stub := &commerceStub{
		t:     t,
		route: "/v2/products/p1",
		handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"id":"p1","name":"Пепперони","description":"Острая",` +
				`"price":[{"amount":59900}],` +
				`"relationships":{"main_image":{"data":{"id":"img-1"}}}}}`))
		},
	}
	client := newTestClient(t, stub)

	detail, err := client.ProductByID(context.Background(), "p1")
	if err != nil {
		t.Fatalf("product by id: %v", err)
	}
	if detail.PriceAmount != 59900 || detail.MainImageID != "img-1" {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestClient_CartTotals(t *testing.T) {
	stub := &commerceStub{
		t:     t,
		route: "/v2/carts/42/items",
		handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"data":[{
					"id":"item-1","product_id":"p1","name":"Пепперони","quantity":2,
					"meta":{"display_price":{"with_tax":{"value":{"amount":119800}}}}
				}],
				"meta":{"display_price":{"with_tax":{"amount":119800}}}
			}`))
		},
	}
	client := newTestClient(t, stub)

	items, total, err := client.Cart(context.Background(), "42")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if total != 119800 {
		t.Fatalf("total = %d", total)
	}
	if len(items) != 1 || items[0].Quantity != 2 || items[0].Amount != 119800 {
		t.Fatalf("items = %+v", items)
	}
}

func TestClient_AddToCart(t *testing.T) {
	var gotBody map[string]any
	stub := &commerceStub{
		t:     t,
		route: "/v2/carts/42/items",
		handler: func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
		},
	}
	client := newTestClient(t, stub)

	if err := client.AddToCart(context.Background(), "42", "p1", 1); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	data, _ := gotBody["data"].(map[string]any)
	if data["id"] != "p1" || data["type"] != "cart_item" {
		t.Fatalf("request body = %v", gotBody)
	}
}

func TestClient_RestaurantsFlowFields(t *testing.T) {
	stub := &commerceStub{
		t:     t,
		route: "/v2/flows/restaurant/entries",
		handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{
				"id":"r1","restaurant-address":"ул. Пушкина, 1","restaurant-alias":"center",
				"restaurant-lon":37.618,"restaurant-lat":55.751,"restaurant-courier":900
			}]}`))
		},
	}
	client := newTestClient(t, stub)

	restaurants, err := client.Restaurants(context.Background())
	if err != nil {
		t.Fatalf("restaurants: %v", err)
	}
	if len(restaurants) != 1 {
		t.Fatalf("restaurants = %+v", restaurants)
	}

	r := restaurants[0]
	if r.Address != "ул. Пушкина, 1" || r.Lon != 37.618 || r.CourierChatID != 900 {
		t.Fatalf("restaurant = %+v", r)
	}
}

func TestClient_APIError(t *testing.T) {
	stub := &commerceStub{
		t:     t,
		route: "/v2/products",
		handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"errors":[{"title":"down"}]}`))
		},
	}
	client := newTestClient(t, stub)

	_, err := client.Products(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", apiErr.Status)
	}
}
