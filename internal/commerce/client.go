// Package commerce implements the Elastic-Path-style commerce backend client:
// catalog, carts, customers and custom flow entries.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ovenlight/pizzeria-bot/pkg/config"
)

const (
	restaurantFlowSlug      = "restaurant"
	customerAddressFlowSlug = "customer-address"
)

// APIError is a non-2xx response from the commerce backend.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce api: %s returned %d: %s", e.URL, e.Status, e.Body)
}

// Client talks to the commerce backend. Access tokens are cached until expiry
// and refreshed transparently.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	log          *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClient builds a commerce client from configuration.
func NewClient(cfg config.CommerceConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		log:          log,
	}
}

// Products lists the live catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var resp struct {
		Data []Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/products", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}

// ProductByID returns the full record for one product.
func (c *Client) ProductByID(ctx context.Context, id string) (ProductDetail, error) {
	var resp struct {
		Data struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Price       []struct {
				Amount int `json:"amount"`
			} `json:"price"`
			Relationships struct {
				MainImage struct {
					Data struct {
						ID string `json:"id"`
					} `json:"data"`
				} `json:"main_image"`
			} `json:"relationships"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/products/"+url.PathEscape(id), nil, &resp); err != nil {
		return ProductDetail{}, err
	}

	detail := ProductDetail{
		ID:          resp.Data.ID,
		Name:        resp.Data.Name,
		Description: resp.Data.Description,
		MainImageID: resp.Data.Relationships.MainImage.Data.ID,
	}
	if len(resp.Data.Price) > 0 {
		detail.PriceAmount = resp.Data.Price[0].Amount
	}

	return detail, nil
}

// ImageURL resolves a file id to its public link.
func (c *Client) ImageURL(ctx context.Context, fileID string) (string, error) {
	var resp struct {
		Data struct {
			Link struct {
				Href string `json:"href"`
			} `json:"link"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/files/"+url.PathEscape(fileID), nil, &resp); err != nil {
		return "", err
	}

	return resp.Data.Link.Href, nil
}

// Cart returns the items of a cart plus the cart total in minor currency units.
func (c *Client) Cart(ctx context.Context, cartID string) ([]CartItem, int, error) {
	var resp struct {
		Data []struct {
			ID        string `json:"id"`
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
			Quantity  int    `json:"quantity"`
			Meta      struct {
				DisplayPrice struct {
					WithTax struct {
						Value struct {
							Amount int `json:"amount"`
						} `json:"value"`
					} `json:"with_tax"`
				} `json:"display_price"`
			} `json:"meta"`
		} `json:"data"`
		Meta struct {
			DisplayPrice struct {
				WithTax struct {
					Amount int `json:"amount"`
				} `json:"with_tax"`
			} `json:"display_price"`
		} `json:"meta"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/carts/"+url.PathEscape(cartID)+"/items", nil, &resp); err != nil {
		return nil, 0, err
	}

	items := make([]CartItem, 0, len(resp.Data))
	for _, item := range resp.Data {
		items = append(items, CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Amount:    item.Meta.DisplayPrice.WithTax.Value.Amount,
		})
	}

	return items, resp.Meta.DisplayPrice.WithTax.Amount, nil
}

// AddToCart puts quantity units of a product into the cart.
func (c *Client) AddToCart(ctx context.Context, cartID, productID string, quantity int) error {
	body := map[string]any{
		"data": map[string]any{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	return c.do(ctx, http.MethodPost, "/v2/carts/"+url.PathEscape(cartID)+"/items", body, nil)
}

// RemoveFromCart deletes one cart line.
func (c *Client) RemoveFromCart(ctx context.Context, cartID, itemID string) error {
	path := "/v2/carts/" + url.PathEscape(cartID) + "/items/" + url.PathEscape(itemID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// FlushCart discards the whole cart.
func (c *Client) FlushCart(ctx context.Context, cartID string) error {
	return c.do(ctx, http.MethodDelete, "/v2/carts/"+url.PathEscape(cartID), nil, nil)
}

// Restaurants lists the registered service points.
func (c *Client) Restaurants(ctx context.Context) ([]Restaurant, error) {
	var resp struct {
		Data []Restaurant `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/flows/"+restaurantFlowSlug+"/entries", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}

// CreateCustomerAddress records where a delivery order was sent.
func (c *Client) CreateCustomerAddress(ctx context.Context, chatID int64, lon, lat float64) (string, error) {
	return c.createFlowEntry(ctx, customerAddressFlowSlug, map[string]any{
		"telegram-id": chatID,
		"lon":         lon,
		"lat":         lat,
	})
}

// GetOrCreateCustomer finds an existing customer record or creates an
// anonymous one for the given email.
func (c *Client) GetOrCreateCustomer(ctx context.Context, email string) (string, error) {
	var listResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/customers", nil, &listResp); err != nil {
		return "", err
	}
	if len(listResp.Data) > 0 {
		return listResp.Data[0].ID, nil
	}

	body := map[string]any{
		"data": map[string]any{
			"type":  "customer",
			"name":  "Anonymous Customer",
			"email": email,
		},
	}
	var createResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/customers", body, &createResp); err != nil {
		return "", err
	}

	return createResp.Data.ID, nil
}

// Checkout converts the cart into an order for the customer.
func (c *Client) Checkout(ctx context.Context, cartID, customerID string) error {
	placeholder := map[string]any{
		"first_name": "na",
		"last_name":  "na",
		"line_1":     "na",
		"region":     "na",
		"postcode":   "na",
		"country":    "na",
	}
	body := map[string]any{
		"data": map[string]any{
			"customer":         map[string]any{"id": customerID},
			"billing_address":  placeholder,
			"shipping_address": placeholder,
		},
	}
	return c.do(ctx, http.MethodPost, "/v2/carts/"+url.PathEscape(cartID)+"/checkout", body, nil)
}

func (c *Client) createFlowEntry(ctx context.Context, flowSlug string, fields map[string]any) (string, error) {
	entry := map[string]any{"type": "entry"}
	for key, value := range fields {
		entry[key] = value
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	path := "/v2/flows/" + url.PathEscape(flowSlug) + "/entries"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"data": entry}, &resp); err != nil {
		return "", err
	}

	return resp.Data.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, URL: path, Body: string(raw)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}

	return nil
}

// token returns the cached access token or acquires a new one upon expiration.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("grant_type", "implicit")
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{Status: resp.StatusCode, URL: "/oauth/access_token", Body: string(raw)}
	}

	var auth struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = auth.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	c.log.Debug("acquired commerce access token",
		"expires_in", strconv.Itoa(auth.ExpiresIn)+"s")

	return c.accessToken, nil
}
