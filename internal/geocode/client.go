// Package geocode resolves free-text addresses to coordinates via a
// Yandex-style geocoding HTTP API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ovenlight/pizzeria-bot/pkg/config"
)

// ErrNotFound means the address could not be resolved. This is a normal
// outcome, not a failure.
var ErrNotFound = errors.New("address not found")

// Client queries the geocoding API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient builds a geocoder client from configuration.
func NewClient(cfg config.GeocoderConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// Resolve returns the coordinates of the most relevant match for address, or
// ErrNotFound when the API recognizes nothing.
func (c *Client) Resolve(ctx context.Context, address string) (lon, lat float64, err error) {
	params := url.Values{}
	params.Set("geocode", address)
	params.Set("apikey", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/1.x?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var payload struct {
		Response struct {
			GeoObjectCollection struct {
				FeatureMember []struct {
					GeoObject struct {
						Point struct {
							Pos string `json:"pos"`
						} `json:"Point"`
					} `json:"GeoObject"`
				} `json:"featureMember"`
			} `json:"GeoObjectCollection"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decode geocoder response: %w", err)
	}

	places := payload.Response.GeoObjectCollection.FeatureMember
	if len(places) == 0 {
		return 0, 0, ErrNotFound
	}

	// pos is "lon lat" separated by a space
	parts := strings.Fields(places[0].GeoObject.Point.Pos)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed point %q in geocoder response", places[0].GeoObject.Point.Pos)
	}

	lon, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude: %w", err)
	}
	lat, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude: %w", err)
	}

	return lon, lat, nil
}
