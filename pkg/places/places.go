// Package places implements a small client for the Google Places nearby
// search API, used to enrich stations with a display name, formatted
// address and rating.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	defaultBaseURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	// Stations sit on top of their own coordinates, a tight radius is enough.
	defaultRadiusMeters = 50
)

// ErrNoResults is returned when the search yields no places for the given
// coordinates.
var ErrNoResults = errors.New("no places found")

// Place holds the consumed subset of a nearby search result.
type Place struct {
	Name     string
	Vicinity string
	Rating   *float64
}

type searchResponse struct {
	Results []struct {
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Rating   *float64 `json:"rating"`
	} `json:"results"`
	Status string `json:"status"`
}

// Client queries the nearby search endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	radius     int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a nearby search client using the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		radius:  defaultRadiusMeters,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NearestPlace returns the first (closest ranked) gas station place near the
// given coordinates. It returns ErrNoResults when the API answers with an
// empty result list.
func (c *Client) NearestPlace(ctx context.Context, lat, lng float64) (*Place, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", fmt.Sprintf("%d", c.radius))
	params.Set("type", "gas_station")
	params.Set("key", c.apiKey)
	params.Set("language", "es")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching places: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	if len(payload.Results) == 0 {
		return nil, ErrNoResults
	}

	first := payload.Results[0]
	return &Place{
		Name:     first.Name,
		Vicinity: first.Vicinity,
		Rating:   first.Rating,
	}, nil
}
