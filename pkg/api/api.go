// Package api provides types and a client for the Spanish government fuel
// price API, plus the locale-aware decimal parsing its records require.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	ApiResultOK    = "OK"
	DefaultTimeout = 10 * time.Second

	defaultBaseURL = "https://sedeaplicaciones.minetur.gob.es/ServiciosRESTCarburantes/PreciosCarburantes/EstacionesTerrestres/"
	// The endpoint rejects bare scripted requests, so a browser-like agent
	// is sent on every call.
	userAgent = "Mozilla/5.0"
)

// FuelPriceAPI fetches the current fuel station catalog from the official API.
type FuelPriceAPI struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a FuelPriceAPI.
type Option func(*FuelPriceAPI)

// WithBaseURL overrides the catalog endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(a *FuelPriceAPI) {
		a.baseURL = url
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *FuelPriceAPI) {
		a.httpClient.Timeout = d
	}
}

// NewFuelPriceAPI creates a FuelPriceAPI client with default settings.
func NewFuelPriceAPI(opts ...Option) *FuelPriceAPI {
	a := &FuelPriceAPI{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchPrices fetches the full current catalog of stations and prices.
func (api *FuelPriceAPI) FetchPrices(ctx context.Context) (*GasStationList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var pricesResponse GasStationList
	if err := json.Unmarshal(body, &pricesResponse); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}

	if pricesResponse.ResultadoConsulta != ApiResultOK {
		return nil, fmt.Errorf("API returned non-OK result: %s", pricesResponse.ResultadoConsulta)
	}

	return &pricesResponse, nil
}

// ParseDecimal parses a locale-formatted decimal string. It accepts a single
// decimal comma or decimal point and rejects everything else, including
// thousands separators.
func ParseDecimal(s string) (float64, error) {
	s = strings.Replace(s, ",", ".", 1)
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return m, nil
}

// ParseLatLong parses a latitude or longitude string (with comma or dot) to float64.
func ParseLatLong(s string) (float64, error) {
	return ParseDecimal(s)
}
