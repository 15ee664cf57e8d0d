// Package geocode resolves free-text addresses to coordinates through a
// Nominatim server, caching results to stay within the service usage policy.
package geocode

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"
)

const (
	defaultServer          = "https://nominatim.openstreetmap.org/"
	cacheDefaultExpiration = 30 * time.Minute
	cacheCleanupInterval   = 90 * time.Minute
)

// ErrNotFound is returned when the geocoder has no coordinates for the
// given address. Transport failures are reported as distinct errors.
var ErrNotFound = errors.New("address not found")

// Location is a resolved address.
type Location struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves free-text addresses. Implemented by Nominatim here and
// by fakes in tests.
type Geocoder interface {
	Geocode(address string) (*Location, error)
}

// Nominatim is a Geocoder backed by a Nominatim server.
type Nominatim struct {
	cache *cache.Cache
}

// NewNominatim creates a Nominatim geocoder pointed at the public OSM server.
func NewNominatim() *Nominatim {
	gominatim.SetServer(defaultServer)
	return &Nominatim{
		cache: cache.New(cacheDefaultExpiration, cacheCleanupInterval),
	}
}

// Geocode resolves the address to coordinates. Repeated lookups for the
// same address are served from cache.
func (n *Nominatim) Geocode(address string) (*Location, error) {
	if cached, ok := n.cache.Get(address); ok {
		return cached.(*Location), nil
	}

	qry := gominatim.SearchQuery{
		Q: address,
	}

	results, err := qry.Get()
	if err != nil {
		return nil, fmt.Errorf("geocoding error: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing latitude: %w", err)
	}

	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing longitude: %w", err)
	}

	loc := &Location{
		Lat:         lat,
		Lon:         lon,
		DisplayName: results[0].DisplayName,
	}
	n.cache.Set(address, loc, cache.DefaultExpiration)

	return loc, nil
}
