// Package proximity ranks today's price candidates by great-circle distance
// from a geocoded address and finds the cheapest station in the municipality
// of the closest match.
package proximity

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/galifuel/gasolineras/internal/store"
	"github.com/galifuel/gasolineras/pkg/geocode"
)

// NearestLimit caps how many ranked stations a query returns.
const NearestLimit = 10

// Ranked is a candidate with its computed distance from the user, in meters.
type Ranked struct {
	store.Candidate
	Distance float64
}

// Result is the outcome of one proximity query. NoData marks the valid
// empty state where no candidate carries the requested fuel type today.
type Result struct {
	UserLat        float64
	UserLon        float64
	UserLocation   string
	Nearest        []Ranked
	CheapestInCity *Ranked
	NoData         bool
}

// Service answers nearest-station queries over a candidate snapshot.
type Service struct {
	geocoder geocode.Geocoder
	log      *slog.Logger
}

// New creates a Service using the given geocoder.
func New(geocoder geocode.Geocoder, logger *slog.Logger) *Service {
	return &Service{
		geocoder: geocoder,
		log:      logger,
	}
}

// FindNearest geocodes the address, filters the candidates by fuel type and
// returns the NearestLimit closest stations in ascending distance order,
// plus the cheapest candidate in the municipality of the single nearest one.
// Distance and price ties keep the candidates' input order. A failed geocode
// fails the query; an empty fuel-type match is reported through NoData.
func (s *Service) FindNearest(address, fuelType string, candidates []store.Candidate) (Result, error) {
	loc, err := s.geocoder.Geocode(address)
	if err != nil {
		return Result{}, fmt.Errorf("geocoding %q: %w", address, err)
	}
	s.log.Debug("address resolved", "address", address, "lat", loc.Lat, "lon", loc.Lon)

	result := Result{
		UserLat:      loc.Lat,
		UserLon:      loc.Lon,
		UserLocation: loc.DisplayName,
	}

	want := normalizeFuelType(fuelType)
	var matched []Ranked
	for _, c := range candidates {
		if normalizeFuelType(c.FuelType) != want {
			continue
		}
		matched = append(matched, Ranked{
			Candidate: c,
			Distance:  gpx.Distance2D(loc.Lat, loc.Lon, c.Lat, c.Lon, true),
		})
	}

	if len(matched) == 0 {
		result.NoData = true
		return result, nil
	}

	// Sort a copy so the cheapest scan below still sees input order.
	ranked := make([]Ranked, len(matched))
	copy(ranked, matched)

	// Stable sort keeps first-seen order between equal distances.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	limit := NearestLimit
	if len(ranked) < limit {
		limit = len(ranked)
	}
	result.Nearest = ranked[:limit]

	// The cheapest pick considers every matched candidate in the nearest
	// station's municipality, not just the top ranked ones.
	city := ranked[0].Municipality
	var cheapest *Ranked
	for i := range matched {
		if matched[i].Municipality != city {
			continue
		}
		// Strict comparison keeps the first seen candidate on price ties.
		if cheapest == nil || matched[i].Price < cheapest.Price {
			cheapest = &matched[i]
		}
	}
	result.CheapestInCity = cheapest

	return result, nil
}

func normalizeFuelType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
