// Package ingest implements the reconciliation pipeline: it pulls the full
// station catalog from the fuel price source, filters it to the target
// provinces, reconciles each record against the persisted stations, enriches
// them with place data and appends dated price observations.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/galifuel/gasolineras/internal/store"
	"github.com/galifuel/gasolineras/pkg/api"
	"github.com/galifuel/gasolineras/pkg/places"
)

// Run-level failures. Anything wrapped in these aborts the run and leaves
// persisted state untouched; per-record failures are tallied in the Summary
// instead.
var (
	ErrSourceFetch = errors.New("source fetch failed")
	ErrPersistence = errors.New("persistence failed")
)

// Source delivers the current station/price catalog.
type Source interface {
	FetchPrices(ctx context.Context) (*api.GasStationList, error)
}

// Enricher resolves the closest known place for a station's coordinates.
type Enricher interface {
	NearestPlace(ctx context.Context, lat, lng float64) (*places.Place, error)
}

// RunTx is the write handle covering one run. All writes become visible at
// Commit; a run abort rolls everything back.
type RunTx interface {
	GetStation(ctx context.Context, id int64) (*store.Station, error)
	InsertStation(ctx context.Context, st *store.Station) error
	UpdateStation(ctx context.Context, st *store.Station) error
	UpdateEnrichment(ctx context.Context, id int64, name, address string, rating *float64) error
	AppendPrice(ctx context.Context, stationID int64, fuelType string, price float64, date time.Time) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// Store opens run transactions.
type Store interface {
	Begin(ctx context.Context) (RunTx, error)
}

// NewStore adapts a Postgres Storage to the Store interface.
func NewStore(s *store.Storage) Store {
	return pgStore{s}
}

type pgStore struct {
	s *store.Storage
}

func (p pgStore) Begin(ctx context.Context) (RunTx, error) {
	return p.s.Begin(ctx)
}

// Summary reports what one ingestion run did.
type Summary struct {
	Fetched            int
	InRegion           int
	Inserted           int
	Updated            int
	Unchanged          int
	SkippedRecords     int
	EnrichmentFailures int
	PricesAppended     int
}

// Engine orchestrates one ingestion run against its collaborators.
type Engine struct {
	source    Source
	enricher  Enricher
	store     Store
	provinces map[string]struct{}
	log       *slog.Logger

	// now supplies the observation date, fixed in tests.
	now func() time.Time
}

// New creates an Engine. The provinces set lists every accepted spelling of
// the target region; matching is case-folded and whitespace-trimmed.
func New(source Source, enricher Enricher, st Store, provinces []string, logger *slog.Logger) *Engine {
	accepted := make(map[string]struct{}, len(provinces))
	for _, p := range provinces {
		accepted[normalizeProvince(p)] = struct{}{}
	}

	return &Engine{
		source:    source,
		enricher:  enricher,
		store:     st,
		provinces: accepted,
		log:       logger,
		now:       time.Now,
	}
}

// Run executes one ingestion. Fetch and persistence failures abort the run;
// per-record parse and enrichment failures are counted and skipped. All
// writes commit in a single transaction at the end, so a mid-run failure
// loses the whole run rather than leaving a partial snapshot behind.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	catalog, err := e.source.FetchPrices(ctx)
	if err != nil {
		return sum, fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}
	sum.Fetched = len(catalog.ListaEESSPrecio)
	e.log.Info("fetched catalog", "records", sum.Fetched)

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return sum, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	date := observationDate(e.now())

	for i := range catalog.ListaEESSPrecio {
		rec := &catalog.ListaEESSPrecio[i]
		if _, ok := e.provinces[normalizeProvince(rec.Provincia)]; !ok {
			continue
		}
		sum.InRegion++

		if err := e.processRecord(ctx, tx, rec, date, &sum); err != nil {
			return sum, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return sum, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	e.log.Info("ingestion committed",
		"in_region", sum.InRegion,
		"inserted", sum.Inserted,
		"updated", sum.Updated,
		"unchanged", sum.Unchanged,
		"skipped", sum.SkippedRecords,
		"enrichment_failures", sum.EnrichmentFailures,
		"prices", sum.PricesAppended)

	return sum, nil
}

// processRecord reconciles one catalog record. Parse failures skip the
// record and return nil; only persistence errors propagate.
func (e *Engine) processRecord(ctx context.Context, tx RunTx, rec *api.GasStation, date time.Time, sum *Summary) error {
	id, err := strconv.ParseInt(strings.TrimSpace(rec.IDEESS), 10, 64)
	if err != nil {
		e.log.Warn("skipping record with bad station id", "ideess", rec.IDEESS, "error", err)
		sum.SkippedRecords++
		return nil
	}

	lat, err := api.ParseLatLong(rec.Latitud)
	if err != nil {
		e.log.Warn("skipping record with bad latitude", "ideess", rec.IDEESS, "latitud", rec.Latitud)
		sum.SkippedRecords++
		return nil
	}
	lng, err := api.ParseLatLong(rec.Longitud)
	if err != nil {
		e.log.Warn("skipping record with bad longitude", "ideess", rec.IDEESS, "longitud", rec.Longitud)
		sum.SkippedRecords++
		return nil
	}

	incoming := &store.Station{
		ID:           id,
		PostalCode:   rec.CP,
		Municipality: rec.Municipio,
		Address:      rec.Direccion,
		Lat:          lat,
		Lon:          lng,
	}

	existing, err := tx.GetStation(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case existing == nil:
		if err := tx.InsertStation(ctx, incoming); err != nil {
			return err
		}
		sum.Inserted++
	case !existing.CoreEquals(incoming):
		if err := tx.UpdateStation(ctx, incoming); err != nil {
			return err
		}
		sum.Updated++
	default:
		sum.Unchanged++
	}

	// Enrichment failure keeps whatever enrichment the station already has
	// and never blocks the price observations below.
	place, err := e.enricher.NearestPlace(ctx, lat, lng)
	if err != nil {
		e.log.Debug("enrichment failed", "ideess", rec.IDEESS, "error", err)
		sum.EnrichmentFailures++
	} else {
		if err := tx.UpdateEnrichment(ctx, id, place.Name, place.Vicinity, place.Rating); err != nil {
			return err
		}
	}

	for _, pf := range rec.PriceFields() {
		value := strings.TrimSpace(pf.Value)
		if value == "" {
			continue
		}
		price, err := api.ParseDecimal(value)
		if err != nil {
			e.log.Warn("skipping unparseable price", "ideess", rec.IDEESS, "fuel_type", pf.FuelType, "value", pf.Value)
			continue
		}
		if err := tx.AppendPrice(ctx, id, pf.FuelType, price, date); err != nil {
			return err
		}
		sum.PricesAppended++
	}

	return nil
}

func normalizeProvince(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// observationDate truncates the run timestamp to its calendar date.
func observationDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
