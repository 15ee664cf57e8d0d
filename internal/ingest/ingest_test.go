package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/galifuel/gasolineras/internal/store"
	"github.com/galifuel/gasolineras/pkg/api"
	"github.com/galifuel/gasolineras/pkg/places"
)

var targetProvinces = []string{"a coruña", "la coruña", "coruña (a)"}

type fakeSource struct {
	list *api.GasStationList
	err  error
}

func (f *fakeSource) FetchPrices(ctx context.Context) (*api.GasStationList, error) {
	return f.list, f.err
}

type fakeEnricher struct {
	place *places.Place
	err   error
	calls int
}

func (f *fakeEnricher) NearestPlace(ctx context.Context, lat, lng float64) (*places.Place, error) {
	f.calls++
	return f.place, f.err
}

type priceRow struct {
	StationID int64
	FuelType  string
	Price     float64
	Date      time.Time
}

// fakeStore buffers writes in a staged transaction and applies them on
// Commit, mirroring the all-or-nothing run boundary.
type fakeStore struct {
	stations map[int64]*store.Station
	prices   []priceRow

	beginErr  error
	appendErr error

	beginCalls    int
	inserts       int
	updates       int
	enrichUpdates int
	commits       int
	rollbacks     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{stations: make(map[int64]*store.Station)}
}

func (f *fakeStore) Begin(ctx context.Context) (RunTx, error) {
	f.beginCalls++
	if f.beginErr != nil {
		return nil, f.beginErr
	}

	staged := make(map[int64]*store.Station, len(f.stations))
	for id, st := range f.stations {
		cp := *st
		staged[id] = &cp
	}
	return &fakeTx{f: f, stations: staged, prices: append([]priceRow(nil), f.prices...)}, nil
}

type fakeTx struct {
	f         *fakeStore
	stations  map[int64]*store.Station
	prices    []priceRow
	committed bool
}

func (t *fakeTx) GetStation(ctx context.Context, id int64) (*store.Station, error) {
	st, ok := t.stations[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (t *fakeTx) InsertStation(ctx context.Context, st *store.Station) error {
	cp := *st
	t.stations[st.ID] = &cp
	t.f.inserts++
	return nil
}

func (t *fakeTx) UpdateStation(ctx context.Context, st *store.Station) error {
	cur := t.stations[st.ID]
	cp := *st
	cp.Name, cp.PlaceAddress, cp.Rating = cur.Name, cur.PlaceAddress, cur.Rating
	t.stations[st.ID] = &cp
	t.f.updates++
	return nil
}

func (t *fakeTx) UpdateEnrichment(ctx context.Context, id int64, name, address string, rating *float64) error {
	st := t.stations[id]
	st.Name, st.PlaceAddress, st.Rating = &name, &address, rating
	t.f.enrichUpdates++
	return nil
}

func (t *fakeTx) AppendPrice(ctx context.Context, stationID int64, fuelType string, price float64, date time.Time) error {
	if t.f.appendErr != nil {
		return t.f.appendErr
	}
	t.prices = append(t.prices, priceRow{StationID: stationID, FuelType: fuelType, Price: price, Date: date})
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.f.stations = t.stations
	t.f.prices = t.prices
	t.f.commits++
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) {
	if !t.committed {
		t.f.rollbacks++
	}
}

var testDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func newEngine(src Source, enr Enricher, st Store) *Engine {
	e := New(src, enr, st, targetProvinces, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.now = func() time.Time { return time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC) }
	return e
}

func record(id, provincia string) api.GasStation {
	return api.GasStation{
		IDEESS:             id,
		Provincia:          provincia,
		Municipio:          "Culleredo",
		Direccion:          "RÚA REAL 1",
		CP:                 "15189",
		Latitud:            "43,288",
		Longitud:           "-8,389",
		PrecioGasoleoA:     "1,479",
		PrecioGasolina95E5: "1.509",
	}
}

func catalog(records ...api.GasStation) *api.GasStationList {
	return &api.GasStationList{
		ListaEESSPrecio:   records,
		ResultadoConsulta: api.ApiResultOK,
	}
}

func TestRun_FetchFailureAbortsRun(t *testing.T) {
	st := newFakeStore()
	e := newEngine(&fakeSource{err: errors.New("boom")}, &fakeEnricher{err: places.ErrNoResults}, st)

	sum, err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrSourceFetch)
	require.Zero(t, sum.InRegion)
	require.Zero(t, st.beginCalls, "a failed fetch must not touch the store")
}

func TestRun_FiltersByNormalizedProvince(t *testing.T) {
	st := newFakeStore()
	src := &fakeSource{list: catalog(
		record("1", "Madrid"),
		record("2", "  A CORUÑA  "),
		record("3", "Coruña (A)"),
	)}
	e := newEngine(src, &fakeEnricher{err: places.ErrNoResults}, st)

	sum, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, sum.Fetched)
	require.Equal(t, 2, sum.InRegion)
	require.Len(t, st.stations, 2)
	require.NotContains(t, st.stations, int64(1))
}

func TestRun_SkipsRecordWithBadID(t *testing.T) {
	st := newFakeStore()
	src := &fakeSource{list: catalog(
		record("not-a-number", "A Coruña"),
		record("2", "A Coruña"),
	)}
	e := newEngine(src, &fakeEnricher{err: places.ErrNoResults}, st)

	sum, err := e.Run(context.Background())
	require.NoError(t, err, "a bad record must not abort the run")

	require.Equal(t, 1, sum.SkippedRecords)
	require.Equal(t, 1, sum.Inserted)
	require.Len(t, st.stations, 1)
	for _, p := range st.prices {
		require.Equal(t, int64(2), p.StationID)
	}
}

func TestRun_SkipsRecordWithBadCoordinates(t *testing.T) {
	bad := record("7", "A Coruña")
	bad.Latitud = "n/a"

	st := newFakeStore()
	e := newEngine(&fakeSource{list: catalog(bad)}, &fakeEnricher{err: places.ErrNoResults}, st)

	sum, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, sum.SkippedRecords)
	require.Empty(t, st.stations, "no station row for an unparseable location")
	require.Empty(t, st.prices, "no price rows for a skipped record")
}

func TestRun_InsertsNewStationAndAppendsPrices(t *testing.T) {
	rec := record("1234", "La Coruña")
	rec.PrecioGasolina98E5 = "x,y" // unparseable, skips only this field

	st := newFakeStore()
	e := newEngine(&fakeSource{list: catalog(rec)}, &fakeEnricher{err: places.ErrNoResults}, st)

	sum, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, sum.Inserted)
	require.Equal(t, 2, sum.PricesAppended)

	station := st.stations[1234]
	require.NotNil(t, station)
	require.Equal(t, "15189", station.PostalCode)
	require.Equal(t, "Culleredo", station.Municipality)
	require.InDelta(t, 43.288, station.Lat, 0.0001)
	require.InDelta(t, -8.389, station.Lon, 0.0001)
	require.Nil(t, station.Name, "enrichment fields stay null until a lookup succeeds")

	require.Len(t, st.prices, 2)
	require.Equal(t, priceRow{StationID: 1234, FuelType: "Gasoleo A", Price: 1.479, Date: testDate}, st.prices[0])
	require.Equal(t, priceRow{StationID: 1234, FuelType: "Gasolina 95 E5", Price: 1.509, Date: testDate}, st.prices[1])
}

func TestRun_UpdatesChangedStationKeepingEnrichment(t *testing.T) {
	name, addr, rating := "Repsol Culleredo", "Rúa Real 1", 4.1
	st := newFakeStore()
	st.stations[1234] = &store.Station{
		ID: 1234, PostalCode: "15189", Municipality: "Culleredo",
		Address: "OLD ADDRESS", Lat: 43.288, Lon: -8.389,
		Name: &name, PlaceAddress: &addr, Rating: &rating,
	}

	e := newEngine(&fakeSource{list: catalog(record("1234", "A Coruña"))}, &fakeEnricher{err: places.ErrNoResults}, st)

	sum, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, sum.Updated)
	require.Zero(t, sum.Inserted)

	station := st.stations[1234]
	require.Equal(t, "RÚA REAL 1", station.Address)
	require.NotNil(t, station.Name)
	require.Equal(t, "Repsol Culleredo", *station.Name, "metadata update must not clear enrichment")
}

func TestRun_RerunOnUnchangedSnapshot(t *testing.T) {
	st := newFakeStore()
	src := &fakeSource{list: catalog(record("1234", "A Coruña"))}

	sum, err := newEngine(src, &fakeEnricher{err: places.ErrNoResults}, st).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Inserted)
	require.Len(t, st.prices, 2)

	sum, err = newEngine(src, &fakeEnricher{err: places.ErrNoResults}, st).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, sum.Inserted, "no duplicate station rows on re-run")
	require.Zero(t, sum.Updated, "no spurious updates on identical data")
	require.Equal(t, 1, sum.Unchanged)
	require.Equal(t, 2, sum.PricesAppended, "observations append again per run")
	require.Len(t, st.prices, 4)
}

func TestRun_EnrichmentFailureDoesNotBlockPrices(t *testing.T) {
	st := newFakeStore()
	enricher := &fakeEnricher{err: errors.New("timeout")}
	e := newEngine(&fakeSource{list: catalog(record("1234", "A Coruña"))}, enricher, st)

	sum, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, enricher.calls)
	require.Equal(t, 1, sum.EnrichmentFailures)
	require.Zero(t, st.enrichUpdates)
	require.Equal(t, 2, sum.PricesAppended)
	require.Len(t, st.prices, 2)
}

func TestRun_EnrichmentSuccessUpdatesOverlay(t *testing.T) {
	rating := 4.1
	st := newFakeStore()
	enricher := &fakeEnricher{place: &places.Place{
		Name:     "Repsol Culleredo",
		Vicinity: "Rúa Real 1, Culleredo",
		Rating:   &rating,
	}}
	e := newEngine(&fakeSource{list: catalog(record("1234", "A Coruña"))}, enricher, st)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, st.enrichUpdates)
	station := st.stations[1234]
	require.NotNil(t, station.Name)
	require.Equal(t, "Repsol Culleredo", *station.Name)
	require.NotNil(t, station.PlaceAddress)
	require.Equal(t, "Rúa Real 1, Culleredo", *station.PlaceAddress)
	require.NotNil(t, station.Rating)
	require.InDelta(t, 4.1, *station.Rating, 0.001)
}

func TestRun_PersistenceFailureRollsBackEverything(t *testing.T) {
	st := newFakeStore()
	st.appendErr = errors.New("disk full")
	e := newEngine(&fakeSource{list: catalog(record("1234", "A Coruña"))}, &fakeEnricher{err: places.ErrNoResults}, st)

	_, err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrPersistence)

	require.Zero(t, st.commits)
	require.Equal(t, 1, st.rollbacks)
	require.Empty(t, st.stations, "no partial commit of a failed run")
	require.Empty(t, st.prices)
}
