// Package store persists stations and price observations in PostgreSQL,
// with station locations held in a PostGIS geography column.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Station is the persisted identity, location and metadata of a fuel
// station. The enrichment fields remain nil until a places lookup succeeds
// and keep their last value when later lookups fail.
type Station struct {
	ID           int64
	PostalCode   string
	Municipality string
	Address      string
	Name         *string
	PlaceAddress *string
	Rating       *float64
	Lat          float64
	Lon          float64
}

// CoreEquals reports whether the source-authoritative fields of both
// stations match. Enrichment fields are not compared, they belong to a
// different authority.
func (s *Station) CoreEquals(o *Station) bool {
	return s.PostalCode == o.PostalCode &&
		s.Municipality == o.Municipality &&
		s.Address == o.Address &&
		s.Lat == o.Lat &&
		s.Lon == o.Lon
}

// Storage wraps a connection pool scoped to one process run. The pool is
// acquired once at startup and released by Close on every exit path.
type Storage struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewStorage connects to the database and verifies the connection is live.
// A dead connection is fatal here rather than at first use.
func NewStorage(ctx context.Context, databaseURL string, logger *slog.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	return &Storage{
		pool: pool,
		log:  logger,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() {
	s.pool.Close()
}

// Migrate creates the schema, tables and indexes if they do not exist.
func (s *Storage) Migrate(ctx context.Context) error {
	createSQL := `
	CREATE SCHEMA IF NOT EXISTS gasolineras;

	CREATE TABLE IF NOT EXISTS gasolineras.gas_stations (
		id_station BIGINT PRIMARY KEY,
		cp TEXT NOT NULL,
		municipio TEXT NOT NULL,
		direccion TEXT NOT NULL,
		station_name TEXT,
		direccion_google TEXT,
		rating DOUBLE PRECISION,
		location_point geography(Point, 4326) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gasolineras.prices (
		id BIGSERIAL PRIMARY KEY,
		fuel_type TEXT NOT NULL,
		id_gas_station BIGINT NOT NULL REFERENCES gasolineras.gas_stations (id_station),
		price NUMERIC(10,3) NOT NULL,
		fecha_informe DATE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_prices_fecha_informe ON gasolineras.prices (fecha_informe);
	CREATE INDEX IF NOT EXISTS idx_prices_id_gas_station ON gasolineras.prices (id_gas_station);
	`

	if _, err := s.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	s.log.Debug("schema created or verified")
	return nil
}

// Begin opens the single transaction covering one ingestion run. All writes
// of the run go through the returned RunTx and become visible at Commit.
func (s *Storage) Begin(ctx context.Context) (*RunTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	return &RunTx{tx: tx, log: s.log}, nil
}

// RunTx is the write handle for one ingestion run.
type RunTx struct {
	tx  pgx.Tx
	log *slog.Logger
}

// GetStation looks up a station by its external id. It returns (nil, nil)
// when the station is not persisted yet.
func (t *RunTx) GetStation(ctx context.Context, id int64) (*Station, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT cp, municipio, direccion, station_name, direccion_google, rating,
		       ST_Y(location_point::geometry), ST_X(location_point::geometry)
		FROM gasolineras.gas_stations
		WHERE id_station = $1`, id)

	st := Station{ID: id}
	err := row.Scan(&st.PostalCode, &st.Municipality, &st.Address,
		&st.Name, &st.PlaceAddress, &st.Rating, &st.Lat, &st.Lon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying station %d: %w", id, err)
	}

	return &st, nil
}

// InsertStation creates a station row with null enrichment fields.
func (t *RunTx) InsertStation(ctx context.Context, st *Station) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO gasolineras.gas_stations
			(id_station, cp, municipio, direccion, station_name, direccion_google, rating, location_point)
		VALUES ($1, $2, $3, $4, NULL, NULL, NULL, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography)`,
		st.ID, st.PostalCode, st.Municipality, st.Address, st.Lon, st.Lat)
	if err != nil {
		return fmt.Errorf("error inserting station %d: %w", st.ID, err)
	}
	return nil
}

// UpdateStation overwrites the source-authoritative fields of a station,
// leaving enrichment fields untouched.
func (t *RunTx) UpdateStation(ctx context.Context, st *Station) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE gasolineras.gas_stations
		SET cp = $1,
		    municipio = $2,
		    direccion = $3,
		    location_point = ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography
		WHERE id_station = $6`,
		st.PostalCode, st.Municipality, st.Address, st.Lon, st.Lat, st.ID)
	if err != nil {
		return fmt.Errorf("error updating station %d: %w", st.ID, err)
	}
	return nil
}

// UpdateEnrichment overwrites the place-authoritative fields of a station.
func (t *RunTx) UpdateEnrichment(ctx context.Context, id int64, name, address string, rating *float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE gasolineras.gas_stations
		SET station_name = $1,
		    direccion_google = $2,
		    rating = $3
		WHERE id_station = $4`,
		name, address, rating, id)
	if err != nil {
		return fmt.Errorf("error updating enrichment for station %d: %w", id, err)
	}
	return nil
}

// AppendPrice adds one dated price observation. Observations are append
// only, the table is a time series rather than a current-state table.
func (t *RunTx) AppendPrice(ctx context.Context, stationID int64, fuelType string, price float64, date time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO gasolineras.prices (fuel_type, id_gas_station, price, fecha_informe)
		VALUES ($1, $2, $3, $4)`,
		fuelType, stationID, price, date)
	if err != nil {
		return fmt.Errorf("error appending price for station %d: %w", stationID, err)
	}
	return nil
}

// Commit makes the run's writes visible.
func (t *RunTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// Rollback discards the run's writes. Calling it after Commit is a no-op.
func (t *RunTx) Rollback(ctx context.Context) {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		t.log.Warn("rollback failed", "error", err)
	}
}
