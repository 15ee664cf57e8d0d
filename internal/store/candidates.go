package store

import (
	"context"
	"fmt"
)

// Candidate is one (station, fuel type) row of today's price snapshot, the
// input unit of the proximity query.
type Candidate struct {
	StationID    int64
	Name         string
	Address      string
	Municipality string
	FuelType     string
	Price        float64
	Lat          float64
	Lon          float64
}

// TodayCandidates joins stations to their price observations for the
// current date. An empty result simply means no ingestion ran today.
func (s *Storage) TodayCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id_station, g.municipio, g.direccion, g.station_name,
		       p.fuel_type, p.price,
		       ST_Y(g.location_point::geometry), ST_X(g.location_point::geometry)
		FROM gasolineras.gas_stations g
		JOIN gasolineras.prices p ON g.id_station = p.id_gas_station
		WHERE p.fecha_informe = CURRENT_DATE
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("error querying today's candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var name *string
		if err := rows.Scan(&c.StationID, &c.Municipality, &c.Address, &name,
			&c.FuelType, &c.Price, &c.Lat, &c.Lon); err != nil {
			return nil, fmt.Errorf("error scanning candidate: %w", err)
		}
		if name != nil {
			c.Name = *name
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	return candidates, nil
}
