package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/galifuel/gasolineras/internal/config"
	"github.com/galifuel/gasolineras/internal/proximity"
	"github.com/galifuel/gasolineras/internal/store"
	"github.com/galifuel/gasolineras/pkg/geocode"
)

const metersPerKm = 1000.0

func nearestCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearest",
		Usage: "List the nearest stations with today's prices for a fuel type",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "address",
				Usage:    "Free-text address to search from",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type to filter by",
				Value: "Gasolina 95 E5",
			},
		},
		Action: nearestAction,
	}
}

func nearestAction(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	storage, err := store.NewStorage(c.Context, cfg.DatabaseURL(), logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	candidates, err := storage.TodayCandidates(c.Context)
	if err != nil {
		return err
	}

	svc := proximity.New(geocode.NewNominatim(), logger)
	result, err := svc.FindNearest(c.String("address"), c.String("fuel"), candidates)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			fmt.Println("Address not found:", c.String("address"))
			return nil
		}
		return err
	}

	fmt.Printf("Location found: %s (%f, %f)\n\n", result.UserLocation, result.UserLat, result.UserLon)

	if result.NoData {
		fmt.Printf("No price data for fuel type %q today\n", c.String("fuel"))
		return nil
	}

	for i, r := range result.Nearest {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("Station %d", r.StationID)
		}
		fmt.Printf("%d. %s (%s)\n", i+1, name, r.Address)
		fmt.Printf("   Municipio: %s\n", r.Municipality)
		fmt.Printf("   Distance: %.2f km\n", r.Distance/metersPerKm)
		fmt.Printf("   Price: %.3f €\n\n", r.Price)
	}

	if cheapest := result.CheapestInCity; cheapest != nil {
		name := cheapest.Name
		if name == "" {
			name = fmt.Sprintf("Station %d", cheapest.StationID)
		}
		fmt.Printf("Cheapest in %s: %s (%s) at %.3f €\n",
			cheapest.Municipality, name, cheapest.Address, cheapest.Price)
	}

	return nil
}
