package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/galifuel/gasolineras/internal/config"
	"github.com/galifuel/gasolineras/internal/ingest"
	"github.com/galifuel/gasolineras/internal/store"
	"github.com/galifuel/gasolineras/pkg/api"
	"github.com/galifuel/gasolineras/pkg/places"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:   "ingest",
		Usage:  "Fetch the fuel price catalog and reconcile it into the database",
		Action: ingestAction,
	}
}

func ingestAction(c *cli.Context) error {
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

	source := api.NewFuelPriceAPI(api.WithTimeout(cfg.RequestTimeout))
	enricher := places.NewClient(cfg.GoogleAPIKey, places.WithTimeout(cfg.RequestTimeout))

	engine := ingest.New(source, enricher, ingest.NewStore(storage), cfg.TargetProvinces, logger)
	sum, err := engine.Run(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d records, %d in region\n", sum.Fetched, sum.InRegion)
	fmt.Printf("Stations: %d inserted, %d updated, %d unchanged, %d skipped\n",
		sum.Inserted, sum.Updated, sum.Unchanged, sum.SkippedRecords)
	fmt.Printf("Prices appended: %d (enrichment failures: %d)\n",
		sum.PricesAppended, sum.EnrichmentFailures)

	return nil
}
