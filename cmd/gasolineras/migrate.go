package main

import (
	"github.com/urfave/cli/v2"

	"github.com/galifuel/gasolineras/internal/config"
	"github.com/galifuel/gasolineras/internal/store"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Create the database schema",
		Action: migrateAction,
	}
}

func migrateAction(c *cli.Context) error {
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

	return storage.Migrate(c.Context)
}
