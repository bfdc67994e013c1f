package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"romvault/internal/catalogio"
	"romvault/internal/store"
	"romvault/pkg/database"
	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

func main() {
	out := flag.String("out", "data/games.csv", "output CSV path")
	flag.Parse()

	log := logging.Component("export-csv")

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.Config{Path: cfg.DB.Path})
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	docs, err := store.New(db, cfg.DB.Collection).LoadAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load games")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal().Err(err).Msg("mkdir")
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal().Err(err).Msg("create output")
	}
	defer f.Close()

	if err := catalogio.WriteCSV(f, docs); err != nil {
		log.Fatal().Err(err).Msg("write csv")
	}
	log.Info().Int("games", len(docs)).Str("out", *out).Msg("exported")
}
