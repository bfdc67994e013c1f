// Command scraper performs one sync run and exits. It is the entry point for
// cron or any other external scheduler; a failed run exits non-zero.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"romvault/internal/app"
	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.Component("scraper")

	cfg, err := utils.Load()
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		log.Error().Err(err).Str("db", cfg.DB.Path).Msg("init app")
		return 1
	}
	defer a.Close()

	report, err := a.Runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sync failed")
		return 1
	}

	log.Info().
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Str("db", cfg.DB.Path).
		Msg("sync complete")
	return 0
}
