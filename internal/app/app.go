// Package app wires configuration into the long-lived components shared by
// the romvault binaries.
package app

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"romvault/internal/auth"
	"romvault/internal/events"
	"romvault/internal/reconcile"
	"romvault/internal/scraper"
	"romvault/internal/store"
	"romvault/internal/syncjob"
	"romvault/pkg/database"
	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

type App struct {
	Config utils.Config
	DB     *sql.DB
	Store  *store.Store
	Runner *syncjob.Runner
	Hub    *events.Hub
	Tokens auth.TokenService
	Logger zerolog.Logger
}

// New opens and migrates the database and builds the sync pipeline.
func New(cfg utils.Config) (*App, error) {
	db, err := database.Open(database.Config{Path: cfg.DB.Path})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	st := store.New(db, cfg.DB.Collection)
	hub := events.NewHub(0)

	cat := scraper.DefaultCategorizer()
	agg := scraper.NewAggregator(cat, scraper.FromConfig(cfg.Sources, cat)...)

	rules := reconcile.Rules{
		PlaceholderPrefixes: cfg.Sync.PlaceholderPrefixes,
		FallbackCategory:    cfg.Sync.FallbackCategory,
	}
	runner := syncjob.NewRunner(st, agg, rules, cfg.Sync.BatchSize)
	runner.Recorder = st
	runner.Notifier = hub

	return &App{
		Config: cfg,
		DB:     db,
		Store:  st,
		Runner: runner,
		Hub:    hub,
		Tokens: auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTDuration),
		Logger: logging.Component("app"),
	}, nil
}

func (a *App) Close() error {
	a.Hub.Close()
	return a.DB.Close()
}
