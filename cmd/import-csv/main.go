// Command import-csv merges a CSV of games into the catalog using the same
// reconcile rules and batched commits as a sync run. Importing the same file
// twice writes nothing the second time.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"romvault/internal/catalogio"
	"romvault/internal/commit"
	"romvault/internal/reconcile"
	"romvault/internal/store"
	"romvault/pkg/database"
	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

func main() {
	in := flag.String("in", "data/games.csv", "input CSV path")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	log := logging.Component("import-csv")

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal().Err(err).Msg("open input")
	}
	defer f.Close()

	games, skipped, err := catalogio.ReadCSV(f)
	if err != nil {
		log.Fatal().Err(err).Str("in", *in).Msg("read csv")
	}

	db := database.MustOpen(database.Config{Path: cfg.DB.Path})
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	st := store.New(db, cfg.DB.Collection)
	stored, err := st.LoadAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load games")
	}

	rules := reconcile.Rules{
		PlaceholderPrefixes: cfg.Sync.PlaceholderPrefixes,
		FallbackCategory:    cfg.Sync.FallbackCategory,
	}
	plan := rules.Reconcile(stored, games)

	ev := log.Info().
		Int("rows", len(games)).
		Int("skipped", skipped).
		Int("inserts", len(plan.Inserts)).
		Int("updates", len(plan.Updates)).
		Int("unchanged", plan.Unchanged)
	if *dryRun || plan.Empty() {
		ev.Bool("dry_run", *dryRun).Msg("nothing written")
		return
	}

	stats, err := commit.New(st, cfg.Sync.BatchSize).Commit(ctx, commit.Ops(plan))
	if err != nil {
		log.Fatal().Err(err).Int("batches_committed", stats.Batches).Msg("import failed")
	}
	ev.Int("batches", stats.Batches).Msg("imported")
}
