package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"romvault/pkg/logging"
	"romvault/pkg/models"
)

// Source is implemented by each external provider. FetchAll maps the
// provider's own format into models.Game.
//
// A source must return an error when it could not fetch anything at all, so
// that "provider unreachable" is never mistaken for "provider has no games".
// Partial failures (one platform of several) are logged and skipped.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]models.Game, error)
}

// ErrNoSources is returned when there is nothing to aggregate, either because
// no source is registered or because every registered source failed.
var ErrNoSources = errors.New("no source returned data")

// SourceStats describes one source's contribution to an aggregation.
type SourceStats struct {
	Name     string
	Games    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of one aggregation.
type Result struct {
	Games   []models.Game // unique by IdentityKey, in first-seen order
	Fetched int           // records returned by all sources before dedup
	Sources []SourceStats // in registration order
}

// Failed returns the names of sources that errored.
func (r Result) Failed() []string {
	var names []string
	for _, s := range r.Sources {
		if s.Err != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

// Aggregator runs every source concurrently and merges the results.
type Aggregator struct {
	Sources     []Source
	Categorizer *Categorizer
	Logger      zerolog.Logger
}

// NewAggregator creates an Aggregator. Registration order matters: when two
// sources return the same game, the one registered first wins.
func NewAggregator(cat *Categorizer, sources ...Source) *Aggregator {
	return &Aggregator{
		Sources:     sources,
		Categorizer: cat,
		Logger:      logging.Component("aggregator"),
	}
}

type outcome struct {
	games    []models.Game
	err      error
	duration time.Duration
}

// FetchAndMerge fetches from all sources at once, waits for every one of them
// to finish, and deduplicates by IdentityKey. A failing source is logged and
// left out; it never aborts the others.
//
// When no source succeeds, or none is configured, it returns ErrNoSources
// instead of an empty Result. A total outage fails the sync run rather than
// reconciling against an empty catalog.
func (a *Aggregator) FetchAndMerge(ctx context.Context) (Result, error) {
	if len(a.Sources) == 0 {
		return Result{}, ErrNoSources
	}

	// each goroutine owns exactly one slot
	outcomes := make([]outcome, len(a.Sources))

	var wg sync.WaitGroup
	for i, src := range a.Sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			outcomes[i] = a.fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	res := Result{Sources: make([]SourceStats, len(a.Sources))}
	seen := make(map[string]struct{})
	succeeded := 0

	for i, src := range a.Sources {
		o := outcomes[i]
		res.Sources[i] = SourceStats{Name: src.Name(), Games: len(o.games), Duration: o.duration, Err: o.err}

		if o.err != nil {
			a.Logger.Warn().Err(o.err).Str("source", src.Name()).Msg("source failed, skipping")
			continue
		}
		succeeded++
		res.Fetched += len(o.games)

		for _, g := range o.games {
			key := IdentityKey(g.Name, g.System)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			g.Category = a.Categorizer.Infer(g.Name)
			res.Games = append(res.Games, g)
		}
	}

	if succeeded == 0 {
		return res, fmt.Errorf("%w: all %d sources failed", ErrNoSources, len(a.Sources))
	}

	a.Logger.Info().
		Int("fetched", res.Fetched).
		Int("unique", len(res.Games)).
		Int("failed_sources", len(a.Sources)-succeeded).
		Msg("aggregation complete")
	return res, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, src Source) (o outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: fmt.Errorf("source %s panicked: %v", src.Name(), r)}
		}
		o.duration = time.Since(start)
	}()

	a.Logger.Debug().Str("source", src.Name()).Msg("fetching")
	games, err := src.FetchAll(ctx)
	if err != nil {
		return outcome{err: err}
	}
	a.Logger.Info().Str("source", src.Name()).Int("games", len(games)).Msg("source fetched")
	return outcome{games: games}
}
