// Package syncjob ties aggregation, reconciliation, and batched commits into
// one idempotent run, and schedules that run on an interval.
package syncjob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"romvault/internal/commit"
	"romvault/internal/reconcile"
	"romvault/internal/scraper"
	"romvault/pkg/logging"
	"romvault/pkg/models"
)

var (
	// ErrRunInProgress is returned when Run is called while another run in
	// this process has not finished. Runs in other processes are not detected.
	ErrRunInProgress = errors.New("sync run already in progress")

	// ErrLoadPersisted marks a failure to read the stored collection. Nothing
	// has been written when it is returned.
	ErrLoadPersisted = errors.New("load persisted games")
)

// DocumentStore is the collection being reconciled.
type DocumentStore interface {
	LoadAll(ctx context.Context) ([]models.GameDoc, error)
	commit.Writer
}

// Aggregator produces the deduplicated external game set.
type Aggregator interface {
	FetchAndMerge(ctx context.Context) (scraper.Result, error)
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, run models.SyncRun) error
}

// Notifier receives every finished run, successful or not.
type Notifier interface {
	BroadcastJSON(v any)
}

// Event is what a Notifier receives.
type Event struct {
	Type string         `json:"type"` // "sync.completed" or "sync.failed"
	Run  models.SyncRun `json:"run"`
}

type Runner struct {
	Store      DocumentStore
	Aggregator Aggregator
	Rules      reconcile.Rules
	Committer  *commit.Committer
	Recorder   RunRecorder // optional
	Notifier   Notifier    // optional
	Logger     zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewRunner(store DocumentStore, agg Aggregator, rules reconcile.Rules, batchSize int) *Runner {
	return &Runner{
		Store:      store,
		Aggregator: agg,
		Rules:      rules,
		Committer:  commit.New(store, batchSize),
		Logger:     logging.Component("syncjob"),
		now:        time.Now,
	}
}

func (r *Runner) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

// Run loads every stored game, aggregates all sources, reconciles, and
// commits inserts then updates. Re-running with unchanged source data writes
// nothing. A commit failure leaves earlier batches committed; running again
// picks up where it stopped.
func (r *Runner) Run(ctx context.Context) (models.SyncRun, error) {
	if !r.mu.TryLock() {
		return models.SyncRun{}, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.runLocked(ctx)
}

// Start launches a run in the background and returns at once. It returns
// ErrRunInProgress instead of queueing behind a running sync. The run is
// detached from ctx cancellation so a finished HTTP request does not abort it.
func (r *Runner) Start(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer r.mu.Unlock()
		_, _ = r.runLocked(context.WithoutCancel(ctx))
	}()
	return nil
}

func (r *Runner) runLocked(ctx context.Context) (models.SyncRun, error) {
	run := models.SyncRun{ID: uuid.NewString(), StartedAt: r.clock()}

	// fetch logs below this point carry the run id
	logger := r.Logger.With().Str("run_id", run.ID).Logger()
	ctx = logging.WithLogger(ctx, &logger)

	err := r.run(ctx, &run)
	run.FinishedAt = r.clock()
	if err != nil {
		run.Error = err.Error()
	}

	r.finish(ctx, logger, run)
	return run, err
}

func (r *Runner) run(ctx context.Context, run *models.SyncRun) error {
	stored, err := r.Store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadPersisted, err)
	}
	logging.FromContext(ctx).Debug().Int("stored", len(stored)).Msg("loaded stored games")

	res, err := r.Aggregator.FetchAndMerge(ctx)
	run.FailedSources = res.Failed()
	run.Fetched = res.Fetched
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	run.Unique = len(res.Games)

	plan := r.Rules.Reconcile(stored, res.Games)
	run.Unchanged = plan.Unchanged

	stats, err := r.Committer.Commit(ctx, commit.Ops(plan))
	run.Batches = stats.Batches
	// ops go inserts first, so the committed prefix splits cleanly
	run.Inserted = min(stats.Ops, len(plan.Inserts))
	run.Updated = stats.Ops - run.Inserted
	return err
}

func (r *Runner) finish(ctx context.Context, logger zerolog.Logger, run models.SyncRun) {
	ev := logger.Info()
	typ := "sync.completed"
	if !run.OK() {
		ev = logger.Error().Str("error", run.Error)
		typ = "sync.failed"
	}
	ev.Int("fetched", run.Fetched).
		Int("unique", run.Unique).
		Int("inserted", run.Inserted).
		Int("updated", run.Updated).
		Int("unchanged", run.Unchanged).
		Int("batches", run.Batches).
		Strs("failed_sources", run.FailedSources).
		Dur("took", run.FinishedAt.Sub(run.StartedAt)).
		Msg("sync run finished")

	if r.Recorder != nil {
		// record even if the run context is already cancelled
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.Recorder.RecordRun(recCtx, run); err != nil {
			logger.Warn().Err(err).Msg("failed to record sync run")
		}
	}
	if r.Notifier != nil {
		r.Notifier.BroadcastJSON(Event{Type: typ, Run: run})
	}
}
