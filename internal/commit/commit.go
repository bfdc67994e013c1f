// Package commit writes pending document operations in bounded, atomic,
// strictly sequential batches.
package commit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"romvault/internal/reconcile"
	"romvault/pkg/logging"
	"romvault/pkg/models"
	"romvault/pkg/utils"
)

type Kind int

const (
	Insert Kind = iota + 1
	Update
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Op is one pending write. Inserts carry an empty Doc.ID; the store assigns one.
type Op struct {
	Kind Kind
	Doc  models.GameDoc
}

// Writer commits a batch atomically: either every op in it is applied or none.
type Writer interface {
	CommitBatch(ctx context.Context, ops []Op) error
}

// BatchError reports which batch failed. Batches before it stay committed.
type BatchError struct {
	Batch     int // zero-based index of the failed batch
	Committed int // batches durably committed before the failure
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("commit batch %d (after %d committed): %v", e.Batch, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Stats summarises a Commit call.
type Stats struct {
	Batches int
	Ops     int
}

// Committer feeds ops to a Writer MaxBatch at a time.
type Committer struct {
	Writer   Writer
	MaxBatch int
	Logger   zerolog.Logger
}

func New(w Writer, maxBatch int) *Committer {
	if maxBatch <= 0 || maxBatch > utils.MaxBatchSize {
		maxBatch = utils.MaxBatchSize
	}
	return &Committer{Writer: w, MaxBatch: maxBatch, Logger: logging.Component("commit")}
}

// Commit writes ops in order, ceil(len(ops)/MaxBatch) batches, one after the
// other. It stops at the first failing batch and returns a *BatchError.
// There is no cross-batch rollback.
func (c *Committer) Commit(ctx context.Context, ops []Op) (Stats, error) {
	var st Stats
	if c.MaxBatch <= 0 {
		return st, errors.New("commit: MaxBatch must be positive")
	}

	for start := 0; start < len(ops); start += c.MaxBatch {
		end := min(start+c.MaxBatch, len(ops))
		batch := ops[start:end]

		if err := ctx.Err(); err != nil {
			return st, &BatchError{Batch: st.Batches, Committed: st.Batches, Err: err}
		}
		if err := c.Writer.CommitBatch(ctx, batch); err != nil {
			c.Logger.Error().Err(err).Int("batch", st.Batches).Int("ops", len(batch)).Msg("batch commit failed")
			return st, &BatchError{Batch: st.Batches, Committed: st.Batches, Err: err}
		}

		st.Batches++
		st.Ops += len(batch)
		c.Logger.Debug().Int("batch", st.Batches).Int("ops", len(batch)).Msg("batch committed")
	}
	return st, nil
}

// Ops flattens a plan: every insert first, then every update.
func Ops(plan reconcile.Plan) []Op {
	ops := make([]Op, 0, len(plan.Inserts)+len(plan.Updates))
	for _, g := range plan.Inserts {
		ops = append(ops, Op{Kind: Insert, Doc: models.GameDoc{Game: g}})
	}
	for _, d := range plan.Updates {
		ops = append(ops, Op{Kind: Update, Doc: d})
	}
	return ops
}
