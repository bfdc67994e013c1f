package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"romvault/pkg/models"
)

// RecordRun stores the summary of a finished sync run.
func (s *Store) RecordRun(ctx context.Context, run models.SyncRun) error {
	if run.ID == "" {
		run.ID = s.NewID()
	}
	failed, err := json.Marshal(run.FailedSources)
	if err != nil {
		return fmt.Errorf("marshal failed sources: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO sync_runs (id, started_at, finished_at, fetched, unique_games, inserted, updated, unchanged, batches, failed_sources, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Fetched, run.Unique,
		run.Inserted, run.Updated, run.Unchanged, run.Batches, string(failed), run.Error)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil if none was recorded.
func (s *Store) LastRun(ctx context.Context) (*models.SyncRun, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, fetched, unique_games, inserted, updated, unchanged, batches, failed_sources, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1
	`)

	var (
		r      models.SyncRun
		failed string
	)
	if err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Fetched, &r.Unique,
		&r.Inserted, &r.Updated, &r.Unchanged, &r.Batches, &failed, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last run: %w", err)
	}
	_ = json.Unmarshal([]byte(failed), &r.FailedSources)
	return &r, nil
}
