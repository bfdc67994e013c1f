// Package store keeps game documents in a sqlite-backed document collection.
// Each document is a JSON body under an opaque id, scoped by collection name.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"romvault/internal/commit"
	"romvault/pkg/models"
)

// ErrDocumentMissing is returned when an update targets a document that no
// longer exists.
var ErrDocumentMissing = errors.New("document missing")

type Store struct {
	DB         *sql.DB
	Collection string
	now        func() time.Time
}

func New(db *sql.DB, collection string) *Store {
	return &Store{DB: db, Collection: collection, now: time.Now}
}

// NewID generates a document identifier.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// LoadAll scans the whole collection, oldest document first.
func (s *Store) LoadAll(ctx context.Context) ([]models.GameDoc, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection = ?
		ORDER BY created_at ASC, id ASC
	`, s.Collection)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Collection, err)
	}
	defer rows.Close()

	var out []models.GameDoc
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", s.Collection, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s rows: %w", s.Collection, err)
	}
	return out, nil
}

// CommitBatch applies ops in one transaction. Inserts get a fresh id; an
// update whose document is gone fails the whole batch.
func (s *Store) CommitBatch(ctx context.Context, ops []commit.Op) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	update, err := tx.PrepareContext(ctx, `
		UPDATE documents SET data = ?, updated_at = ?
		WHERE collection = ? AND id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer update.Close()

	now := s.now().UTC()
	for _, op := range ops {
		body, err := json.Marshal(op.Doc.Game)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", op.Doc.Name, err)
		}

		switch op.Kind {
		case commit.Insert:
			id := op.Doc.ID
			if id == "" {
				id = s.NewID()
			}
			if _, err := insert.ExecContext(ctx, s.Collection, id, string(body), now, now); err != nil {
				return fmt.Errorf("exec insert for %s: %w", op.Doc.Name, err)
			}
		case commit.Update:
			res, err := update.ExecContext(ctx, string(body), now, s.Collection, op.Doc.ID)
			if err != nil {
				return fmt.Errorf("exec update for %s: %w", op.Doc.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("update %s: %w", op.Doc.ID, ErrDocumentMissing)
			}
		default:
			return fmt.Errorf("unknown op kind %s", op.Kind)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get returns nil, nil when the document does not exist.
func (s *Store) Get(ctx context.Context, id string) (*models.GameDoc, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection = ? AND id = ?
	`, s.Collection, id)

	d, err := scanDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return &d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDoc(sc scanner) (models.GameDoc, error) {
	var (
		d    models.GameDoc
		body string
	)
	if err := sc.Scan(&d.ID, &body); err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(body), &d.Game); err != nil {
		return d, fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return d, nil
}
