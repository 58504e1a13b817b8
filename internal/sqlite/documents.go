package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/statuspage/internal/docstore"
)

// DocumentStore implements docstore.Store on a single documents table.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get returns one document's JSON body.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(data), nil
}

// List returns every document in a collection ordered by id.
func (s *DocumentStore) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.Query(ctx, collection, docstore.Query{})
}

// Query returns the documents of a collection matching q.
func (s *DocumentStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	var (
		sb   strings.Builder
		args = []any{collection}
	)
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)

	for _, f := range q.Filters {
		if err := docstore.ValidateField(f.Field); err != nil {
			return nil, err
		}
		path := jsonPath(f.Field)
		switch f.Op {
		case docstore.OpEqual:
			sb.WriteString(` AND json_extract(data, '` + path + `') = ?`)
		case docstore.OpArrayContains:
			sb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(data, '` + path + `') WHERE json_each.value = ?)`)
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
		args = append(args, f.Value)
	}

	if q.OrderBy != "" {
		if err := docstore.ValidateField(q.OrderBy); err != nil {
			return nil, err
		}
		sb.WriteString(` ORDER BY json_extract(data, '` + jsonPath(q.OrderBy) + `') ASC, id ASC`)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// NewBatch starts an empty write batch.
func (s *DocumentStore) NewBatch() docstore.Batch {
	return &batch{db: s.db}
}

func jsonPath(field string) string {
	return "$." + field
}

type batchOp struct {
	collection string
	id         string
	data       []byte
	delete     bool
}

type batch struct {
	db  *DB
	ops []batchOp
}

func (b *batch) Set(collection, id string, data []byte) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, data: data})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, delete: true})
}

func (b *batch) Len() int {
	return len(b.ops)
}

// Commit applies every operation in one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > docstore.MaxBatchOps {
		return fmt.Errorf("%w: %d operations", docstore.ErrBatchTooLarge, len(b.ops))
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b.ops {
		if op.delete {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`,
				op.collection, op.id,
			); err != nil {
				return fmt.Errorf("failed to delete %s/%s: %w", op.collection, op.id, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, data, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(collection, id) DO UPDATE SET
				data = excluded.data,
				updated_at = excluded.updated_at
		`, op.collection, op.id, string(op.data)); err != nil {
			return mapWriteError(err, op.collection, op.id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	b.ops = nil
	return nil
}
