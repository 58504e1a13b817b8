// Package docstore defines the collection-structured document store that
// durably mirrors the local dataset.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// MaxBatchOps is the most operations a single batch may carry.
const MaxBatchOps = 500

var (
	// ErrNotFound is returned when a requested document doesn't exist.
	ErrNotFound = errors.New("document not found")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchOps.
	ErrBatchTooLarge = errors.New("batch exceeds operation limit")
	// ErrInvalidField is returned for query fields that are not plain paths.
	ErrInvalidField = errors.New("invalid document field")
	// ErrInvalidDocument is returned when a document body is not valid JSON.
	ErrInvalidDocument = errors.New("invalid document")
)

// Document is a stored JSON document.
type Document struct {
	ID   string
	Data []byte
}

// Op is a filter comparison.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Filter restricts a query to documents whose field matches Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents from one collection. Results are ordered by
// OrderBy ascending (document id when empty) and capped at Limit when
// positive.
type Query struct {
	Filters []Filter
	OrderBy string
	Limit   int
}

// Store reads collections and applies atomic write batches.
type Store interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	NewBatch() Batch
}

// Batch accumulates full-document writes and deletes that commit together.
type Batch interface {
	Set(collection, id string, data []byte)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidateField checks that field is a dotted identifier path.
func ValidateField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}
