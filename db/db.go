package db

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Store is the read contract the search subsystem needs from the document store.
type Store interface {
	// FindApproved returns every approved document, projected to its searchable fields.
	FindApproved(ctx context.Context) ([]Document, error)
	Find(ctx context.Context, query ListQuery) ([]Document, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Close() error
}

// WritableStore is implemented by stores that accept documents pushed by the approval workflow.
type WritableStore interface {
	Store
	Get(ctx context.Context, id string) (*Document, error)
	Upsert(ctx context.Context, document Document) error
	Delete(ctx context.Context, id string) error
}
