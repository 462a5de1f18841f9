package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrConflict = errors.New("storage: revision conflict")
)

// Repository is an embedded document database with revision-checked writes,
// atomic bulk writes and secondary indexes over body fields.
//
// Put creates the document when doc.Rev is empty and fails with ErrConflict
// if the id is taken. Otherwise it replaces the document only if doc.Rev is
// its current revision. Remove follows the same revision rule. Both return
// ErrNotFound for an unknown id.
type Repository interface {
	Put(ctx context.Context, doc Document) (string, error)
	Get(ctx context.Context, id string) (Document, error)
	Remove(ctx context.Context, id, rev string) error
	BulkPut(ctx context.Context, docs []Document) ([]string, error)

	AllDocuments(ctx context.Context) ([]Document, error)
	Find(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, q Query) (int, error)

	CreateIndex(ctx context.Context, idx Index) error
	Indexes(ctx context.Context) ([]string, error)

	Close() error
}
