// Package crud defines the uniform persistence contract shared by schemas,
// cryptographic keys and credentials, plus an in-memory implementation.
package crud

import "context"

// Page carries optional limit/offset values straight from the query string.
// Nil means "not given"; stores pass both through without reinterpretation.
type Page struct {
	Limit  *uint64
	Offset *uint64
}

// Entity is implemented by records whose id is assigned by the store.
type Entity[T any] interface {
	// RecordID returns the id and whether it is set.
	RecordID() (int64, bool)
	// WithID returns a copy of the record carrying id.
	WithID(id int64) T
}

// Store is the persistence contract for one resource type.
//
// GetByID, Update and DeleteByID return sentinel.ErrNotFound for a missing
// row. Create ignores any id on the record and returns the assigned one.
type Store[T any] interface {
	GetByID(ctx context.Context, id int64) (T, error)
	GetAll(ctx context.Context, page Page) ([]T, error)
	Create(ctx context.Context, record T) (int64, error)
	Update(ctx context.Context, record T) error
	DeleteByID(ctx context.Context, id int64) error
}
