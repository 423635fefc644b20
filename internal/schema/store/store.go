// Package store persists schemas in memory or PostgreSQL and optionally
// fronts them with a Redis read-through cache.
package store

import (
	"credstore/internal/schema/models"
	"credstore/pkg/platform/crud"
)

// Store is the schema persistence contract.
type Store = crud.Store[models.Schema]

func NewInMemory() *crud.InMemory[models.Schema] {
	return crud.NewInMemory[models.Schema]()
}
