// Package store persists credentials and guards the schemas and keys they
// reference against deletion.
package store

import (
	"context"
	"sync"

	"credstore/internal/credential/models"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in a crud.InMemory map. Writes and
// retirements share refMu so a reference check and the writes it guards
// cannot interleave.
type InMemoryStore struct {
	*crud.InMemory[models.Credential]

	refMu          sync.Mutex
	retiredSchemas map[int64]struct{}
	retiredKeys    map[int64]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		InMemory:       crud.NewInMemory[models.Credential](),
		retiredSchemas: make(map[int64]struct{}),
		retiredKeys:    make(map[int64]struct{}),
	}
}

// Create fails with models.ErrUnknownSchema or models.ErrUnknownKey when the
// credential points at a retired schema or key.
func (s *InMemoryStore) Create(ctx context.Context, credential models.Credential) (int64, error) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if err := s.checkRetired(credential); err != nil {
		return 0, err
	}
	return s.InMemory.Create(ctx, credential)
}

func (s *InMemoryStore) Update(ctx context.Context, credential models.Credential) error {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if err := s.checkRetired(credential); err != nil {
		return err
	}
	return s.InMemory.Update(ctx, credential)
}

// RetireSchema fails with sentinel.ErrInUse while any credential references
// schemaID. Otherwise later writes referencing schemaID are refused.
func (s *InMemoryStore) RetireSchema(_ context.Context, schemaID int64) error {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if s.countSchema(schemaID) > 0 {
		return sentinel.ErrInUse
	}
	s.retiredSchemas[schemaID] = struct{}{}
	return nil
}

// RetireKey is RetireSchema for public keys.
func (s *InMemoryStore) RetireKey(_ context.Context, keyID int64) error {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if s.countKey(keyID) > 0 {
		return sentinel.ErrInUse
	}
	s.retiredKeys[keyID] = struct{}{}
	return nil
}

func (s *InMemoryStore) CountBySchemaID(_ context.Context, schemaID int64) (int, error) {
	return s.countSchema(schemaID), nil
}

func (s *InMemoryStore) CountByKeyID(_ context.Context, keyID int64) (int, error) {
	return s.countKey(keyID), nil
}

func (s *InMemoryStore) countSchema(schemaID int64) int {
	return s.Count(func(c models.Credential) bool {
		return c.SchemaID != nil && *c.SchemaID == schemaID
	})
}

func (s *InMemoryStore) countKey(keyID int64) int {
	return s.Count(func(c models.Credential) bool {
		return c.PublicKeyID != nil && *c.PublicKeyID == keyID
	})
}

func (s *InMemoryStore) checkRetired(c models.Credential) error {
	if c.SchemaID != nil {
		if _, ok := s.retiredSchemas[*c.SchemaID]; ok {
			return models.ErrUnknownSchema
		}
	}
	if c.PublicKeyID != nil {
		if _, ok := s.retiredKeys[*c.PublicKeyID]; ok {
			return models.ErrUnknownKey
		}
	}
	return nil
}
