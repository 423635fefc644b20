// Package service manages cryptographic keys: create, read, update and
// guarded delete.
package service

import (
	"context"
	"errors"
	"log/slog"

	"credstore/internal/audit"
	"credstore/internal/keys/models"
	"credstore/internal/platform/metrics"
	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

const resourceName = "cryptographic_keys"

// Error messages returned to clients.
const (
	MsgInvalidKey = "Invalid public_key field"
	MsgKeyInUse   = "Key is referenced by credentials"
)

// Store is the key persistence contract.
type Store interface {
	GetByID(ctx context.Context, id int64) (models.CryptographicKey, error)
	GetAll(ctx context.Context, page crud.Page) ([]models.CryptographicKey, error)
	Create(ctx context.Context, key models.CryptographicKey) (int64, error)
	Update(ctx context.Context, key models.CryptographicKey) error
	DeleteByID(ctx context.Context, id int64) error
}

// References guards keys that credentials point at.
type References interface {
	// RetireKey fails with sentinel.ErrInUse while a credential references
	// keyID. After it succeeds no credential can be written against it.
	RetireKey(ctx context.Context, keyID int64) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	keys       Store
	references References
	logger     *slog.Logger
	auditor    AuditPublisher
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds the service. references may be nil, in which case deletes are
// only guarded by the store itself.
func New(keys Store, references References, opts ...Option) *Service {
	s := &Service{
		keys:       keys,
		references: references,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, page crud.Page) ([]models.CryptographicKey, error) {
	keys, err := s.keys.GetAll(ctx, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list keys", "error", err)
		return nil, crud.TranslateError(err, crud.MsgInternal)
	}
	return keys, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.CryptographicKey, error) {
	key, err := s.keys.GetByID(ctx, id)
	if err != nil {
		return models.CryptographicKey{}, crud.TranslateError(err, crud.MsgInternal)
	}
	return key, nil
}

// Create stores a key and returns it with its assigned id. Any id on the
// input is ignored.
func (s *Service) Create(ctx context.Context, key models.CryptographicKey) (models.CryptographicKey, error) {
	if key.PublicKey == nil {
		return models.CryptographicKey{}, dErrors.New(dErrors.CodeValidation, MsgInvalidKey)
	}

	id, err := s.keys.Create(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create key", "error", err)
		return models.CryptographicKey{}, crud.TranslateError(err, crud.MsgCreateFailed)
	}

	s.metrics.IncrementCreated(resourceName)
	s.emit(ctx, id, audit.ActionCreated)
	return key.WithID(id), nil
}

// Update replaces the public key of an existing key.
func (s *Service) Update(ctx context.Context, key models.CryptographicKey) (models.CryptographicKey, error) {
	id, ok := key.RecordID()
	if !ok || key.PublicKey == nil {
		return models.CryptographicKey{}, dErrors.New(dErrors.CodeInvalidInput, crud.MsgInvalidBody)
	}

	if err := s.keys.Update(ctx, key); err != nil {
		return models.CryptographicKey{}, crud.TranslateError(err, crud.MsgInternal)
	}

	s.emit(ctx, id, audit.ActionUpdated)
	return key, nil
}

// Delete removes a key no credential references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.references != nil {
		if err := s.references.RetireKey(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrInUse) {
				return dErrors.New(dErrors.CodeConflict, MsgKeyInUse)
			}
			s.logger.ErrorContext(ctx, "failed to check key references", "error", err, "key_id", id)
			return crud.TranslateError(err, crud.MsgInternal)
		}
	}

	if err := s.keys.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrInUse) {
			return dErrors.New(dErrors.CodeConflict, MsgKeyInUse)
		}
		return crud.TranslateError(err, crud.MsgInternal)
	}

	s.metrics.IncrementDeleted(resourceName)
	s.emit(ctx, id, audit.ActionDeleted)
	return nil
}

func (s *Service) emit(ctx context.Context, id int64, action audit.Action) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{Resource: resourceName, ResourceID: id, Action: action}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "key_id", id, "action", action)
	}
}
