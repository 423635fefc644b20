// Package service implements schema registration: create, read, update and
// guarded delete of schemas.
package service

import (
	"context"
	"errors"
	"log/slog"

	"credstore/internal/audit"
	"credstore/internal/platform/metrics"
	"credstore/internal/schema/models"
	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

const resourceName = "schemas"

// Error messages returned to clients.
const (
	MsgInvalidSchema = "Invalid schema field"
	MsgSchemaInUse   = "Schema is referenced by credentials"
)

// Store is the schema persistence contract.
type Store interface {
	GetByID(ctx context.Context, id int64) (models.Schema, error)
	GetAll(ctx context.Context, page crud.Page) ([]models.Schema, error)
	Create(ctx context.Context, schema models.Schema) (int64, error)
	Update(ctx context.Context, schema models.Schema) error
	DeleteByID(ctx context.Context, id int64) error
}

// References guards schemas that credentials point at.
type References interface {
	// RetireSchema fails with sentinel.ErrInUse while a credential references
	// schemaID. After it succeeds no credential can be written against it.
	RetireSchema(ctx context.Context, schemaID int64) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	schemas    Store
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
func New(schemas Store, references References, opts ...Option) *Service {
	s := &Service{
		schemas:    schemas,
		references: references,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, page crud.Page) ([]models.Schema, error) {
	schemas, err := s.schemas.GetAll(ctx, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list schemas", "error", err)
		return nil, crud.TranslateError(err, crud.MsgInternal)
	}
	return schemas, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Schema, error) {
	schema, err := s.schemas.GetByID(ctx, id)
	if err != nil {
		return models.Schema{}, crud.TranslateError(err, crud.MsgInternal)
	}
	return schema, nil
}

// Create stores a schema and returns it with its assigned id. Any id on the
// input is ignored.
func (s *Service) Create(ctx context.Context, schema models.Schema) (models.Schema, error) {
	if schema.Schema == nil {
		return models.Schema{}, dErrors.New(dErrors.CodeValidation, MsgInvalidSchema)
	}

	id, err := s.schemas.Create(ctx, schema)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create schema", "error", err)
		return models.Schema{}, crud.TranslateError(err, crud.MsgCreateFailed)
	}

	s.metrics.IncrementCreated(resourceName)
	s.emit(ctx, id, audit.ActionCreated)
	return schema.WithID(id), nil
}

// Update replaces the schema body of an existing schema.
func (s *Service) Update(ctx context.Context, schema models.Schema) (models.Schema, error) {
	id, ok := schema.RecordID()
	if !ok || schema.Schema == nil {
		return models.Schema{}, dErrors.New(dErrors.CodeInvalidInput, crud.MsgInvalidBody)
	}

	if err := s.schemas.Update(ctx, schema); err != nil {
		return models.Schema{}, crud.TranslateError(err, crud.MsgInternal)
	}

	s.emit(ctx, id, audit.ActionUpdated)
	return schema, nil
}

// Delete removes a schema no credential references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.references != nil {
		if err := s.references.RetireSchema(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrInUse) {
				return dErrors.New(dErrors.CodeConflict, MsgSchemaInUse)
			}
			s.logger.ErrorContext(ctx, "failed to check schema references", "error", err, "schema_id", id)
			return crud.TranslateError(err, crud.MsgInternal)
		}
	}

	if err := s.schemas.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrInUse) {
			return dErrors.New(dErrors.CodeConflict, MsgSchemaInUse)
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
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "schema_id", id, "action", action)
	}
}
