// Package service validates and persists credentials.
//
// A credential is only written after its schema reference resolves and its
// data conforms to that schema. Updates additionally require a resolvable
// public key and a passing fingerprint verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"credstore/internal/audit"
	"credstore/internal/credential/models"
	keymodels "credstore/internal/keys/models"
	"credstore/internal/platform/metrics"
	"credstore/internal/schema/conformance"
	schemamodels "credstore/internal/schema/models"
	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
	"credstore/pkg/platform/tracer"
)

const resourceName = "credentials"

var errMissingPublicKey = errors.New("key has no public_key")

// Validation messages returned to clients.
const (
	MsgMissingSchemaID = "Invalid schema_id field"
	MsgNoSchema        = "No schema found"
	MsgNonconforming   = "Invalid or Nonconforming schema"
	MsgMissingKeyID    = "Invalid public_key_id field"
	MsgNoKey           = "No key found"
	MsgBadFingerprint  = "Invalid finger_print"
)

// Rejection reasons used for metrics and audit.
const (
	reasonMissingSchemaID = "missing_schema_id"
	reasonNoSchema        = "no_schema"
	reasonNonconforming   = "nonconforming"
	reasonMissingKeyID    = "missing_key_id"
	reasonNoKey           = "no_key"
	reasonFingerprint     = "fingerprint"
)

// Store is the credential persistence contract.
type Store interface {
	GetByID(ctx context.Context, id int64) (models.Credential, error)
	GetAll(ctx context.Context, page crud.Page) ([]models.Credential, error)
	Create(ctx context.Context, credential models.Credential) (int64, error)
	Update(ctx context.Context, credential models.Credential) error
	DeleteByID(ctx context.Context, id int64) error
}

// SchemaReader resolves the schema a credential references.
type SchemaReader interface {
	GetByID(ctx context.Context, id int64) (schemamodels.Schema, error)
}

// KeyReader resolves the key a credential references.
type KeyReader interface {
	GetByID(ctx context.Context, id int64) (keymodels.CryptographicKey, error)
}

// Verifier checks a credential's fingerprint against its key.
type Verifier interface {
	Verify(ctx context.Context, credential models.Credential, key keymodels.CryptographicKey) bool
}

// AcceptAll is the default Verifier. It performs no cryptographic check.
type AcceptAll struct{}

func (AcceptAll) Verify(context.Context, models.Credential, keymodels.CryptographicKey) bool {
	return true
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	credentials Store
	schemas     SchemaReader
	keys        KeyReader
	verifier    Verifier
	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

type Option func(*Service)

func WithVerifier(v Verifier) Option {
	return func(s *Service) {
		s.verifier = v
	}
}

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

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(credentials Store, schemas SchemaReader, keys KeyReader, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		schemas:     schemas,
		keys:        keys,
		verifier:    AcceptAll{},
		logger:      slog.New(slog.DiscardHandler),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, page crud.Page) ([]models.Credential, error) {
	credentials, err := s.credentials.GetAll(ctx, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list credentials", "error", err)
		return nil, crud.TranslateError(err, crud.MsgInternal)
	}
	return credentials, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Credential, error) {
	credential, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return models.Credential{}, crud.TranslateError(err, crud.MsgInternal)
	}
	return credential, nil
}

// Create validates credential and stores it. Nothing is written when
// validation fails.
func (s *Service) Create(ctx context.Context, credential models.Credential) (models.Credential, error) {
	if err := s.validateSchema(ctx, credential); err != nil {
		return models.Credential{}, err
	}
	if credential.PublicKeyID != nil {
		if _, err := s.resolveKey(ctx, *credential.PublicKeyID); err != nil {
			return models.Credential{}, s.reject(ctx, credential, reasonNoKey, MsgNoKey, err)
		}
	}

	id, err := s.credentials.Create(ctx, credential)
	if err != nil {
		return models.Credential{}, s.writeFailed(ctx, credential, err, crud.MsgCreateFailed)
	}

	s.metrics.IncrementCreated(resourceName)
	s.emit(ctx, audit.Event{Resource: resourceName, ResourceID: id, Action: audit.ActionCreated})
	return credential.WithID(id), nil
}

// Update validates credential and replaces the stored record with the same id.
func (s *Service) Update(ctx context.Context, credential models.Credential) (models.Credential, error) {
	id, ok := credential.RecordID()
	if !ok {
		return models.Credential{}, dErrors.New(dErrors.CodeInvalidInput, crud.MsgInvalidBody)
	}

	if err := s.validateSchema(ctx, credential); err != nil {
		return models.Credential{}, err
	}
	if err := s.validateKey(ctx, credential); err != nil {
		return models.Credential{}, err
	}

	if err := s.credentials.Update(ctx, credential); err != nil {
		return models.Credential{}, s.writeFailed(ctx, credential, err, crud.MsgInternal)
	}

	s.emit(ctx, audit.Event{Resource: resourceName, ResourceID: id, Action: audit.ActionUpdated})
	return credential, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.credentials.DeleteByID(ctx, id); err != nil {
		return crud.TranslateError(err, crud.MsgInternal)
	}
	s.metrics.IncrementDeleted(resourceName)
	s.emit(ctx, audit.Event{Resource: resourceName, ResourceID: id, Action: audit.ActionDeleted})
	return nil
}

// validateSchema resolves the referenced schema and checks conformance.
func (s *Service) validateSchema(ctx context.Context, credential models.Credential) error {
	if credential.SchemaID == nil {
		return s.reject(ctx, credential, reasonMissingSchemaID, MsgMissingSchemaID, nil)
	}
	schemaID := *credential.SchemaID

	ctx, span := s.tracer.Start(ctx, tracer.SpanSchemaLookup, tracer.Int64(tracer.AttrSchemaID, schemaID))
	schema, err := s.schemas.GetByID(ctx, schemaID)
	span.End(ignoreNotFound(err))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load schema", "error", err, "schema_id", schemaID)
		}
		return s.reject(ctx, credential, reasonNoSchema, MsgNoSchema, err)
	}

	if !s.conforms(ctx, schemaID, credential, schema.Schema) {
		return s.reject(ctx, credential, reasonNonconforming, MsgNonconforming, nil)
	}
	return nil
}

func (s *Service) conforms(ctx context.Context, schemaID int64, credential models.Credential, schema schemamodels.BaseType) bool {
	if schema == nil {
		return false
	}
	_, span := s.tracer.Start(ctx, tracer.SpanConformanceCheck,
		tracer.Int64(tracer.AttrSchemaID, schemaID),
		tracer.Int64(tracer.AttrFieldCount, int64(len(schema))),
	)
	start := time.Now()
	ok := conformance.ConformsJSON(credential.Data, schema)
	s.metrics.ObserveConformance(ok, time.Since(start))
	span.SetAttributes(tracer.Bool(tracer.AttrConforms, ok))
	span.End(nil)
	return ok
}

// validateKey runs the update-only key checks.
func (s *Service) validateKey(ctx context.Context, credential models.Credential) error {
	if credential.PublicKeyID == nil {
		return s.reject(ctx, credential, reasonMissingKeyID, MsgMissingKeyID, nil)
	}

	key, err := s.resolveKey(ctx, *credential.PublicKeyID)
	if err != nil {
		return s.reject(ctx, credential, reasonNoKey, MsgNoKey, err)
	}

	_, span := s.tracer.Start(ctx, tracer.SpanFingerprintCheck, tracer.Int64(tracer.AttrKeyID, *credential.PublicKeyID))
	verified := s.verifier.Verify(ctx, credential, key)
	span.SetAttributes(tracer.Bool(tracer.AttrVerified, verified))
	span.End(nil)
	if !verified {
		return s.reject(ctx, credential, reasonFingerprint, MsgBadFingerprint, nil)
	}
	return nil
}

// resolveKey loads a key that must carry a public key.
func (s *Service) resolveKey(ctx context.Context, keyID int64) (keymodels.CryptographicKey, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanKeyLookup, tracer.Int64(tracer.AttrKeyID, keyID))
	key, err := s.keys.GetByID(ctx, keyID)
	span.End(ignoreNotFound(err))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load key", "error", err, "key_id", keyID)
		}
		return keymodels.CryptographicKey{}, err
	}
	if key.PublicKey == nil {
		return keymodels.CryptographicKey{}, errMissingPublicKey
	}
	return key, nil
}

// writeFailed maps a store write error. A schema or key deleted after
// validation is reported like one that never resolved.
func (s *Service) writeFailed(ctx context.Context, credential models.Credential, err error, internalMsg string) error {
	switch {
	case errors.Is(err, models.ErrUnknownKey):
		return s.reject(ctx, credential, reasonNoKey, MsgNoKey, err)
	case errors.Is(err, models.ErrUnknownSchema):
		return s.reject(ctx, credential, reasonNoSchema, MsgNoSchema, err)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to write credential", "error", err)
	}
	return crud.TranslateError(err, internalMsg)
}

// reject records a validation failure. Lookup failures of any kind surface
// as CodeValidation with msg; cause is kept for errors.Is.
func (s *Service) reject(ctx context.Context, credential models.Credential, reason, msg string, cause error) error {
	s.metrics.IncrementRejected(reason)
	id, _ := credential.RecordID()
	s.emit(ctx, audit.Event{Resource: resourceName, ResourceID: id, Action: audit.ActionRejected, Reason: reason})
	s.logger.InfoContext(ctx, "credential rejected", "reason", reason, "credential_id", id)
	return &dErrors.Error{Code: dErrors.CodeValidation, Message: msg, Err: cause}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return err
}
