package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"credstore/internal/platform/database"
	"credstore/internal/schema/models"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

// PostgresStore persists schemas in the schemas table as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (models.Schema, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, schema FROM schemas WHERE id = $1`, id)
	schema, err := scanSchema(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Schema{}, sentinel.ErrNotFound
		}
		return models.Schema{}, fmt.Errorf("find schema by id: %w", err)
	}
	return schema, nil
}

func (s *PostgresStore) GetAll(ctx context.Context, page crud.Page) ([]models.Schema, error) {
	query, args, err := database.Paginate(
		database.Builder.Select("id", "schema").From("schemas").OrderBy("id"), page,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list schemas query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	schemas := []models.Schema{}
	for rows.Next() {
		schema, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		schemas = append(schemas, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	return schemas, nil
}

func (s *PostgresStore) Create(ctx context.Context, schema models.Schema) (int64, error) {
	payload, err := encodeSchema(schema.Schema)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowContext(ctx,
		`INSERT INTO schemas (schema) VALUES ($1) RETURNING id`, payload,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, schema models.Schema) error {
	id, ok := schema.RecordID()
	if !ok {
		return sentinel.ErrInvalidInput
	}
	payload, err := encodeSchema(schema.Schema)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE schemas SET schema = $2 WHERE id = $1`, id, payload)
	if err != nil {
		return fmt.Errorf("update schema: %w", err)
	}
	return database.RequireRow(res)
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schemas WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return sentinel.ErrInUse
		}
		return fmt.Errorf("delete schema: %w", err)
	}
	return database.RequireRow(res)
}

type schemaRow interface {
	Scan(dest ...any) error
}

func scanSchema(row schemaRow) (models.Schema, error) {
	var id int64
	var raw []byte
	if err := row.Scan(&id, &raw); err != nil {
		return models.Schema{}, err
	}
	schema := models.Schema{ID: &id}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &schema.Schema); err != nil {
			return models.Schema{}, fmt.Errorf("decode schema %d: %w", id, err)
		}
	}
	return schema, nil
}

// encodeSchema maps an absent schema to SQL NULL.
func encodeSchema(schema models.BaseType) (any, error) {
	if schema == nil {
		return nil, nil
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return string(payload), nil
}

var _ Store = (*PostgresStore)(nil)
