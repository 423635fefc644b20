// Package store persists cryptographic keys in memory or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"credstore/internal/keys/models"
	"credstore/internal/platform/database"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

type Store = crud.Store[models.CryptographicKey]

func NewInMemory() *crud.InMemory[models.CryptographicKey] {
	return crud.NewInMemory[models.CryptographicKey]()
}

// PostgresStore persists keys in the cryptographic_keys table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (models.CryptographicKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, public_key FROM cryptographic_keys WHERE id = $1`, id)
	key, err := scanKey(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CryptographicKey{}, sentinel.ErrNotFound
		}
		return models.CryptographicKey{}, fmt.Errorf("find key by id: %w", err)
	}
	return key, nil
}

func (s *PostgresStore) GetAll(ctx context.Context, page crud.Page) ([]models.CryptographicKey, error) {
	query, args, err := database.Paginate(
		database.Builder.Select("id", "public_key").From("cryptographic_keys").OrderBy("id"), page,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list keys query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []models.CryptographicKey{}
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

func (s *PostgresStore) Create(ctx context.Context, key models.CryptographicKey) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx,
		`INSERT INTO cryptographic_keys (public_key) VALUES ($1) RETURNING id`, nullString(key.PublicKey),
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("create key: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, key models.CryptographicKey) error {
	id, ok := key.RecordID()
	if !ok {
		return sentinel.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cryptographic_keys SET public_key = $2 WHERE id = $1`, id, nullString(key.PublicKey))
	if err != nil {
		return fmt.Errorf("update key: %w", err)
	}
	return database.RequireRow(res)
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cryptographic_keys WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return sentinel.ErrInUse
		}
		return fmt.Errorf("delete key: %w", err)
	}
	return database.RequireRow(res)
}

type keyRow interface {
	Scan(dest ...any) error
}

func scanKey(row keyRow) (models.CryptographicKey, error) {
	var id int64
	var publicKey sql.NullString
	if err := row.Scan(&id, &publicKey); err != nil {
		return models.CryptographicKey{}, err
	}
	key := models.CryptographicKey{ID: &id}
	if publicKey.Valid {
		key.PublicKey = &publicKey.String
	}
	return key, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Store = (*PostgresStore)(nil)
