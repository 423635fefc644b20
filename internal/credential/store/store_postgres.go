package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"credstore/internal/credential/models"
	"credstore/internal/platform/database"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

// PostgresStore persists credentials in the credentials table. schema_id and
// public_key_id are foreign keys with ON DELETE RESTRICT.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var credentialColumns = []string{"id", "schema_id", "public_key_id", "finger_print", "data"}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (models.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, schema_id, public_key_id, finger_print, data
		FROM credentials
		WHERE id = $1
	`, id)
	credential, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Credential{}, sentinel.ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("find credential by id: %w", err)
	}
	return credential, nil
}

func (s *PostgresStore) GetAll(ctx context.Context, page crud.Page) ([]models.Credential, error) {
	query, args, err := database.Paginate(
		database.Builder.Select(credentialColumns...).From("credentials").OrderBy("id"), page,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list credentials query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	credentials := []models.Credential{}
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return credentials, nil
}

func (s *PostgresStore) Create(ctx context.Context, credential models.Credential) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO credentials (schema_id, public_key_id, finger_print, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, nullInt64(credential.SchemaID), nullInt64(credential.PublicKeyID),
		nullString(credential.FingerPrint), nullJSON(credential),
	).Scan(&id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("create credential: %w", danglingReference(err))
		}
		return 0, fmt.Errorf("create credential: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, credential models.Credential) error {
	id, ok := credential.RecordID()
	if !ok {
		return sentinel.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET schema_id = $2, public_key_id = $3, finger_print = $4, data = $5
		WHERE id = $1
	`, id, nullInt64(credential.SchemaID), nullInt64(credential.PublicKeyID),
		nullString(credential.FingerPrint), nullJSON(credential))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("update credential: %w", danglingReference(err))
		}
		return fmt.Errorf("update credential: %w", err)
	}
	return database.RequireRow(res)
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return database.RequireRow(res)
}

const publicKeyConstraint = "credentials_public_key_id_fkey"

// danglingReference names the reference an insert or update failed on.
func danglingReference(err error) error {
	if database.ViolatedConstraint(err) == publicKeyConstraint {
		return models.ErrUnknownKey
	}
	return models.ErrUnknownSchema
}

// RetireSchema fails with sentinel.ErrInUse while credentials reference
// schemaID. Inserts racing the schema delete are refused by the foreign key.
func (s *PostgresStore) RetireSchema(ctx context.Context, schemaID int64) error {
	return s.retire(ctx, "schema_id", schemaID)
}

// RetireKey is RetireSchema for public keys.
func (s *PostgresStore) RetireKey(ctx context.Context, keyID int64) error {
	return s.retire(ctx, "public_key_id", keyID)
}

func (s *PostgresStore) retire(ctx context.Context, column string, id int64) error {
	n, err := s.count(ctx, column, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return sentinel.ErrInUse
	}
	return nil
}

func (s *PostgresStore) CountBySchemaID(ctx context.Context, schemaID int64) (int, error) {
	return s.count(ctx, "schema_id", schemaID)
}

func (s *PostgresStore) CountByKeyID(ctx context.Context, keyID int64) (int, error) {
	return s.count(ctx, "public_key_id", keyID)
}

func (s *PostgresStore) count(ctx context.Context, column string, id int64) (int, error) {
	query, args, err := database.Builder.
		Select("COUNT(*)").From("credentials").Where(column+" = ?", id).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials by %s: %w", column, err)
	}
	return n, nil
}

type credentialRow interface {
	Scan(dest ...any) error
}

func scanCredential(row credentialRow) (models.Credential, error) {
	var (
		id          int64
		schemaID    sql.NullInt64
		publicKeyID sql.NullInt64
		fingerPrint sql.NullString
		data        []byte
	)
	if err := row.Scan(&id, &schemaID, &publicKeyID, &fingerPrint, &data); err != nil {
		return models.Credential{}, err
	}

	credential := models.Credential{ID: &id}
	if schemaID.Valid {
		credential.SchemaID = &schemaID.Int64
	}
	if publicKeyID.Valid {
		credential.PublicKeyID = &publicKeyID.Int64
	}
	if fingerPrint.Valid {
		credential.FingerPrint = &fingerPrint.String
	}
	if len(data) > 0 {
		credential.Data = data
	}
	return credential, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// nullJSON stores absent or JSON-null data as SQL NULL.
func nullJSON(c models.Credential) any {
	if !c.HasData() {
		return nil
	}
	return string(c.Data)
}

var _ crud.Store[models.Credential] = (*PostgresStore)(nil)
