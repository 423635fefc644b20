package database

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credstore/pkg/platform/sentinel"
)

func TestPgErrorClassification(t *testing.T) {
	fk := fmt.Errorf("delete schema: %w", &pgconn.PgError{Code: "23503"})
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(errors.New("23503")))
	assert.False(t, IsForeignKeyViolation(nil))

	named := fmt.Errorf("create credential: %w", &pgconn.PgError{Code: "23503", ConstraintName: "credentials_public_key_id_fkey"})
	assert.Equal(t, "credentials_public_key_id_fkey", ViolatedConstraint(named))
	assert.Empty(t, ViolatedConstraint(errors.New("23503")))
}

type rowsResult int64

func (r rowsResult) LastInsertId() (int64, error) { return 0, nil }
func (r rowsResult) RowsAffected() (int64, error) {
	if r < 0 {
		return 0, errors.New("driver does not support rows affected")
	}
	return int64(r), nil
}

func TestRequireRow(t *testing.T) {
	assert.NoError(t, RequireRow(rowsResult(1)))
	assert.ErrorIs(t, RequireRow(rowsResult(0)), sentinel.ErrNotFound)
	assert.Error(t, RequireRow(rowsResult(-1)))
}

func TestUpMigrationsOrdering(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_b.up.sql":   {Data: []byte("SELECT 2")},
		"000001_a.up.sql":   {Data: []byte("SELECT 1")},
		"000001_a.down.sql": {Data: []byte("SELECT 0")},
		"embed.go":          {Data: []byte("package migrations")},
	}

	files, err := upMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, files)
}

func TestNilPool(t *testing.T) {
	var p *Pool
	assert.ErrorIs(t, p.Health(t.Context()), ErrNotConfigured)
	assert.NoError(t, p.Close())
}
