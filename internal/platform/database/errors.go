package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"credstore/pkg/platform/sentinel"
)

const foreignKeyViolation = "23503"

// IsForeignKeyViolation reports whether err is a PostgreSQL FK violation,
// raised both when inserting a dangling reference and when deleting a row
// that is still referenced under ON DELETE RESTRICT.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// ViolatedConstraint returns the constraint named by a PostgreSQL error, or
// "" when err carries none.
func ViolatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// RequireRow maps an UPDATE or DELETE that touched no rows to
// sentinel.ErrNotFound.
func RequireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
