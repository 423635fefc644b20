package database

import (
	sq "github.com/Masterminds/squirrel"

	"credstore/pkg/platform/crud"
)

// Builder produces PostgreSQL ($n placeholder) statements.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Paginate applies the page's limit and offset when set.
func Paginate(b sq.SelectBuilder, page crud.Page) sq.SelectBuilder {
	if page.Limit != nil {
		b = b.Limit(*page.Limit)
	}
	if page.Offset != nil {
		b = b.Offset(*page.Offset)
	}
	return b
}
