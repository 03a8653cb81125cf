package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// selectInto runs a squirrel select and scans every row into dest.
func selectInto(ctx context.Context, db *sqlx.DB, dest interface{}, query squirrel.SelectBuilder, op string) error {
	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", op, err)
	}
	if err := db.SelectContext(ctx, dest, stmt, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// expectAffected converts a zero-row write into sql.ErrNoRows.
func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
