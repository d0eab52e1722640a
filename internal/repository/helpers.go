package repository

import (
	"context"
	"database/sql"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// pick runs on the transaction when one is given.
func pick(db *sql.DB, tx *sql.Tx) queryer {
	if tx != nil {
		return tx
	}
	return db
}
