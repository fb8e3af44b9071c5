package db

import (
	"context"
	"database/sql"
)

// WrapSQL wraps a *sql.DB to implement the DB interface.
func WrapSQL(sqlDB *sql.DB) DB {
	return &sqlWrapper{sqlDB}
}

type sqlWrapper struct {
	*sql.DB
}

var _ DB = (*sqlWrapper)(nil)

func (w *sqlWrapper) Query(query string, args ...any) (Rows, error) {
	rows, err := w.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows}, nil
}

func (w *sqlWrapper) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows}, nil
}

func (w *sqlWrapper) QueryRow(query string, args ...any) Row {
	return w.DB.QueryRow(query, args...)
}

func (w *sqlWrapper) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return w.DB.QueryRowContext(ctx, query, args...)
}

func (w *sqlWrapper) Exec(query string, args ...any) (Result, error) {
	return w.DB.Exec(query, args...)
}

func (w *sqlWrapper) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	return w.DB.ExecContext(ctx, query, args...)
}

func (w *sqlWrapper) Begin() (Tx, error) {
	tx, err := w.DB.Begin()
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx}, nil
}

func (w *sqlWrapper) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := w.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx}, nil
}

// Unwrap returns the underlying *sql.DB. Used sparingly, by code that
// needs driver-specific behavior the DB interface doesn't expose.
func (w *sqlWrapper) Unwrap() *sql.DB {
	return w.DB
}

type sqlRows struct {
	*sql.Rows
}

func (r *sqlRows) Columns() ([]string, error) {
	return r.Rows.Columns()
}

type sqlTx struct {
	*sql.Tx
}

func (t *sqlTx) Query(query string, args ...any) (Rows, error) {
	rows, err := t.Tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows}, nil
}

func (t *sqlTx) QueryRow(query string, args ...any) Row {
	return t.Tx.QueryRow(query, args...)
}

func (t *sqlTx) Exec(query string, args ...any) (Result, error) {
	return t.Tx.Exec(query, args...)
}

func (t *sqlTx) Prepare(query string) (Stmt, error) {
	stmt, err := t.Tx.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &sqlStmt{stmt}, nil
}

type sqlStmt struct {
	*sql.Stmt
}

func (s *sqlStmt) Query(args ...any) (Rows, error) {
	rows, err := s.Stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows}, nil
}

func (s *sqlStmt) QueryRow(args ...any) Row {
	return s.Stmt.QueryRow(args...)
}
