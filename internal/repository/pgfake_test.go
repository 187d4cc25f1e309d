package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory stand-ins for the pgx surface the Postgres repositories use.
// Rows and batch results are answered in the order they were scripted.

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		val := reflect.ValueOf(v)
		if !val.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("scan: column %d: cannot assign %T to %s", i, v, target.Type())
		}
		target.Set(val.Convert(target.Type()))
	}
	return nil
}

type scriptedRow struct {
	values []any
	err    error
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	pgx.Rows
	rows   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.rows[r.pos-1]) }
func (r *fakeRows) Err() error             { return r.err }
func (r *fakeRows) Close()                 { r.closed = true }

type execResult struct {
	tag pgconn.CommandTag
	err error
}

type fakeTx struct {
	pgx.Tx
	rows    []scriptedRow
	execs   []execResult
	queries []string
	batches []*pgx.Batch
}

func (tx *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	tx.queries = append(tx.queries, sql)
	if len(tx.rows) == 0 {
		return scriptedRow{err: errors.New("fakeTx: unexpected QueryRow")}
	}
	row := tx.rows[0]
	tx.rows = tx.rows[1:]
	return row
}

func (tx *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	tx.batches = append(tx.batches, b)
	return &fakeBatchResults{tx: tx}
}

type fakeBatchResults struct {
	tx     *fakeTx
	closed bool
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if len(b.tx.execs) == 0 {
		return pgconn.CommandTag{}, errors.New("fakeBatchResults: unexpected Exec")
	}
	res := b.tx.execs[0]
	b.tx.execs = b.tx.execs[1:]
	return res.tag, res.err
}

func (b *fakeBatchResults) Query() (pgx.Rows, error) {
	return nil, errors.New("fakeBatchResults: unexpected Query")
}

func (b *fakeBatchResults) QueryRow() pgx.Row {
	return scriptedRow{err: errors.New("fakeBatchResults: unexpected QueryRow")}
}

func (b *fakeBatchResults) Close() error {
	b.closed = true
	return nil
}

// fakeDB runs transactions against tx and reads against row and rows.
type fakeDB struct {
	tx         *fakeTx
	row        scriptedRow
	rows       *fakeRows
	committed  bool
	rolledBack bool
}

func (db *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("fakeDB: unexpected Exec")
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if db.rows == nil {
		return nil, errors.New("fakeDB: unexpected Query")
	}
	return db.rows, nil
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return db.row
}

func (db *fakeDB) InTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(db.tx); err != nil {
		db.rolledBack = true
		return err
	}
	db.committed = true
	return nil
}

func updated(n int) execResult {
	return execResult{tag: pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", n))}
}

func inserted() execResult {
	return execResult{tag: pgconn.NewCommandTag("INSERT 0 1")}
}

var uniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
