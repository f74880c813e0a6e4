// pkg/txn/txn.go
package txn

import (
	"context"
	"database/sql"
)

// Querier is the subset of database operations shared by *sql.DB and
// *sql.Tx. Stores run against whichever the context carries.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Manager runs a function inside a single database transaction.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// SQLManager is the database/sql-backed Manager.
type SQLManager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *SQLManager {
	return &SQLManager{db: db}
}

// RunInTx begins a read-committed transaction, injects it into the context
// for Executor, and commits only if fn returns nil. Rolls back on error or
// panic.
func (m *SQLManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	ctx = context.WithValue(ctx, txKey{}, tx)

	err = fn(ctx)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Executor returns the transaction carried by ctx, or fallback when the
// caller did not open one.
func Executor(ctx context.Context, fallback Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return fallback
}
