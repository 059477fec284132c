// Package storage keeps the ledger in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"budget/internal/core"
	"budget/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	selectAll = `SELECT id, date, description, amount_cents, category, account, type
		FROM transactions ORDER BY date DESC, id ASC`
	deleteAll  = `DELETE FROM transactions`
	insertOne  = `INSERT INTO transactions (id, date, description, amount_cents, category, account, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// SQLiteRepository is a ledger.Backend over one transactions table.
type SQLiteRepository struct {
	db      *sql.DB
	path    string
	version uint
}

var (
	_ ledger.Backend = (*SQLiteRepository)(nil)
	_ ledger.Pinger  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath, version: version}, nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &core.StorageUnavailableError{Op: "ping sqlite", Err: err}
	}
	return nil
}

// ReadAll implements ledger.Backend.
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, &core.StorageUnavailableError{Op: "query transactions", Err: err}
	}
	defer rows.Close()

	var (
		txs  []core.Transaction
		line int
	)
	for rows.Next() {
		line++
		var (
			tx    core.Transaction
			date  string
			cents int64
		)
		if err := rows.Scan(&tx.ID, &date, &tx.Description, &cents, &tx.Category, &tx.Account, &tx.Type); err != nil {
			return nil, &core.StorageCorruptError{Source: filepath.Base(r.path), Line: line, Err: err}
		}
		tx.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, &core.StorageCorruptError{Source: filepath.Base(r.path), Line: line, Field: "date", Err: err}
		}
		tx.Amount = core.Money{Cents: cents}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageUnavailableError{Op: "iterate transactions", Err: err}
	}
	return txs, nil
}

// WriteAll replaces the table contents in a single transaction.
func (r *SQLiteRepository) WriteAll(ctx context.Context, txs []core.Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageUnavailableError{Op: "begin", Err: err}
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, deleteAll); err != nil {
		return &core.StorageUnavailableError{Op: "clear transactions", Err: err}
	}

	stmt, err := dbtx.PrepareContext(ctx, insertOne)
	if err != nil {
		return &core.StorageUnavailableError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx, tx.ID, tx.Date.String(), tx.Description, tx.Amount.Cents, tx.Category, tx.Account, tx.Type); err != nil {
			return &core.StorageUnavailableError{Op: fmt.Sprintf("insert transaction %d", tx.ID), Err: err}
		}
	}

	if err := dbtx.Commit(); err != nil {
		return &core.StorageUnavailableError{Op: "commit", Err: err}
	}
	return nil
}
