// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store loads extracted drug label rows into a relational table.
// Every load runs in one transaction: it commits in full or rolls back in
// full.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

const (
	DefaultTable          = "fda_drug_labels_safe"
	defaultConnectTimeout = 30 * time.Second
)

// ErrInvalidTable is returned for table names that are not plain
// identifiers. Table names are interpolated into SQL, so nothing else is
// accepted.
var ErrInvalidTable = errors.New("invalid table name")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

// ValidateTable checks that table is safe to interpolate into SQL.
func ValidateTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

// Store owns one database handle for the duration of a run.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
}

// Open connects to the database described by cfg and pings it. A failed
// ping closes the handle and returns an error, so a bad connection is
// reported before any work starts.
func Open(ctx context.Context, cfg types.DatabaseConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dl, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dl.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	log.Info("database connected", zap.String("driver", dl.driverName), zap.String("database", cfg.Name))
	return &Store{db: db, dialect: dl, log: log}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	s.log.Info("connection closed")
	return err
}

// EnsureTable creates table if it does not exist. It is safe to call on
// every run.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(table)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	s.log.Info("table ready", zap.String("table", table))
	return nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if err := ValidateTable(table); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return n, nil
}

// Load inserts rows into table in a single transaction and returns the
// number of rows committed. On any failure the transaction is rolled back
// and no rows from this call remain.
func (s *Store) Load(ctx context.Context, table string, rows []types.DrugRecord) (int, error) {
	b, err := s.Begin(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := b.Insert(ctx, rows); err != nil {
		b.Rollback()
		return 0, err
	}
	return b.Commit()
}

// Batch is an open load transaction. Rows inserted through it become
// visible only on Commit.
type Batch struct {
	tx    *sql.Tx
	stmt  *sql.Stmt
	table string
	log   *zap.Logger
	rows  int
	done  bool
}

// Begin opens a load transaction against table.
func (s *Store) Begin(ctx context.Context, table string) (*Batch, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.dialect.insert(table))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	return &Batch{tx: tx, stmt: stmt, table: table, log: s.log}, nil
}

// Insert adds rows to the open transaction. After an error the batch
// must be rolled back.
func (b *Batch) Insert(ctx context.Context, rows []types.DrugRecord) error {
	if b.done {
		return fmt.Errorf("insert into %s: transaction already finished", b.table)
	}
	for i, r := range rows {
		if _, err := b.stmt.ExecContext(ctx, r.BrandName, r.Manufacturer, r.ProductType, r.Route); err != nil {
			return fmt.Errorf("inserting row %d into %s: %w", b.rows+i+1, b.table, err)
		}
	}
	b.rows += len(rows)
	return nil
}

// Rows returns the number of rows inserted so far.
func (b *Batch) Rows() int {
	return b.rows
}

// Commit makes all inserted rows visible and returns their count.
func (b *Batch) Commit() (int, error) {
	if b.done {
		return 0, fmt.Errorf("commit %s: transaction already finished", b.table)
	}
	b.done = true
	b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load into %s: %w", b.table, err)
	}
	b.log.Info("load committed", zap.String("table", b.table), zap.Int("rows", b.rows))
	return b.rows, nil
}

// Rollback discards every row inserted through the batch. Calling it after
// Commit is a no-op.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	b.stmt.Close()
	if err := b.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back load into %s: %w", b.table, err)
	}
	b.log.Warn("load rolled back", zap.String("table", b.table), zap.Int("rows_discarded", b.rows))
	return nil
}
