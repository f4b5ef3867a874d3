// Package postgres persists transactions in PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"anchorcore/internal/infra/persistence/sqlrecord"
	"anchorcore/pkg/domain"
)

var _ domain.TransactionStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/anchorcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Open connects to dsn (defaultDSN when empty) and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Store is the table of one protocol.
type Store struct {
	db       *sql.DB
	protocol domain.Protocol
	table    string
}

// NewStore ensures the protocol's table exists and returns its store.
func NewStore(ctx context.Context, db *sql.DB, p domain.Protocol) (*Store, error) {
	table, err := sqlrecord.Table(p)
	if err != nil {
		return nil, err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure %s: %w", table, err)
	}
	return &Store{db: db, protocol: p, table: table}, nil
}

// Protocol implements domain.TransactionStore.
func (s *Store) Protocol() domain.Protocol { return s.protocol }

// FindByTransactionID implements domain.TransactionStore.
func (s *Store) FindByTransactionID(ctx context.Context, id string) (*domain.Transaction, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, s.table), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	return sqlrecord.Decode(payload)
}

// Save implements domain.TransactionStore.
func (s *Store) Save(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if err := s.protocol.Owns(txn); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	row, err := sqlrecord.Encode(txn)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`INSERT INTO %s(id,kind,status,updated_at,payload) VALUES($1,$2,$3,$4,$5)
		ON CONFLICT(id) DO UPDATE SET kind=EXCLUDED.kind, status=EXCLUDED.status, updated_at=EXCLUDED.updated_at, payload=EXCLUDED.payload`, s.table)
	if _, err := s.db.ExecContext(ctx, query, row.ID, row.Kind, row.Status, row.UpdatedAt, row.Payload); err != nil {
		return nil, fmt.Errorf("upsert transaction %s: %w", txn.ID, err)
	}
	return txn.Clone(), nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
