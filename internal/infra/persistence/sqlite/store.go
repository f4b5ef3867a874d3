// Package sqlite persists transactions in a SQLite database using the pure Go
// modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"anchorcore/internal/infra/persistence/sqlrecord"
	"anchorcore/pkg/domain"
)

var _ domain.TransactionStore = (*Store)(nil)

// Open opens (creating when missing) the database file at path.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "anchorcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite admits one writer at a time.
	db.SetMaxOpenConns(1)
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
		updated_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	return &Store{db: db, protocol: p, table: table}, nil
}

// Protocol implements domain.TransactionStore.
func (s *Store) Protocol() domain.Protocol { return s.protocol }

// FindByTransactionID implements domain.TransactionStore.
func (s *Store) FindByTransactionID(ctx context.Context, id string) (*domain.Transaction, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE id = ?`, s.table), id).Scan(&payload)
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
	query := fmt.Sprintf(`INSERT INTO %s(id,kind,status,updated_at,payload) VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, status=excluded.status, updated_at=excluded.updated_at, payload=excluded.payload`, s.table)
	if _, err := s.db.ExecContext(ctx, query, row.ID, row.Kind, row.Status, row.UpdatedAt, row.Payload); err != nil {
		return nil, fmt.Errorf("upsert transaction %s: %w", txn.ID, err)
	}
	return txn.Clone(), nil
}
