package core

import (
	"context"
	"database/sql"
	"fmt"

	"anchorcore/internal/config"
	"anchorcore/internal/infra/persistence/memory"
	"anchorcore/internal/infra/persistence/postgres"
	"anchorcore/internal/infra/persistence/sqlite"
	"anchorcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// lookupOrder is the order in which the dispatcher queries protocol stores.
var lookupOrder = []domain.Protocol{domain.ProtocolSep24, domain.ProtocolSep31}

// Stores is the ordered set of protocol stores plus the handle they share.
type Stores struct {
	List []domain.TransactionStore
	db   *sql.DB
}

// Close releases the shared database handle, if any.
func (s *Stores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStores opens one store per protocol on the configured backend.
func OpenStores(ctx context.Context, cfg config.StorageConfig) (*Stores, error) {
	switch StorageDriver(cfg.Driver) {
	case StorageMemory, "":
		stores := &Stores{}
		for _, p := range lookupOrder {
			stores.List = append(stores.List, memory.New(p))
		}
		return stores, nil
	case StorageSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return openSQLStores(ctx, db, func(ctx context.Context, db *sql.DB, p domain.Protocol) (domain.TransactionStore, error) {
			return sqlite.NewStore(ctx, db, p)
		})
	case StoragePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return openSQLStores(ctx, db, func(ctx context.Context, db *sql.DB, p domain.Protocol) (domain.TransactionStore, error) {
			return postgres.NewStore(ctx, db, p)
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

type storeFactory func(ctx context.Context, db *sql.DB, p domain.Protocol) (domain.TransactionStore, error)

func openSQLStores(ctx context.Context, db *sql.DB, newStore storeFactory) (*Stores, error) {
	stores := &Stores{db: db}
	for _, p := range lookupOrder {
		s, err := newStore(ctx, db, p)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		stores.List = append(stores.List, s)
	}
	return stores, nil
}
