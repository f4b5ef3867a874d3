package domain

import "context"

// TransactionStore is the persistence gateway for one protocol. A store only
// ever holds records whose Protocol matches its own.
//
// Implementations do not serialize concurrent mutations of the same id; the
// dispatcher does that through a Locker.
type TransactionStore interface {
	Protocol() Protocol
	// FindByTransactionID returns (nil, nil) when the id is absent.
	FindByTransactionID(ctx context.Context, id string) (*Transaction, error)
	// Save replaces the full record by id and returns the stored copy.
	Save(ctx context.Context, txn *Transaction) (*Transaction, error)
}

// AssetService resolves whether an asset identifier is known.
type AssetService interface {
	IsSupportedAsset(asset string) bool
}

// Locker guarantees at most one in-flight fn per key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}
