// Package memory provides the in-process transaction store used by default
// and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"anchorcore/pkg/domain"
)

// Store holds the records of one protocol keyed by id. Every read and write
// goes through a deep copy.
type Store struct {
	protocol domain.Protocol
	mu       sync.RWMutex
	records  map[string]*domain.Transaction
}

var _ domain.TransactionStore = (*Store)(nil)

// New returns an empty store for protocol p.
func New(p domain.Protocol) *Store {
	return &Store{protocol: p, records: make(map[string]*domain.Transaction)}
}

// Protocol implements domain.TransactionStore.
func (s *Store) Protocol() domain.Protocol { return s.protocol }

// FindByTransactionID implements domain.TransactionStore.
func (s *Store) FindByTransactionID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id].Clone(), nil
}

// Save implements domain.TransactionStore.
func (s *Store) Save(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if err := s.protocol.Owns(txn); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[txn.ID] = txn.Clone()
	return txn.Clone(), nil
}

// List returns every record ordered by id.
func (s *Store) List() []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Transaction, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
