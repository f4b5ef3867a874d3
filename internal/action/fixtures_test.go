package action

import (
	"context"
	"sync"
	"testing"
	"time"

	"anchorcore/internal/asset"
	"anchorcore/internal/infra/persistence/memory"
	"anchorcore/pkg/domain"
)

const (
	usdc = "stellar:USDC:GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
	usd  = "iso4217:USD"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// countingStore wraps the memory store and counts calls.
type countingStore struct {
	*memory.Store

	mu    sync.Mutex
	finds int
	saves int
}

func newCountingStore(p domain.Protocol) *countingStore {
	return &countingStore{Store: memory.New(p)}
}

func (s *countingStore) FindByTransactionID(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	return s.Store.FindByTransactionID(ctx, id)
}

func (s *countingStore) Save(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, txn)
}

func (s *countingStore) counts() (finds, saves int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds, s.saves
}

// seed stores txn without counting it as a save.
func (s *countingStore) seed(t *testing.T, txn *domain.Transaction) {
	t.Helper()
	if _, err := s.Store.Save(context.Background(), txn); err != nil {
		t.Fatalf("seed %s: %v", txn.ID, err)
	}
}

type fixture struct {
	sep24 *countingStore
	sep31 *countingStore
	deps  Deps
}

func newFixture() *fixture {
	f := &fixture{
		sep24: newCountingStore(domain.ProtocolSep24),
		sep31: newCountingStore(domain.ProtocolSep31),
	}
	f.deps = Deps{
		Stores: []domain.TransactionStore{f.sep24, f.sep31},
		Assets: asset.MustRegistry(asset.Asset{ID: usdc, Code: "USDC"}, asset.Asset{ID: usd, Code: "USD"}),
		Now:    func() time.Time { return fixedNow },
	}
	return f
}

func depositTxn(status domain.Status) *domain.Transaction {
	return &domain.Transaction{
		ID:               "tx-deposit",
		Protocol:         domain.ProtocolSep24,
		Kind:             domain.KindDeposit,
		Status:           status,
		RequestAssetCode: "USD",
		StartedAt:        fixedNow.Add(-time.Hour),
		UpdatedAt:        fixedNow.Add(-time.Hour),
	}
}

func withdrawalTxn(status domain.Status) *domain.Transaction {
	txn := depositTxn(status)
	txn.ID = "tx-withdrawal"
	txn.Kind = domain.KindWithdrawal
	return txn
}

func receiveTxn(status domain.Status) *domain.Transaction {
	return &domain.Transaction{
		ID:        "tx-receive",
		Protocol:  domain.ProtocolSep31,
		Kind:      domain.KindReceive,
		Status:    status,
		StartedAt: fixedNow.Add(-time.Hour),
		UpdatedAt: fixedNow.Add(-time.Hour),
	}
}

func amountReq(value, asset string) *AmountRequest {
	return &AmountRequest{Amount: value, Asset: asset}
}

func strPtr(s string) *string { return &s }

// fullAmounts is the 1 / 0.9 / 0.1 breakdown used throughout.
func fullAmounts(req Request) Request {
	req.AmountIn = amountReq("1", usdc)
	req.AmountOut = amountReq("0.9", usd)
	req.AmountFee = amountReq("0.1", usdc)
	return req
}

func storeAmounts(txn *domain.Transaction) *domain.Transaction {
	in := domain.MustParseAmount("1", usdc)
	out := domain.MustParseAmount("0.9", usd)
	fee := domain.MustParseAmount("0.1", usdc)
	txn.AmountIn, txn.AmountOut, txn.AmountFee = &in, &out, &fee
	return txn
}
