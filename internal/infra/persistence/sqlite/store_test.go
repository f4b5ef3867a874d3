package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"anchorcore/pkg/domain"
)

func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "anchor.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestSQLiteStoreRoundTripAndReload(t *testing.T) {
	ctx := context.Background()
	db, path := openTestDB(t)
	store, err := NewStore(ctx, db, domain.ProtocolSep24)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	in := domain.MustParseAmount("1", "iso4217:USD")
	txn := &domain.Transaction{
		ID:        "tx-1",
		Protocol:  domain.ProtocolSep24,
		Kind:      domain.KindDeposit,
		Status:    domain.StatusIncomplete,
		AmountIn:  &in,
		UpdatedAt: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
	}
	if _, err := store.Save(ctx, txn); err != nil {
		t.Fatalf("save: %v", err)
	}
	txn.Status = domain.StatusPendingUsrTransferStart
	if _, err := store.Save(ctx, txn); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sep24_transactions`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row after overwrite, got %d", rows)
	}
	_ = db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	again, err := NewStore(ctx, reopened, domain.ProtocolSep24)
	if err != nil {
		t.Fatalf("new store after reopen: %v", err)
	}
	got, err := again.FindByTransactionID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Status != domain.StatusPendingUsrTransferStart || !got.AmountIn.Equal(in) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestSQLiteStoresAreSeparatedByProtocol(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	s24, err := NewStore(ctx, db, domain.ProtocolSep24)
	if err != nil {
		t.Fatalf("sep24: %v", err)
	}
	s31, err := NewStore(ctx, db, domain.ProtocolSep31)
	if err != nil {
		t.Fatalf("sep31: %v", err)
	}
	if _, err := s31.Save(ctx, &domain.Transaction{ID: "p-1", Protocol: domain.ProtocolSep31, Kind: domain.KindReceive, Status: domain.StatusPendingSender}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := s24.FindByTransactionID(ctx, "p-1"); err != nil || got != nil {
		t.Fatalf("sep24 store sees sep31 record: %v, %v", got, err)
	}
	if _, err := s24.Save(ctx, &domain.Transaction{ID: "p-2", Protocol: domain.ProtocolSep31}); err == nil {
		t.Fatalf("expected protocol mismatch")
	}
	if s31.Protocol() != domain.ProtocolSep31 {
		t.Fatalf("protocol = %s", s31.Protocol())
	}
}

func TestSQLiteNewStoreRejectsUnknownProtocol(t *testing.T) {
	db, _ := openTestDB(t)
	if _, err := NewStore(context.Background(), db, "100"); err == nil {
		t.Fatalf("expected error")
	}
}
