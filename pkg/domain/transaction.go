// Package domain defines the transaction record, value types, error taxonomy,
// and collaborator ports shared by the action core.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the persisted record of an in-flight cross-rail transaction.
// The Protocol tag decides which store owns the record and which status
// vocabulary applies.
type Transaction struct {
	ID               string   `json:"id"`
	Protocol         Protocol `json:"protocol"`
	Kind             Kind     `json:"kind"`
	Status           Status   `json:"status"`
	RequestAssetCode string   `json:"request_asset_code,omitempty"`

	AmountIn  *Amount `json:"amount_in,omitempty"`
	AmountOut *Amount `json:"amount_out,omitempty"`
	AmountFee *Amount `json:"amount_fee,omitempty"`
	// AmountExpected is denominated in AmountIn's asset.
	AmountExpected *decimal.Decimal `json:"amount_expected,omitempty"`

	ExternalTransactionID string     `json:"external_transaction_id,omitempty"`
	TransferReceivedAt    *time.Time `json:"transfer_received_at,omitempty"`
	Message               string     `json:"message,omitempty"`
	ToAccount             string     `json:"to_account,omitempty"`
	Memo                  string     `json:"memo,omitempty"`
	MemoType              string     `json:"memo_type,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers never share pointer fields with a store.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	cp.AmountIn = cloneAmount(t.AmountIn)
	cp.AmountOut = cloneAmount(t.AmountOut)
	cp.AmountFee = cloneAmount(t.AmountFee)
	if t.AmountExpected != nil {
		v := *t.AmountExpected
		cp.AmountExpected = &v
	}
	cp.TransferReceivedAt = cloneTime(t.TransferReceivedAt)
	cp.CompletedAt = cloneTime(t.CompletedAt)
	return &cp
}

// Touch sets UpdatedAt to now unless that would move it backwards.
func (t *Transaction) Touch(now time.Time) {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}

// ErrForeignRecord marks a record tagged with another protocol than the store
// holding it.
var ErrForeignRecord = errors.New("record belongs to another protocol")

// Owns returns an error unless txn is an identified record of protocol p.
func (p Protocol) Owns(txn *Transaction) error {
	if txn == nil || txn.ID == "" {
		return errors.New("transaction id required")
	}
	if txn.Protocol != p {
		return fmt.Errorf("transaction %s tagged sep%s in sep%s store: %w", txn.ID, txn.Protocol, p, ErrForeignRecord)
	}
	return nil
}
