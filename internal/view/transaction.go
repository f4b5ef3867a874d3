// Package view projects persisted transactions into the outward
// representation returned by actions.
package view

import (
	"time"

	"anchorcore/pkg/domain"
)

// Amount is the rendered magnitude and asset pair.
type Amount struct {
	Amount string `json:"amount"`
	Asset  string `json:"asset"`
}

// Transaction is the protocol-tagged view of a transaction.
type Transaction struct {
	ID                    string          `json:"id,omitempty"`
	Sep                   domain.Protocol `json:"sep"`
	Kind                  domain.Kind     `json:"kind"`
	Status                domain.Status   `json:"status"`
	AmountExpected        *Amount         `json:"amount_expected,omitempty"`
	AmountIn              *Amount         `json:"amount_in,omitempty"`
	AmountOut             *Amount         `json:"amount_out,omitempty"`
	AmountFee             *Amount         `json:"amount_fee,omitempty"`
	StartedAt             *time.Time      `json:"started_at,omitempty"`
	UpdatedAt             *time.Time      `json:"updated_at,omitempty"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
	TransferReceivedAt    *time.Time      `json:"transfer_received_at,omitempty"`
	ExternalTransactionID string          `json:"external_transaction_id,omitempty"`
	Message               string          `json:"message,omitempty"`
}

// Build renders txn. It reads only; nothing is defaulted beyond what the
// handler already stored. AmountExpected is rendered only alongside AmountIn,
// whose asset it shares.
func Build(txn *domain.Transaction) Transaction {
	out := Transaction{
		ID:                    txn.ID,
		Sep:                   txn.Protocol,
		Kind:                  txn.Kind,
		Status:                txn.Status,
		AmountIn:              amount(txn.AmountIn),
		AmountOut:             amount(txn.AmountOut),
		AmountFee:             amount(txn.AmountFee),
		StartedAt:             timestamp(txn.StartedAt),
		UpdatedAt:             timestamp(txn.UpdatedAt),
		CompletedAt:           timestampPtr(txn.CompletedAt),
		TransferReceivedAt:    timestampPtr(txn.TransferReceivedAt),
		ExternalTransactionID: txn.ExternalTransactionID,
		Message:               txn.Message,
	}
	if txn.AmountExpected != nil && txn.AmountIn != nil {
		out.AmountExpected = &Amount{Amount: txn.AmountExpected.String(), Asset: txn.AmountIn.Asset}
	}
	return out
}

func amount(a *domain.Amount) *Amount {
	if a == nil {
		return nil
	}
	return &Amount{Amount: a.Value.String(), Asset: a.Asset}
}

func timestamp(ts time.Time) *time.Time {
	if ts.IsZero() {
		return nil
	}
	return &ts
}

func timestampPtr(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	return timestamp(*ts)
}
