// Package sqlrecord holds the row layout shared by the SQL transaction stores:
// one table per protocol, keyed by id, carrying the full record as JSON next
// to a few columns kept for ad hoc queries.
package sqlrecord

import (
	"encoding/json"
	"fmt"
	"time"

	"anchorcore/pkg/domain"
)

// Table returns the table name of protocol p.
func Table(p domain.Protocol) (string, error) {
	if !p.Known() {
		return "", fmt.Errorf("no table for protocol %q", p)
	}
	return "sep" + string(p) + "_transactions", nil
}

// Row is the column set written by Save.
type Row struct {
	ID        string
	Kind      string
	Status    string
	UpdatedAt string
	Payload   []byte
}

// Encode renders txn as a Row.
func Encode(txn *domain.Transaction) (Row, error) {
	payload, err := json.Marshal(txn)
	if err != nil {
		return Row{}, fmt.Errorf("encode transaction %s: %w", txn.ID, err)
	}
	return Row{
		ID:        txn.ID,
		Kind:      string(txn.Kind),
		Status:    string(txn.Status),
		UpdatedAt: txn.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}, nil
}

// Decode parses a payload column.
func Decode(payload []byte) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := json.Unmarshal(payload, &txn); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &txn, nil
}
