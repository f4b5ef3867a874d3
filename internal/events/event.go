// Package events publishes transaction status changes produced by actions.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"anchorcore/internal/view"
	"anchorcore/pkg/domain"
)

// TypeStatusChanged is emitted after an action persists a new status.
const TypeStatusChanged = "transaction_status_changed"

// Event describes one persisted transition.
type Event struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Action        string           `json:"action"`
	TransactionID string           `json:"transaction_id"`
	Protocol      domain.Protocol  `json:"sep"`
	From          domain.Status    `json:"from_status"`
	To            domain.Status    `json:"to_status"`
	Transaction   view.Transaction `json:"transaction"`
}

// NewStatusChanged builds a status change event for txn.
func NewStatusChanged(action string, from domain.Status, txn view.Transaction, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          TypeStatusChanged,
		OccurredAt:    at.UTC(),
		Action:        action,
		TransactionID: txn.ID,
		Protocol:      txn.Sep,
		From:          from,
		To:            txn.Status,
		Transaction:   txn,
	}
}

// Publisher delivers events. Delivery failures are reported to the caller,
// which decides whether they matter.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Memory retains published events in order.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory returns an empty in-memory publisher.
func NewMemory() *Memory { return &Memory{} }

// Publish implements Publisher.
func (m *Memory) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
