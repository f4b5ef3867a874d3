// Package action implements the named actions that move a transaction
// through its protocol state machine, and the dispatcher that routes them.
package action

import (
	"context"
	"fmt"
	"time"

	"anchorcore/internal/validation"
	"anchorcore/internal/view"
	"anchorcore/pkg/domain"
)

// Action names.
const (
	RequestOffchainFunds        = "request_offchain_funds"
	RequestOnchainFunds         = "request_onchain_funds"
	NotifyOffchainFundsReceived = "notify_offchain_funds_received"
	NotifyTransactionExpired    = "notify_transaction_expired"
	NotifyTransactionError      = "notify_transaction_error"
)

// Handler applies one named action to a transaction located by the dispatcher.
type Handler interface {
	Action() string
	Handle(ctx context.Context, txn *domain.Transaction, req Request) (view.Transaction, error)
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	// Stores holds one store per protocol; records are saved to the store
	// matching their protocol tag.
	Stores    []domain.TransactionStore
	Assets    domain.AssetService
	Validator validation.Validator
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Validator == nil {
		d.Validator = validation.MustNew()
	}
	return d
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d Deps) store(p domain.Protocol) (domain.TransactionStore, error) {
	for _, s := range d.Stores {
		if s.Protocol() == p {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no transaction store for protocol %s", p)
}

// anyKind keys a source list that applies regardless of kind.
const anyKind domain.Kind = "*"

// source is a status an action may fire from. untilReceived restricts it to
// transactions whose inbound transfer has not been recorded yet.
type source struct {
	status        domain.Status
	untilReceived bool
}

func (s source) admits(txn *domain.Transaction) bool {
	return txn.Status == s.status && (!s.untilReceived || txn.TransferReceivedAt == nil)
}

type sourceTable map[domain.Protocol]map[domain.Kind][]source

func (t sourceTable) admits(txn *domain.Transaction) bool {
	kinds := t[txn.Protocol]
	for _, k := range []domain.Kind{txn.Kind, anyKind} {
		for _, s := range kinds[k] {
			if s.admits(txn) {
				return true
			}
		}
	}
	return false
}

// nonTerminal lists every status of p that is neither final nor an error.
func nonTerminal(p domain.Protocol) []source {
	var out []source
	for _, s := range p.Statuses() {
		if !s.IsTerminal() {
			out = append(out, source{status: s})
		}
	}
	return out
}

// mutator applies the action-specific field changes to a copy of the record.
type mutator func(txn *domain.Transaction, ev *Evaluation, now time.Time)

// handler is the shared guard, validate, mutate, persist and project pipeline.
type handler struct {
	name    string
	sources sourceTable
	target  domain.Status
	rules   *RuleSet
	mutate  mutator
	deps    Deps
}

func (h *handler) Action() string { return h.name }

func (h *handler) Handle(ctx context.Context, txn *domain.Transaction, req Request) (view.Transaction, error) {
	if err := h.guard(txn); err != nil {
		return view.Transaction{}, err
	}
	if msgs := h.deps.Validator.Validate(&req); len(msgs) > 0 {
		return view.Transaction{}, domain.InvalidParamsError{Messages: msgs}
	}
	ev, err := newEvaluation(txn, &req, h.deps.Assets)
	if err != nil {
		return view.Transaction{}, err
	}
	if h.rules != nil {
		if err := h.rules.Evaluate(ctx, ev); err != nil {
			return view.Transaction{}, err
		}
	}
	store, err := h.deps.store(txn.Protocol)
	if err != nil {
		return view.Transaction{}, err
	}

	now := h.deps.now()
	next := txn.Clone()
	if h.mutate != nil {
		h.mutate(next, ev, now)
	}
	if req.Message != "" {
		next.Message = req.Message
	}
	next.Status = h.target
	if h.target.IsFinal() && next.CompletedAt == nil {
		completed := now
		next.CompletedAt = &completed
	}
	next.Touch(now)

	saved, err := store.Save(ctx, next)
	if err != nil {
		return view.Transaction{}, fmt.Errorf("save transaction %s: %w", next.ID, err)
	}
	return view.Build(saved), nil
}

func (h *handler) guard(txn *domain.Transaction) error {
	if _, ok := h.sources[txn.Protocol]; !ok {
		return domain.UnsupportedProtocolError{Action: h.name, Protocol: txn.Protocol}
	}
	if !h.sources.admits(txn) {
		return domain.UnsupportedStatusError{Action: h.name, Status: txn.Status}
	}
	return nil
}

// Handlers returns every action handler wired to deps.
func Handlers(deps Deps) []Handler {
	deps = deps.withDefaults()
	return []Handler{
		NewRequestOffchainFunds(deps),
		NewRequestOnchainFunds(deps),
		NewNotifyOffchainFundsReceived(deps),
		NewNotifyTransactionExpired(deps),
		NewNotifyTransactionError(deps),
	}
}
