package domain

import "sort"

// Protocol identifies the interoperability standard a transaction belongs to.
// Values outside the known set are representable so that handlers can reject
// them with the observed value.
type Protocol string

// Supported protocol families.
const (
	// ProtocolSep24 is the interactive deposit/withdraw protocol.
	ProtocolSep24 Protocol = "24"
	// ProtocolSep31 is the direct cross-border payment protocol.
	ProtocolSep31 Protocol = "31"
)

// Kind is the direction of value movement relative to the ledger.
type Kind string

// Transaction kinds.
const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	// KindReceive is the only kind used by protocol 31 payments.
	KindReceive Kind = "receive"
)

// Status is a transaction status drawn from a protocol vocabulary.
type Status string

// Transaction statuses shared by both protocol vocabularies.
const (
	StatusIncomplete                   Status = "incomplete"
	StatusPendingAnchor                Status = "pending_anchor"
	StatusPendingExternal              Status = "pending_external"
	StatusPendingUsrTransferStart      Status = "pending_user_transfer_start"
	StatusPendingUsrTransferComplete   Status = "pending_user_transfer_complete"
	StatusPendingTrust                 Status = "pending_trust"
	StatusPendingStellar               Status = "pending_stellar"
	StatusPendingCustomerInfoUpdate    Status = "pending_customer_info_update"
	StatusPendingTransactionInfoUpdate Status = "pending_transaction_info_update"
	StatusPendingSender                Status = "pending_sender"
	StatusPendingReceiver              Status = "pending_receiver"
	StatusCompleted                    Status = "completed"
	StatusRefunded                     Status = "refunded"
	StatusExpired                      Status = "expired"
	StatusError                        Status = "error"
	StatusNoMarket                     Status = "no_market"
	StatusTooSmall                     Status = "too_small"
	StatusTooLarge                     Status = "too_large"
)

var (
	finalStatuses = StatusSet(StatusCompleted, StatusRefunded, StatusExpired)
	errorStatuses = StatusSet(StatusError, StatusNoMarket, StatusTooSmall, StatusTooLarge)

	vocabularies = map[Protocol][]Status{
		ProtocolSep24: {
			StatusIncomplete,
			StatusPendingUsrTransferStart,
			StatusPendingUsrTransferComplete,
			StatusPendingExternal,
			StatusPendingAnchor,
			StatusPendingStellar,
			StatusPendingTrust,
			StatusCompleted,
			StatusRefunded,
			StatusExpired,
			StatusError,
			StatusNoMarket,
			StatusTooSmall,
			StatusTooLarge,
		},
		ProtocolSep31: {
			StatusPendingSender,
			StatusPendingStellar,
			StatusPendingCustomerInfoUpdate,
			StatusPendingTransactionInfoUpdate,
			StatusPendingReceiver,
			StatusPendingExternal,
			StatusCompleted,
			StatusRefunded,
			StatusExpired,
			StatusError,
		},
	}
)

// IsFinal reports whether the status ends the transaction successfully or by expiry.
func (s Status) IsFinal() bool {
	_, ok := finalStatuses[s]
	return ok
}

// IsError reports whether the status is one of the error outcomes.
func (s Status) IsError() bool {
	_, ok := errorStatuses[s]
	return ok
}

// IsTerminal reports whether no action may move the transaction further.
func (s Status) IsTerminal() bool {
	return s.IsFinal() || s.IsError()
}

// Statuses returns the ordered status vocabulary of the protocol. Unknown
// protocols have an empty vocabulary.
func (p Protocol) Statuses() []Status {
	return append([]Status(nil), vocabularies[p]...)
}

// Known reports whether the protocol is one of the supported families.
func (p Protocol) Known() bool {
	_, ok := vocabularies[p]
	return ok
}

// StatusSet builds a lookup set from the supplied statuses.
func StatusSet(statuses ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// SortedStatuses returns the members of set in lexical order.
func SortedStatuses(set map[Status]struct{}) []Status {
	out := make([]Status, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
