package action

import (
	"time"

	"github.com/shopspring/decimal"

	"anchorcore/pkg/domain"
)

var notifyOffchainFundsReceivedSources = sourceTable{
	domain.ProtocolSep24: {
		domain.KindDeposit: {
			{status: domain.StatusPendingUsrTransferStart},
			{status: domain.StatusPendingExternal, untilReceived: true},
		},
	},
}

// NewNotifyOffchainFundsReceived records that the user's off-ledger transfer
// arrived. Amounts may be corrected, but only as a complete group.
func NewNotifyOffchainFundsReceived(deps Deps) Handler {
	return &handler{
		name:    NotifyOffchainFundsReceived,
		sources: notifyOffchainFundsReceivedSources,
		target:  domain.StatusPendingAnchor,
		rules: NewRuleSet(
			SuppliedAllOrNoneRule(),
			SuppliedAmountSignRule(),
			SupportedAssetRule(),
		),
		mutate: func(txn *domain.Transaction, ev *Evaluation, now time.Time) {
			req := ev.Request
			if req.ExternalTransactionID != "" {
				txn.ExternalTransactionID = req.ExternalTransactionID
				received := now
				if req.FundsReceivedAt != nil {
					received = req.FundsReceivedAt.UTC()
				}
				txn.TransferReceivedAt = &received
			}
			applySupplied(txn, ev.supplied)
		},
		deps: deps.withDefaults(),
	}
}

// NewNotifyTransactionExpired expires a protocol 24 transaction from any
// status that is not already terminal.
func NewNotifyTransactionExpired(deps Deps) Handler {
	return &handler{
		name: NotifyTransactionExpired,
		sources: sourceTable{
			domain.ProtocolSep24: {anyKind: nonTerminal(domain.ProtocolSep24)},
		},
		target: domain.StatusExpired,
		deps:   deps.withDefaults(),
	}
}

// NewNotifyTransactionError moves a transaction of either protocol to error.
func NewNotifyTransactionError(deps Deps) Handler {
	return &handler{
		name: NotifyTransactionError,
		sources: sourceTable{
			domain.ProtocolSep24: {anyKind: nonTerminal(domain.ProtocolSep24)},
			domain.ProtocolSep31: {anyKind: nonTerminal(domain.ProtocolSep31)},
		},
		target: domain.StatusError,
		deps:   deps.withDefaults(),
	}
}

func amountPtr(a domain.Amount) *domain.Amount { return &a }

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
