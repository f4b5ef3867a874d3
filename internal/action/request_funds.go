package action

import (
	"time"

	"anchorcore/pkg/domain"
)

var requestOffchainFundsSources = sourceTable{
	domain.ProtocolSep24: {
		domain.KindDeposit: {
			{status: domain.StatusIncomplete},
			{status: domain.StatusPendingAnchor, untilReceived: true},
		},
	},
}

// NewRequestOffchainFunds asks the user to start an off-ledger transfer into
// a deposit, finalising the amount breakdown on the way.
func NewRequestOffchainFunds(deps Deps) Handler {
	return &handler{
		name:    RequestOffchainFunds,
		sources: requestOffchainFundsSources,
		target:  domain.StatusPendingUsrTransferStart,
		rules:   finalisingRules(),
		mutate: func(txn *domain.Transaction, ev *Evaluation, _ time.Time) {
			applySupplied(txn, ev.supplied)
			switch {
			case ev.expected != nil:
				txn.AmountExpected = decimalPtr(*ev.expected)
			case txn.AmountIn != nil:
				txn.AmountExpected = decimalPtr(txn.AmountIn.Value)
			}
		},
		deps: deps.withDefaults(),
	}
}

var requestOnchainFundsSources = sourceTable{
	domain.ProtocolSep24: {
		domain.KindWithdrawal: {
			{status: domain.StatusIncomplete},
			{status: domain.StatusPendingAnchor, untilReceived: true},
		},
	},
}

// NewRequestOnchainFunds asks the user to send ledger funds for a withdrawal.
// A previously stored expected amount survives when the request omits one.
func NewRequestOnchainFunds(deps Deps) Handler {
	return &handler{
		name:    RequestOnchainFunds,
		sources: requestOnchainFundsSources,
		target:  domain.StatusPendingUsrTransferStart,
		rules:   finalisingRules(),
		mutate: func(txn *domain.Transaction, ev *Evaluation, _ time.Time) {
			applySupplied(txn, ev.supplied)
			switch {
			case ev.expected != nil:
				txn.AmountExpected = decimalPtr(*ev.expected)
			case txn.AmountExpected != nil:
				// keep the stored value
			case txn.AmountIn != nil:
				txn.AmountExpected = decimalPtr(txn.AmountIn.Value)
			}
			req := ev.Request
			if req.DestinationAccount != "" {
				txn.ToAccount = req.DestinationAccount
			}
			if req.Memo != "" {
				txn.Memo = req.Memo
				txn.MemoType = req.MemoType
			}
		},
		deps: deps.withDefaults(),
	}
}

func applySupplied(txn *domain.Transaction, set amountSet) {
	if set.in != nil {
		txn.AmountIn = amountPtr(*set.in)
	}
	if set.out != nil {
		txn.AmountOut = amountPtr(*set.out)
	}
	if set.fee != nil {
		txn.AmountFee = amountPtr(*set.fee)
	}
}
