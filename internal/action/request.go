package action

import (
	"time"

	"github.com/shopspring/decimal"

	"anchorcore/pkg/domain"
)

// AmountRequest is an amount as supplied by a caller: both fields are strings
// until structural validation has accepted them.
type AmountRequest struct {
	Amount string `json:"amount" validate:"required,decimal"`
	Asset  string `json:"asset" validate:"required,asset_id"`
}

// Request carries the parameters of a single action invocation. Each handler
// reads the subset it understands and ignores the rest.
type Request struct {
	TransactionID string `json:"transaction_id" validate:"required"`

	AmountIn       *AmountRequest `json:"amount_in,omitempty" validate:"omitempty"`
	AmountOut      *AmountRequest `json:"amount_out,omitempty" validate:"omitempty"`
	AmountFee      *AmountRequest `json:"amount_fee,omitempty" validate:"omitempty"`
	AmountExpected *string        `json:"amount_expected,omitempty" validate:"omitempty,decimal"`

	Message               string     `json:"message,omitempty" validate:"max=1024"`
	ExternalTransactionID string     `json:"external_transaction_id,omitempty" validate:"max=256"`
	FundsReceivedAt       *time.Time `json:"funds_received_at,omitempty"`

	DestinationAccount string `json:"destination_account,omitempty" validate:"max=256"`
	Memo               string `json:"memo,omitempty" validate:"max=64"`
	MemoType           string `json:"memo_type,omitempty" validate:"omitempty,oneof=text id hash"`
}

// amountSet groups the three amounts that are finalised together.
type amountSet struct {
	in, out, fee *domain.Amount
}

func (s amountSet) count() int {
	n := 0
	for _, a := range []*domain.Amount{s.in, s.out, s.fee} {
		if a != nil {
			n++
		}
	}
	return n
}

func (s amountSet) each(fn func(field string, a *domain.Amount) error) error {
	for _, f := range []struct {
		name string
		a    *domain.Amount
	}{{"amount_in", s.in}, {"amount_out", s.out}, {"amount_fee", s.fee}} {
		if f.a == nil {
			continue
		}
		if err := fn(f.name, f.a); err != nil {
			return err
		}
	}
	return nil
}

func (r *Request) suppliedAmounts() (amountSet, error) {
	var (
		set amountSet
		err error
	)
	if set.in, err = parseAmountRequest("amount_in", r.AmountIn); err != nil {
		return amountSet{}, err
	}
	if set.out, err = parseAmountRequest("amount_out", r.AmountOut); err != nil {
		return amountSet{}, err
	}
	if set.fee, err = parseAmountRequest("amount_fee", r.AmountFee); err != nil {
		return amountSet{}, err
	}
	return set, nil
}

func (r *Request) expectedAmount() (*decimal.Decimal, error) {
	if r.AmountExpected == nil {
		return nil, nil
	}
	d, err := domain.ParseDecimal(*r.AmountExpected)
	if err != nil {
		return nil, domain.NewInvalidParams("amount_expected is not a valid decimal")
	}
	return &d, nil
}

func parseAmountRequest(field string, ar *AmountRequest) (*domain.Amount, error) {
	if ar == nil {
		return nil, nil
	}
	a, err := domain.ParseAmount(ar.Amount, ar.Asset)
	if err != nil {
		return nil, domain.NewInvalidParams("%s.amount is not a valid decimal", field)
	}
	return &a, nil
}
