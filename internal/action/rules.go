package action

import (
	"context"

	"github.com/shopspring/decimal"

	"anchorcore/pkg/domain"
)

// Evaluation is the read-only input of the business-rule stage. The supplied
// amounts are those present on the request; the effective amounts fall back to
// the stored value field by field.
type Evaluation struct {
	Transaction *domain.Transaction
	Request     *Request
	Assets      domain.AssetService

	supplied  amountSet
	effective amountSet
	expected  *decimal.Decimal
}

func newEvaluation(txn *domain.Transaction, req *Request, assets domain.AssetService) (*Evaluation, error) {
	supplied, err := req.suppliedAmounts()
	if err != nil {
		return nil, err
	}
	expected, err := req.expectedAmount()
	if err != nil {
		return nil, err
	}
	effective := amountSet{in: txn.AmountIn, out: txn.AmountOut, fee: txn.AmountFee}
	if supplied.in != nil {
		effective.in = supplied.in
	}
	if supplied.out != nil {
		effective.out = supplied.out
	}
	if supplied.fee != nil {
		effective.fee = supplied.fee
	}
	return &Evaluation{
		Transaction: txn,
		Request:     req,
		Assets:      assets,
		supplied:    supplied,
		effective:   effective,
		expected:    expected,
	}, nil
}

// Rule is a single business check. Rules run in registration order and the
// first failure is reported on its own.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, ev *Evaluation) error
}

// RuleSet evaluates rules in order.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet constructs a rule set from rules.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Names lists the rules in evaluation order.
func (s *RuleSet) Names() []string {
	out := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Name())
	}
	return out
}

// Evaluate returns the first violation.
func (s *RuleSet) Evaluate(ctx context.Context, ev *Evaluation) error {
	for _, r := range s.rules {
		if err := r.Evaluate(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

type ruleFunc struct {
	name string
	fn   func(ev *Evaluation) error
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Evaluate(_ context.Context, ev *Evaluation) error { return r.fn(ev) }

const allOrNoneMessage = "All or none of the amount_in, amount_out, and amount_fee should be set"

// AmountInRequiredRule fails when neither the request nor the record carries
// any of the three amounts.
func AmountInRequiredRule() Rule {
	return ruleFunc{name: "amount_in_required", fn: func(ev *Evaluation) error {
		if ev.effective.count() == 0 {
			return domain.NewInvalidParams("amount_in is required")
		}
		return nil
	}}
}

// EffectiveAllOrNoneRule requires the three amounts, after falling back to
// stored values, to be present or absent as a group.
func EffectiveAllOrNoneRule() Rule {
	return ruleFunc{name: "effective_all_or_none", fn: func(ev *Evaluation) error {
		if n := ev.effective.count(); n != 0 && n != 3 {
			return domain.NewInvalidParams(allOrNoneMessage)
		}
		return nil
	}}
}

// SuppliedAllOrNoneRule is EffectiveAllOrNoneRule restricted to the request.
func SuppliedAllOrNoneRule() Rule {
	return ruleFunc{name: "supplied_all_or_none", fn: func(ev *Evaluation) error {
		if n := ev.supplied.count(); n != 0 && n != 3 {
			return domain.NewInvalidParams(allOrNoneMessage)
		}
		return nil
	}}
}

// EffectiveAmountSignRule checks the effective amounts.
func EffectiveAmountSignRule() Rule {
	return ruleFunc{name: "effective_amount_sign", fn: func(ev *Evaluation) error {
		return checkSigns(ev.effective, ev.expected)
	}}
}

// SuppliedAmountSignRule checks only the amounts on the request.
func SuppliedAmountSignRule() Rule {
	return ruleFunc{name: "supplied_amount_sign", fn: func(ev *Evaluation) error {
		return checkSigns(ev.supplied, ev.expected)
	}}
}

func checkSigns(set amountSet, expected *decimal.Decimal) error {
	if set.count() == 3 {
		if !set.in.IsPositive() {
			return domain.NewInvalidParams("amount_in.amount should be positive")
		}
		if !set.out.IsPositive() {
			return domain.NewInvalidParams("amount_out.amount should be positive")
		}
		if set.fee.IsNegative() {
			return domain.NewInvalidParams("amount_fee.amount should be non-negative")
		}
	}
	if expected != nil && !expected.IsPositive() {
		return domain.NewInvalidParams("amount_expected.amount should be positive")
	}
	return nil
}

// SupportedAssetRule requires every supplied amount to name a known asset.
func SupportedAssetRule() Rule {
	return ruleFunc{name: "supported_asset", fn: func(ev *Evaluation) error {
		return ev.supplied.each(func(_ string, a *domain.Amount) error {
			if ev.Assets == nil || !ev.Assets.IsSupportedAsset(a.Asset) {
				return domain.NewInvalidParams("'%s' is not a supported asset.", a.Asset)
			}
			return nil
		})
	}}
}

// finalisingRules is the rule chain of the actions that fix the amount breakdown.
func finalisingRules() *RuleSet {
	return NewRuleSet(
		AmountInRequiredRule(),
		EffectiveAllOrNoneRule(),
		EffectiveAmountSignRule(),
		SupportedAssetRule(),
	)
}
