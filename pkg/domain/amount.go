package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on accepted decimal strings. A value may carry at most
// MaxAmountDigits significant digits and its exponent must lie within
// ±MaxAmountScale, which keeps the rendered form short.
const (
	MaxAmountDigits = 38
	MaxAmountScale  = 38
)

// ErrAmountOutOfRange is returned for decimals outside the amount bounds.
var ErrAmountOutOfRange = errors.New("decimal exceeds amount precision")

// ParseDecimal parses s as a decimal within the amount bounds. Surrounding
// whitespace is not accepted.
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if exp := d.Exponent(); exp > MaxAmountScale || exp < -MaxAmountScale {
		return decimal.Decimal{}, ErrAmountOutOfRange
	}
	if digits := strings.TrimPrefix(d.Coefficient().String(), "-"); len(digits) > MaxAmountDigits {
		return decimal.Decimal{}, ErrAmountOutOfRange
	}
	return d, nil
}

// Amount is an immutable decimal magnitude bound to an asset identifier such
// as "iso4217:USD" or "stellar:USDC:G...".
type Amount struct {
	Value decimal.Decimal `json:"amount"`
	Asset string          `json:"asset"`
}

// NewAmount binds value to asset.
func NewAmount(value decimal.Decimal, asset string) Amount {
	return Amount{Value: value, Asset: asset}
}

// ParseAmount parses a decimal string with ParseDecimal and binds it to asset.
func ParseAmount(value, asset string) (Amount, error) {
	d, err := ParseDecimal(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return Amount{Value: d, Asset: asset}, nil
}

// MustParseAmount is ParseAmount that panics on malformed input. Intended for
// fixtures and constants.
func MustParseAmount(value, asset string) Amount {
	a, err := ParseAmount(value, asset)
	if err != nil {
		panic(err)
	}
	return a
}

// IsPositive reports whether the magnitude is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.Value.IsPositive() }

// IsNegative reports whether the magnitude is strictly below zero.
func (a Amount) IsNegative() bool { return a.Value.IsNegative() }

// Equal compares magnitude numerically and asset exactly, so "1" equals "1.00".
func (a Amount) Equal(other Amount) bool {
	return a.Asset == other.Asset && a.Value.Equal(other.Value)
}

// String renders the amount as "<magnitude> <asset>".
func (a Amount) String() string {
	return a.Value.String() + " " + a.Asset
}

func cloneAmount(a *Amount) *Amount {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
