package models

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is a signed money value in hundredths of the currency unit.
// 12.34 USD is Amount(1234). All ledger arithmetic happens on Amount so that
// the 0.01 tolerance checks are exact.
type Amount int64

// Cent is the smallest representable amount, used as the settlement tolerance.
const Cent Amount = 1

// ParseAmount converts a decimal string such as "90.00" or "-12.5" to an Amount,
// rounding half away from zero to the nearest hundredth.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return AmountFromDecimal(d), nil
}

// AmountFromDecimal rounds d to hundredths.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Shift(2).Round(0).IntPart())
}

// AmountFromFloat converts a float major-unit value, rounding to hundredths.
func AmountFromFloat(f float64) Amount {
	return AmountFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the amount as a major-unit decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// String returns the amount with exactly two fractional digits, e.g. "-12.50".
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// Format renders the amount for display in the given ISO currency, e.g. "$12.50".
// Unknown currency codes fall back to "12.50 XYZ".
func (a Amount) Format(currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return a.String() + " " + currency
	}
	minor := a.Decimal().Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
