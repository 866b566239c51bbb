package types

import (
	"github.com/shopspring/decimal"
)

// Money renders a decimal amount with exactly two fraction digits in JSON.
type Money decimal.Decimal

// NewMoney converts a decimal into Money.
func NewMoney(d decimal.Decimal) Money {
	return Money(d)
}

// Decimal returns the underlying value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.Decimal(m)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return decimal.Decimal(m).StringFixed(2)
}

// MarshalJSON encodes the amount as a quoted fixed-point string ("20.00").
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts quoted or bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// Cents converts the amount to the smallest currency unit, rounding half away from zero.
func (m Money) Cents() int64 {
	return decimal.Decimal(m).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
