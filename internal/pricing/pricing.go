// Package pricing resolves the unit price a product sells for at a given instant.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// DiscountActive reports whether the product's discount applies at now. The
// discount must be positive, strictly below the list price, and now must fall
// inside the inclusive [start, end] window.
func DiscountActive(p models.Product, now time.Time) bool {
	if p.DiscountPrice == nil || !p.DiscountPrice.IsPositive() {
		return false
	}
	if p.DiscountStartDate == nil || p.DiscountEndDate == nil {
		return false
	}
	start, end := *p.DiscountStartDate, *p.DiscountEndDate
	if start.IsZero() || end.IsZero() {
		return false
	}
	if now.Before(start) || now.After(end) {
		return false
	}
	return p.DiscountPrice.LessThan(p.Price)
}

// EffectiveUnitPrice returns the discounted price when DiscountActive, else the list price.
func EffectiveUnitPrice(p models.Product, now time.Time) decimal.Decimal {
	if DiscountActive(p, now) {
		return *p.DiscountPrice
	}
	return p.Price
}

// LineTotal multiplies the unit price by the quantity.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// ToCents rounds an amount to the smallest currency unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts a processor amount back into a decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
