package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

func TestEffectiveUnitPrice(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)
	zero := time.Time{}

	price := decimal.NewFromInt(10)
	eight := decimal.NewFromInt(8)
	twelve := decimal.NewFromInt(12)
	negative := decimal.NewFromInt(-1)
	nothing := decimal.Zero

	cases := []struct {
		name  string
		disc  *decimal.Decimal
		start *time.Time
		end   *time.Time
		want  string
	}{
		{name: "no discount", want: "10"},
		{name: "active window", disc: &eight, start: &yesterday, end: &tomorrow, want: "8"},
		{name: "window starts now", disc: &eight, start: &now, end: &tomorrow, want: "8"},
		{name: "window ends now", disc: &eight, start: &yesterday, end: &now, want: "8"},
		{name: "window in future", disc: &eight, start: &tomorrow, end: &tomorrow, want: "10"},
		{name: "window expired", disc: &eight, start: &lastWeek, end: &yesterday, want: "10"},
		{name: "missing start", disc: &eight, end: &tomorrow, want: "10"},
		{name: "missing end", disc: &eight, start: &yesterday, want: "10"},
		{name: "zero timestamp", disc: &eight, start: &zero, end: &tomorrow, want: "10"},
		{name: "discount above price", disc: &twelve, start: &yesterday, end: &tomorrow, want: "10"},
		{name: "discount equal price", disc: &price, start: &yesterday, end: &tomorrow, want: "10"},
		{name: "zero discount", disc: &nothing, start: &yesterday, end: &tomorrow, want: "10"},
		{name: "negative discount", disc: &negative, start: &yesterday, end: &tomorrow, want: "10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := models.Product{Price: price, DiscountPrice: tc.disc, DiscountStartDate: tc.start, DiscountEndDate: tc.end}
			got := EffectiveUnitPrice(p, now)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestLineTotalAndCents(t *testing.T) {
	total := LineTotal(decimal.RequireFromString("19.99"), 3)
	if !total.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("unexpected line total %s", total)
	}
	if got := ToCents(total); got != 5997 {
		t.Fatalf("expected 5997 cents, got %d", got)
	}
	if got := ToCents(decimal.RequireFromString("0.125")); got != 13 {
		t.Fatalf("expected half-up rounding to 13, got %d", got)
	}
	if !FromCents(2000).Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 2000 cents to equal 20")
	}
}
