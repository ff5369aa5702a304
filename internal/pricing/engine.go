// Package pricing computes order-line prices under tiered quantity discounts.
//
// Everything here is pure: no I/O, no clock, no shared state. The same
// function prices a line when an order is written and re-prices it for display
// with whatever tiers the product currently has.
package pricing

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is the part of a product the engine needs.
type Item struct {
	Price          decimal.Decimal
	OneSetQuantity *int
	OneSetPrice    *decimal.Decimal
}

// Tier is a block price: Quantity order units cost Price in total.
type Tier struct {
	ID       uuid.UUID
	Quantity int
	Price    decimal.Decimal
}

// Result is the priced line. Applied is nil when no tier qualified.
type Result struct {
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	SavedAmount   decimal.Decimal `json:"saved_amount"`
	Applied       *Tier           `json:"-"`
}

// BasePrice returns the price of one order unit: the bundle price when the
// item is sold in sets, the unit price otherwise.
func BasePrice(item Item) decimal.Decimal {
	if item.OneSetQuantity != nil && *item.OneSetQuantity != 0 && item.OneSetPrice != nil {
		return *item.OneSetPrice
	}
	return item.Price
}

// SelectTier returns the tier with the largest threshold not exceeding
// quantity, or nil. Lower tiers are never combined with it.
func SelectTier(quantity int, tiers []Tier) *Tier {
	if len(tiers) == 0 {
		return nil
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Quantity > sorted[j].Quantity })

	for i := range sorted {
		if sorted[i].Quantity > 0 && quantity >= sorted[i].Quantity {
			t := sorted[i]
			return &t
		}
	}
	return nil
}

// PriceLine prices quantity order units of item under tiers.
//
// With a qualifying tier t: price = (quantity / t.Quantity) * t.Price +
// (quantity % t.Quantity) * base. Without one: price = base * quantity.
// No rounding happens here; callers round at the display boundary.
func PriceLine(item Item, quantity int, tiers []Tier) Result {
	base := BasePrice(item)
	original := base.Mul(decimal.NewFromInt(int64(quantity)))

	res := Result{Price: original, OriginalPrice: original, SavedAmount: decimal.Zero}
	if quantity <= 0 {
		return res
	}

	tier := SelectTier(quantity, tiers)
	if tier == nil {
		return res
	}

	sets := quantity / tier.Quantity
	remainder := quantity % tier.Quantity
	res.Price = tier.Price.Mul(decimal.NewFromInt(int64(sets))).
		Add(base.Mul(decimal.NewFromInt(int64(remainder))))
	res.SavedAmount = original.Sub(res.Price)
	res.Applied = tier
	return res
}

// Round2 rounds an amount for display.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
