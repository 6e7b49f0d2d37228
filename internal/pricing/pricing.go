// Package pricing holds the monetary arithmetic for the storefront. Everything
// is integer rials, computed with floor division so repeated calculations never
// drift the way floating point would.
package pricing

import (
	"fmt"

	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

const (
	DefaultFreeShippingThreshold int64 = 500_000
	DefaultShippingFee           int64 = 25_000
)

// EffectiveUnitPrice applies the percentage discount first with floor
// division, then subtracts the flat per-unit discount, clamped at zero.
func EffectiveUnitPrice(unitPrice, discountPercent, discountPerUnit int64) int64 {
	afterPercent := unitPrice * (100 - discountPercent) / 100
	price := afterPercent - discountPerUnit
	if price < 0 {
		price = 0
	}
	return price
}

// LineTotals computes one line's subtotal, discount and total. The per-unit
// discount is the larger of the percent-derived and the flat discount, not
// their sum, and never exceeds the unit price.
func LineTotals(unitPrice, quantity, discountPercent, discountPerUnit int64) (subtotal, discount, total int64) {
	subtotal = unitPrice * quantity

	perUnit := unitPrice - unitPrice*(100-discountPercent)/100
	if discountPerUnit > perUnit {
		perUnit = discountPerUnit
	}
	if perUnit > unitPrice {
		perUnit = unitPrice
	}

	discount = perUnit * quantity
	total = subtotal - discount
	return subtotal, discount, total
}

// ShippingCost is a flat threshold rule: free at or above the threshold,
// otherwise the fixed fee.
func ShippingCost(subtotal, threshold, fee int64) int64 {
	if subtotal >= threshold {
		return 0
	}
	return fee
}

// ValidateQuantity rejects non-positive quantities.
func ValidateQuantity(quantity int64) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", shoperr.ErrValidation)
	}
	return nil
}

// ValidateDiscount rejects discount parameters outside their legal ranges.
func ValidateDiscount(discountPercent, discountPerUnit int64) error {
	if discountPercent < 0 || discountPercent > 100 {
		return fmt.Errorf("%w: discount percent must be between 0 and 100", shoperr.ErrValidation)
	}
	if discountPerUnit < 0 {
		return fmt.Errorf("%w: per-unit discount must not be negative", shoperr.ErrValidation)
	}
	return nil
}
