package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/money"
)

// ProductWise discounts every cart line matching any of its targets. Unset
// targets (nil ProductID, empty Category or Brand) never match.
type ProductWise struct {
	DiscountType DiscountType
	Value        decimal.Decimal
	ProductID    *int64
	Category     string
	Brand        string
}

var _ Detail = (*ProductWise)(nil)

// Type implements Detail.
func (d *ProductWise) Type() Type { return TypeProductWise }

// Matches reports whether the item satisfies at least one set target.
func (d *ProductWise) Matches(item cart.Item) bool {
	switch {
	case d.ProductID != nil && *d.ProductID == item.ProductID:
		return true
	case d.Category != "" && item.Category == d.Category:
		return true
	case d.Brand != "" && item.Brand == d.Brand:
		return true
	default:
		return false
	}
}

// IsApplicable reports whether any cart line matches.
func (d *ProductWise) IsApplicable(c cart.Cart) bool {
	for _, item := range c.Items() {
		if d.Matches(item) {
			return true
		}
	}
	return false
}

// Discount implements Detail.
func (d *ProductWise) Discount(c cart.Cart) decimal.Decimal {
	total := money.Zero
	for _, amount := range d.lineDiscounts(c) {
		total = total.Add(amount)
	}
	return money.Round(total)
}

// Apply attributes each matching line its own discount.
func (d *ProductWise) Apply(c cart.Cart) cart.DiscountedCart {
	return c.WithItemDiscounts(d.lineDiscounts(c))
}

// lineDiscounts maps cart index to the rounded discount of each matching line.
func (d *ProductWise) lineDiscounts(c cart.Cart) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	for i, item := range c.Items() {
		if !d.Matches(item) {
			continue
		}
		out[i] = money.Round(money.Times(d.unitDiscount(item.Price), item.Quantity))
	}
	return out
}

// unitDiscount never exceeds the unit price.
func (d *ProductWise) unitDiscount(price decimal.Decimal) decimal.Decimal {
	switch d.DiscountType {
	case DiscountPercentage:
		return money.Percent(price, d.Value)
	case DiscountFixed:
		return decimal.Min(d.Value, price)
	default:
		return money.Zero
	}
}

func (d *ProductWise) validate() error {
	switch d.DiscountType {
	case DiscountPercentage, DiscountFixed:
	default:
		return &ValidationError{Field: "discount_type", Reason: "must be percentage or fixed"}
	}
	if err := validateAmount("discount_value", d.Value); err != nil {
		return err
	}
	return validatePercentage(d.DiscountType, d.Value)
}
