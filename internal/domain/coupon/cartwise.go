package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/money"
)

// ShippingPlaceholder is the flat amount a free-shipping coupon is worth,
// capped at the cart total so a cart worth less gets only its total off. The
// real shipping cost belongs to a shipping-rate service the engine does not
// talk to.
var ShippingPlaceholder = decimal.RequireFromString("5.00")

// CartWise discounts the whole cart once its total reaches Threshold.
type CartWise struct {
	DiscountType DiscountType
	Threshold    decimal.Decimal
	Value        decimal.Decimal
}

var _ Detail = (*CartWise)(nil)

// Type implements Detail.
func (d *CartWise) Type() Type { return TypeCartWise }

// IsApplicable reports whether the rounded cart total reaches the threshold.
func (d *CartWise) IsApplicable(c cart.Cart) bool {
	return c.Total().GreaterThanOrEqual(d.Threshold)
}

// Discount implements Detail. Unknown discount types yield zero.
func (d *CartWise) Discount(c cart.Cart) decimal.Decimal {
	if !d.IsApplicable(c) {
		return money.Zero
	}

	total := c.Total()
	switch d.DiscountType {
	case DiscountPercentage:
		return money.Round(money.Percent(total, d.Value))
	case DiscountFixed:
		return money.Round(decimal.Min(d.Value, total))
	case DiscountShipping:
		return money.Round(decimal.Min(ShippingPlaceholder, total))
	default:
		return money.Zero
	}
}

// Apply attributes the discount to the cart aggregate only; every line keeps a
// zero discount.
func (d *CartWise) Apply(c cart.Cart) cart.DiscountedCart {
	return c.WithCartDiscount(d.Discount(c))
}

func (d *CartWise) validate() error {
	switch d.DiscountType {
	case DiscountPercentage, DiscountFixed, DiscountShipping:
	default:
		return &ValidationError{Field: "discount_type", Reason: "must be percentage, fixed or shipping"}
	}
	if err := validateAmount("threshold", d.Threshold); err != nil {
		return err
	}
	if err := validateAmount("discount_value", d.Value); err != nil {
		return err
	}
	return validatePercentage(d.DiscountType, d.Value)
}
