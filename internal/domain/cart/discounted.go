package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/money"
)

// DiscountedItem is a cart line with the discount attributed to it.
type DiscountedItem struct {
	ProductID     int64
	Quantity      int
	Price         decimal.Decimal
	TotalDiscount decimal.Decimal
}

// DiscountedCart is the result of applying one coupon to a Cart.
//
// FinalPrice always equals TotalPrice - TotalDiscount and is never negative.
type DiscountedCart struct {
	Items         []DiscountedItem
	TotalPrice    decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalPrice    decimal.Decimal
}

// WithItemDiscounts rewrites the cart attributing discounts[i] to the line at
// index i. Lines without an entry get no discount. Each line discount is
// capped at that line's total.
func (c Cart) WithItemDiscounts(discounts map[int]decimal.Decimal) DiscountedCart {
	items := make([]DiscountedItem, len(c.items))
	totalPrice := money.Zero
	totalDiscount := money.Zero

	for i, item := range c.items {
		line := item.LineTotal()
		discount := money.Zero
		if d, ok := discounts[i]; ok {
			discount = money.Round(money.NonNegative(decimal.Min(d, line)))
		}

		items[i] = DiscountedItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Price:         item.Price,
			TotalDiscount: discount,
		}
		totalPrice = totalPrice.Add(line)
		totalDiscount = totalDiscount.Add(discount)
	}

	return finish(items, totalPrice, totalDiscount)
}

// WithCartDiscount rewrites the cart with a flat discount that is attributed
// only to the aggregate total. Every line reports a zero discount.
func (c Cart) WithCartDiscount(amount decimal.Decimal) DiscountedCart {
	items := make([]DiscountedItem, len(c.items))
	for i, item := range c.items {
		items[i] = DiscountedItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Price:         item.Price,
			TotalDiscount: money.Zero,
		}
	}
	return finish(items, c.Total(), money.NonNegative(amount))
}

// finish rounds the aggregates and caps the discount at the total price.
func finish(items []DiscountedItem, totalPrice, totalDiscount decimal.Decimal) DiscountedCart {
	totalPrice = money.Round(totalPrice)
	totalDiscount = money.Round(decimal.Min(totalDiscount, totalPrice))

	return DiscountedCart{
		Items:         items,
		TotalPrice:    totalPrice,
		TotalDiscount: totalDiscount,
		FinalPrice:    money.NonNegative(totalPrice.Sub(totalDiscount)),
	}
}
