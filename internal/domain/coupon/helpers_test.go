package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T {
	return &v
}

func item(productID int64, qty int, price string) cart.Item {
	return cart.Item{ProductID: productID, Quantity: qty, Price: d(price)}
}
