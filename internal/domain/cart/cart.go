// Package cart models the priced shopping cart an evaluator reads and the
// discounted cart it produces.
package cart

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/money"
)

// Sentinel errors for line item validation.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrPricePrecision  = errors.New("price must have at most 2 decimal places")
)

// ItemError reports which line item failed validation.
type ItemError struct {
	Index     int
	ProductID int64
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (product %d): %s", e.Index, e.ProductID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Item is a single priced cart line. Category and Brand are optional; the empty
// string means the attribute is absent.
type Item struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Category  string
	Brand     string
}

// LineTotal returns price * quantity.
func (i Item) LineTotal() decimal.Decimal {
	return money.Times(i.Price, i.Quantity)
}

// Cart is an immutable, ordered list of validated line items.
type Cart struct {
	items []Item
}

// New validates raw line items and returns a Cart holding its own copy of them.
func New(items []Item) (Cart, error) {
	for i, item := range items {
		var err error
		switch {
		case item.Quantity <= 0:
			err = ErrInvalidQuantity
		case item.Price.IsNegative():
			err = ErrNegativePrice
		case !item.Price.Equal(money.Round(item.Price)):
			err = ErrPricePrecision
		}
		if err != nil {
			return Cart{}, &ItemError{Index: i, ProductID: item.ProductID, Err: err}
		}
	}
	return Cart{items: slices.Clone(items)}, nil
}

// MustNew is like New but panics on invalid input. Intended for tests and
// static fixtures.
func MustNew(items ...Item) Cart {
	c, err := New(items)
	if err != nil {
		panic(err)
	}
	return c
}

// Items returns a copy of the line items in cart order.
func (c Cart) Items() []Item {
	return slices.Clone(c.items)
}

// Len returns the number of line items.
func (c Cart) Len() int {
	return len(c.items)
}

// Total returns the sum of price * quantity over all items, rounded to 2 places.
func (c Cart) Total() decimal.Decimal {
	sum := money.Zero
	for _, item := range c.items {
		sum = sum.Add(item.LineTotal())
	}
	return money.Round(sum)
}

// Quantities returns the total quantity held per product id, summing duplicate
// lines for the same product.
func (c Cart) Quantities() map[int64]int {
	out := make(map[int64]int, len(c.items))
	for _, item := range c.items {
		out[item.ProductID] += item.Quantity
	}
	return out
}
