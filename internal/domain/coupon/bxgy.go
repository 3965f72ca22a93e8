package coupon

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/money"
)

// ProductQuantity pairs a product with a quantity in a BxGy rule.
type ProductQuantity struct {
	ProductID int64
	Quantity  int
}

// BxGy grants Get products for free each time the cart holds a complete set
// of Buy products, at most RepetitionLimit times.
//
// Free units are expressed as a discount on the matching cart lines; no new
// lines are added to the cart.
type BxGy struct {
	RepetitionLimit int
	Buy             []ProductQuantity
	Get             []ProductQuantity
}

var _ Detail = (*BxGy)(nil)

// Type implements Detail.
func (d *BxGy) Type() Type { return TypeBxGy }

// IsApplicable requires every buy requirement to be met at least once and at
// least one get product to be present in the cart.
func (d *BxGy) IsApplicable(c cart.Cart) bool {
	if len(d.Buy) == 0 || len(d.Get) == 0 {
		return false
	}

	held := c.Quantities()
	for productID, required := range quantities(d.Buy) {
		if held[productID] < required {
			return false
		}
	}
	for productID := range quantities(d.Get) {
		if held[productID] > 0 {
			return true
		}
	}
	return false
}

// RepetitionCount returns how many complete buy sets the cart holds, capped
// by RepetitionLimit. The scarcest buy product bounds the count.
func (d *BxGy) RepetitionCount(c cart.Cart) int {
	held := c.Quantities()

	count := -1
	for productID, required := range quantities(d.Buy) {
		if required <= 0 {
			continue
		}
		sets := held[productID] / required
		if count < 0 || sets < count {
			count = sets
		}
	}
	if count < 0 {
		return 0
	}
	return max(0, min(count, d.RepetitionLimit))
}

// Discount implements Detail.
func (d *BxGy) Discount(c cart.Cart) decimal.Decimal {
	total := money.Zero
	for _, amount := range d.freeLineDiscounts(c) {
		total = total.Add(amount)
	}
	return money.Round(total)
}

// Apply attributes the value of the free units to the lines they come from.
func (d *BxGy) Apply(c cart.Cart) cart.DiscountedCart {
	return c.WithItemDiscounts(d.freeLineDiscounts(c))
}

// eligibleLine is a cart line holding a get product.
type eligibleLine struct {
	index    int
	price    decimal.Decimal
	held     int
	required int
}

// freeLineDiscounts distributes the repetitions over the eligible cart lines,
// cheapest first, and returns the value of the freed units per cart index.
func (d *BxGy) freeLineDiscounts(c cart.Cart) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	if !d.IsApplicable(c) {
		return out
	}
	remaining := d.RepetitionCount(c)
	if remaining == 0 {
		return out
	}

	get := quantities(d.Get)
	var lines []eligibleLine
	for i, item := range c.Items() {
		if required, ok := get[item.ProductID]; ok && required > 0 {
			lines = append(lines, eligibleLine{
				index:    i,
				price:    item.Price,
				held:     item.Quantity,
				required: required,
			})
		}
	}
	slices.SortStableFunc(lines, func(a, b eligibleLine) int {
		return a.price.Cmp(b.price)
	})

	for _, line := range lines {
		if remaining == 0 {
			break
		}
		repeats := min(remaining, line.held/line.required)
		if repeats == 0 {
			continue
		}
		free := repeats * line.required
		out[line.index] = money.Round(money.Times(line.price, free))
		remaining -= repeats
	}
	return out
}

// quantities indexes a product list by id. Validated lists hold each product
// once.
func quantities(list []ProductQuantity) map[int64]int {
	out := make(map[int64]int, len(list))
	for _, pq := range list {
		out[pq.ProductID] = pq.Quantity
	}
	return out
}

func (d *BxGy) validate() error {
	if d.RepetitionLimit < 1 {
		return &ValidationError{Field: "repetition_limit", Reason: "must be at least 1"}
	}
	if len(d.Buy) == 0 {
		return &ValidationError{Field: "buy_products", Reason: "must not be empty"}
	}
	if len(d.Get) == 0 {
		return &ValidationError{Field: "get_products", Reason: "must not be empty"}
	}
	if err := validateProducts("buy_products", d.Buy, 0); err != nil {
		return err
	}
	return validateProducts("get_products", d.Get, 1)
}

func validateProducts(field string, list []ProductQuantity, minQty int) error {
	seen := make(map[int64]struct{}, len(list))
	for _, pq := range list {
		if pq.Quantity < minQty {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("quantity for product %d must be at least %d", pq.ProductID, minQty)}
		}
		if _, dup := seen[pq.ProductID]; dup {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("product %d listed twice", pq.ProductID)}
		}
		seen[pq.ProductID] = struct{}{}
	}
	return nil
}
