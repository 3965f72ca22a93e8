package coupon

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

type featureContext struct {
	catalog    *mockCatalog
	byCode     map[string]*Coupon
	items      []cart.Item
	applicable []Applicable
	result     *cart.DiscountedCart
	err        error
}

func (f *featureContext) reset() {
	f.catalog = &mockCatalog{}
	f.byCode = make(map[string]*Coupon)
	f.items = nil
	f.applicable = nil
	f.result = nil
	f.err = nil
}

func (f *featureContext) addCoupon(code string, detail Detail) error {
	cp, err := New(Header{ID: uuid.New(), Code: code, Name: code, Active: true}, detail)
	if err != nil {
		return err
	}
	f.catalog.coupons = append(f.catalog.coupons, cp)
	f.byCode[code] = cp
	return nil
}

func (f *featureContext) cartWiseCoupon(code, threshold, pct string) error {
	return f.addCoupon(code, &CartWise{
		DiscountType: DiscountPercentage,
		Threshold:    decimal.RequireFromString(threshold),
		Value:        decimal.RequireFromString(pct),
	})
}

func (f *featureContext) productWiseCoupon(code, pct, category string) error {
	return f.addCoupon(code, &ProductWise{
		DiscountType: DiscountPercentage,
		Value:        decimal.RequireFromString(pct),
		Category:     category,
	})
}

func (f *featureContext) bxgyCoupon(code string, buyQty int, buyID int64, getQty int, getID int64, limit int) error {
	return f.addCoupon(code, &BxGy{
		RepetitionLimit: limit,
		Buy:             []ProductQuantity{{ProductID: buyID, Quantity: buyQty}},
		Get:             []ProductQuantity{{ProductID: getID, Quantity: getQty}},
	})
}

func (f *featureContext) couponInactive(code string) error {
	cp, ok := f.byCode[code]
	if !ok {
		return fmt.Errorf("unknown coupon %q", code)
	}
	cp.Active = false
	return nil
}

func (f *featureContext) couponExpired(code string) error {
	cp, ok := f.byCode[code]
	if !ok {
		return fmt.Errorf("unknown coupon %q", code)
	}
	at := testNow.Add(-24 * time.Hour)
	cp.ExpiresAt = &at
	return nil
}

func (f *featureContext) cartHolds(qty int, productID int64, price string) error {
	return f.cartHoldsInCategory(qty, productID, "", price)
}

func (f *featureContext) cartHoldsInCategory(qty int, productID int64, category, price string) error {
	f.items = append(f.items, cart.Item{
		ProductID: productID,
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
		Category:  category,
	})
	return nil
}

func (f *featureContext) buildCart() (cart.Cart, error) {
	return cart.New(f.items)
}

func (f *featureContext) listApplicable(ctx context.Context) error {
	c, err := f.buildCart()
	if err != nil {
		return err
	}
	f.applicable, f.err = newTestService(f.catalog).ApplicableCoupons(ctx, c)
	return f.err
}

func (f *featureContext) applyID(ctx context.Context, id uuid.UUID) error {
	c, err := f.buildCart()
	if err != nil {
		return err
	}
	f.result, f.err = newTestService(f.catalog).Apply(ctx, id, c)
	return nil
}

func (f *featureContext) applyCoupon(ctx context.Context, code string) error {
	cp, ok := f.byCode[code]
	if !ok {
		return fmt.Errorf("unknown coupon %q", code)
	}
	return f.applyID(ctx, cp.ID)
}

func (f *featureContext) applyUnknown(ctx context.Context) error {
	return f.applyID(ctx, uuid.New())
}

func (f *featureContext) applicableCount(n int) error {
	if len(f.applicable) != n {
		return fmt.Errorf("expected %d applicable coupons, got %d", n, len(f.applicable))
	}
	return nil
}

func (f *featureContext) applicableWithDiscount(code, amount string) error {
	want := decimal.RequireFromString(amount)
	for _, a := range f.applicable {
		if a.Code != code {
			continue
		}
		if !a.Discount.Equal(want) {
			return fmt.Errorf("coupon %q: expected discount %s, got %s", code, want, a.Discount)
		}
		return nil
	}
	return fmt.Errorf("coupon %q is not applicable", code)
}

func (f *featureContext) applicableOrder(list string) error {
	want := strings.Split(list, ", ")
	got := make([]string, 0, len(f.applicable))
	for _, a := range f.applicable {
		got = append(got, a.Code)
	}
	if strings.Join(got, ", ") != strings.Join(want, ", ") {
		return fmt.Errorf("expected %v, got %v", want, got)
	}
	return nil
}

func (f *featureContext) applied() (*cart.DiscountedCart, error) {
	if f.err != nil {
		return nil, fmt.Errorf("expected a discounted cart, got error: %w", f.err)
	}
	if f.result == nil {
		return nil, errors.New("no coupon applied")
	}
	return f.result, nil
}

func (f *featureContext) amountIs(name string, pick func(*cart.DiscountedCart) decimal.Decimal) func(string) error {
	return func(amount string) error {
		dc, err := f.applied()
		if err != nil {
			return err
		}
		want := decimal.RequireFromString(amount)
		if got := pick(dc); !got.Equal(want) {
			return fmt.Errorf("expected %s %s, got %s", name, want, got)
		}
		return nil
	}
}

func (f *featureContext) lineDiscount(productID int64, amount string) error {
	dc, err := f.applied()
	if err != nil {
		return err
	}
	want := decimal.RequireFromString(amount)
	for _, it := range dc.Items {
		if it.ProductID != productID {
			continue
		}
		if !it.TotalDiscount.Equal(want) {
			return fmt.Errorf("product %d: expected discount %s, got %s", productID, want, it.TotalDiscount)
		}
		return nil
	}
	return fmt.Errorf("product %d not in cart", productID)
}

func (f *featureContext) requestFails(reason string) error {
	var want error
	switch reason {
	case "not found":
		want = ErrNotFound
	case "not applicable":
		want = ErrNotApplicable
	default:
		return fmt.Errorf("unknown failure %q", reason)
	}
	if !errors.Is(f.err, want) {
		return fmt.Errorf("expected %v, got %v", want, f.err)
	}
	return nil
}

func initializeScenario(sc *godog.ScenarioContext) {
	f := &featureContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	sc.Step(`^a cart-wise coupon "([^"]*)" with threshold ([\d.]+) and ([\d.]+)% off$`, f.cartWiseCoupon)
	sc.Step(`^a product-wise coupon "([^"]*)" with ([\d.]+)% off category "([^"]*)"$`, f.productWiseCoupon)
	sc.Step(`^a bxgy coupon "([^"]*)" buying (\d+) of product (\d+) to get (\d+) of product (\d+) up to (\d+) times$`, f.bxgyCoupon)
	sc.Step(`^the coupon "([^"]*)" is inactive$`, f.couponInactive)
	sc.Step(`^the coupon "([^"]*)" is expired$`, f.couponExpired)
	sc.Step(`^the cart holds (\d+) of product (\d+) at ([\d.]+)$`, f.cartHolds)
	sc.Step(`^the cart holds (\d+) of product (\d+) in category "([^"]*)" at ([\d.]+)$`, f.cartHoldsInCategory)

	sc.Step(`^I list applicable coupons$`, f.listApplicable)
	sc.Step(`^I apply the coupon "([^"]*)"$`, f.applyCoupon)
	sc.Step(`^I apply an unknown coupon$`, f.applyUnknown)

	sc.Step(`^(\d+) coupons? (?:is|are) applicable$`, f.applicableCount)
	sc.Step(`^coupon "([^"]*)" is applicable with discount ([\d.]+)$`, f.applicableWithDiscount)
	sc.Step(`^the applicable coupons are "([^"]*)"$`, f.applicableOrder)
	sc.Step(`^the total price is ([\d.]+)$`, f.amountIs("total price", func(dc *cart.DiscountedCart) decimal.Decimal { return dc.TotalPrice }))
	sc.Step(`^the total discount is ([\d.]+)$`, f.amountIs("total discount", func(dc *cart.DiscountedCart) decimal.Decimal { return dc.TotalDiscount }))
	sc.Step(`^the final price is ([\d.]+)$`, f.amountIs("final price", func(dc *cart.DiscountedCart) decimal.Decimal { return dc.FinalPrice }))
	sc.Step(`^the line for product (\d+) has discount ([\d.]+)$`, f.lineDiscount)
	sc.Step(`^the request fails with "([^"]*)"$`, f.requestFails)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
