package coupon

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

// Applicable is a coupon that yields a positive discount for a cart.
type Applicable struct {
	CouponID uuid.UUID
	Type     Type
	Name     string
	Code     string
	Discount decimal.Decimal
}

// Evaluate returns every available coupon that applies to the cart with a
// positive discount, highest discount first. Coupons with equal discounts keep
// their input order.
func Evaluate(coupons []*Coupon, c cart.Cart, now time.Time) ([]Applicable, error) {
	out := make([]Applicable, 0, len(coupons))
	for _, cp := range coupons {
		if cp == nil || !cp.Available(now) {
			continue
		}
		d, err := cp.evaluator()
		if err != nil {
			return nil, err
		}
		if !d.IsApplicable(c) {
			continue
		}
		amount := d.Discount(c)
		if !amount.IsPositive() {
			continue
		}
		out = append(out, Applicable{
			CouponID: cp.ID,
			Type:     d.Type(),
			Name:     cp.Name,
			Code:     cp.Code,
			Discount: amount,
		})
	}

	slices.SortStableFunc(out, func(a, b Applicable) int {
		return b.Discount.Cmp(a.Discount)
	})
	return out, nil
}

// ApplyTo applies a single coupon to the cart. It returns ErrNotFound when the
// coupon is nil, inactive or expired, and ErrNotApplicable when the cart does
// not meet its conditions.
func ApplyTo(cp *Coupon, c cart.Cart, now time.Time) (cart.DiscountedCart, error) {
	if cp == nil || !cp.Available(now) {
		return cart.DiscountedCart{}, ErrNotFound
	}
	d, err := cp.evaluator()
	if err != nil {
		return cart.DiscountedCart{}, err
	}
	if !d.IsApplicable(c) {
		return cart.DiscountedCart{}, ErrNotApplicable
	}
	return d.Apply(c), nil
}

// Catalog is the read-only coupon source the Service evaluates against.
type Catalog interface {
	// Active returns all active coupons. Expiry is checked by the caller.
	Active(ctx context.Context) ([]*Coupon, error)
	// Get returns the coupon with the given id or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Coupon, error)
}

// Service evaluates carts against a coupon Catalog.
type Service struct {
	catalog Catalog
	now     func() time.Time
}

// NewService creates a Service backed by the given Catalog.
func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog, now: time.Now}
}

// ApplicableCoupons lists the catalog coupons that apply to the cart, highest
// discount first.
func (s *Service) ApplicableCoupons(ctx context.Context, c cart.Cart) ([]Applicable, error) {
	coupons, err := s.catalog.Active(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}

	out, err := Evaluate(coupons, c, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "evaluate coupons")
	}

	zctx.From(ctx).Debug("Evaluated coupons",
		zap.Int("candidates", len(coupons)),
		zap.Int("applicable", len(out)),
		zap.Int("items", c.Len()),
	)
	return out, nil
}

// Apply applies the coupon identified by id to the cart. Exactly one coupon is
// applied per call.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, c cart.Cart) (*cart.DiscountedCart, error) {
	cp, err := s.catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get coupon %s", id)
	}

	dc, err := ApplyTo(cp, c, s.now())
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Debug("Applied coupon",
		zap.Stringer("coupon_id", id),
		zap.String("type", string(cp.Type())),
		zap.Stringer("discount", dc.TotalDiscount),
	)
	return &dc, nil
}
