// Package coupon evaluates promotional discount rules against a cart.
//
// A Coupon carries exactly one Detail variant (cart-wise, product-wise or
// buy-X-get-Y). The variant is both the coupon's configuration and its
// evaluator: it decides applicability, computes the discount and rewrites the
// cart. Evaluation is pure and allocation-local, so a catalog snapshot can be
// shared between goroutines.
package coupon

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/money"
)

// Type enumerates the coupon variants.
type Type string

const (
	TypeCartWise    Type = "cart-wise"
	TypeProductWise Type = "product-wise"
	TypeBxGy        Type = "bxgy"
)

// ParseType converts a wire value into a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeCartWise, TypeProductWise, TypeBxGy:
		return t, nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown coupon type %q", s)}
	}
}

// DiscountType enumerates how a cart-wise or product-wise discount is computed.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the matched amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the matched amount.
	DiscountFixed DiscountType = "fixed"
	// DiscountShipping waives shipping. Cart-wise only.
	DiscountShipping DiscountType = "shipping"
)

// ParseDiscountType converts a wire value into a DiscountType.
func ParseDiscountType(s string) (DiscountType, error) {
	switch t := DiscountType(s); t {
	case DiscountPercentage, DiscountFixed, DiscountShipping:
		return t, nil
	default:
		return "", &ValidationError{Field: "discount_type", Reason: fmt.Sprintf("unknown discount type %q", s)}
	}
}

var (
	// ErrNotFound is returned when a coupon id is unknown, inactive or expired.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotApplicable is returned when a coupon's conditions are not met by the cart.
	ErrNotApplicable = errors.New("coupon not applicable to cart")
	// ErrMissingDetail signals a coupon without its variant detail. This is a
	// catalog integrity bug and is never treated as a zero discount.
	ErrMissingDetail = errors.New("coupon has no detail attached")
	// ErrDuplicateCode is returned by stores when a coupon code is already taken.
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// ValidationError describes a coupon definition rejected by New.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid coupon %s: %s", e.Field, e.Reason)
}

// Detail is the variant-specific part of a coupon. It is implemented by
// *CartWise, *ProductWise and *BxGy only.
type Detail interface {
	// Type reports the coupon variant.
	Type() Type
	// IsApplicable reports whether the cart satisfies the coupon conditions.
	IsApplicable(c cart.Cart) bool
	// Discount returns the discount the coupon grants, or zero when it is not
	// applicable.
	Discount(c cart.Cart) decimal.Decimal
	// Apply returns the cart rewritten with the discount attributed.
	Apply(c cart.Cart) cart.DiscountedCart

	validate() error
}

// Header holds the variant-independent coupon attributes.
type Header struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Description string
	Active      bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Coupon is a promotional rule: a Header plus exactly one Detail.
type Coupon struct {
	Header
	detail Detail
}

// New validates the header and detail and returns the assembled Coupon.
func New(h Header, d Detail) (*Coupon, error) {
	if h.Code == "" {
		return nil, &ValidationError{Field: "code", Reason: "must not be empty"}
	}
	if h.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if d == nil {
		return nil, &ValidationError{Field: "details", Reason: "exactly one detail is required"}
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &Coupon{Header: h, detail: d}, nil
}

// Type reports the variant of the attached detail, or "" when none is attached.
func (c *Coupon) Type() Type {
	if c.detail == nil {
		return ""
	}
	return c.detail.Type()
}

// Detail returns the attached variant. Callers switch on its concrete type.
func (c *Coupon) Detail() Detail {
	return c.detail
}

// Expired reports whether the coupon expiry lies strictly before now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Available reports whether the coupon is active and not expired.
func (c *Coupon) Available(now time.Time) bool {
	return c.Active && !c.Expired(now)
}

func (c *Coupon) evaluator() (Detail, error) {
	if c.detail == nil {
		return nil, errors.Wrapf(ErrMissingDetail, "coupon %s (%s)", c.ID, c.Code)
	}
	return c.detail, nil
}

func validateAmount(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

func validatePercentage(t DiscountType, v decimal.Decimal) error {
	if t == DiscountPercentage && v.GreaterThan(money.Hundred) {
		return &ValidationError{Field: "discount_value", Reason: "percentage must not exceed 100"}
	}
	return nil
}
