// Package record is the serialized form of a coupon definition.
//
// The same Record is read from admin API requests, stored in the PostgreSQL
// details column, loaded from YAML catalog files and streamed by the bulk
// importer. Conversion to the domain model always goes through coupon.New.
package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Record is a coupon definition with its variant details. Exactly one of the
// details pointers matching Type is used; the others are ignored.
type Record struct {
	ID          uuid.UUID  `yaml:"id"`
	Type        string     `yaml:"type"`
	Code        string     `yaml:"code"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Active      bool       `yaml:"is_active"`
	ExpiresAt   *time.Time `yaml:"expires_at"`
	CreatedAt   time.Time  `yaml:"-"`
	UpdatedAt   time.Time  `yaml:"-"`

	CartWise    *CartWiseDetails    `yaml:"cart_wise_details"`
	ProductWise *ProductWiseDetails `yaml:"product_wise_details"`
	BxGy        *BxGyDetails        `yaml:"bxgy_details"`
}

// CartWiseDetails configures a cart-wise coupon.
type CartWiseDetails struct {
	DiscountType  string          `yaml:"discount_type"`
	Threshold     decimal.Decimal `yaml:"threshold"`
	DiscountValue decimal.Decimal `yaml:"discount_value"`
}

// ProductWiseDetails configures a product-wise coupon.
type ProductWiseDetails struct {
	DiscountType  string          `yaml:"discount_type"`
	ProductID     *int64          `yaml:"product_id"`
	Category      string          `yaml:"category"`
	Brand         string          `yaml:"brand"`
	DiscountValue decimal.Decimal `yaml:"discount_value"`
}

// ProductQuantity is a single BxGy buy or get entry.
type ProductQuantity struct {
	ProductID int64 `yaml:"product_id"`
	Quantity  int   `yaml:"quantity"`
}

// BxGyDetails configures a buy-X-get-Y coupon.
type BxGyDetails struct {
	RepetitionLimit int               `yaml:"repetition_limit"`
	BuyProducts     []ProductQuantity `yaml:"buy_products"`
	GetProducts     []ProductQuantity `yaml:"get_products"`
}

// Defaults applied to fields absent from the input.
const (
	defaultDiscountType    = string(coupon.DiscountPercentage)
	defaultRepetitionLimit = 1
	defaultQuantity        = 1
)

// New returns an empty Record with input defaults applied.
func New() Record {
	return Record{Active: true}
}

// Coupon validates the record and converts it into a domain coupon.
func (r Record) Coupon() (*coupon.Coupon, error) {
	typ, err := coupon.ParseType(r.Type)
	if err != nil {
		return nil, err
	}

	var detail coupon.Detail
	switch typ {
	case coupon.TypeCartWise:
		if r.CartWise == nil {
			return nil, missingDetails(typ)
		}
		detail, err = r.CartWise.detail()
	case coupon.TypeProductWise:
		if r.ProductWise == nil {
			return nil, missingDetails(typ)
		}
		detail, err = r.ProductWise.detail()
	case coupon.TypeBxGy:
		if r.BxGy == nil {
			return nil, missingDetails(typ)
		}
		detail = r.BxGy.detail()
	}
	if err != nil {
		return nil, err
	}

	return coupon.New(coupon.Header{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, detail)
}

// FromCoupon converts a domain coupon into its Record.
func FromCoupon(c *coupon.Coupon) Record {
	r := Record{
		ID:          c.ID,
		Type:        string(c.Type()),
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		Active:      c.Active,
		ExpiresAt:   c.ExpiresAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	switch d := c.Detail().(type) {
	case *coupon.CartWise:
		r.CartWise = &CartWiseDetails{
			DiscountType:  string(d.DiscountType),
			Threshold:     d.Threshold,
			DiscountValue: d.Value,
		}
	case *coupon.ProductWise:
		r.ProductWise = &ProductWiseDetails{
			DiscountType:  string(d.DiscountType),
			ProductID:     d.ProductID,
			Category:      d.Category,
			Brand:         d.Brand,
			DiscountValue: d.Value,
		}
	case *coupon.BxGy:
		r.BxGy = &BxGyDetails{
			RepetitionLimit: d.RepetitionLimit,
			BuyProducts:     fromProducts(d.Buy),
			GetProducts:     fromProducts(d.Get),
		}
	}
	return r
}

func missingDetails(t coupon.Type) error {
	return &coupon.ValidationError{
		Field:  detailsField(t),
		Reason: fmt.Sprintf("required for %s coupons", t),
	}
}

// detailsField is the wire name of the details object for a coupon type.
func detailsField(t coupon.Type) string {
	switch t {
	case coupon.TypeCartWise:
		return "cart_wise_details"
	case coupon.TypeProductWise:
		return "product_wise_details"
	case coupon.TypeBxGy:
		return "bxgy_details"
	default:
		return "details"
	}
}

func (d *CartWiseDetails) detail() (coupon.Detail, error) {
	dt, err := coupon.ParseDiscountType(d.DiscountType)
	if err != nil {
		return nil, err
	}
	return &coupon.CartWise{DiscountType: dt, Threshold: d.Threshold, Value: d.DiscountValue}, nil
}

func (d *ProductWiseDetails) detail() (coupon.Detail, error) {
	dt, err := coupon.ParseDiscountType(d.DiscountType)
	if err != nil {
		return nil, err
	}
	return &coupon.ProductWise{
		DiscountType: dt,
		Value:        d.DiscountValue,
		ProductID:    d.ProductID,
		Category:     d.Category,
		Brand:        d.Brand,
	}, nil
}

func (d *BxGyDetails) detail() coupon.Detail {
	return &coupon.BxGy{
		RepetitionLimit: d.RepetitionLimit,
		Buy:             toProducts(d.BuyProducts),
		Get:             toProducts(d.GetProducts),
	}
}

func toProducts(in []ProductQuantity) []coupon.ProductQuantity {
	out := make([]coupon.ProductQuantity, len(in))
	for i, pq := range in {
		out[i] = coupon.ProductQuantity{ProductID: pq.ProductID, Quantity: pq.Quantity}
	}
	return out
}

func fromProducts(in []coupon.ProductQuantity) []ProductQuantity {
	out := make([]ProductQuantity, len(in))
	for i, pq := range in {
		out[i] = ProductQuantity{ProductID: pq.ProductID, Quantity: pq.Quantity}
	}
	return out
}
