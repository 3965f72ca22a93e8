package record

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/domain/money"
)

// Decode reads a coupon definition. Server-assigned fields (id, created_at,
// updated_at) are ignored, as are unknown fields.
func (r *Record) Decode(d *jx.Decoder) error {
	*r = New()
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "type":
			r.Type, err = d.Str()
		case "code":
			r.Code, err = d.Str()
		case "name":
			r.Name, err = d.Str()
		case "description":
			r.Description, err = decodeOptStr(d)
		case "is_active":
			r.Active, err = d.Bool()
		case "expires_at":
			r.ExpiresAt, err = decodeOptTime(d)
		case "cart_wise_details":
			r.CartWise, err = decodeOptObj(d, func(d *jx.Decoder) (*CartWiseDetails, error) {
				v := &CartWiseDetails{}
				return v, v.Decode(d)
			})
		case "product_wise_details":
			r.ProductWise, err = decodeOptObj(d, func(d *jx.Decoder) (*ProductWiseDetails, error) {
				v := &ProductWiseDetails{}
				return v, v.Decode(d)
			})
		case "bxgy_details":
			r.BxGy, err = decodeOptObj(d, func(d *jx.Decoder) (*BxGyDetails, error) {
				v := &BxGyDetails{}
				return v, v.Decode(d)
			})
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "decode %q", key)
	})
}

// Encode writes the record with the details object matching its type.
func (r Record) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID.String())
	e.FieldStart("type")
	e.Str(r.Type)
	e.FieldStart("code")
	e.Str(r.Code)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("description")
	e.Str(r.Description)
	e.FieldStart("is_active")
	e.Bool(r.Active)
	e.FieldStart("created_at")
	encodeTime(e, r.CreatedAt)
	e.FieldStart("updated_at")
	encodeTime(e, r.UpdatedAt)
	e.FieldStart("expires_at")
	if r.ExpiresAt != nil {
		encodeTime(e, *r.ExpiresAt)
	} else {
		e.Null()
	}
	switch {
	case r.CartWise != nil && r.Type == string(coupon.TypeCartWise):
		e.FieldStart("cart_wise_details")
		r.CartWise.Encode(e)
	case r.ProductWise != nil && r.Type == string(coupon.TypeProductWise):
		e.FieldStart("product_wise_details")
		r.ProductWise.Encode(e)
	case r.BxGy != nil && r.Type == string(coupon.TypeBxGy):
		e.FieldStart("bxgy_details")
		r.BxGy.Encode(e)
	}
	e.ObjEnd()
}

// MarshalDetails encodes the details object matching the record type.
func (r Record) MarshalDetails() ([]byte, error) {
	var e jx.Encoder
	switch coupon.Type(r.Type) {
	case coupon.TypeCartWise:
		if r.CartWise == nil {
			return nil, missingDetails(coupon.TypeCartWise)
		}
		r.CartWise.Encode(&e)
	case coupon.TypeProductWise:
		if r.ProductWise == nil {
			return nil, missingDetails(coupon.TypeProductWise)
		}
		r.ProductWise.Encode(&e)
	case coupon.TypeBxGy:
		if r.BxGy == nil {
			return nil, missingDetails(coupon.TypeBxGy)
		}
		r.BxGy.Encode(&e)
	default:
		return nil, errors.Errorf("unknown coupon type %q", r.Type)
	}
	return e.Bytes(), nil
}

// UnmarshalDetails decodes a details object for the record type, which must be
// set beforehand.
func (r *Record) UnmarshalDetails(data []byte) error {
	d := jx.DecodeBytes(data)
	switch coupon.Type(r.Type) {
	case coupon.TypeCartWise:
		r.CartWise = &CartWiseDetails{}
		return r.CartWise.Decode(d)
	case coupon.TypeProductWise:
		r.ProductWise = &ProductWiseDetails{}
		return r.ProductWise.Decode(d)
	case coupon.TypeBxGy:
		r.BxGy = &BxGyDetails{}
		return r.BxGy.Decode(d)
	default:
		return errors.Errorf("unknown coupon type %q", r.Type)
	}
}

// Decode reads cart-wise details. discount_type defaults to percentage.
func (v *CartWiseDetails) Decode(d *jx.Decoder) error {
	*v = CartWiseDetails{DiscountType: defaultDiscountType}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "discount_type":
			v.DiscountType, err = d.Str()
		case "threshold":
			v.Threshold, err = DecodeAmount(d)
		case "discount_value":
			v.DiscountValue, err = DecodeAmount(d)
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "decode %q", key)
	})
}

func (v CartWiseDetails) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("discount_type")
	e.Str(v.DiscountType)
	e.FieldStart("threshold")
	EncodeAmount(e, v.Threshold)
	e.FieldStart("discount_value")
	EncodeAmount(e, v.DiscountValue)
	e.ObjEnd()
}

// Decode reads product-wise details. discount_type defaults to percentage.
func (v *ProductWiseDetails) Decode(d *jx.Decoder) error {
	*v = ProductWiseDetails{DiscountType: defaultDiscountType}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "discount_type":
			v.DiscountType, err = d.Str()
		case "product_id":
			if d.Next() == jx.Null {
				v.ProductID = nil
				return d.Null()
			}
			var id int64
			id, err = d.Int64()
			v.ProductID = &id
		case "category":
			v.Category, err = decodeOptStr(d)
		case "brand":
			v.Brand, err = decodeOptStr(d)
		case "discount_value":
			v.DiscountValue, err = DecodeAmount(d)
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "decode %q", key)
	})
}

func (v ProductWiseDetails) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("discount_type")
	e.Str(v.DiscountType)
	e.FieldStart("product_id")
	if v.ProductID != nil {
		e.Int64(*v.ProductID)
	} else {
		e.Null()
	}
	e.FieldStart("category")
	encodeOptStr(e, v.Category)
	e.FieldStart("brand")
	encodeOptStr(e, v.Brand)
	e.FieldStart("discount_value")
	EncodeAmount(e, v.DiscountValue)
	e.ObjEnd()
}

// Decode reads BxGy details. repetition_limit and entry quantities default to 1.
func (v *BxGyDetails) Decode(d *jx.Decoder) error {
	*v = BxGyDetails{RepetitionLimit: defaultRepetitionLimit}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "repetition_limit":
			v.RepetitionLimit, err = d.Int()
		case "buy_products":
			v.BuyProducts, err = decodeProducts(d)
		case "get_products":
			v.GetProducts, err = decodeProducts(d)
		default:
			return d.Skip()
		}
		return errors.Wrapf(err, "decode %q", key)
	})
}

func (v BxGyDetails) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("repetition_limit")
	e.Int(v.RepetitionLimit)
	e.FieldStart("buy_products")
	encodeProducts(e, v.BuyProducts)
	e.FieldStart("get_products")
	encodeProducts(e, v.GetProducts)
	e.ObjEnd()
}

func decodeProducts(d *jx.Decoder) ([]ProductQuantity, error) {
	var out []ProductQuantity
	err := d.Arr(func(d *jx.Decoder) error {
		pq := ProductQuantity{Quantity: defaultQuantity}
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "product_id":
				pq.ProductID, err = d.Int64()
			case "quantity":
				pq.Quantity, err = d.Int()
			default:
				return d.Skip()
			}
			return errors.Wrapf(err, "decode %q", key)
		}); err != nil {
			return err
		}
		out = append(out, pq)
		return nil
	})
	return out, err
}

func encodeProducts(e *jx.Encoder, list []ProductQuantity) {
	e.ArrStart()
	for _, pq := range list {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(pq.ProductID)
		e.FieldStart("quantity")
		e.Int(pq.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeAmount reads a decimal given either as a JSON number or as a numeric
// string.
func DecodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(raw))
	default:
		return decimal.Decimal{}, errors.Errorf("expected number, got %s", d.Next())
	}
}

// EncodeAmount writes a decimal as a string with two fractional digits.
func EncodeAmount(e *jx.Encoder, v decimal.Decimal) {
	e.Str(money.Format(v))
}

// DecodeUUID reads a UUID string.
func DecodeUUID(d *jx.Decoder) (uuid.UUID, error) {
	s, err := d.Str()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(s)
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeOptStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

func decodeOptTime(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeOptObj[T any](d *jx.Decoder, decode func(d *jx.Decoder) (*T, error)) (*T, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	return decode(d)
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}
