package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/record"
)

const maxBodySize = 1 << 20

// BadRequestError reports a malformed request body or parameter.
type BadRequestError struct {
	Field string
	Err   error
}

func (e *BadRequestError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *BadRequestError) Unwrap() error {
	return e.Err
}

func badRequest(field string, err error) error {
	return &BadRequestError{Field: field, Err: err}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, badRequest("", errors.Wrap(err, "read body"))
	}
	if len(data) == 0 {
		return nil, badRequest("", errors.New("empty request body"))
	}
	return data, nil
}

// decodeCart reads {"items": [...]} and validates it into a cart.Cart.
func decodeCart(data []byte) (cart.Cart, error) {
	var (
		items    []cart.Item
		hasItems bool
	)
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "items" {
			return d.Skip()
		}
		hasItems = true
		return d.Arr(func(d *jx.Decoder) error {
			item, err := decodeItem(d, len(items))
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	}); err != nil {
		var bad *BadRequestError
		if errors.As(err, &bad) {
			return cart.Cart{}, bad
		}
		return cart.Cart{}, badRequest("", errors.Wrap(err, "decode cart"))
	}
	if !hasItems {
		return cart.Cart{}, badRequest("items", errors.New("this field is required"))
	}

	c, err := cart.New(items)
	if err != nil {
		var itemErr *cart.ItemError
		if errors.As(err, &itemErr) {
			return cart.Cart{}, badRequest(itemField(itemErr.Index), itemErr.Err)
		}
		return cart.Cart{}, badRequest("items", err)
	}
	return c, nil
}

func itemField(i int) string {
	return "items[" + strconv.Itoa(i) + "]"
}

func decodeItem(d *jx.Decoder, index int) (cart.Item, error) {
	const (
		seenProduct = 1 << iota
		seenQuantity
		seenPrice
	)

	var (
		item cart.Item
		seen int
	)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "product_id":
			seen |= seenProduct
			item.ProductID, err = d.Int64()
		case "quantity":
			seen |= seenQuantity
			item.Quantity, err = d.Int()
		case "price":
			seen |= seenPrice
			item.Price, err = record.DecodeAmount(d)
		case "category":
			item.Category, err = optStr(d)
		case "brand":
			item.Brand, err = optStr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return badRequest(itemField(index)+"."+string(key), err)
		}
		return nil
	}); err != nil {
		return cart.Item{}, err
	}

	switch {
	case seen&seenProduct == 0:
		return cart.Item{}, badRequest(itemField(index)+".product_id", errors.New("this field is required"))
	case seen&seenQuantity == 0:
		return cart.Item{}, badRequest(itemField(index)+".quantity", errors.New("this field is required"))
	case seen&seenPrice == 0:
		return cart.Item{}, badRequest(itemField(index)+".price", errors.New("this field is required"))
	}
	return item, nil
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodeRecord reads an admin coupon definition.
func decodeRecord(data []byte) (*coupon.Coupon, error) {
	var rec record.Record
	if err := rec.Decode(jx.DecodeBytes(data)); err != nil {
		return nil, badRequest("", errors.Wrap(err, "decode coupon"))
	}
	return rec.Coupon()
}

func encodeDiscountedCart(e *jx.Encoder, dc *cart.DiscountedCart) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range dc.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		record.EncodeAmount(e, it.Price)
		e.FieldStart("total_discount")
		record.EncodeAmount(e, it.TotalDiscount)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total_price")
	record.EncodeAmount(e, dc.TotalPrice)
	e.FieldStart("total_discount")
	record.EncodeAmount(e, dc.TotalDiscount)
	e.FieldStart("final_price")
	record.EncodeAmount(e, dc.FinalPrice)
	e.ObjEnd()
}

func encodeApplicable(e *jx.Encoder, list []coupon.Applicable) {
	e.ObjStart()
	e.FieldStart("applicable_coupons")
	e.ArrStart()
	for _, a := range list {
		e.ObjStart()
		e.FieldStart("coupon_id")
		e.Str(a.CouponID.String())
		e.FieldStart("type")
		e.Str(string(a.Type))
		e.FieldStart("name")
		e.Str(a.Name)
		e.FieldStart("code")
		e.Str(a.Code)
		e.FieldStart("discount")
		record.EncodeAmount(e, a.Discount)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeCoupons(e *jx.Encoder, list []*coupon.Coupon) {
	e.ArrStart()
	for _, c := range list {
		record.FromCoupon(c).Encode(e)
	}
	e.ArrEnd()
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)
		if field != "" {
			e.FieldStart("field")
			e.Str(field)
		}
		e.ObjEnd()
	})
}
