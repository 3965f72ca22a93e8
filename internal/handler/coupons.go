package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// ApplicableCoupons handles POST /api/applicable-coupons.
func (h *Handler) ApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.readCart(w, r)
	if err != nil {
		h.evaluations.Add(ctx, 1, outcome("bad_request"))
		h.fail(w, r, err)
		return
	}

	list, err := h.evaluator.ApplicableCoupons(ctx, c)
	if err != nil {
		h.evaluations.Add(ctx, 1, outcome("error"))
		h.fail(w, r, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("cart.items", c.Len()),
		attribute.Int("coupon.applicable", len(list)),
	)
	h.evaluations.Add(ctx, 1, outcome("ok"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeApplicable(e, list)
	})
}

// ApplyCoupon handles POST /api/apply-coupon/{id}.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		h.applications.Add(ctx, 1, outcome("bad_request"))
		h.fail(w, r, err)
		return
	}
	c, err := h.readCart(w, r)
	if err != nil {
		h.applications.Add(ctx, 1, outcome("bad_request"))
		h.fail(w, r, err)
		return
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("coupon.id", id.String()),
		attribute.Int("cart.items", c.Len()),
	)

	dc, err := h.evaluator.Apply(ctx, id, c)
	switch {
	case err == nil:
	case errors.Is(err, coupon.ErrNotFound):
		h.applications.Add(ctx, 1, outcome("not_found"))
		writeError(w, http.StatusNotFound, "Coupon not found or not applicable to the cart", "")
		return
	case errors.Is(err, coupon.ErrNotApplicable):
		h.applications.Add(ctx, 1, outcome("not_applicable"))
		writeError(w, http.StatusNotFound, "Coupon not found or not applicable to the cart", "")
		return
	default:
		h.applications.Add(ctx, 1, outcome("error"))
		h.fail(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("coupon.discount", dc.TotalDiscount.StringFixed(2)))
	h.applications.Add(ctx, 1, outcome("applied"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeDiscountedCart(e, dc)
	})
}

func (h *Handler) readCart(w http.ResponseWriter, r *http.Request) (cart.Cart, error) {
	data, err := readBody(w, r)
	if err != nil {
		return cart.Cart{}, err
	}
	return decodeCart(data)
}
