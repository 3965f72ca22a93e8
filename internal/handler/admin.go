package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/record"
)

// ListCoupons handles GET /api/coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCoupons(e, list)
	})
}

// GetCoupon handles GET /api/coupons/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCoupon(w, http.StatusOK, c)
}

// CreateCoupon handles POST /api/coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := decodeRecord(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.store.Create(r.Context(), c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.onChange()

	zctx.From(r.Context()).Info("Coupon created",
		zap.Stringer("coupon_id", created.ID),
		zap.String("code", created.Code),
		zap.String("type", string(created.Type())),
	)
	writeCoupon(w, http.StatusCreated, created)
}

// UpdateCoupon handles PUT /api/coupons/{id}. The whole definition is
// replaced.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := decodeRecord(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.store.Update(r.Context(), id, c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.onChange()

	zctx.From(r.Context()).Info("Coupon updated",
		zap.Stringer("coupon_id", updated.ID),
		zap.String("code", updated.Code),
	)
	writeCoupon(w, http.StatusOK, updated)
}

// DeleteCoupon handles DELETE /api/coupons/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.onChange()

	zctx.From(r.Context()).Info("Coupon deleted", zap.Stringer("coupon_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func writeCoupon(w http.ResponseWriter, status int, c *coupon.Coupon) {
	writeJSON(w, status, func(e *jx.Encoder) {
		record.FromCoupon(c).Encode(e)
	})
}
