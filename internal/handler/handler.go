// Package handler exposes the coupon engine over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Evaluator is the coupon selection service.
type Evaluator interface {
	ApplicableCoupons(ctx context.Context, c cart.Cart) ([]coupon.Applicable, error)
	Apply(ctx context.Context, id uuid.UUID, c cart.Cart) (*cart.DiscountedCart, error)
}

var _ Evaluator = (*coupon.Service)(nil)

// CouponStore backs the admin API.
type CouponStore interface {
	List(ctx context.Context) ([]*coupon.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error)
	Create(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, c *coupon.Coupon) (*coupon.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Options configures optional Handler dependencies.
type Options struct {
	// Store enables the admin API. Without it the /api/coupons routes are not
	// registered.
	Store CouponStore
	// OnChange is called after every successful admin write.
	OnChange func()
	// Meter records evaluation counters. Defaults to a no-op meter.
	Meter metric.Meter
}

// Handler serves the evaluation and admin endpoints.
type Handler struct {
	evaluator Evaluator
	store     CouponStore
	onChange  func()

	evaluations  metric.Int64Counter
	applications metric.Int64Counter
}

// New creates a Handler.
func New(evaluator Evaluator, opts Options) (*Handler, error) {
	h := &Handler{
		evaluator: evaluator,
		store:     opts.Store,
		onChange:  opts.OnChange,
	}
	if h.onChange == nil {
		h.onChange = func() {}
	}
	if err := h.initMetrics(opts.Meter); err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}
	return h, nil
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/applicable-coupons", h.ApplicableCoupons)
		r.Post("/apply-coupon/{id}", h.ApplyCoupon)

		if h.store == nil {
			return
		}
		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", h.ListCoupons)
			r.Post("/", h.CreateCoupon)
			r.Get("/{id}", h.GetCoupon)
			r.Put("/{id}", h.UpdateCoupon)
			r.Delete("/{id}", h.DeleteCoupon)
		})
	})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("id", errors.Errorf("%q is not a valid UUID", raw))
	}
	return id, nil
}

// fail maps an error to its HTTP response. Unexpected errors are logged and
// reported as 500 without details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		bad  *BadRequestError
		verr *coupon.ValidationError
	)
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.Err.Error(), bad.Field)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Reason, verr.Field)
	case errors.Is(err, coupon.ErrDuplicateCode):
		writeError(w, http.StatusConflict, err.Error(), "code")
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, "coupon not found", "")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func outcome(key string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", key))
}
