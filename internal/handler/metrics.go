package handler

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/xenking/coupon-engine/internal/handler"

func (h *Handler) initMetrics(meter metric.Meter) error {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	var err error
	h.evaluations, err = meter.Int64Counter("coupon.evaluations",
		metric.WithDescription("Applicable coupon listings by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}
	h.applications, err = meter.Int64Counter("coupon.applications",
		metric.WithDescription("Coupon applications by coupon type and outcome"),
		metric.WithUnit("{request}"),
	)
	return err
}
