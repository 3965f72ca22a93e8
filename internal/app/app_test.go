package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/db"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/handler"
	"github.com/xenking/coupon-engine/internal/repository"
	"github.com/xenking/coupon-engine/pkg/health"
	"github.com/xenking/coupon-engine/pkg/httpmiddleware"
)

const seedCart = `{"items":[{"product_id":1,"quantity":6,"price":50},{"product_id":2,"quantity":2,"price":30}]}`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	require.NoError(t, os.WriteFile(path, db.SeedCatalog, 0o600))
	return path
}

func newTestRouter(t *testing.T, rateLimit httpmiddleware.Middleware) (http.Handler, *health.Health) {
	t.Helper()
	src, err := openCatalog(context.Background(), zap.NewNop(), &Config{CatalogFile: writeSeed(t)})
	require.NoError(t, err)
	require.Nil(t, src.store)
	t.Cleanup(src.close)

	catalog := repository.NewCachedCatalog(src.catalog, 0)
	h, err := handler.New(coupon.NewService(catalog), handler.Options{OnChange: catalog.Invalidate})
	require.NoError(t, err)

	hs := health.New(nil)
	hs.AddReadinessCheck("catalog", catalog.Check)
	hs.SetReady(true)

	return newRouter(routes{
		lg:        zap.NewNop(),
		health:    hs,
		api:       h,
		rateLimit: rateLimit,
	}), hs
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "198.51.100.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	r, _ := newTestRouter(t, httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{}))

	for _, tt := range []struct {
		name   string
		method string
		path   string
		body   string
		status int
		substr string
	}{
		{name: "Livez", method: http.MethodGet, path: "/livez", status: http.StatusOK, substr: `"ok"`},
		{name: "Readyz", method: http.MethodGet, path: "/readyz", status: http.StatusOK, substr: `"ok"`},
		{
			name:   "Applicable",
			method: http.MethodPost,
			path:   "/api/applicable-coupons",
			body:   seedCart,
			status: http.StatusOK,
			substr: `"code":"B2G1"`,
		},
		{
			name:   "TrailingSlash",
			method: http.MethodPost,
			path:   "/api/applicable-coupons/",
			body:   seedCart,
			status: http.StatusOK,
			substr: `"code":"CART10"`,
		},
		{
			name:   "AdminDisabledForFileCatalog",
			method: http.MethodGet,
			path:   "/api/coupons",
			status: http.StatusNotFound,
		},
		{
			name:   "UnknownCoupon",
			method: http.MethodPost,
			path:   "/api/apply-coupon/6f1c2b8e-55a4-4a53-9d1e-0c7b1d3f1a22",
			body:   seedCart,
			status: http.StatusNotFound,
			substr: "Coupon not found or not applicable to the cart",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.substr)
			assert.NotEmpty(t, w.Header().Get(httpmiddleware.RequestIDHeader))
		})
	}
}

func TestRouter_NotReady(t *testing.T) {
	r, hs := newTestRouter(t, httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{}))
	hs.SetReady(false)

	w := do(r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "_readiness")
}

func TestRouter_RateLimitSparesProbes(t *testing.T) {
	r, _ := newTestRouter(t, httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{RPS: 0.001, Burst: 1}))

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/applicable-coupons", seedCart).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/api/applicable-coupons", seedCart).Code)

	for range 3 {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/livez", "").Code)
	}
}

func TestOpenCatalog_MissingFile(t *testing.T) {
	_, err := openCatalog(context.Background(), zap.NewNop(), &Config{
		CatalogFile: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), err.Error())
}
