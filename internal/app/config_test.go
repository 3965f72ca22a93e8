package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "COUPON",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig(t *testing.T) {
	for _, tt := range []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
		err   string
	}{
		{
			name: "Defaults",
			env:  map[string]string{"COUPON_CATALOG_FILE": "coupons.yaml"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
				assert.Equal(t, "coupons.yaml", cfg.CatalogFile)
				assert.Equal(t, 30*time.Second, cfg.CatalogTTL)
				assert.Equal(t, 50.0, cfg.RateLimit.RPS)
				assert.Equal(t, 100, cfg.RateLimit.Burst)
				assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
				assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
			},
		},
		{
			name: "Overrides",
			env: map[string]string{
				"COUPON_DATABASE_URL":     "postgres://db/coupon",
				"COUPON_ADDR":             "127.0.0.1:9000",
				"COUPON_CATALOG_TTL":      "5s",
				"COUPON_RATE_LIMIT_RPS":   "0",
				"COUPON_RATE_LIMIT_BURST": "7",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://db/coupon", cfg.DatabaseURL)
				assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
				assert.Equal(t, 5*time.Second, cfg.CatalogTTL)
				assert.Zero(t, cfg.RateLimit.RPS)
				assert.Equal(t, 7, cfg.RateLimit.Burst)
			},
		},
		{
			name: "PlatformDefaults",
			env: map[string]string{
				"DATABASE_URL": "postgres://platform/coupon",
				"PORT":         "3000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://platform/coupon", cfg.DatabaseURL)
				assert.Equal(t, "0.0.0.0:3000", cfg.Addr)
			},
		},
		{
			name: "PrefixedWinsOverPlatform",
			env: map[string]string{
				"COUPON_DATABASE_URL": "postgres://mine/coupon",
				"COUPON_ADDR":         "127.0.0.1:9000",
				"DATABASE_URL":        "postgres://platform/coupon",
				"PORT":                "3000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://mine/coupon", cfg.DatabaseURL)
				assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
			},
		},
		{
			name: "NoCatalog",
			err:  "coupon catalog is required",
		},
		{
			name: "NegativeTTL",
			env: map[string]string{
				"COUPON_CATALOG_FILE": "coupons.yaml",
				"COUPON_CATALOG_TTL":  "-1s",
			},
			err: "must not be negative",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("PORT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(testLoader())
			if tt.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
