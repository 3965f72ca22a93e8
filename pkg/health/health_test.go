package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background(), zap.NewNop())
	}
}

func TestLiveEndpoint(t *testing.T) {
	for _, tt := range []struct {
		name   string
		checks map[string]CheckFunc
		runs   int
		status int
		body   string
	}{
		{
			name:   "NoChecks",
			status: http.StatusOK,
			body:   `{"status":"ok"}`,
		},
		{
			name:   "AllPassing",
			checks: map[string]CheckFunc{"a": passing, "b": passing},
			runs:   3,
			status: http.StatusOK,
			body:   `{"status":"ok"}`,
		},
		{
			name:   "HealthyUntilFirstRun",
			checks: map[string]CheckFunc{"db": failing("connection refused")},
			status: http.StatusOK,
			body:   `{"status":"ok"}`,
		},
		{
			name:   "BelowThreshold",
			checks: map[string]CheckFunc{"db": failing("connection refused")},
			runs:   2,
			status: http.StatusOK,
			body:   `{"status":"ok"}`,
		},
		{
			name:   "Failing",
			checks: map[string]CheckFunc{"db": failing("connection refused"), "gc": passing},
			runs:   3,
			status: http.StatusServiceUnavailable,
			body:   `{"status":"unhealthy","checks":{"db":"connection refused"}}`,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := New(nil)
			for name, fn := range tt.checks {
				h.AddLivenessCheck(name, fn)
			}
			for _, c := range h.liveness {
				runN(c, tt.runs)
			}

			w := get(t, h.LiveEndpoint)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("NotMarkedReady", func(t *testing.T) {
		h := New(nil)
		h.AddReadinessCheck("catalog", passing)

		w := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	})
	t.Run("ReadyThenDraining", func(t *testing.T) {
		h := New(nil)
		h.AddReadinessCheck("catalog", passing)
		h.SetReady(true)
		assert.Equal(t, http.StatusOK, get(t, h.ReadyEndpoint).Code)

		h.SetReady(false)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, h.ReadyEndpoint).Code)
	})
	t.Run("OneFailing", func(t *testing.T) {
		h := New(nil)
		h.AddReadinessCheck("postgres", passing)
		h.AddReadinessCheck("catalog", failing("snapshot stale"))
		h.SetReady(true)
		runN(h.readiness[1], 3)

		w := get(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"catalog":"snapshot stale"}}`, w.Body.String())
	})
	t.Run("FailuresSorted", func(t *testing.T) {
		h := New(nil)
		h.AddReadinessCheck("zeta", failing("z"), WithThresholds(1, 1))
		h.AddReadinessCheck("alpha", failing("a"), WithThresholds(1, 1))
		runN(h.readiness[0], 1)
		runN(h.readiness[1], 1)

		w := get(t, h.ReadyEndpoint)
		assert.Equal(t,
			`{"status":"unhealthy","checks":{"_readiness":"service is not ready","alpha":"a","zeta":"z"}}`,
			w.Body.String(),
		)
	})
}

func TestIsReady(t *testing.T) {
	h := New(nil)
	h.AddReadinessCheck("postgres", failing("down"), WithThresholds(1, 2))
	assert.False(t, h.IsReady(), "not marked ready")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	runN(h.readiness[0], 1)
	assert.False(t, h.IsReady(), "failing check")

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheck_Thresholds(t *testing.T) {
	down := true
	h := New(nil)
	h.AddLivenessCheck("flaky", func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(2, 2))
	c := h.liveness[0]

	runN(c, 1)
	assert.True(t, c.isHealthy())
	runN(c, 1)
	assert.False(t, c.isHealthy())
	assert.EqualError(t, c.lastError(), "down")

	down = false
	runN(c, 1)
	assert.False(t, c.isHealthy(), "one pass is below the success threshold")
	runN(c, 1)
	assert.True(t, c.isHealthy())
	assert.NoError(t, c.lastError())
}

func TestCheck_Timeout(t *testing.T) {
	h := New(nil)
	h.AddReadinessCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	runN(h.readiness[0], 1)
	assert.ErrorIs(t, h.readiness[0].lastError(), context.DeadlineExceeded)
}

func TestCheck_LogsTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := New(zap.New(core))
	fail := true
	h.AddReadinessCheck("postgres", func(context.Context) error {
		if fail {
			return errors.New("refused")
		}
		return nil
	}, WithThresholds(1, 1))
	c := h.readiness[0]

	c.run(context.Background(), h.lg)
	c.run(context.Background(), h.lg)
	fail = false
	c.run(context.Background(), h.lg)
	c.run(context.Background(), h.lg)

	entries := logs.All()
	require.Len(t, entries, 2, "only state changes are logged")
	assert.Equal(t, "Health check failing", entries[0].Message)
	assert.Equal(t, "postgres", entries[0].ContextMap()["check"])
	assert.Equal(t, "Health check recovered", entries[1].Message)
}

func TestStartStop(t *testing.T) {
	h := New(nil)
	ran := make(chan struct{}, 1)
	h.AddLivenessCheck("tick", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	h.Start(context.Background(), time.Hour)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check did not run on start")
	}
	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New(nil)
	h.AddLivenessCheck("live", failing("err"))
	h.AddReadinessCheck("ready", passing)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
