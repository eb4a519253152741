package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMiddleware_LimitsPerIP(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Every(time.Hour), 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/connect", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("198.51.100.7:1000"))
	assert.Equal(t, http.StatusOK, do("198.51.100.7:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("198.51.100.7:1002"))
	assert.Equal(t, http.StatusOK, do("198.51.100.8:1000"))

	cancel()
}

func TestSweep_DropsIdleLimiters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Every(time.Second), 1)
	l.GetLimiter("idle")
	l.GetLimiter("busy").Allow()

	removed, remaining := l.sweep(time.Now())

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, remaining)
}
