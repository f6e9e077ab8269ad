package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SignalRelay/internal/service/ratelimit"
	"SignalRelay/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestThrottleRejectsBurstOverflow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	lim := ratelimit.NewWithClock(func() time.Time { return now })

	e := echo.New()
	e.Use(Throttle(lim, 1, 2, logger.Nop()))
	e.POST("/webhook", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleDisabledWithZeroRate(t *testing.T) {
	e := echo.New()
	e.Use(Throttle(ratelimit.New(), 0, 1, logger.Nop()))
	e.POST("/webhook", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
