package middleware

import (
	"sync/atomic"
	"time"

	"SignalRelay/internal/service/ratelimit"
	xhttp "SignalRelay/pkg/http"
	"SignalRelay/pkg/logger"

	"github.com/labstack/echo/v4"
)

// pruneEvery bounds how many requests pass between idle-bucket sweeps.
const pruneEvery = 1024

// Throttle limits requests per remote IP with a token bucket of size burst
// refilled at ratePerSec. Rejected requests get 429 and never reach next.
func Throttle(l *ratelimit.Limiter, ratePerSec, burst float64, log *logger.Logger) echo.MiddlewareFunc {
	if burst < 1 {
		burst = 1
	}
	var seen atomic.Uint64
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ratePerSec <= 0 {
				return next(c)
			}
			ip := c.RealIP()
			if !l.Allow(ip, burst, ratePerSec) {
				log.Warn("webhook throttled", logger.String("remote", ip), logger.String("path", c.Path()))
				return xhttp.AppErrorResponse(c, xhttp.RateLimitedError())
			}
			if seen.Add(1)%pruneEvery == 0 {
				l.Prune(10 * time.Minute)
			}
			return next(c)
		}
	}
}
