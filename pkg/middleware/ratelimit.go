package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// NewRateLimiterMiddleware throttles per client IP. Burst is triple the
// sustained rate so a page load's parallel catalog fetches pass.
func NewRateLimiterMiddleware(requestsPerSecond float64) echo.MiddlewareFunc {
	burst := int(requestsPerSecond * 3)
	if burst < 1 {
		burst = 1
	}
	config := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(requestsPerSecond),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			},
		),

		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},

		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"detail": "rate limiter rejected the request",
			})
		},

		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"detail": "rate limit exceeded, slow down",
			})
		},
	}

	return middleware.RateLimiterWithConfig(config)
}
