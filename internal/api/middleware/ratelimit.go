package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/api/metrics"
)

// RateDecision is the outcome of one limiter check.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RateLimitFunc counts one hit for key.
type RateLimitFunc func(ctx context.Context, key string) (RateDecision, error)

type rateLimitedResponse struct {
	Message string `json:"message"`
}

// RateLimit rejects requests from a client IP once its window is exhausted.
// Limiter failures are logged and the request is let through.
func RateLimit(limit RateLimitFunc, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d, err := limit(c.Request().Context(), c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("ip", c.RealIP()).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				metrics.RateLimitedTotal.Inc()
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.ResetIn.Seconds()))))
				return c.JSON(http.StatusTooManyRequests, rateLimitedResponse{
					Message: "Too many requests, please try again later",
				})
			}
			return next(c)
		}
	}
}
