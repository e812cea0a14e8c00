package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func serveLimited(limit RateLimitFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(RateLimit(limit, zerolog.Nop()))
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_Allows(t *testing.T) {
	rec := serveLimited(func(context.Context, string) (RateDecision, error) {
		return RateDecision{Allowed: true, Limit: 5, Remaining: 4}, nil
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Fatalf("unexpected remaining header %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	rec := serveLimited(func(context.Context, string) (RateDecision, error) {
		return RateDecision{Allowed: false, Limit: 5, ResetIn: 90 * time.Second}, nil
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "90" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	rec := serveLimited(func(context.Context, string) (RateDecision, error) {
		return RateDecision{}, errors.New("redis down")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when limiter errors, got %d", rec.Code)
	}
}
