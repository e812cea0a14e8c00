package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
)

// errorResponse is the envelope of every 4xx/5xx response. Error carries the
// raw cause and is only filled in development.
type errorResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes, logs and reports unexpected ones, and renders errorResponse.
func NewHTTPErrorHandler(log zerolog.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err)
		if code >= http.StatusInternalServerError {
			reportError(err, log, c)
		}
		if development {
			resp.Error = err.Error()
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error) (int, errorResponse) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorResponse{Message: "Validation failed", Errors: verr.Fields}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, errorResponse{Message: "Request body too large"}
	}

	// Echo's own errors (bind failures, unknown routes, body limit).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, errorResponse{Message: "Route not found"}
		case http.StatusRequestEntityTooLarge:
			return he.Code, errorResponse{Message: "Request body too large"}
		}
		return he.Code, errorResponse{Message: fmt.Sprintf("%v", he.Message)}
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidResetToken):
		return http.StatusBadRequest, errorResponse{Message: rootMessage(err)}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Message: "Invalid email or password"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Message: "Authentication required"}
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, errorResponse{Message: "Account is deactivated"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Message: "Access forbidden"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Message: "User not found"}
	case errors.Is(err, domain.ErrRecipeNotFound):
		return http.StatusNotFound, errorResponse{Message: "Recipe not found"}
	case errors.Is(err, domain.ErrMealPlanNotFound):
		return http.StatusNotFound, errorResponse{Message: "Meal plan not found"}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, errorResponse{Message: "Email already registered"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, errorResponse{Message: "Username already taken"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Message: "Resource was modified concurrently, please retry"}
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, errorResponse{Message: "Account temporarily locked due to too many failed login attempts. Please try again later."}
	}

	return http.StatusInternalServerError, errorResponse{Message: "Internal server error"}
}

// rootMessage returns the message of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func reportError(err error, log zerolog.Logger, c echo.Context) {
	req := c.Request()
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	log.Error().
		Err(err).
		Str("method", req.Method).
		Str("path", c.Path()).
		Str("request_id", requestID).
		Msg("unhandled error")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetTag("request_id", requestID)
		scope.SetTag("route", c.Path())
		sentry.CaptureException(err)
	})
}
