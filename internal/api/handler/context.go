package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/smartrecipehub/recipe-hub/internal/api/middleware"
	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// actorFrom returns the caller injected by the auth middleware. Anonymous
// requests yield the zero Actor.
func actorFrom(c echo.Context) ports.Actor {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	return ports.Actor{UserID: userID, Role: role}
}

// requireActor fails fast with ErrUnauthorized when no authenticated caller
// is present, which means the route was registered without the auth middleware.
func requireActor(c echo.Context) (ports.Actor, error) {
	actor := actorFrom(c)
	if actor.UserID == "" {
		return ports.Actor{}, domain.ErrUnauthorized
	}
	return actor, nil
}

// bindAndValidate decodes the request into req and runs the struct validator.
// Malformed bodies are reported as a validation error on "body".
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "invalid request payload")
	}
	return c.Validate(req)
}
