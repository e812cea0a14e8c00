package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

// AdminHandler serves moderation endpoints. Routes must be guarded by RBAC.
type AdminHandler struct {
	recipes ports.RecipeService
	auth    ports.AuthService
	log     zerolog.Logger
}

func NewAdminHandler(recipes ports.RecipeService, auth ports.AuthService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{recipes: recipes, auth: auth, log: log}
}

// SetApproval handles PATCH /api/admin/recipes/:id/approval.
//
// @Summary      Approve or hide a recipe
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Recipe id"
// @Param        body  body      approvalRequest  true  "Approval flag"
// @Success      200   {object}  recipeResponse
// @Failure      403   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Router       /api/admin/recipes/{id}/approval [patch]
func (h *AdminHandler) SetApproval(c echo.Context) error {
	var req approvalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	recipe, err := h.recipes.SetApproval(c.Request().Context(), c.Param("id"), *req.Approved)
	if err != nil {
		return err
	}
	h.log.Info().Str("admin", actorFrom(c).UserID).Str("recipe_id", recipe.ID).Bool("approved", *req.Approved).Msg("recipe moderated")
	return c.JSON(http.StatusOK, recipeResponse{Recipe: recipe})
}

// SetUserStatus handles PATCH /api/admin/users/:id/status.
//
// @Summary      Activate or deactivate a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      userStatusRequest  true  "Active flag"
// @Success      200   {object}  userResponse
// @Failure      403   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Router       /api/admin/users/{id}/status [patch]
func (h *AdminHandler) SetUserStatus(c echo.Context) error {
	var req userStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.SetUserActive(c.Request().Context(), c.Param("id"), *req.Active)
	if err != nil {
		return err
	}
	h.log.Info().Str("admin", actorFrom(c).UserID).Str("user_id", user.ID).Bool("active", *req.Active).Msg("user status changed")
	return c.JSON(http.StatusOK, userResponse{User: user})
}
