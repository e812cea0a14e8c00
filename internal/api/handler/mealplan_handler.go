package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

const dateLayout = "2006-01-02"

// MealPlanHandler serves the weekly meal planner.
type MealPlanHandler struct {
	service ports.MealPlanService
	now     func() time.Time
}

func NewMealPlanHandler(service ports.MealPlanService) *MealPlanHandler {
	return &MealPlanHandler{service: service, now: time.Now}
}

// planDate parses an optional YYYY-MM-DD date, defaulting to today.
func (h *MealPlanHandler) planDate(raw string) (time.Time, error) {
	if raw == "" {
		return h.now().UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "date must be in the form YYYY-MM-DD")
	}
	return t, nil
}

// Get handles GET /api/meal-plans.
//
// @Summary      Meal plan for a week
// @Tags         meal-plans
// @Produce      json
// @Security     BearerAuth
// @Param        date  query     string  false  "Any date in the week (YYYY-MM-DD), defaults to today"
// @Success      200   {object}  mealPlanResponse
// @Router       /api/meal-plans [get]
func (h *MealPlanHandler) Get(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var q mealPlanQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	date, err := h.planDate(q.Date)
	if err != nil {
		return err
	}

	plan, err := h.service.GetWeek(c.Request().Context(), actor.UserID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mealPlanResponse{MealPlan: plan})
}

// SetSlot handles PUT /api/meal-plans/slots.
//
// @Summary      Assign a recipe to a day and slot
// @Tags         meal-plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      setSlotRequest  true  "Cell and recipe"
// @Success      200   {object}  mealPlanResponse
// @Failure      400   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Router       /api/meal-plans/slots [put]
func (h *MealPlanHandler) SetSlot(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var req setSlotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	date, err := h.planDate(req.Date)
	if err != nil {
		return err
	}

	plan, err := h.service.SetSlot(c.Request().Context(), actor.UserID, date, req.Day, req.Slot, req.Recipe)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mealPlanResponse{MealPlan: plan})
}

// ClearSlot handles DELETE /api/meal-plans/slots.
//
// @Summary      Clear a day and slot
// @Tags         meal-plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      clearSlotRequest  true  "Cell to clear"
// @Success      200   {object}  mealPlanResponse
// @Failure      400   {object}  map[string]any
// @Router       /api/meal-plans/slots [delete]
func (h *MealPlanHandler) ClearSlot(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var req clearSlotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	date, err := h.planDate(req.Date)
	if err != nil {
		return err
	}

	plan, err := h.service.ClearSlot(c.Request().Context(), actor.UserID, date, req.Day, req.Slot)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mealPlanResponse{MealPlan: plan})
}

// ShoppingList handles GET /api/meal-plans/shopping-list.
//
// @Summary      Aggregated ingredients of a week's plan
// @Tags         meal-plans
// @Produce      json
// @Security     BearerAuth
// @Param        date  query     string  false  "Any date in the week (YYYY-MM-DD), defaults to today"
// @Success      200   {object}  shoppingListResponse
// @Router       /api/meal-plans/shopping-list [get]
func (h *MealPlanHandler) ShoppingList(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var q mealPlanQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	date, err := h.planDate(q.Date)
	if err != nil {
		return err
	}

	items, err := h.service.ShoppingList(c.Request().Context(), actor.UserID, date)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.ShoppingItem{}
	}
	return c.JSON(http.StatusOK, shoppingListResponse{
		WeekStart: domain.NormalizeWeekStart(date),
		Items:     items,
	})
}
