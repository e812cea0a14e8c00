package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

type stubMealPlanService struct {
	ports.MealPlanService
	setFn  func(ctx context.Context, owner string, date time.Time, day, slot, recipeID string) (*domain.MealPlan, error)
	listFn func(ctx context.Context, owner string, date time.Time) ([]domain.ShoppingItem, error)
}

func (s *stubMealPlanService) SetSlot(ctx context.Context, owner string, date time.Time, day, slot, recipeID string) (*domain.MealPlan, error) {
	return s.setFn(ctx, owner, date, day, slot, recipeID)
}

func (s *stubMealPlanService) ShoppingList(ctx context.Context, owner string, date time.Time) ([]domain.ShoppingItem, error) {
	return s.listFn(ctx, owner, date)
}

func TestMealPlanHandler_SetSlot(t *testing.T) {
	e := newTestEcho()
	stub := &stubMealPlanService{
		setFn: func(ctx context.Context, owner string, date time.Time, day, slot, recipeID string) (*domain.MealPlan, error) {
			if owner != "u1" || day != "monday" || slot != "dinner" || recipeID != "r1" {
				t.Fatalf("unexpected args: %s %s %s %s", owner, day, slot, recipeID)
			}
			if !date.Equal(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected date %v", date)
			}
			plan := domain.NewMealPlan(owner, date)
			return plan, nil
		},
	}
	h := NewMealPlanHandler(stub)

	c, rec := jsonContext(e, http.MethodPut, "/api/meal-plans/slots",
		`{"date":"2024-03-13","day":"monday","slot":"dinner","recipe":"r1"}`)
	withActor(c, "u1", domain.RoleUser)

	if err := h.SetSlot(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMealPlanHandler_SetSlot_RejectsUnknownSlot(t *testing.T) {
	e := newTestEcho()
	h := NewMealPlanHandler(&stubMealPlanService{})

	c, _ := jsonContext(e, http.MethodPut, "/api/meal-plans/slots", `{"day":"funday","slot":"brunch","recipe":"r1"}`)
	withActor(c, "u1", domain.RoleUser)

	err := h.SetSlot(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
}

func TestMealPlanHandler_ShoppingList_DefaultsToToday(t *testing.T) {
	e := newTestEcho()
	today := time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)
	stub := &stubMealPlanService{
		listFn: func(ctx context.Context, owner string, date time.Time) ([]domain.ShoppingItem, error) {
			if !date.Equal(today) {
				t.Fatalf("expected today, got %v", date)
			}
			return nil, nil
		},
	}
	h := NewMealPlanHandler(stub)
	h.now = func() time.Time { return today }

	req := httptest.NewRequest(http.MethodGet, "/api/meal-plans/shopping-list", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withActor(c, "u1", domain.RoleUser)

	if err := h.ShoppingList(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		WeekStart time.Time         `json:"weekStart"`
		Items     []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Fatalf("expected empty items array, got %s", rec.Body.String())
	}
	if resp.WeekStart.Weekday() != time.Monday {
		t.Fatalf("week must start on Monday, got %v", resp.WeekStart)
	}
}

func TestMealPlanHandler_BadDate(t *testing.T) {
	e := newTestEcho()
	h := NewMealPlanHandler(&stubMealPlanService{})

	req := httptest.NewRequest(http.MethodGet, "/api/meal-plans/shopping-list?date=14-03-2024", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	withActor(c, "u1", domain.RoleUser)

	if err := h.ShoppingList(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
