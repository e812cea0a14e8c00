package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

const collectionMealPlans = "meal_plans"

type MealPlanRepository struct {
	col *mongo.Collection
}

func NewMealPlanRepository(db *mongo.Database) *MealPlanRepository {
	return &MealPlanRepository{col: db.Collection(collectionMealPlans)}
}

func weekKey(owner string, weekStart time.Time) bson.M {
	return bson.M{"owner": owner, "week_start": domain.NormalizeWeekStart(weekStart)}
}

func (r *MealPlanRepository) FindByWeek(ctx context.Context, owner string, weekStart time.Time) (*domain.MealPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var plan domain.MealPlan
	if err := r.col.FindOne(ctx, weekKey(owner, weekStart)).Decode(&plan); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMealPlanNotFound
		}
		return nil, fmt.Errorf("find meal plan: %w", err)
	}
	return &plan, nil
}

// Save writes the plan's entries guarded by its version. A first save inserts
// the document and relies on the owner/week unique index to detect a
// concurrent first save; later saves match on the expected version.
func (r *MealPlanRepository) Save(ctx context.Context, plan *domain.MealPlan) (*domain.MealPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	entries := plan.Entries
	if entries == nil {
		entries = []domain.MealEntry{}
	}

	if plan.ID == "" {
		createdAt := plan.CreatedAt
		if createdAt.IsZero() {
			createdAt = plan.UpdatedAt
		}
		doc := domain.MealPlan{
			ID:        primitive.NewObjectID().Hex(),
			Owner:     plan.Owner,
			WeekStart: domain.NormalizeWeekStart(plan.WeekStart),
			Entries:   entries,
			CreatedAt: createdAt.UTC(),
			UpdatedAt: plan.UpdatedAt.UTC(),
			Version:   1,
		}
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrConflict
			}
			return nil, fmt.Errorf("insert meal plan: %w", err)
		}
		return &doc, nil
	}

	filter := weekKey(plan.Owner, plan.WeekStart)
	filter["version"] = plan.Version
	update := bson.M{
		"$set": bson.M{
			"entries":    entries,
			"updated_at": plan.UpdatedAt.UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	var saved domain.MealPlan
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&saved)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("save meal plan: %w", err)
	}
	return &saved, nil
}

// EnsureIndexes enforces one plan per owner and week.
func (r *MealPlanRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "week_start", Value: 1}},
		Options: options.Index().SetName("uniq_owner_week").SetUnique(true),
	})
	return err
}

var _ ports.MealPlanRepository = (*MealPlanRepository)(nil)
