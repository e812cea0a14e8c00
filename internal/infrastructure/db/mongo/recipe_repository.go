package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartrecipehub/recipe-hub/internal/core/domain"
	"github.com/smartrecipehub/recipe-hub/internal/core/ports"
)

const (
	collectionRecipes = "recipes"

	// maxMutateAttempts bounds the compare-and-swap retries of Mutate.
	maxMutateAttempts = 5
)

// sortColumns maps the public sort names onto stored field names.
var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"averageRating": "average_rating",
	"views":         "views",
	"totalTime":     "total_time",
	"title":         "title",
	"totalRatings":  "total_ratings",
}

type RecipeRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewRecipeRepository(db *mongo.Database) *RecipeRepository {
	return &RecipeRepository{
		col: db.Collection(collectionRecipes),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// listedFilter matches recipes visible in public listings.
func listedFilter() bson.M {
	return bson.M{"is_approved": true, "is_published": true}
}

// BuildListFilter translates a RecipeFilter into a Mongo query. Approval and
// publication are always required; free text is regex-escaped.
func BuildListFilter(f ports.RecipeFilter) bson.M {
	filter := listedFilter()

	if f.Category != "" && f.Category != domain.CategoryAll {
		filter["category"] = f.Category
	}
	if len(f.DietaryTags) > 0 {
		filter["dietary_tags"] = bson.M{"$in": f.DietaryTags}
	}
	if f.Difficulty != "" {
		filter["difficulty"] = f.Difficulty
	}
	if f.Author != "" {
		filter["author"] = f.Author
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"ingredients.name": re},
			bson.M{"tags": re},
		}
	}
	return filter
}

// BuildSort returns the sort document for a public sort name, falling back to
// creation time. _id breaks ties so pages are stable.
func BuildSort(sortBy string, desc bool) bson.D {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: column, Value: dir}, {Key: "_id", Value: dir}}
}

func (r *RecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := domain.PrepareForPersist(*recipe, r.now())
	doc.ID = primitive.NewObjectID().Hex()
	doc.Views = 0
	doc.Version = 1

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert recipe: %w", err)
	}
	return &doc, nil
}

func (r *RecipeRepository) FindByID(ctx context.Context, id string) (*domain.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var recipe domain.Recipe
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&recipe); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, fmt.Errorf("find recipe %s: %w", id, err)
	}
	return &recipe, nil
}

func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Recipe, error) {
	if len(ids) == 0 {
		return []*domain.Recipe{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *RecipeRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find recipes: %w", err)
	}
	defer cur.Close(ctx)

	recipes := []*domain.Recipe{}
	if err := cur.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	return recipes, nil
}

type (
	recipeLoader  func(ctx context.Context) (*domain.Recipe, error)
	recipeSwapper func(ctx context.Context, expectedVersion int64, next *domain.Recipe) (bool, error)
)

// mutateWithRetry loads the document, applies fn to a copy, derives fields and
// swaps it in if the stored version is still the one read. A lost race reloads
// and reapplies fn, up to attempts times.
func mutateWithRetry(
	ctx context.Context,
	attempts int,
	load recipeLoader,
	swap recipeSwapper,
	fn ports.RecipeMutation,
	now func() time.Time,
) (*domain.Recipe, error) {
	for i := 0; i < attempts; i++ {
		current, err := load(ctx)
		if err != nil {
			return nil, err
		}

		working := *current
		if err := fn(&working); err != nil {
			return nil, err
		}

		next := domain.PrepareForPersist(working, now())
		next.ID = current.ID
		next.Version = current.Version + 1

		ok, err := swap(ctx, current.Version, &next)
		if err != nil {
			return nil, err
		}
		if ok {
			return &next, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, domain.ErrConflict
}

// replaceFields returns the $set document for a versioned write. The id and the
// view counter are left out so concurrent view increments are never overwritten.
func replaceFields(r *domain.Recipe) (bson.M, error) {
	raw, err := bson.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recipe: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("unmarshal recipe: %w", err)
	}
	delete(set, "_id")
	delete(set, "views")
	return set, nil
}

func (r *RecipeRepository) Mutate(ctx context.Context, id string, fn ports.RecipeMutation) (*domain.Recipe, error) {
	load := func(ctx context.Context) (*domain.Recipe, error) {
		return r.FindByID(ctx, id)
	}

	swap := func(ctx context.Context, expected int64, next *domain.Recipe) (bool, error) {
		set, err := replaceFields(next)
		if err != nil {
			return false, err
		}

		// Fields cleared by fn must disappear from the stored document.
		unset := bson.M{}
		for _, key := range []string{"cuisine", "video_url", "nutrition_info", "published_at"} {
			if _, ok := set[key]; !ok {
				unset[key] = ""
			}
		}
		update := bson.M{"$set": set}
		if len(unset) > 0 {
			update["$unset"] = unset
		}

		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()

		var stored domain.Recipe
		err = r.col.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "version": expected},
			update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&stored)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("update recipe %s: %w", id, err)
		}
		next.Views = stored.Views
		return true, nil
	}

	return mutateWithRetry(ctx, maxMutateAttempts, load, swap, fn, r.now)
}

func (r *RecipeRepository) IncrementViews(ctx context.Context, id string) (*domain.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var recipe domain.Recipe
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&recipe)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, fmt.Errorf("increment views %s: %w", id, err)
	}
	return &recipe, nil
}

func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete recipe %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

func (r *RecipeRepository) List(ctx context.Context, q ports.RecipeQuery) ([]*domain.Recipe, int64, error) {
	filter := BuildListFilter(q.Filter)

	countCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	total, err := r.col.CountDocuments(countCtx, filter)
	cancel()
	if err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}
	if total == 0 {
		return []*domain.Recipe{}, 0, nil
	}

	skip, ok := PageSkip(q.Page, q.Limit, total)
	if !ok {
		return []*domain.Recipe{}, total, nil
	}
	opts := options.Find().
		SetSort(BuildSort(q.SortBy, q.SortDesc)).
		SetSkip(skip).
		SetLimit(int64(q.Limit))

	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// PageSkip returns the offset of a 1-based page. ok is false when the page
// starts at or past total, so callers can answer with an empty page without
// computing an offset that may overflow.
func PageSkip(page, limit int, total int64) (skip int64, ok bool) {
	if page < 1 || limit < 1 {
		return 0, false
	}
	pages := (total + int64(limit) - 1) / int64(limit)
	if int64(page-1) >= pages {
		return 0, false
	}
	return int64(page-1) * int64(limit), true
}

func (r *RecipeRepository) Popular(ctx context.Context, limit int) ([]*domain.Recipe, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "average_rating", Value: -1},
			{Key: "total_ratings", Value: -1},
			{Key: "views", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(int64(limit))
	return r.find(ctx, listedFilter(), opts)
}

func (r *RecipeRepository) FindByIngredient(ctx context.Context, name string, limit int) ([]*domain.Recipe, error) {
	filter := listedFilter()
	filter["ingredients.name"] = primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}

	opts := options.Find().
		SetSort(bson.D{{Key: "average_rating", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// EnsureIndexes creates the indexes backing the listing filters and sorts.
func (r *RecipeRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_approved", Value: 1}, {Key: "is_published", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "average_rating", Value: -1}, {Key: "total_ratings", Value: -1}, {Key: "views", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "dietary_tags", Value: 1}}},
		{Keys: bson.D{{Key: "ingredients.name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var _ ports.RecipeRepository = (*RecipeRepository)(nil)
