package mongo

import (
	"context"
	"errors"
	"fmt"
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
	collectionUsers = "users"

	indexUserEmail    = "uniq_email"
	indexUserUsername = "uniq_username_ci"
)

// caseInsensitive matches strings ignoring case; the username index is built with it.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Username           string             `bson:"username"`
	Email              string             `bson:"email"`
	PasswordHash       string             `bson:"password_hash"`
	Role               string             `bson:"role"`
	ProfileImage       string             `bson:"profile_image"`
	Bio                string             `bson:"bio,omitempty"`
	Location           string             `bson:"location,omitempty"`
	Website            string             `bson:"website,omitempty"`
	DietaryPreferences []string           `bson:"dietary_preferences"`
	SavedRecipes       []string           `bson:"saved_recipes"`
	UploadedRecipes    []string           `bson:"uploaded_recipes"`
	Followers          []string           `bson:"followers"`
	Following          []string           `bson:"following"`
	IsVerified         bool               `bson:"is_verified"`
	IsActive           bool               `bson:"is_active"`
	LoginAttempts      int                `bson:"login_attempts"`
	LockUntil          *time.Time         `bson:"lock_until,omitempty"`
	LastLogin          *time.Time         `bson:"last_login,omitempty"`
	ResetTokenHash     string             `bson:"reset_token_hash,omitempty"`
	ResetTokenExpires  *time.Time         `bson:"reset_token_expires,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		Username:           u.Username,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		ProfileImage:       u.ProfileImage,
		Bio:                u.Bio,
		Location:           u.Location,
		Website:            u.Website,
		DietaryPreferences: emptyIfNil(u.DietaryPreferences),
		SavedRecipes:       emptyIfNil(u.SavedRecipes),
		UploadedRecipes:    emptyIfNil(u.UploadedRecipes),
		Followers:          emptyIfNil(u.Followers),
		Following:          emptyIfNil(u.Following),
		IsVerified:         u.IsVerified,
		IsActive:           u.IsActive,
		CreatedAt:          u.CreatedAt.UTC(),
		UpdatedAt:          u.UpdatedAt.UTC(),
	}
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                 mu.ID.Hex(),
		Username:           mu.Username,
		Email:              mu.Email,
		PasswordHash:       mu.PasswordHash,
		Role:               mu.Role,
		ProfileImage:       mu.ProfileImage,
		Bio:                mu.Bio,
		Location:           mu.Location,
		Website:            mu.Website,
		DietaryPreferences: emptyIfNil(mu.DietaryPreferences),
		SavedRecipes:       emptyIfNil(mu.SavedRecipes),
		UploadedRecipes:    emptyIfNil(mu.UploadedRecipes),
		Followers:          emptyIfNil(mu.Followers),
		Following:          emptyIfNil(mu.Following),
		IsVerified:         mu.IsVerified,
		IsActive:           mu.IsActive,
		LoginAttempts:      mu.LoginAttempts,
		LockUntil:          mu.LockUntil,
		LastLogin:          mu.LastLogin,
		ResetTokenHash:     mu.ResetTokenHash,
		ResetTokenExpires:  mu.ResetTokenExpires,
		CreatedAt:          mu.CreatedAt,
		UpdatedAt:          mu.UpdatedAt,
	}
}

func userObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrUserNotFound
	}
	return oid, nil
}

// Create inserts a new user. Violations of the unique email or username index
// are reported as ErrEmailTaken or ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	doc.ID = primitive.NewObjectID()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), indexUserUsername) {
				return nil, domain.ErrUsernameTaken
			}
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter, opts...).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := userObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, options.FindOne().SetCollation(caseInsensitive))
}

func (r *UserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, bson.M{
		"reset_token_hash":    hash,
		"reset_token_expires": bson.M{"$gt": now.UTC()},
	})
}

// updateByID applies update to a single user and returns the updated document.
func (r *UserRepository) updateByID(ctx context.Context, id string, update bson.M) (*domain.User, error) {
	oid, err := userObjectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if set, ok := update["$set"].(bson.M); ok {
		set["updated_at"] = time.Now().UTC()
	} else {
		update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	}

	var mu mongoUser
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p ports.ProfilePatch) (*domain.User, error) {
	set := bson.M{}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.Website != nil {
		set["website"] = *p.Website
	}
	if p.ProfileImage != nil {
		set["profile_image"] = *p.ProfileImage
	}
	if p.DietaryPreferences != nil {
		set["dietary_preferences"] = emptyIfNil(*p.DietaryPreferences)
	}
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *UserRepository) SetPassword(ctx context.Context, id, hash string) error {
	_, err := r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password_hash": hash, "login_attempts": 0},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expires": "", "lock_until": ""},
	})
	return err
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	_, err := r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"reset_token_hash": hash, "reset_token_expires": expires.UTC()},
	})
	return err
}

func (r *UserRepository) SetRole(ctx context.Context, id, role string) error {
	_, err := r.updateByID(ctx, id, bson.M{"$set": bson.M{"role": role}})
	return err
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"is_active": active}})
}

func (r *UserRepository) IncrementLoginAttempts(ctx context.Context, id string) (int, error) {
	u, err := r.updateByID(ctx, id, bson.M{"$inc": bson.M{"login_attempts": 1}})
	if err != nil {
		return 0, err
	}
	return u.LoginAttempts, nil
}

func (r *UserRepository) RestartLoginAttempts(ctx context.Context, id string) error {
	_, err := r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"login_attempts": 1},
		"$unset": bson.M{"lock_until": ""},
	})
	return err
}

func (r *UserRepository) LockUntil(ctx context.Context, id string, until time.Time) error {
	_, err := r.updateByID(ctx, id, bson.M{"$set": bson.M{"lock_until": until.UTC()}})
	return err
}

func (r *UserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"login_attempts": 0, "last_login": at.UTC()},
		"$unset": bson.M{"lock_until": ""},
	})
	return err
}

func (r *UserRepository) AddUploadedRecipe(ctx context.Context, userID, recipeID string) error {
	_, err := r.updateByID(ctx, userID, bson.M{"$addToSet": bson.M{"uploaded_recipes": recipeID}})
	return err
}

func (r *UserRepository) RemoveRecipeReferences(ctx context.Context, recipeID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"uploaded_recipes": recipeID},
		bson.M{"saved_recipes": recipeID},
	}}
	update := bson.M{"$pull": bson.M{"uploaded_recipes": recipeID, "saved_recipes": recipeID}}
	if _, err := r.col.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("unlink recipe %s: %w", recipeID, err)
	}
	return nil
}

func (r *UserRepository) AddSavedRecipe(ctx context.Context, userID, recipeID string) error {
	_, err := r.updateByID(ctx, userID, bson.M{"$addToSet": bson.M{"saved_recipes": recipeID}})
	return err
}

func (r *UserRepository) RemoveSavedRecipe(ctx context.Context, userID, recipeID string) error {
	_, err := r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"saved_recipes": recipeID}})
	return err
}

// Follow records the edge on both documents, follower side last so a failure
// never leaves a user following someone who does not list them.
func (r *UserRepository) Follow(ctx context.Context, userID, targetID string) error {
	if _, err := r.updateByID(ctx, targetID, bson.M{"$addToSet": bson.M{"followers": userID}}); err != nil {
		return err
	}
	_, err := r.updateByID(ctx, userID, bson.M{"$addToSet": bson.M{"following": targetID}})
	return err
}

func (r *UserRepository) Unfollow(ctx context.Context, userID, targetID string) error {
	if _, err := r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"following": targetID}}); err != nil {
		return err
	}
	_, err := r.updateByID(ctx, targetID, bson.M{"$pull": bson.M{"followers": userID}})
	return err
}

// EnsureIndexes creates the unique email and case-insensitive username indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexUserEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(indexUserUsername).SetUnique(true).SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var _ ports.UserRepository = (*UserRepository)(nil)
