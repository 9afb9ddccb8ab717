package users

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateEmail is returned by Create when the address is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// ListFilter narrows user listings and counts. Zero values mean "any".
type ListFilter struct {
	Role         string
	Search       string
	Suspended    *bool
	Admin        *bool
	CreatedSince time.Time
	Page         int
	Limit        int
}

// UserRepository defines persistence operations for users
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	RecordSignIn(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, f ListFilter) ([]*models.User, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) error {
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"clerkId": clerkID})
}

func (r *MongoUserRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) RecordSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"lastSignInAt": at},
		"$inc": bson.M{"signInCount": 1},
	})
	return err
}

func mongoFilter(f ListFilter) bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.Suspended != nil {
		q["suspended"] = *f.Suspended
	}
	if f.Admin != nil {
		q["admin"] = *f.Admin
	}
	if !f.CreatedSince.IsZero() {
		q["createdAt"] = bson.M{"$gte": f.CreatedSince}
	}
	if f.Search != "" {
		rx := primitiveRegex(f.Search)
		q["$or"] = bson.A{bson.M{"email": rx}, bson.M{"name": rx}}
	}
	return q
}

func primitiveRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func (r *MongoUserRepository) List(ctx context.Context, f ListFilter) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.User
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, cur.Err()
}

func (r *MongoUserRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, mongoFilter(f))
}
