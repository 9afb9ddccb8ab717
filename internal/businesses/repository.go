package businesses

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

// ErrDuplicate is returned when a user already owns a business profile.
var ErrDuplicate = errors.New("business profile already exists")

// ListFilter narrows admin listings.
type ListFilter struct {
	Search       string
	Industry     string
	CreatedSince time.Time
	Page         int
	Limit        int
}

// Repository defines persistence operations for business profiles.
type Repository interface {
	Create(ctx context.Context, b *models.Business) error
	GetByID(ctx context.Context, id string) (*models.Business, error)
	GetByUser(ctx context.Context, userID string) (*models.Business, error)
	Update(ctx context.Context, b *models.Business) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]*models.Business, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
}

// MongoRepository stores profiles in the "businesses" collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, b *models.Business) error {
	if _, err := r.col.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Business, error) {
	var b models.Business
	if err := r.col.FindOne(ctx, filter).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.Business, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByUser(ctx context.Context, userID string) (*models.Business, error) {
	return r.findOne(ctx, bson.M{"user": userID})
}

func (r *MongoRepository) Update(ctx context.Context, b *models.Business) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mongoFilter(f ListFilter) bson.M {
	q := bson.M{}
	if f.Industry != "" {
		q["industry"] = f.Industry
	}
	if !f.CreatedSince.IsZero() {
		q["createdAt"] = bson.M{"$gte": f.CreatedSince}
	}
	if f.Search != "" {
		rx := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		q["$or"] = bson.A{bson.M{"company": rx}, bson.M{"contactName": rx}, bson.M{"email": rx}}
	}
	return q
}

func (r *MongoRepository) List(ctx context.Context, f ListFilter) ([]*models.Business, error) {
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
	out := []*models.Business{}
	for cur.Next(ctx) {
		var b models.Business
		if err := cur.Decode(&b); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, cur.Err()
}

func (r *MongoRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, mongoFilter(f))
}
