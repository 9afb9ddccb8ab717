package vas

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when a user already owns a VA profile or a public key collides.
var ErrDuplicate = errors.New("va profile already exists")

// HoursPerMonth converts an hourly rate filter into a monthly salary bound.
const HoursPerMonth = 160

// ListFilter narrows VA listings. Zero values mean "any".
type ListFilter struct {
	Search       string
	Specialties  []string
	RoleTypes    []string
	RoleLevels   []string
	MinRate      float64
	MaxRate      float64
	SearchStatus []string
	Status       string
	FeaturedOnly bool
	CreatedSince time.Time
	Sort         string
	Page         int
	Limit        int
}

// Repository defines persistence operations for VA profiles.
type Repository interface {
	Create(ctx context.Context, va *models.VA) error
	GetByID(ctx context.Context, id string) (*models.VA, error)
	GetByPublicKey(ctx context.Context, key string) (*models.VA, error)
	GetByUser(ctx context.Context, userID string) (*models.VA, error)
	Update(ctx context.Context, va *models.VA) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]*models.VA, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
}

// MongoRepository stores VA profiles in the "vas" collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, va *models.VA) error {
	if _, err := r.col.InsertOne(ctx, va); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.VA, error) {
	var va models.VA
	if err := r.col.FindOne(ctx, filter).Decode(&va); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &va, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.VA, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByPublicKey(ctx context.Context, key string) (*models.VA, error) {
	return r.findOne(ctx, bson.M{"publicProfileKey": key})
}

func (r *MongoRepository) GetByUser(ctx context.Context, userID string) (*models.VA, error) {
	return r.findOne(ctx, bson.M{"user": userID})
}

func (r *MongoRepository) Update(ctx context.Context, va *models.VA) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": va.ID}, va)
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

func regex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func mongoFilter(f ListFilter) bson.M {
	q := bson.M{}
	var and bson.A
	if len(f.SearchStatus) > 0 {
		q["searchStatus"] = bson.M{"$in": f.SearchStatus}
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.FeaturedOnly {
		q["featuredAt"] = bson.M{"$ne": nil}
	}
	if !f.CreatedSince.IsZero() {
		q["createdAt"] = bson.M{"$gte": f.CreatedSince}
	}
	if len(f.Specialties) > 0 {
		q["specialties"] = bson.M{"$in": f.Specialties}
	}
	if f.Search != "" {
		rx := regex(f.Search)
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"name": rx}, bson.M{"bio": rx}, bson.M{"hero": rx}, bson.M{"skills": rx},
		}})
	}
	if f.MinRate > 0 || f.MaxRate > 0 {
		min, max := f.rateBounds()
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"preferredMinHourlyRate": bson.M{"$gte": min, "$lte": max}},
			bson.M{"preferredMinSalary": bson.M{"$gte": min * HoursPerMonth, "$lte": max * HoursPerMonth}},
		}})
	}
	if len(f.RoleTypes) > 0 {
		var or bson.A
		for _, t := range f.RoleTypes {
			or = append(or, bson.M{"roleType." + t: true})
		}
		and = append(and, bson.M{"$or": or})
	}
	if len(f.RoleLevels) > 0 {
		var or bson.A
		for _, l := range f.RoleLevels {
			or = append(or, bson.M{"roleLevel." + l: true})
		}
		and = append(and, bson.M{"$or": or})
	}
	if len(and) > 0 {
		q["$and"] = and
	}
	return q
}

func (f ListFilter) rateBounds() (float64, float64) {
	max := f.MaxRate
	if max <= 0 {
		max = 999999
	}
	return f.MinRate, max
}

// sortFields maps the public sort parameter to document fields.
var sortFields = map[string]bson.D{
	"-searchScore":      {{Key: "searchScore", Value: -1}, {Key: "_id", Value: 1}},
	"-profileUpdatedAt": {{Key: "profileUpdatedAt", Value: -1}, {Key: "_id", Value: 1}},
	"rate":              {{Key: "preferredMinHourlyRate", Value: 1}, {Key: "_id", Value: 1}},
	"-rate":             {{Key: "preferredMinHourlyRate", Value: -1}, {Key: "_id", Value: 1}},
	"name":              {{Key: "name", Value: 1}, {Key: "_id", Value: 1}},
	"-createdAt":        {{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
	"-featuredAt":       {{Key: "featuredAt", Value: -1}, {Key: "_id", Value: 1}},
}

// NormalizeSort returns a supported sort key, defaulting to -searchScore.
func NormalizeSort(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := sortFields[s]; ok {
		return s
	}
	return "-searchScore"
}

func (r *MongoRepository) List(ctx context.Context, f ListFilter) ([]*models.VA, error) {
	opts := options.Find().SetSort(sortFields[NormalizeSort(f.Sort)])
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
	out := []*models.VA{}
	for cur.Next(ctx) {
		var va models.VA
		if err := cur.Decode(&va); err != nil {
			return nil, err
		}
		out = append(out, &va)
	}
	return out, cur.Err()
}

func (r *MongoRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, mongoFilter(f))
}
