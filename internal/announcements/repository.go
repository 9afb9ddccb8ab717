package announcements

import (
	"context"
	"errors"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("announcement not found")

// ListFilter narrows listings. VisibleTo with At selects live announcements for an audience.
type ListFilter struct {
	VisibleTo string
	At        time.Time
	Active    *bool
	Page      int
	Limit     int
}

type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	Get(ctx context.Context, id string) (*Announcement, error)
	Update(ctx context.Context, a *Announcement) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]*Announcement, error)
	Count(ctx context.Context, f ListFilter) (int64, error)
	// MarkRead stores a read receipt; it returns false when the user had already read it.
	MarkRead(ctx context.Context, r *Read) (bool, error)
	ReadSet(ctx context.Context, userID string, ids []string) (map[string]bool, error)
}

type MongoRepository struct {
	col   *mongo.Collection
	reads *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	r := &MongoRepository{col: db.Collection("announcements"), reads: db.Collection("announcement_reads")}
	ctx := context.Background()
	if _, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "targetAudience", Value: 1}, {Key: "publishAt", Value: -1}},
	}); err != nil {
		logger.Warnf("announcement indexes: %v", err)
	}
	if _, err := r.reads.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "announcement", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		logger.Warnf("announcement read indexes: %v", err)
	}
	return r
}

func (r *MongoRepository) Create(ctx context.Context, a *Announcement) error {
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Announcement, error) {
	var a Announcement
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoRepository) Update(ctx context.Context, a *Announcement) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
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
	_, err = r.reads.DeleteMany(ctx, bson.M{"announcement": id})
	return err
}

func query(f ListFilter) bson.M {
	q := bson.M{}
	if f.Active != nil {
		q["isActive"] = *f.Active
	}
	if f.VisibleTo != "" {
		q["isActive"] = true
		q["targetAudience"] = bson.M{"$in": bson.A{f.VisibleTo, AudienceAll}}
		q["publishAt"] = bson.M{"$lte": f.At}
		q["$or"] = bson.A{bson.M{"expiresAt": nil}, bson.M{"expiresAt": bson.M{"$gt": f.At}}}
	}
	return q
}

func (r *MongoRepository) List(ctx context.Context, f ListFilter) ([]*Announcement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "publishAt", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, query(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Announcement{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) Count(ctx context.Context, f ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, query(f))
}

func (r *MongoRepository) MarkRead(ctx context.Context, rd *Read) (bool, error) {
	if _, err := r.reads.InsertOne(ctx, rd); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	_, err := r.col.UpdateByID(ctx, rd.Announcement, bson.M{"$inc": bson.M{"totalReads": 1}})
	return true, err
}

func (r *MongoRepository) ReadSet(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.reads.Find(ctx, bson.M{"user": userID, "announcement": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var rd Read
		if err := cur.Decode(&rd); err != nil {
			return nil, err
		}
		out[rd.Announcement] = true
	}
	return out, cur.Err()
}
