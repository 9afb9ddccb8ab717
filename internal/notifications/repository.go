package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("notification not found")

// ListFilter selects a recipient's notifications. Archived ones are never listed.
type ListFilter struct {
	Recipient  string
	UnreadOnly bool
	Limit      int
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, f ListFilter) ([]*Notification, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
	// MarkRead marks the given ids read (all unread ones when ids is empty) and returns how many changed.
	MarkRead(ctx context.Context, recipient string, ids []string, at time.Time) (int64, error)
	Archive(ctx context.Context, recipient, id string) error
	Delete(ctx context.Context, recipient, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "readAt", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(context.Background(), idx); err != nil {
		logger.Warnf("notification indexes: %v", err)
	}
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, n *Notification) error {
	_, err := r.col.InsertOne(ctx, n)
	return err
}

func (r *MongoRepository) List(ctx context.Context, f ListFilter) ([]*Notification, error) {
	q := bson.M{"recipient": f.Recipient, "archived": false}
	if f.UnreadOnly {
		q["readAt"] = nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"recipient": recipient, "archived": false, "readAt": nil})
}

func (r *MongoRepository) MarkRead(ctx context.Context, recipient string, ids []string, at time.Time) (int64, error) {
	q := bson.M{"recipient": recipient, "readAt": nil}
	if len(ids) > 0 {
		q["_id"] = bson.M{"$in": ids}
	}
	res, err := r.col.UpdateMany(ctx, q, bson.M{"$set": bson.M{"readAt": at}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoRepository) Archive(ctx context.Context, recipient, id string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "recipient": recipient}, bson.M{"$set": bson.M{"archived": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, recipient, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
