package repository

import (
	"context"
	"regexp"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/engagement"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository for engagements.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// listing and summary queries filter by client and status
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "vaId", Value: 1}}},
		{Keys: bson.D{{Key: "lastActivityAt", Value: -1}}},
	}
	if _, err := col.Indexes().CreateMany(context.Background(), models); err != nil {
		logger.Warnf("engagement indexes: %v", err)
	}
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, e *engagement.Engagement) error {
	_, err := m.col.InsertOne(ctx, e)
	return err
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*engagement.Engagement, error) {
	var e engagement.Engagement
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (m *MongoRepo) Update(ctx context.Context, e *engagement.Engagement) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func filter(f engagement.Filter) bson.M {
	q := bson.M{}
	if f.ClientID != "" {
		q["clientId"] = f.ClientID
	}
	if f.VAID != "" {
		q["vaId"] = f.VAID
	}
	if set := engagement.StatusSet(f.Status); set != nil {
		q["status"] = bson.M{"$in": set}
	}
	created := bson.M{}
	if !f.CreatedFrom.IsZero() {
		created["$gte"] = f.CreatedFrom
	}
	if !f.CreatedTo.IsZero() {
		created["$lte"] = f.CreatedTo
	}
	if len(created) > 0 {
		q["createdAt"] = created
	}
	if f.Search != "" {
		rx := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		q["$or"] = bson.A{bson.M{"vaName": rx}, bson.M{"notes": rx}, bson.M{"tags": rx}}
	}
	return q
}

func sortFor(key string) bson.D {
	switch key {
	case engagement.SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	case engagement.SortStatus:
		return bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}
	case engagement.SortName:
		return bson.D{{Key: "vaName", Value: 1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "lastActivityAt", Value: -1}, {Key: "_id", Value: 1}}
}

func (m *MongoRepo) List(ctx context.Context, f engagement.Filter) ([]*engagement.Engagement, error) {
	opts := options.Find().SetSort(sortFor(f.Sort))
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := m.col.Find(ctx, filter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*engagement.Engagement{}
	for cur.Next(ctx) {
		var e engagement.Engagement
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Count(ctx context.Context, f engagement.Filter) (int64, error) {
	return m.col.CountDocuments(ctx, filter(f))
}

func (m *MongoRepo) CountByStatus(ctx context.Context, f engagement.Filter) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter(f)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := m.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	counts := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Status] = row.Count
	}
	return counts, cur.Err()
}

func (m *MongoRepo) AverageHoursPerWeek(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"contract.hoursPerWeek": bson.M{"$gt": 0}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$contract.hoursPerWeek"}}}},
	}
	cur, err := m.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var row struct {
		Avg float64 `bson:"avg"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Avg, cur.Err()
}
