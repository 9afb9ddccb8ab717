package settings

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	// Get returns (nil, nil) for unknown keys.
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]*Setting, error)
	Put(ctx context.Context, s *Setting) error
	// InsertMissing stores s unless the key exists and reports whether it inserted.
	InsertMissing(ctx context.Context, s *Setting) (bool, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	if err := r.col.FindOne(ctx, bson.M{"_id": key}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]*Setting, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Setting{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) Put(ctx context.Context, s *Setting) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.Key}, s, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) InsertMissing(ctx context.Context, s *Setting) (bool, error) {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": s.Key}, bson.M{"$setOnInsert": s}, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Setting
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: map[string]Setting{}}
}

func (m *MemoryRepository) Get(ctx context.Context, key string) (*Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.items[key]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]*Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Setting{}
	for _, s := range m.items {
		cp := s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (m *MemoryRepository) Put(ctx context.Context, s *Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.Key] = *s
	return nil
}

func (m *MemoryRepository) InsertMissing(ctx context.Context, s *Setting) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.Key]; ok {
		return false, nil
	}
	m.items[s.Key] = *s
	return true, nil
}
