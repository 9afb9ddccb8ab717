package invitations

import (
	"context"
	"errors"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("invitation not found")

type Repository interface {
	Create(ctx context.Context, inv *Invitation) error
	Get(ctx context.Context, id string) (*Invitation, error)
	// GetByTokenHash returns (nil, nil) for unknown tokens.
	GetByTokenHash(ctx context.Context, hash string) (*Invitation, error)
	// FindPending returns the pending invitation for email, or (nil, nil).
	FindPending(ctx context.Context, email string) (*Invitation, error)
	Update(ctx context.Context, inv *Invitation) error
	List(ctx context.Context, status string) ([]*Invitation, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(context.Background(), idx); err != nil {
		logger.Warnf("invitation indexes: %v", err)
	}
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, inv *Invitation) error {
	_, err := r.col.InsertOne(ctx, inv)
	return err
}

func (r *MongoRepository) findOne(ctx context.Context, q bson.M) (*Invitation, error) {
	var inv Invitation
	if err := r.col.FindOne(ctx, q).Decode(&inv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Invitation, error) {
	inv, err := r.findOne(ctx, bson.M{"_id": id})
	if err == nil && inv == nil {
		return nil, ErrNotFound
	}
	return inv, err
}

func (r *MongoRepository) GetByTokenHash(ctx context.Context, hash string) (*Invitation, error) {
	return r.findOne(ctx, bson.M{"tokenHash": hash})
}

func (r *MongoRepository) FindPending(ctx context.Context, email string) (*Invitation, error) {
	return r.findOne(ctx, bson.M{"email": email, "status": StatusPending})
}

func (r *MongoRepository) Update(ctx context.Context, inv *Invitation) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": inv.ID}, inv)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context, status string) ([]*Invitation, error) {
	q := bson.M{}
	if status != "" {
		q["status"] = status
	}
	cur, err := r.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Invitation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryRepository keeps invitations in process.
type MemoryRepository struct {
	items []*Invitation
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (m *MemoryRepository) Create(ctx context.Context, inv *Invitation) error {
	cp := *inv
	m.items = append(m.items, &cp)
	return nil
}

func (m *MemoryRepository) find(match func(*Invitation) bool) *Invitation {
	for _, inv := range m.items {
		if match(inv) {
			cp := *inv
			return &cp
		}
	}
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*Invitation, error) {
	if inv := m.find(func(i *Invitation) bool { return i.ID == id }); inv != nil {
		return inv, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByTokenHash(ctx context.Context, hash string) (*Invitation, error) {
	return m.find(func(i *Invitation) bool { return i.TokenHash == hash }), nil
}

func (m *MemoryRepository) FindPending(ctx context.Context, email string) (*Invitation, error) {
	return m.find(func(i *Invitation) bool { return i.Email == email && i.Status == StatusPending }), nil
}

func (m *MemoryRepository) Update(ctx context.Context, inv *Invitation) error {
	for i, existing := range m.items {
		if existing.ID == inv.ID {
			cp := *inv
			m.items[i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) List(ctx context.Context, status string) ([]*Invitation, error) {
	out := []*Invitation{}
	for i := len(m.items) - 1; i >= 0; i-- {
		if status == "" || m.items[i].Status == status {
			cp := *m.items[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
