package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("conversation not found")
	ErrDuplicate = errors.New("conversation already exists")
)

// Unread counter owners.
const (
	ReaderVA       = "va"
	ReaderBusiness = "business"
	ReaderAdmin    = "admin"
)

// ConversationFilter narrows conversation listings. Zero values mean "any".
type ConversationFilter struct {
	VA            string
	Business      string
	Participant   string
	Intercepted   *bool
	AdminStatus   string
	Status        string
	NotArchivedBy string
	ActiveSince   time.Time
	Page          int
	Limit         int
}

// Repository persists conversations and their messages.
type Repository interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	// GetConversation returns ErrNotFound for unknown ids.
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	// FindConversation returns (nil, nil) when no conversation exists for the pair.
	FindConversation(ctx context.Context, va, business string, intercepted bool) (*Conversation, error)
	// SetBlockedAt sets or clears (nil at) the block timestamp owned by reader.
	SetBlockedAt(ctx context.Context, id, reader string, at *time.Time, now time.Time) error
	// AddArchivedBy adds userID to the archivers set.
	AddArchivedBy(ctx context.Context, id, userID string, now time.Time) error
	// UpdateAdminState writes only the moderation fields named in u.
	UpdateAdminState(ctx context.Context, id string, u AdminUpdate) error
	ListConversations(ctx context.Context, f ConversationFilter) ([]*Conversation, error)
	CountConversations(ctx context.Context, f ConversationFilter) (int64, error)
	CountByAdminStatus(ctx context.Context) (map[string]int64, error)
	// SumUnread adds up the reader's unread counters over the matching conversations.
	SumUnread(ctx context.Context, f ConversationFilter, reader string) (int64, error)
	// RecordMessage bumps the message count and the unread counters of a conversation.
	RecordMessage(ctx context.Context, id string, last LastMessage, unread map[string]int) error
	ResetUnread(ctx context.Context, id, reader string) error

	CreateMessage(ctx context.Context, m *Message) error
	// ListMessages pages through a conversation oldest first.
	ListMessages(ctx context.Context, conversationID string, page, limit int) ([]*Message, error)
	// CountMessages counts a conversation's messages, or all messages when conversationID is empty.
	CountMessages(ctx context.Context, conversationID string) (int64, error)
	MarkMessagesRead(ctx context.Context, conversationID, reader string, at time.Time) (int64, error)
}

type MongoRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	r := &MongoRepository{conversations: db.Collection("conversations"), messages: db.Collection("messages")}
	ctx := context.Background()
	convIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "va", Value: 1}, {Key: "business", Value: 1}, {Key: "isIntercepted", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageAt", Value: -1}}},
		{Keys: bson.D{{Key: "isIntercepted", Value: 1}, {Key: "adminStatus", Value: 1}}},
	}
	if _, err := r.conversations.Indexes().CreateMany(ctx, convIdx); err != nil {
		logger.Warnf("conversation indexes: %v", err)
	}
	msgIdx := []mongo.IndexModel{{Keys: bson.D{{Key: "conversation", Value: 1}, {Key: "createdAt", Value: 1}}}}
	if _, err := r.messages.Indexes().CreateMany(ctx, msgIdx); err != nil {
		logger.Warnf("message indexes: %v", err)
	}
	return r
}

func (r *MongoRepository) CreateConversation(ctx context.Context, c *Conversation) error {
	if _, err := r.conversations.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoRepository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	if err := r.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoRepository) FindConversation(ctx context.Context, va, business string, intercepted bool) (*Conversation, error) {
	var c Conversation
	err := r.conversations.FindOne(ctx, bson.M{"va": va, "business": business, "isIntercepted": intercepted}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func blockedField(reader string) string {
	if reader == ReaderVA {
		return "vaBlockedAt"
	}
	return "businessBlockedAt"
}

func (r *MongoRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	res, err := r.conversations.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) SetBlockedAt(ctx context.Context, id, reader string, at *time.Time, now time.Time) error {
	field := blockedField(reader)
	if at == nil {
		return r.updateByID(ctx, id, bson.M{"$set": bson.M{"updatedAt": now}, "$unset": bson.M{field: ""}})
	}
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{field: *at, "updatedAt": now}})
}

func (r *MongoRepository) AddArchivedBy(ctx context.Context, id, userID string, now time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":      bson.M{"updatedAt": now},
		"$addToSet": bson.M{"archivedBy": userID},
	})
}

func (r *MongoRepository) UpdateAdminState(ctx context.Context, id string, u AdminUpdate) error {
	set := bson.M{"updatedAt": u.At}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.AdminStatus != nil {
		set["adminStatus"] = *u.AdminStatus
	}
	if u.AdminNotes != nil {
		set["adminNotes"] = *u.AdminNotes
	}
	if u.ForwardedConversation != nil {
		set["forwardedConversation"] = *u.ForwardedConversation
	}
	update := bson.M{"$set": set}
	if u.Action != nil {
		update["$push"] = bson.M{"adminActions": *u.Action}
	}
	return r.updateByID(ctx, id, update)
}

func conversationQuery(f ConversationFilter) bson.M {
	q := bson.M{}
	if f.VA != "" {
		q["va"] = f.VA
	}
	if f.Business != "" {
		q["business"] = f.Business
	}
	if f.Participant != "" {
		q["participants"] = f.Participant
	}
	if f.Intercepted != nil {
		q["isIntercepted"] = *f.Intercepted
	}
	if f.AdminStatus != "" {
		q["adminStatus"] = f.AdminStatus
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.NotArchivedBy != "" {
		q["archivedBy"] = bson.M{"$ne": f.NotArchivedBy}
	}
	if !f.ActiveSince.IsZero() {
		q["lastMessageAt"] = bson.M{"$gte": f.ActiveSince}
	}
	return q
}

func (r *MongoRepository) ListConversations(ctx context.Context, f ConversationFilter) ([]*Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := r.conversations.Find(ctx, conversationQuery(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) CountConversations(ctx context.Context, f ConversationFilter) (int64, error) {
	return r.conversations.CountDocuments(ctx, conversationQuery(f))
}

func (r *MongoRepository) CountByAdminStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isIntercepted": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$adminStatus", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.Count
	}
	return out, cur.Err()
}

func (r *MongoRepository) SumUnread(ctx context.Context, f ConversationFilter, reader string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: conversationQuery(f)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$unreadCount." + reader}}}},
	}
	cur, err := r.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var row struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Total, cur.Err()
}

func (r *MongoRepository) RecordMessage(ctx context.Context, id string, last LastMessage, unread map[string]int) error {
	inc := bson.M{"messagesCount": 1}
	for reader, n := range unread {
		inc["unreadCount."+reader] = n
	}
	res, err := r.conversations.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"lastMessage": last, "lastMessageAt": last.CreatedAt, "updatedAt": last.CreatedAt},
		"$inc": inc,
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) ResetUnread(ctx context.Context, id, reader string) error {
	_, err := r.conversations.UpdateByID(ctx, id, bson.M{"$set": bson.M{"unreadCount." + reader: 0}})
	return err
}

func (r *MongoRepository) CreateMessage(ctx context.Context, m *Message) error {
	_, err := r.messages.InsertOne(ctx, m)
	return err
}

func (r *MongoRepository) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]*Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}
	cur, err := r.messages.Find(ctx, bson.M{"conversation": conversationID, "deletedAt": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	q := bson.M{"deletedAt": nil}
	if conversationID != "" {
		q["conversation"] = conversationID
	}
	return r.messages.CountDocuments(ctx, q)
}

func (r *MongoRepository) MarkMessagesRead(ctx context.Context, conversationID, reader string, at time.Time) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{"conversation": conversationID, "sender": bson.M{"$ne": reader}, "readAt": nil},
		bson.M{"$set": bson.M{"readAt": at, "status": DeliveryRead}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
