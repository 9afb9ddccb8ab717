package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection             = "users"
	SessionsCollection          = "sessions"
	VAsCollection               = "vas"
	BusinessesCollection        = "businesses"
	EngagementsCollection       = "engagements"
	ConversationsCollection     = "conversations"
	MessagesCollection          = "messages"
	NotificationsCollection     = "notifications"
	AnnouncementsCollection     = "announcements"
	AnnouncementReadsCollection = "announcement_reads"
	InvitationsCollection       = "admin_invitations"
	SettingsCollection          = "system_settings"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectWithRetry retries ConnectMongo with exponential backoff to tolerate startup races.
func ConnectWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, onRetry func(attempt int, err error)) (*mongo.Client, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("mongo unavailable after %d attempts: %w", attempts, lastErr)
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func() *options.IndexOptions { return options.Index().SetUnique(true) }
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: unique().SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		VAsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "publicProfileKey", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "searchStatus", Value: 1}, {Key: "searchScore", Value: -1}}},
			{Keys: bson.D{{Key: "featuredAt", Value: -1}}},
		},
		BusinessesCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: unique()},
		},
		EngagementsCollection: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "lastActivityAt", Value: -1}}},
			{Keys: bson.D{{Key: "vaId", Value: 1}}},
		},
		ConversationsCollection: {
			{Keys: bson.D{{Key: "va", Value: 1}, {Key: "business", Value: 1}, {Key: "isIntercepted", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageAt", Value: -1}}},
			{Keys: bson.D{{Key: "isIntercepted", Value: 1}, {Key: "adminStatus", Value: 1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "conversation", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "readAt", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		AnnouncementsCollection: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "targetAudience", Value: 1}, {Key: "publishAt", Value: -1}}},
		},
		AnnouncementReadsCollection: {
			{Keys: bson.D{{Key: "announcement", Value: 1}, {Key: "user", Value: 1}}, Options: unique()},
		},
		InvitationsCollection: {
			{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "status", Value: 1}}},
		},
		SettingsCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique()},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
