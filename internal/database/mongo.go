package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the document store.
const (
	UsersCollection = "users"
	BlogsCollection = "blogs"
)

// MongoStore holds the document store client and its collections.
type MongoStore struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// ConnectMongo connects to uri, verifies the connection and selects dbname.
func ConnectMongo(ctx context.Context, uri, dbname string) (*MongoStore, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	store := NewMongoStore(cli.Database(dbname))
	if err := store.Ping(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return store, nil
}

// NewMongoStore wraps an already selected database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{Client: db.Client(), DB: db}
}

// Users returns the users collection.
func (s *MongoStore) Users() *mongo.Collection { return s.DB.Collection(UsersCollection) }

// Blogs returns the blogs collection.
func (s *MongoStore) Blogs() *mongo.Collection { return s.DB.Collection(BlogsCollection) }

// Ping checks the connection with a short deadline.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

// EnsureIndexes creates the indexes the repositories rely on. Unique email
// and Google subject close registration races; the text index backs search.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_google_id"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("role"),
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.Blogs().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("author_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_desc"),
		},
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "body", Value: "text"}},
			Options: options.Index().SetName("title_body_text"),
		},
	})
	if err != nil {
		return fmt.Errorf("blogs indexes: %w", err)
	}
	return nil
}

// IsDup reports whether err is a unique index violation.
func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
