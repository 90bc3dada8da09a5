// Package mongo provides the MongoDB implementation of core.DurableStore.
// One document per conversation holds the full ordered turn sequence;
// appends are $push upserts so the document materializes on first write.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"voicerelay/core"
)

// Config holds the configuration for the MongoDB store.
type Config struct {
	URI        string
	Database   string
	Collection string        // defaults to "chats"
	Timeout    time.Duration // connect/ping timeout, defaults to 10s
}

// Store is a core.DurableStore backed by a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type conversationDoc struct {
	ChatID   string      `bson:"chat_id"`
	Messages []core.Turn `bson:"messages"`
}

// NewStore connects to MongoDB and verifies the connection with a ping.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "chats"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// AppendTurn pushes turn onto the conversation's message array, creating the
// document if it does not exist yet.
func (s *Store) AppendTurn(ctx context.Context, conversationID string, turn core.Turn) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"chat_id": conversationID},
		bson.M{"$push": bson.M{"messages": turn}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("push turn: %w", err)
	}
	return nil
}

// Load reads the conversation document. A missing document is not an error.
func (s *Store) Load(ctx context.Context, conversationID string) ([]core.Turn, bool, error) {
	var doc conversationDoc
	err := s.coll.FindOne(ctx, bson.M{"chat_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find conversation: %w", err)
	}
	return doc.Messages, true, nil
}

// Create inserts an empty conversation record. It is idempotent: an existing
// document is left untouched.
func (s *Store) Create(ctx context.Context, conversationID string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"chat_id": conversationID},
		bson.M{"$setOnInsert": bson.M{"messages": []core.Turn{}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// Delete removes the conversation document. Deleting an absent document
// succeeds.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"chat_id": conversationID})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
