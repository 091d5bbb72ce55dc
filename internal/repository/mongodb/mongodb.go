// Package mongodb implements the repository interfaces on MongoDB.
//
// The store holds a single `users` collection. The only index beyond _id is
// the unique index on email — that index is what closes the duplicate
// sign-up race: we never check-then-insert, we insert and let the server
// reject the duplicate atomically.
//
// DRIVER NOTES:
// mongo.Client is a connection pool, safe for concurrent use across request
// goroutines. Every operation takes a context so the hosting transport's
// request timeout propagates into the database calls.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// DB wraps a Mongo client and the database handle the repositories use.
type DB struct {
	client *mongo.Client
	users  *mongo.Collection
}

// New connects to MongoDB, verifies the connection, and ensures indexes.
//
// uri is a standard connection string (mongodb://...); dbName is the
// database holding the users collection.
func New(uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// Connect doesn't dial eagerly — ping so a bad URI or unreachable
	// server surfaces at startup, not on the first request.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	db := &DB{
		client: client,
		users:  client.Database(dbName).Collection("users"),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ensuring indexes: %w", err)
	}

	return db, nil
}

// Close disconnects the underlying client. Call it on server shutdown so
// in-flight operations drain cleanly.
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// ensureIndexes creates the unique email index. CreateOne is idempotent
// for an identical existing index, so this is safe on every startup.
func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating unique email index: %w", err)
	}
	return nil
}
