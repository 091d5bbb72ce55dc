package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user document.
//
// The unique index on email makes this the atomic conflict point for
// concurrent sign-ups: of two racing inserts for the same address, the
// server accepts exactly one and the loser gets a duplicate-key error,
// surfaced here as apperror.ErrConflict. No prior existence check.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := db.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("mongodb: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// FindByEmail returns the user with the given (already lowercased) email.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("mongodb: finding user by email %s: %w", email, err)
	}
	return &u, nil
}

// FindByID returns the user with the given internal ID.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("mongodb: finding user %s: %w", id, err)
	}
	return &u, nil
}

// SetResetToken stores a pending reset token and its expiry on the user.
// Both fields are written in one update so they are never observed
// half-set.
func (db *DB) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := db.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"reset_token":            token,
			"reset_token_expiration": expiresAt.UTC(),
			"updated_at":             time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: setting reset token for user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// FindByResetToken returns the user holding this reset token, provided the
// token has not expired as of `now`. Expired documents keep their stale
// token fields — the expiry filter in the query is what invalidates them.
func (db *DB) FindByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	var u model.User
	err := db.users.FindOne(ctx, bson.M{
		"reset_token":            token,
		"reset_token_expiration": bson.M{"$gt": now.UTC()},
	}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.InvalidToken()
		}
		return nil, fmt.Errorf("mongodb: finding user by reset token: %w", err)
	}
	return &u, nil
}

// UpdatePassword replaces the stored hash and clears both reset-token
// fields in the same write. Clearing in the same update is what makes a
// reset token single-use: a second attempt with the same token finds no
// matching document.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{
				"password_hash": passwordHash,
				"updated_at":    time.Now().UTC(),
			},
			"$unset": bson.M{
				"reset_token":            "",
				"reset_token_expiration": "",
			},
		},
	)
	if err != nil {
		return fmt.Errorf("mongodb: updating password for user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// List returns users ordered by creation time, newest first.
// Used by the admin listing; password hashes stay in the struct but are
// never serialized (json:"-" on the model).
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(opts.Offset))
	cursor, err := db.users.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongodb: decoding user list: %w", err)
	}
	return users, nil
}
