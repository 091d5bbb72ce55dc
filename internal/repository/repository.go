package repository

import (
	"context"
	"time"

	"github.com/sakif/auth-service/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the storage contract for user accounts.
//
// Create must be atomic with respect to the email uniqueness constraint:
// two concurrent Creates for the same email must resolve to exactly one
// success and one conflict error, without a separate existence check.
//
// FindByResetToken only matches a token whose expiration is after `now`;
// expired tokens are never purged, just filtered out. UpdatePassword clears
// both reset fields in the same write, which is what makes a reset token
// single-use.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
}
