package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/repository"
)

// These are integration tests — they need a running MongoDB. Set
// MONGO_TEST_URI (e.g. mongodb://localhost:27017) to enable them; without
// it the whole package's tests skip. Each test run uses a fresh database
// name so runs don't interfere.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping MongoDB integration tests")
	}

	dbName := "authtest_" + xid.New().String()
	db, err := New(uri, dbName)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.client.Database(dbName).Drop(ctx)
		_ = db.Close(ctx)
	})
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "$2a$04$fakehashfakehashfakehashfakehash",
		Role:         model.RoleUser,
	}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_SetsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "create@example.com")

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestCreate_DuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "dup@example.com")

	err := db.Create(context.Background(), &model.User{
		Email:        "dup@example.com",
		PasswordHash: "x",
		Role:         model.RoleUser,
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate error = %v, want ErrConflict", err)
	}
}

func TestCreate_ConcurrentDuplicates_ExactlyOneWins(t *testing.T) {
	db := newTestDB(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Create(context.Background(), &model.User{
				Email:        "race@example.com",
				PasswordHash: fmt.Sprintf("hash-%d", i),
				Role:         model.RoleUser,
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != workers-1 {
		t.Errorf("got %d successes and %d conflicts, want 1 and %d", ok, conflicts, workers-1)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestFindByEmail(t *testing.T) {
	db := newTestDB(t)

	created := createTestUser(t, db, "find@example.com")

	got, err := db.FindByEmail(context.Background(), "find@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("FindByEmail() ID = %q, want %q", got.ID, created.ID)
	}

	if _, err := db.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByEmail() missing user error = %v, want ErrNotFound", err)
	}
}

func TestFindByID(t *testing.T) {
	db := newTestDB(t)

	created := createTestUser(t, db, "byid@example.com")

	got, err := db.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Email != "byid@example.com" {
		t.Errorf("FindByID() Email = %q", got.Email)
	}
}

// =========================================================================
// RESET TOKEN TESTS
// =========================================================================

func TestResetTokenLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "reset@example.com")
	expiry := time.Now().Add(time.Hour)

	if err := db.SetResetToken(ctx, user.ID, "tok-123", expiry); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}

	// Unexpired token is found
	got, err := db.FindByResetToken(ctx, "tok-123", time.Now())
	if err != nil {
		t.Fatalf("FindByResetToken() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("FindByResetToken() ID = %q, want %q", got.ID, user.ID)
	}

	// Unknown token fails with ErrInvalidToken
	if _, err := db.FindByResetToken(ctx, "no-such-token", time.Now()); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("unknown token error = %v, want ErrInvalidToken", err)
	}

	// A token past its expiry is filtered out by the query, not deleted
	if _, err := db.FindByResetToken(ctx, "tok-123", expiry.Add(time.Second)); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}

	// UpdatePassword clears the token fields — single use
	if err := db.UpdatePassword(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if _, err := db.FindByResetToken(ctx, "tok-123", time.Now()); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("used token error = %v, want ErrInvalidToken", err)
	}

	updated, err := db.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if updated.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash = %q, want %q", updated.PasswordHash, "new-hash")
	}
	if updated.ResetToken != nil || updated.ResetTokenExpiration != nil {
		t.Error("reset fields should be cleared after UpdatePassword")
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 3; i++ {
		createTestUser(t, db, fmt.Sprintf("list%d@example.com", i))
	}

	users, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 3 {
		t.Errorf("List() returned %d users, want 3", len(users))
	}
}
